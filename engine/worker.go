package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/c360/seisgate/epoch"
	"github.com/c360/seisgate/errors"
)

// task is one (endpoint, epoch) sub-request bound to its payload slot. Depth
// counts how many subdivisions led to it, for logging.
type task struct {
	endpoint string
	epoch    epoch.StreamEpoch
	slot     *slot
	depth    int
}

// worker executes sub-requests against backend endpoints. One worker value is
// shared by all goroutines of a request; per-task state lives in the task.
type worker struct {
	http    *http.Client
	budget  AdmissionTracker
	cfg     Config
	logger  *slog.Logger
	metrics *engineMetrics
}

// run resolves one task to an outcome. It never returns an error across the
// goroutine boundary; every failure mode is absorbed into the outcome so the
// dispatcher can pattern-match on its state.
func (w *worker) run(ctx context.Context, t *task) Outcome {
	// Admission gate. A suppressed endpoint fails immediately and
	// visibly. The denial itself is not recorded as an outcome, so a
	// suppressed endpoint recovers by window expiry rather than digging
	// itself deeper.
	if !w.budget.Admissible(t.endpoint) {
		return failureOutcome(t, errors.Wrap(errors.ErrEndpointSuppressed,
			"worker", "run", "admission to "+t.endpoint))
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	body := strings.NewReader(t.epoch.String() + "\n")
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return failureOutcome(t, errors.WrapInvalid(err, "worker", "run",
			"sub-request construction for "+t.endpoint))
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := w.http.Do(req)
	if err != nil {
		// A dying parent context is a request-level cause; only
		// endpoint-attributable failures count against the budget.
		if ctx.Err() == nil {
			w.budget.Record(t.endpoint, false)
		}
		return failureOutcome(t, errors.WrapTransient(err, "worker", "run",
			"sub-request to "+t.endpoint))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return w.stream(ctx, cancel, t, resp.Body)

	case http.StatusNoContent, http.StatusNotFound:
		// The endpoint answered and holds nothing for this epoch. A
		// zero-byte success, not an error.
		drainBody(resp.Body)
		w.budget.Record(t.endpoint, true)
		return successOutcome(t, 0)

	case http.StatusRequestEntityTooLarge:
		// Too-large rejections never count against the retry budget:
		// the endpoint answered correctly, the request was oversized.
		drainBody(resp.Body)
		return w.split(t)

	default:
		drainBody(resp.Body)
		w.budget.Record(t.endpoint, false)
		return failureOutcome(t, errors.WrapTransient(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			"worker", "run", "sub-request to "+t.endpoint))
	}
}

// stream copies the response body into the task's slot under the progress
// watchdog. A read that makes no progress for ProgressTimeout cancels the
// request mid-body; the partial bytes are discarded so the merged payload is
// never truncated silently.
func (w *worker) stream(ctx context.Context, cancel context.CancelFunc, t *task, body io.Reader) Outcome {
	var stalled atomic.Bool
	watchdog := time.AfterFunc(w.cfg.ProgressTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	n, err := io.Copy(t.slot, &progressReader{
		r:        body,
		watchdog: watchdog,
		timeout:  w.cfg.ProgressTimeout,
	})
	if err != nil {
		if rerr := t.slot.reset(); rerr != nil {
			w.logger.Warn("partial slot reset failed",
				"endpoint", t.endpoint, "error", rerr)
		}
		if stalled.Load() {
			err = fmt.Errorf("%w: no read progress within %v",
				errors.ErrStreamDeadline, w.cfg.ProgressTimeout)
			w.budget.Record(t.endpoint, false)
		} else if ctx.Err() == nil {
			w.budget.Record(t.endpoint, false)
		}
		return failureOutcome(t, errors.WrapTransient(err, "worker", "stream",
			"payload copy from "+t.endpoint))
	}

	w.budget.Record(t.endpoint, true)
	return successOutcome(t, n)
}

// split subdivides the task's epoch after a too-large rejection. A
// single-element split means the configured floor is reached and the
// sub-epoch fails permanently instead of recursing forever.
func (w *worker) split(t *task) Outcome {
	children := t.epoch.Split(w.cfg.SplitFactor, w.cfg.MinDuration)
	if len(children) < 2 {
		return failureOutcome(t, errors.Wrap(
			fmt.Errorf("%w: %v interval cannot divide below %v",
				errors.ErrSplitExhausted, t.epoch.Duration(), w.cfg.MinDuration),
			"worker", "split", "subdivision for "+t.endpoint))
	}
	return splitOutcome(t, children)
}

// progressReader resets the stall watchdog whenever bytes arrive.
type progressReader struct {
	r        io.Reader
	watchdog *time.Timer
	timeout  time.Duration
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.watchdog.Reset(pr.timeout)
	}
	return n, err
}

// drainBody discards a bounded remainder so the connection can be reused.
func drainBody(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
}
