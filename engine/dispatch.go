package engine

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/c360/seisgate/errors"
)

// limiter holds the process-wide concurrency ceilings: one global and one per
// endpoint, created lazily. All in-flight requests share it, so the ceilings
// bound aggregate load rather than per-request load.
type limiter struct {
	global *semaphore.Weighted
	weight int64

	mu        sync.Mutex
	endpoints map[string]*semaphore.Weighted
}

func newLimiter(global, perEndpoint int64) *limiter {
	return &limiter{
		global:    semaphore.NewWeighted(global),
		weight:    perEndpoint,
		endpoints: make(map[string]*semaphore.Weighted),
	}
}

func (l *limiter) endpoint(endpoint string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.endpoints[endpoint]
	if !ok {
		sem = semaphore.NewWeighted(l.weight)
		l.endpoints[endpoint] = sem
	}
	return sem
}

// acquire takes the endpoint slot before the global one, so tasks queued on
// a busy endpoint do not pin global slots while they wait.
func (l *limiter) acquire(ctx context.Context, endpoint string) error {
	if err := l.endpoint(endpoint).Acquire(ctx, 1); err != nil {
		return err
	}
	if err := l.global.Acquire(ctx, 1); err != nil {
		l.endpoint(endpoint).Release(1)
		return err
	}
	return nil
}

func (l *limiter) release(endpoint string) {
	l.global.Release(1)
	l.endpoint(endpoint).Release(1)
}

// dispatcher fans one request's tasks out to workers and collects their
// outcomes. The limiter and worker are process-wide; the dispatcher itself
// lives for a single request.
type dispatcher struct {
	worker  *worker
	limits  *limiter
	logger  *slog.Logger
	metrics *engineMetrics

	wg sync.WaitGroup

	mu       sync.Mutex
	outcomes []Outcome
}

func newDispatcher(w *worker, limits *limiter, logger *slog.Logger, metrics *engineMetrics) *dispatcher {
	return &dispatcher{
		worker:  w,
		limits:  limits,
		logger:  logger,
		metrics: metrics,
	}
}

// dispatch spawns every task and blocks until the whole tree of workers,
// split children included, has resolved. Outcomes come back in completion
// order; payload ordering is fixed by buffer slots, not by this list.
func (d *dispatcher) dispatch(ctx context.Context, tasks []*task) []Outcome {
	for _, t := range tasks {
		d.spawn(ctx, t)
	}
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcomes
}

// spawn registers the task before starting its goroutine, so a parent's
// children are always counted before the parent resolves.
func (d *dispatcher) spawn(ctx context.Context, t *task) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.limits.acquire(ctx, t.endpoint); err != nil {
			d.resolve(t, failureOutcome(t, errors.WrapTransient(err,
				"dispatcher", "spawn", "concurrency slot acquisition")))
			return
		}

		d.metrics.workerStarted()
		out := d.worker.run(ctx, t)
		d.metrics.workerDone()

		// Both slots go back before any children spawn. A deep split
		// tree must never wait on slots its own ancestors still hold.
		d.limits.release(t.endpoint)

		if out.State == StateRetrySplit {
			// Child slots are carved out of the parent's payload
			// position up front, so merge order is fixed no matter
			// how the children finish.
			slots := t.slot.split(len(out.SplitEpochs))
			for i, sub := range out.SplitEpochs {
				d.spawn(ctx, &task{
					endpoint: t.endpoint,
					epoch:    sub,
					slot:     slots[i],
					depth:    t.depth + 1,
				})
			}
		}
		d.resolve(t, out)
	}()
}

// resolve records one task outcome.
func (d *dispatcher) resolve(t *task, o Outcome) {
	d.metrics.recordTask(o.State, o.Bytes)

	switch o.State {
	case StatePermanentFailure:
		d.logger.Warn("sub-request failed",
			"endpoint", o.Endpoint,
			"epoch", o.Epoch.String(),
			"depth", t.depth,
			"error", o.Err)
	case StateRetrySplit:
		d.logger.Debug("epoch subdivided",
			"endpoint", o.Endpoint,
			"epoch", o.Epoch.String(),
			"children", len(o.SplitEpochs),
			"depth", t.depth)
	default:
		d.logger.Debug("sub-request resolved",
			"endpoint", o.Endpoint,
			"state", o.State.String(),
			"bytes", o.Bytes)
	}

	d.mu.Lock()
	d.outcomes = append(d.outcomes, o)
	d.mu.Unlock()
}
