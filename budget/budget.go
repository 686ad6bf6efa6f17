// Package budget implements per-endpoint admission control for federated
// sub-requests: a rolling error-ratio circuit breaker (retry budget).
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/seisgate/errors"
)

// Defaults applied by Config.Validate.
const (
	DefaultWindowSize    = 10000
	DefaultMinSamples    = 100
	DefaultThreshold     = 0.01
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Config controls the retry budget.
type Config struct {
	// WindowSize is the ring capacity of outcomes kept per endpoint.
	WindowSize int `json:"window_size"`

	// MinSamples is the sample count below which an endpoint is always
	// admissible.
	MinSamples int `json:"min_samples"`

	// Threshold is the error ratio at or above which an endpoint stops
	// being admissible, in (0, 1].
	Threshold float64 `json:"threshold"`

	// TTL is how long an idle endpoint entry survives. Refreshed on every
	// record.
	TTL time.Duration `json:"ttl"`

	// SweepInterval is how often expired entries are removed in the
	// background.
	SweepInterval time.Duration `json:"sweep_interval"`
}

// DefaultConfig returns the standard budget configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:    DefaultWindowSize,
		MinSamples:    DefaultMinSamples,
		Threshold:     DefaultThreshold,
		TTL:           DefaultTTL,
		SweepInterval: DefaultSweepInterval,
	}
}

// Validate applies defaults to unset fields and rejects unusable values.
func (c *Config) Validate() error {
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.MinSamples == 0 {
		c.MinSamples = DefaultMinSamples
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}

	if c.WindowSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "budget", "Validate",
			fmt.Sprintf("window_size must be positive, got %d", c.WindowSize))
	}
	if c.MinSamples < 0 || c.MinSamples > c.WindowSize {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "budget", "Validate",
			fmt.Sprintf("min_samples must be within the window, got %d of %d", c.MinSamples, c.WindowSize))
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "budget", "Validate",
			fmt.Sprintf("threshold must be in (0, 1], got %g", c.Threshold))
	}
	if c.TTL < 0 || c.SweepInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "budget", "Validate",
			"ttl and sweep_interval must be positive")
	}
	return nil
}

// window is one endpoint's ring of outcome flags. Guarded by Tracker.mu.
type window struct {
	outcomes []bool // true marks an error
	next     int
	count    int
	errs     int
	lastSeen time.Time
}

func newWindow(capacity int) *window {
	return &window{outcomes: make([]bool, capacity)}
}

// record appends an outcome, evicting the oldest when the ring is full, and
// refreshes the entry's TTL.
func (w *window) record(isErr bool, now time.Time) {
	if w.count == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.errs--
		}
	} else {
		w.count++
	}
	w.outcomes[w.next] = isErr
	if isErr {
		w.errs++
	}
	w.next = (w.next + 1) % len(w.outcomes)
	w.lastSeen = now
}

func (w *window) ratio() float64 {
	if w.count == 0 {
		return 0
	}
	return float64(w.errs) / float64(w.count)
}

func (w *window) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(w.lastSeen) > ttl
}

// EndpointStats is a point-in-time view of one endpoint's budget state.
type EndpointStats struct {
	Total      int     `json:"total"`
	Errors     int     `json:"errors"`
	ErrorRatio float64 `json:"error_ratio"`
	Admissible bool    `json:"admissible"`
}

// Tracker keeps a rolling outcome window per endpoint and decides admission
// from the live error ratio. There is no open/closed state machine: an
// endpoint recovers as soon as successes dilute the ratio back under the
// threshold, or its entry idles out.
//
// Tracker is safe for concurrent use and is shared process-wide.
type Tracker struct {
	mu      sync.RWMutex
	cfg     Config
	windows map[string]*window

	metrics *budgetMetrics
	logger  *slog.Logger

	// Background sweep coordination
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a tracker and starts its background expiry sweep. The sweep
// stops when ctx is cancelled or Close is called.
func New(ctx context.Context, cfg Config, options ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := applyOptions(options...)

	var metrics *budgetMetrics
	if opts.registry != nil {
		var err error
		metrics, err = newBudgetMetrics(opts.registry)
		if err != nil {
			return nil, errors.WrapTransient(err, "budget", "New", "metrics registration")
		}
	}

	t := &Tracker{
		cfg:      cfg,
		windows:  make(map[string]*window),
		metrics:  metrics,
		logger:   opts.logger,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	go t.sweep(ctx)

	return t, nil
}

// Record appends an outcome to the endpoint's rolling window and refreshes
// its TTL. ok is false for budget-relevant errors (transport failures and
// non-2xx responses other than validated no-data).
func (t *Tracker) Record(endpoint string, ok bool) {
	now := time.Now()

	t.mu.Lock()
	w, exists := t.windows[endpoint]
	if !exists || w.expired(now, t.cfg.TTL) {
		w = newWindow(t.cfg.WindowSize)
		t.windows[endpoint] = w
	}
	w.record(!ok, now)
	tracked := len(t.windows)
	t.mu.Unlock()

	t.metrics.recordOutcome(endpoint, ok)
	t.metrics.setTracked(tracked)
}

// Admissible reports whether the endpoint may receive another sub-request.
// Endpoints with no live entry, or with fewer than MinSamples outcomes, are
// always admissible. The ratio is recomputed from the live window on every
// call.
func (t *Tracker) Admissible(endpoint string) bool {
	now := time.Now()

	t.mu.RLock()
	w, exists := t.windows[endpoint]
	var (
		expired    bool
		admissible = true
		ratio      float64
		samples    int
	)
	if exists {
		expired = w.expired(now, t.cfg.TTL)
		if !expired {
			ratio, samples = w.ratio(), w.count
			admissible = samples < t.cfg.MinSamples || ratio < t.cfg.Threshold
		}
	}
	t.mu.RUnlock()

	if !exists {
		return true
	}
	if expired {
		// Remove lazily so an idle endpoint resets without waiting for
		// the sweep.
		t.mu.Lock()
		if current, still := t.windows[endpoint]; still && current.expired(now, t.cfg.TTL) {
			delete(t.windows, endpoint)
		}
		t.mu.Unlock()
		return true
	}

	if !admissible {
		t.metrics.recordDenial(endpoint)
		if t.logger != nil {
			t.logger.Warn("endpoint suppressed by retry budget",
				"endpoint", endpoint,
				"error_ratio", ratio,
				"samples", samples)
		}
	}
	return admissible
}

// ErrorRatio returns the endpoint's live error ratio and sample count. A
// missing or expired entry reports 0, 0.
func (t *Tracker) ErrorRatio(endpoint string) (float64, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	w, exists := t.windows[endpoint]
	if !exists || w.expired(time.Now(), t.cfg.TTL) {
		return 0, 0
	}
	return w.ratio(), w.count
}

// SuppressedCount returns how many tracked endpoints are currently not
// admissible.
func (t *Tracker) SuppressedCount() int {
	now := time.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, w := range t.windows {
		if w.expired(now, t.cfg.TTL) {
			continue
		}
		if w.count >= t.cfg.MinSamples && w.ratio() >= t.cfg.Threshold {
			n++
		}
	}
	return n
}

// Snapshot returns the budget state of every live endpoint, for health
// reporting.
func (t *Tracker) Snapshot() map[string]EndpointStats {
	now := time.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := make(map[string]EndpointStats, len(t.windows))
	for endpoint, w := range t.windows {
		if w.expired(now, t.cfg.TTL) {
			continue
		}
		snap[endpoint] = EndpointStats{
			Total:      w.count,
			Errors:     w.errs,
			ErrorRatio: w.ratio(),
			Admissible: w.count < t.cfg.MinSamples || w.ratio() < t.cfg.Threshold,
		}
	}
	return snap
}

// Close stops the background sweep.
func (t *Tracker) Close() error {
	select {
	case <-t.shutdown:
		// Already shutting down
	default:
		close(t.shutdown)
	}

	select {
	case <-t.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for budget sweep to finish")
	}
}

// sweep runs in a background goroutine and periodically removes expired
// entries.
func (t *Tracker) sweep(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.shutdown:
			return
		case <-ticker.C:
			t.removeExpired()
		}
	}
}

func (t *Tracker) removeExpired() {
	now := time.Now()

	suppressed := 0
	t.mu.Lock()
	for endpoint, w := range t.windows {
		if w.expired(now, t.cfg.TTL) {
			delete(t.windows, endpoint)
			continue
		}
		if w.count >= t.cfg.MinSamples && w.ratio() >= t.cfg.Threshold {
			suppressed++
		}
	}
	tracked := len(t.windows)
	t.mu.Unlock()

	t.metrics.setTracked(tracked)
	t.metrics.setSuppressed(suppressed)
}
