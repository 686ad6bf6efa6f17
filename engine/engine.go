package engine

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/c360/seisgate/cache"
	"github.com/c360/seisgate/epoch"
	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/metric"
	"github.com/c360/seisgate/pkg/spool"
	"github.com/c360/seisgate/routing"
)

// RouteResolver resolves stream epochs to the backend endpoints holding
// their data. *routing.Client satisfies it.
type RouteResolver interface {
	Resolve(ctx context.Context, epochs []epoch.StreamEpoch) ([]routing.Route, error)
}

// AdmissionTracker gates sub-request admission per endpoint and records
// outcomes. *budget.Tracker satisfies it.
type AdmissionTracker interface {
	Admissible(endpoint string) bool
	Record(endpoint string, ok bool)
}

// Processor federates validated queries across distributed archive endpoints:
// resolve routes, fan sub-requests out under concurrency ceilings, merge the
// payloads in route order, absorb partial failures.
type Processor struct {
	resolver RouteResolver
	cache    cache.Cache
	cfg      Config
	logger   *slog.Logger
	metrics  *engineMetrics

	worker *worker
	limits *limiter
}

// NewProcessor creates a federated request processor.
func NewProcessor(
	resolver RouteResolver,
	tracker AdmissionTracker,
	responseCache cache.Cache,
	cfg Config,
	logger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize metrics if registry provided
	metrics, err := newEngineMetrics(metricsRegistry)
	if err != nil {
		logger.Error("Failed to initialize engine metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	// The engine owns its own connection pool, independent of the routing
	// client's. No client-level timeout: the request context bounds the
	// whole exchange and the progress watchdog bounds each body read.
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.DialTimeout,
			}).DialContext,
			ResponseHeaderTimeout: cfg.HeaderTimeout,
			MaxConnsPerHost:       cfg.MaxConnsPerHost,
			MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	return &Processor{
		resolver: resolver,
		cache:    responseCache,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		worker: &worker{
			http:    client,
			budget:  tracker,
			cfg:     cfg,
			logger:  logger,
			metrics: metrics,
		},
		limits: newLimiter(cfg.GlobalConcurrency, cfg.EndpointConcurrency),
	}, nil
}

// Federate resolves, fans out and merges one federated request. Partial
// endpoint failures are absorbed into Result.Failures; only route
// resolution and internal failures return an error.
func (p *Processor) Federate(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	status := "error"

	defer func() {
		p.metrics.recordFederation(status, time.Since(start).Seconds())
	}()

	req.Config = p.cfg
	logger := p.logger.With("request_id", req.ID)

	// Cache lookup first: a hit never touches routing or backends.
	key := req.Query.Fingerprint()
	if payload, ok := p.cacheGet(ctx, logger, key); ok {
		status = "cache_hit"
		logger.Debug("response served from cache", "bytes", len(payload))
		return &Result{
			Body:      io.NopCloser(bytes.NewReader(payload)),
			Size:      int64(len(payload)),
			FromCache: true,
			Complete:  true,
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StreamTimeout)
	defer cancel()

	// Resolve which endpoints hold which epochs
	routes, err := p.resolver.Resolve(ctx, req.Query.Epochs)
	if err != nil {
		return nil, errors.Wrap(err, "Processor", "Federate", "route resolution")
	}
	if len(routes) == 0 {
		status = "nodata"
		logger.Info("no routes for query", "selectors", len(req.Query.Epochs))
		return &Result{NoData: true, Complete: true}, nil
	}

	// One task and one payload slot per (endpoint, epoch), in route order.
	// Open-ended epochs are bound to the request's arrival time.
	buf := newResponseBuffer(
		spool.WithRolloverBytes(p.cfg.RolloverBytes),
		spool.WithTempDir(p.cfg.TempDir),
	)
	var tasks []*task
	for _, route := range routes {
		for _, e := range route.Epochs {
			tasks = append(tasks, &task{
				endpoint: route.Endpoint,
				epoch:    e.Bound(req.ReceivedAt),
				slot:     buf.addSlot(),
			})
		}
	}

	logger.Debug("dispatching sub-requests", "routes", len(routes), "tasks", len(tasks))

	d := newDispatcher(p.worker, p.limits, logger, p.metrics)
	outcomes := d.dispatch(ctx, tasks)

	var failures []Outcome
	for _, o := range outcomes {
		if o.State == StatePermanentFailure {
			failures = append(failures, o)
		}
	}
	complete := len(failures) == 0

	// Merge in slot order, no matter how the workers finished
	payload, size, err := buf.finalize()
	if err != nil {
		return nil, errors.Wrap(err, "Processor", "Federate", "payload finalization")
	}

	if size == 0 {
		_ = payload.Close()
		if complete {
			status = "nodata"
		} else {
			status = "partial"
		}
		logger.Info("federation produced no data",
			"tasks", len(outcomes), "failures", len(failures))
		return &Result{NoData: true, Complete: complete, Failures: failures}, nil
	}

	// Only complete responses from a live context are cached
	if complete && ctx.Err() == nil && size <= p.cfg.CacheMaxBytes {
		payload, err = p.cacheStore(ctx, logger, key, payload, size)
		if err != nil {
			return nil, errors.Wrap(err, "Processor", "Federate", "payload buffering")
		}
	}

	if complete {
		status = "success"
	} else {
		status = "partial"
	}
	logger.Info("federation complete",
		"bytes", size,
		"tasks", len(outcomes),
		"failures", len(failures),
		"complete", complete,
		"duration", time.Since(start))

	return &Result{
		Body:     payload,
		Size:     size,
		Complete: complete,
		Failures: failures,
	}, nil
}

// cacheGet degrades every cache failure to a miss. The cache is never on a
// request's critical failure path.
func (p *Processor) cacheGet(ctx context.Context, logger *slog.Logger, key string) ([]byte, bool) {
	payload, err := p.cache.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, errors.ErrCacheMiss) {
			logger.Warn("response cache lookup failed", "error", err)
		}
		return nil, false
	}
	return payload, true
}

// cacheStore reads the payload into memory, stores it, and hands back an
// equivalent reader. Store failures degrade to a log line; read failures are
// real internal errors because the payload would be lost.
func (p *Processor) cacheStore(ctx context.Context, logger *slog.Logger, key string, body io.ReadCloser, size int64) (io.ReadCloser, error) {
	payload, err := io.ReadAll(body)
	if cerr := body.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, payload, 0); err != nil {
		logger.Warn("response cache store failed", "bytes", size, "error", err)
	} else {
		logger.Debug("response cached", "bytes", size)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// Close releases idle backend connections.
func (p *Processor) Close() {
	if t, ok := p.worker.http.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
