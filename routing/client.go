package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/c360/seisgate/epoch"
	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/pkg/retry"
)

// Defaults applied by Config.Validate.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultDialTimeout     = 5 * time.Second
	DefaultHeaderTimeout   = 10 * time.Second
	DefaultMaxConnsPerHost = 10
)

// Config controls the routing service client.
type Config struct {
	// URL is the routing service query endpoint.
	URL string `json:"url"`

	// Timeout bounds one selector lookup end to end.
	Timeout time.Duration `json:"timeout"`

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration `json:"dial_timeout"`

	// HeaderTimeout bounds the wait for response headers.
	HeaderTimeout time.Duration `json:"header_timeout"`

	// MaxConnsPerHost caps connections to the routing service. The client
	// owns its own pool, independent of the backend pool.
	MaxConnsPerHost int `json:"max_conns_per_host"`

	// Retry controls the per-lookup retry schedule. Zero uses the default
	// schedule.
	Retry retry.Config `json:"retry"`
}

// DefaultConfig returns the standard routing client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		DialTimeout:     DefaultDialTimeout,
		HeaderTimeout:   DefaultHeaderTimeout,
		MaxConnsPerHost: DefaultMaxConnsPerHost,
		Retry:           retry.DefaultConfig(),
	}
}

// Validate applies defaults to unset fields and rejects unusable values.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "routing", "Validate",
			"routing service url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "routing", "Validate",
			fmt.Sprintf("routing service url %q is not an http(s) url", c.URL))
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.HeaderTimeout == 0 {
		c.HeaderTimeout = DefaultHeaderTimeout
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	if c.Timeout < 0 || c.DialTimeout < 0 || c.HeaderTimeout < 0 || c.MaxConnsPerHost < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "routing", "Validate",
			"timeouts and connection limits must be positive")
	}
	return nil
}

// Client resolves selectors against the routing service over HTTP. It owns
// its own connection pool so routing traffic never competes with backend
// streaming for connections.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retry   retry.Config
	timeout time.Duration
	logger  *slog.Logger
	metrics *routingMetrics
}

// NewClient creates a routing client.
func NewClient(cfg Config, options ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := applyOptions(options...)

	var metrics *routingMetrics
	if opts.registry != nil {
		var err error
		metrics, err = newRoutingMetrics(opts.registry)
		if err != nil {
			return nil, errors.WrapTransient(err, "RoutingClient", "NewClient", "metrics registration")
		}
	}

	baseURL, _ := url.Parse(cfg.URL) // validated above

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.DialTimeout,
		}).DialContext,
		ResponseHeaderTimeout: cfg.HeaderTimeout,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport},
		retry:   cfg.Retry,
		timeout: cfg.Timeout,
		logger:  opts.logger,
		metrics: metrics,
	}, nil
}

// Resolve maps the selectors to the backends that hold their data. One
// lookup is issued per selector; the resulting tables are merged preserving
// first-seen endpoint order, so the final order is deterministic for a fixed
// routing response. No matching route is an empty table, not an error.
func (c *Client) Resolve(ctx context.Context, epochs []epoch.StreamEpoch) ([]Route, error) {
	start := time.Now()

	b := newTableBuilder()
	for _, e := range epochs {
		table, err := c.lookup(ctx, e)
		if err != nil {
			c.metrics.recordResolve("failure", time.Since(start).Seconds())
			return nil, err
		}
		b.merge(table)
	}

	routes := b.routes()
	c.metrics.recordResolve("success", time.Since(start).Seconds())
	if c.logger != nil {
		c.logger.Debug("routes resolved",
			"selectors", len(epochs),
			"routes", len(routes),
			"duration", time.Since(start))
	}
	return routes, nil
}

// lookup queries the routing service for one selector.
func (c *Client) lookup(ctx context.Context, e epoch.StreamEpoch) ([]Route, error) {
	u := *c.baseURL
	u.RawQuery = c.lookupQuery(e)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var routes []Route
	err := retry.Do(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return retry.NonRetryable(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNoContent:
			routes = nil
			return nil
		case resp.StatusCode == http.StatusOK:
			parsed, perr := ParseTable(resp.Body)
			if perr != nil {
				return retry.NonRetryable(perr)
			}
			routes = parsed
			return nil
		case resp.StatusCode >= 500:
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("%w: status %d", errors.ErrRoutingFailed, resp.StatusCode)
		default:
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return retry.NonRetryable(
				fmt.Errorf("%w: status %d", errors.ErrRoutingFailed, resp.StatusCode))
		}
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrMalformedRouting) || errors.IsFatal(err) {
			return nil, errors.WrapFatal(err, "RoutingClient", "lookup", "route table parse")
		}
		return nil, errors.WrapTransient(err, "RoutingClient", "lookup", "route resolution")
	}
	return routes, nil
}

// lookupQuery encodes one selector as routing service query parameters.
func (c *Client) lookupQuery(e epoch.StreamEpoch) string {
	q := c.baseURL.Query()
	q.Set("net", e.Network)
	q.Set("sta", e.Station)
	if e.Location == "" {
		q.Set("loc", "--")
	} else {
		q.Set("loc", e.Location)
	}
	q.Set("cha", e.Channel)
	q.Set("start", epoch.FormatTime(e.Start))
	if !e.Open() {
		q.Set("end", epoch.FormatTime(e.End))
	}
	q.Set("format", "post")
	return q.Encode()
}

// Close releases idle connections in the routing pool.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
