package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seisgate/engine"
	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/health"
)

const validGetPath = "/fdsnws/dataselect/1/query?net=GR&sta=WET&cha=BHZ&start=2024-01-01&end=2024-01-02"

type fakeFederator struct {
	mu       sync.Mutex
	result   *engine.Result
	err      error
	panicMsg string
	lastReq  *engine.Request
	calls    int
}

func (f *fakeFederator) Federate(_ context.Context, req *engine.Request) (*engine.Result, error) {
	f.mu.Lock()
	f.lastReq = req
	f.calls++
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeFederator) last() *engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func (f *fakeFederator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func payloadResult(payload string) *engine.Result {
	return &engine.Result{
		Body:     io.NopCloser(strings.NewReader(payload)),
		Size:     int64(len(payload)),
		Complete: true,
	}
}

func newTestServer(t *testing.T, fed Federator, reshape ...func(*Config)) *Server {
	t.Helper()
	var cfg Config
	for _, fn := range reshape {
		fn(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(cfg, fed, nil, logger, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Setup())
	return srv
}

func doRequest(t *testing.T, srv *Server, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestServer_QueryStreamsPayload(t *testing.T) {
	fed := &fakeFederator{result: payloadResult("MERGED-MINISEED")}
	srv := newTestServer(t, fed)

	w := doRequest(t, srv, httptest.NewRequest("GET", validGetPath, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MERGED-MINISEED", w.Body.String())
	assert.Equal(t, "application/vnd.fdsn.mseed", w.Header().Get("Content-Type"))
	assert.Equal(t, "15", w.Header().Get("Content-Length"))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36, "a request ID should be minted")

	req := fed.last()
	require.NotNil(t, req)
	require.Len(t, req.Query.Epochs, 1)
	assert.Equal(t, "GR", req.Query.Epochs[0].Network)
}

func TestServer_QueryPropagatesRequestID(t *testing.T) {
	fed := &fakeFederator{result: payloadResult("X")}
	srv := newTestServer(t, fed)

	r := httptest.NewRequest("GET", validGetPath, nil)
	r.Header.Set("X-Request-ID", "caller-chosen-id")
	w := doRequest(t, srv, r)

	assert.Equal(t, "caller-chosen-id", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "caller-chosen-id", fed.last().ID)
}

func TestServer_PostQuery(t *testing.T) {
	fed := &fakeFederator{result: payloadResult("DATA")}
	srv := newTestServer(t, fed)

	body := "nodata=404\nGR WET -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00\n"
	r := httptest.NewRequest("POST", "/fdsnws/dataselect/1/query", strings.NewReader(body))
	w := doRequest(t, srv, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DATA", w.Body.String())
	require.Len(t, fed.last().Query.Epochs, 1)
	assert.Equal(t, "WET", fed.last().Query.Epochs[0].Station)
}

func TestServer_PostBodyTooLarge(t *testing.T) {
	fed := &fakeFederator{result: payloadResult("DATA")}
	srv := newTestServer(t, fed, func(c *Config) { c.MaxRequestBytes = 32 })

	body := strings.Repeat("GR WET -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00\n", 4)
	r := httptest.NewRequest("POST", "/fdsnws/dataselect/1/query", strings.NewReader(body))
	w := doRequest(t, srv, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Error 413")
	assert.Equal(t, 0, fed.callCount(), "oversized bodies must be rejected before federation")
}

func TestServer_NoDataDefaultsTo204(t *testing.T) {
	fed := &fakeFederator{result: &engine.Result{NoData: true, Complete: true}}
	srv := newTestServer(t, fed)

	w := doRequest(t, srv, httptest.NewRequest("GET", validGetPath, nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestServer_NoData404CarriesErrorDocument(t *testing.T) {
	fed := &fakeFederator{result: &engine.Result{NoData: true, Complete: true}}
	srv := newTestServer(t, fed)

	w := doRequest(t, srv, httptest.NewRequest("GET", validGetPath+"&nodata=404", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Error 404: Not Found")
	assert.Contains(t, body, DefaultDocumentationURI)
	assert.Contains(t, body, "Service version:")
	assert.Contains(t, body, ServiceVersion)
}

// A zero-byte merged payload is a no-data response even if the engine did
// not flag it, so clients never receive an empty 200.
func TestServer_ZeroBytePayloadTreatedAsNoData(t *testing.T) {
	fed := &fakeFederator{result: &engine.Result{
		Body:     io.NopCloser(strings.NewReader("")),
		Size:     0,
		Complete: false,
	}}
	srv := newTestServer(t, fed)

	w := doRequest(t, srv, httptest.NewRequest("GET", validGetPath, nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestServer_InvalidQueryRejected(t *testing.T) {
	fed := &fakeFederator{result: payloadResult("DATA")}
	srv := newTestServer(t, fed)

	w := doRequest(t, srv, httptest.NewRequest("GET", "/fdsnws/dataselect/1/query?net=GR", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error 400: Bad Request")
	assert.Equal(t, 0, fed.callCount())
}

func TestServer_FederateErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("federation window: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "routing failure",
			err:        errors.WrapTransient(errors.ErrRoutingFailed, "Client", "Resolve", "routing request"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "malformed routing response",
			err:        errors.Wrap(errors.ErrMalformedRouting, "Client", "Resolve", "routing response decode"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "transient internal",
			err:        errors.WrapTransient(fmt.Errorf("connection refused"), "Processor", "Federate", "route resolution"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "fatal internal",
			err:        errors.WrapFatal(fmt.Errorf("spill file corrupt"), "Processor", "Federate", "payload finalization"),
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fed := &fakeFederator{err: tc.err}
			srv := newTestServer(t, fed)

			w := doRequest(t, srv, httptest.NewRequest("GET", validGetPath, nil))

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), fmt.Sprintf("Error %d", tc.wantStatus))
			assert.NotContains(t, w.Body.String(), "spill file",
				"internal error detail must not leak to clients")
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeFederator{result: payloadResult("DATA")})

	w := doRequest(t, srv, httptest.NewRequest("DELETE", "/fdsnws/dataselect/1/query", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
}

func TestServer_Version(t *testing.T) {
	srv := newTestServer(t, &fakeFederator{result: payloadResult("DATA")})

	w := doRequest(t, srv, httptest.NewRequest("GET", VersionPath, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, ServiceVersion, strings.TrimSpace(w.Body.String()))
}

func TestServer_HealthWithoutMonitor(t *testing.T) {
	srv := newTestServer(t, &fakeFederator{result: payloadResult("DATA")})

	w := doRequest(t, srv, httptest.NewRequest("GET", HealthPath, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestServer_HealthReflectsMonitor(t *testing.T) {
	monitor := health.NewMonitor()
	monitor.UpdateUnhealthy("routing", "resolution service unreachable")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(Config{}, &fakeFederator{result: payloadResult("DATA")}, monitor, logger, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Setup())

	w := doRequest(t, srv, httptest.NewRequest("GET", HealthPath, nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestServer_CORS(t *testing.T) {
	srv := newTestServer(t, &fakeFederator{result: payloadResult("DATA")}, func(c *Config) {
		c.EnableCORS = true
		c.CORSOrigins = []string{"https://obs.example.org"}
	})

	t.Run("allowed origin", func(t *testing.T) {
		r := httptest.NewRequest("GET", VersionPath, nil)
		r.Header.Set("Origin", "https://obs.example.org")
		w := doRequest(t, srv, r)
		assert.Equal(t, "https://obs.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		r := httptest.NewRequest("OPTIONS", QueryPath, nil)
		r.Header.Set("Origin", "https://obs.example.org")
		w := doRequest(t, srv, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		r := httptest.NewRequest("GET", VersionPath, nil)
		r.Header.Set("Origin", "https://elsewhere.example.com")
		w := doRequest(t, srv, r)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServer_PanicRecovered(t *testing.T) {
	fed := &fakeFederator{panicMsg: "unexpected slot state"}
	srv := newTestServer(t, fed)

	w := doRequest(t, srv, httptest.NewRequest("GET", validGetPath, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_Lifecycle(t *testing.T) {
	fed := &fakeFederator{result: payloadResult("DATA")}
	srv := newTestServer(t, fed, func(c *Config) { c.BindAddress = "127.0.0.1:0" })

	ctx := context.Background()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server never became ready")
	}
	assert.True(t, srv.IsRunning())

	err := srv.Start(ctx, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAlreadyStarted))

	require.NoError(t, srv.Stop(time.Second))
	assert.False(t, srv.IsRunning())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestServer_StartRequiresSetup(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(Config{}, &fakeFederator{}, nil, logger, nil)
	require.NoError(t, err)

	err = srv.Start(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestConfig_Validate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg Config
		require.NoError(t, cfg.Validate())
		assert.Equal(t, DefaultBindAddress, cfg.BindAddress)
		assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
		assert.Equal(t, int64(DefaultMaxRequestBytes), cfg.MaxRequestBytes)
		assert.Equal(t, DefaultDocumentationURI, cfg.DocumentationURI)
	})

	t.Run("cors origins default to wildcard", func(t *testing.T) {
		cfg := Config{EnableCORS: true}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	})

	t.Run("negative timeout rejected", func(t *testing.T) {
		cfg := Config{ReadTimeout: -time.Second}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("negative body cap rejected", func(t *testing.T) {
		cfg := Config{MaxRequestBytes: -1}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})
}
