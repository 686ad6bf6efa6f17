package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/c360/seisgate/engine"
	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/health"
	"github.com/c360/seisgate/metric"
	"github.com/c360/seisgate/query"
)

// ServiceVersion is the three-level version string reported by the version
// endpoint and embedded in error bodies.
const ServiceVersion = "1.1.0"

// serviceName labels metrics emitted by the front end.
const serviceName = "dataselect"

// Routed paths.
const (
	QueryPath   = "/fdsnws/dataselect/1/query"
	VersionPath = "/fdsnws/dataselect/1/version"
	HealthPath  = "/health"
)

// Federator processes one validated query end to end. *engine.Processor
// satisfies it.
type Federator interface {
	Federate(ctx context.Context, req *engine.Request) (*engine.Result, error)
}

// handler owns the per-endpoint logic behind the Server's mux.
type handler struct {
	federator Federator
	monitor   *health.Monitor
	core      *metric.Metrics
	cfg       Config
	logger    *slog.Logger
}

// handleQuery serves the dataselect query endpoint for both GET and POST.
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var q query.Query
	var err error
	switch r.Method {
	case http.MethodGet:
		q, err = parseGetQuery(r)
	case http.MethodPost:
		var body []byte
		body, err = h.readBody(w, r)
		if err != nil {
			// readBody already wrote the response.
			return
		}
		q, err = parsePostQuery(body)
	default:
		w.Header().Set("Allow", "GET, POST")
		h.writeError(w, r, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s is not supported, use GET or POST", r.Method))
		return
	}
	if err == nil {
		err = q.Validate()
	}
	if err != nil {
		h.recordError("validation", http.StatusBadRequest)
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req := engine.NewRequest(q)
	if id := RequestIDFrom(r.Context()); id != "" {
		req.ID = id
	}
	if h.core != nil {
		h.core.RecordRequestReceived(serviceName, q.Format)
	}

	res, err := h.federator.Federate(r.Context(), req)
	if err != nil {
		status := federateStatus(err)
		h.logger.Error("federation failed",
			"request_id", req.ID,
			"status", status,
			"error", err)
		h.recordError("federation", status)
		h.writeError(w, r, status, sanitizeFederateError(err))
		return
	}
	defer res.Close()

	if h.core != nil {
		if res.FromCache {
			h.core.RecordCacheHit()
		} else {
			h.core.RecordCacheMiss()
		}
	}

	// A merged payload with zero bytes is a no-data response even when
	// sub-request failures were absorbed along the way.
	if res.NoData || res.Size == 0 {
		if q.NoData == query.NoDataNotFound {
			h.writeError(w, r, http.StatusNotFound, "no data matched the request")
		} else {
			w.WriteHeader(http.StatusNoContent)
		}
		h.complete(q.NoData, start)
		return
	}

	w.Header().Set("Content-Type", q.ContentType())
	w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	w.WriteHeader(http.StatusOK)

	n, copyErr := io.Copy(w, res.Body)
	if h.core != nil {
		h.core.RecordBytesStreamed(serviceName, n)
	}
	h.complete(http.StatusOK, start)
	if copyErr != nil {
		// The client went away mid-stream; already-flushed bytes stand.
		h.logger.Debug("response stream interrupted",
			"request_id", req.ID,
			"bytes_written", n,
			"error", copyErr)
	}
}

// readBody drains the POST body under the configured cap, writing the
// error response itself when the body is unreadable or too large.
func (h *handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.MaxRequestBytes+1))
	if err != nil {
		h.recordError("body_read", http.StatusBadRequest)
		h.writeError(w, r, http.StatusBadRequest, "request body could not be read")
		return nil, errors.WrapInvalid(err, "handler", "readBody", "body read")
	}
	if int64(len(body)) > h.cfg.MaxRequestBytes {
		h.recordError("body_size", http.StatusRequestEntityTooLarge)
		h.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds the %d byte limit", h.cfg.MaxRequestBytes))
		return nil, errors.WrapInvalid(errors.ErrRequestTooLarge, "handler", "readBody", "body size check")
	}
	return body, nil
}

// handleVersion serves the service version as bare text.
func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		h.writeError(w, r, http.StatusMethodNotAllowed, "version endpoint supports GET only")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintln(w, ServiceVersion)
}

// handleHealth reports the aggregate component health as JSON.
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := health.NewHealthy("seisgate", "no components registered")
	if h.monitor != nil {
		status = h.monitor.AggregateHealth("seisgate")
	}
	if h.core != nil {
		h.core.RecordHealthStatus(serviceName, status.IsHealthy())
	}

	w.Header().Set("Content-Type", "application/json")
	if status.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h *handler) recordError(kind string, status int) {
	if h.core == nil {
		return
	}
	h.core.RecordError(serviceName, kind)
	h.core.RecordRequestCompleted(serviceName, strconv.Itoa(status))
}

func (h *handler) complete(status int, start time.Time) {
	if h.core == nil {
		return
	}
	h.core.RecordRequestCompleted(serviceName, strconv.Itoa(status))
	h.core.RecordRequestDuration(serviceName, "federate", time.Since(start))
}

// federateStatus maps a federation error to the outbound HTTP status.
// Partial upstream failures never reach here; they are absorbed into the
// merged payload.
func federateStatus(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrRoutingFailed), stderrors.Is(err, errors.ErrMalformedRouting):
		return http.StatusBadGateway
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeFederateError returns a client-safe description for the error
// body, never internal details.
func sanitizeFederateError(err error) string {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return "processing deadline exceeded before the request completed"
	case errors.IsInvalid(err):
		return "the request could not be processed as submitted"
	case stderrors.Is(err, errors.ErrRoutingFailed), stderrors.Is(err, errors.ErrMalformedRouting):
		return "the routing service could not resolve the requested streams"
	case errors.IsTransient(err):
		return "the service is temporarily unable to process the request"
	default:
		return "an internal error prevented the request from completing"
	}
}
