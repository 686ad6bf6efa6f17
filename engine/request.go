package engine

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/c360/seisgate/query"
)

// Request is one federated request in flight. Requests are never shared: the
// ID, arrival time, and config snapshot belong to exactly one client call.
type Request struct {
	// ID correlates log lines, metrics, and the response request-ID
	// header.
	ID string

	// ReceivedAt is the arrival time. Open-ended epochs are bound to it,
	// so a request's time window is fixed at arrival.
	ReceivedAt time.Time

	// Query is the validated client query.
	Query query.Query

	// Config is the engine config snapshot taken at arrival.
	Config Config
}

// NewRequest wraps a validated query into a request with a fresh ID.
func NewRequest(q query.Query) *Request {
	return &Request{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Query:      q,
	}
}

// Result is the resolved form of one federated request.
type Result struct {
	// Body is the merged payload as a forward-only stream. The caller
	// must close it. Nil when NoData.
	Body io.ReadCloser

	// Size is the total payload size in bytes.
	Size int64

	// NoData reports that the request was valid but matched nothing; the
	// HTTP layer maps it to the query's nodata status.
	NoData bool

	// FromCache reports that the payload was served from the response
	// cache without touching routing or backends.
	FromCache bool

	// Complete is true when every sub-request succeeded. Only complete
	// responses are cached.
	Complete bool

	// Failures lists the absorbed permanent failures, for logging and
	// diagnostics. The payload contains everything the remaining
	// endpoints returned.
	Failures []Outcome
}

// Close releases the result body if any.
func (r *Result) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
