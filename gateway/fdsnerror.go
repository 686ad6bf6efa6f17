package gateway

import (
	"fmt"
	"net/http"
	"time"
)

// FDSN-WS error document. Plain text so curl users can read it.
const errorBodyFormat = `Error %d: %s

%s

Usage details are available from %s

Request:
%s

Request Submitted:
%s

Service version:
%s
`

// writeError emits an FDSN-style plain-text error document.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, errorBodyFormat,
		status, http.StatusText(status),
		detail,
		h.cfg.DocumentationURI,
		requestURL(r),
		time.Now().UTC().Format(time.RFC3339),
		ServiceVersion,
	)
}

// requestURL reconstructs the URL the client submitted, for error bodies.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
