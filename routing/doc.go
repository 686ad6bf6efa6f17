// Package routing resolves stream selectors to backend archive endpoints.
//
// # Overview
//
// The routing-discovery service knows which archive holds which streams. The
// Client issues one HTTP GET per selector with the selector encoded as query
// parameters (net, sta, loc, cha, start, end, format=post) and parses the
// line-oriented response:
//
//	http://archive-a.example.org/fdsnws/dataselect/1/query
//	GR WET -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00
//	GR FUR -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00
//
//	http://archive-b.example.org/fdsnws/dataselect/1/query
//	CH DAVOX -- HHZ 2024-01-01T00:00:00 2024-01-02T00:00:00
//
// Each group is an endpoint URL line followed by the selector lines that
// endpoint should serve, groups separated by blank lines. Tables from
// multiple lookups are merged preserving first-seen endpoint order, so the
// resolved route order is deterministic for a fixed routing response. That
// order is load-bearing: the response buffer assembles backend payloads in
// route order.
//
// # Failure Policy
//
// A 204 or an empty 200 body means no backend holds the requested streams;
// that is an empty table, not an error. Server errors and transport failures
// are retried on a short schedule; client errors fail immediately; a
// malformed table is a fatal error. All resolution failures abort the whole
// request upstream (there is nothing sensible to federate without routes).
//
// # Connection Pool
//
// The client owns its own http.Transport. Routing lookups never compete with
// backend data streaming for connections.
package routing
