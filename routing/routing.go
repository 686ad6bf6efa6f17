// Package routing resolves stream selectors to the backend archives that
// hold their data, via the external routing-discovery service.
package routing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/c360/seisgate/epoch"
	"github.com/c360/seisgate/errors"
)

// Route pairs one backend endpoint URL with the stream epochs it should
// serve. Routes are immutable after resolution; their order is the
// resolution order and determines the final merge order.
type Route struct {
	Endpoint string
	Epochs   []epoch.StreamEpoch
}

// ParseTable reads the line-oriented route-table format: an endpoint URL
// line followed by its selector lines, groups separated by blank lines.
// An empty body parses to an empty table.
func ParseTable(r io.Reader) ([]Route, error) {
	b := newTableBuilder()

	var endpoint string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			endpoint = ""
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			endpoint = line
			b.addEndpoint(endpoint)
			continue
		}
		if endpoint == "" {
			return nil, errors.WrapFatal(errors.ErrMalformedRouting, "routing", "ParseTable",
				fmt.Sprintf("selector line %q before any endpoint", line))
		}
		e, err := epoch.ParseLine(line)
		if err != nil {
			return nil, errors.WrapFatal(err, "routing", "ParseTable",
				fmt.Sprintf("selector line %q", line))
		}
		b.add(endpoint, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapTransient(err, "routing", "ParseTable", "route table read")
	}

	return b.routes(), nil
}

// tableBuilder accumulates routes preserving first-seen endpoint order.
type tableBuilder struct {
	order  []string
	byName map[string]*Route
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{byName: make(map[string]*Route)}
}

func (b *tableBuilder) addEndpoint(endpoint string) *Route {
	if r, ok := b.byName[endpoint]; ok {
		return r
	}
	r := &Route{Endpoint: endpoint}
	b.byName[endpoint] = r
	b.order = append(b.order, endpoint)
	return r
}

func (b *tableBuilder) add(endpoint string, e epoch.StreamEpoch) {
	r := b.addEndpoint(endpoint)
	r.Epochs = append(r.Epochs, e)
}

func (b *tableBuilder) merge(routes []Route) {
	for _, r := range routes {
		for _, e := range r.Epochs {
			b.add(r.Endpoint, e)
		}
	}
}

// routes returns the accumulated table, dropping endpoints that carry no
// selectors.
func (b *tableBuilder) routes() []Route {
	out := make([]Route, 0, len(b.order))
	for _, endpoint := range b.order {
		r := b.byName[endpoint]
		if len(r.Epochs) == 0 {
			continue
		}
		out = append(out, *r)
	}
	return out
}
