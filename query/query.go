// Package query models a validated federation request: output format, merge
// options, no-data policy, and the set of stream epochs to fetch. A Query is
// the unit handed from the HTTP layer to the engine, and its normalized form
// is the basis of the cache fingerprint.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/c360/seisgate/epoch"
	"github.com/c360/seisgate/errors"
)

// Supported output formats. The format selects the Content-Type of the merged
// response; the gateway streams backend bytes through unchanged either way.
const (
	FormatMiniSEED = "miniseed"
	FormatXML      = "xml"
	FormatText     = "text"
	FormatJSON     = "json"
)

// Supported merge option tokens.
const (
	MergeQuality    = "quality"
	MergeSampleRate = "samplerate"
	MergeOverlap    = "overlap"
)

// No-data policies: the HTTP status returned when a valid request matches
// nothing.
const (
	NoDataNoContent = 204
	NoDataNotFound  = 404
)

// Defaults applied by Validate when a field is unset.
const (
	DefaultFormat = FormatMiniSEED
	DefaultNoData = NoDataNoContent
)

var contentTypes = map[string]string{
	FormatMiniSEED: "application/vnd.fdsn.mseed",
	FormatXML:      "application/xml",
	FormatText:     "text/plain",
	FormatJSON:     "application/json",
}

var mergeTokens = map[string]bool{
	MergeQuality:    true,
	MergeSampleRate: true,
	MergeOverlap:    true,
}

// Query is a validated federation request.
type Query struct {
	// Format is the requested output format, one of the Format constants.
	Format string `json:"format"`

	// Merge holds the requested merge option tokens. Order and duplicates
	// are irrelevant; Normalize canonicalizes them.
	Merge []string `json:"merge,omitempty"`

	// NoData is the HTTP status to return when the request is valid but
	// matches no data, either 204 or 404.
	NoData int `json:"nodata"`

	// Epochs are the stream selectors to federate. Must be non-empty.
	Epochs []epoch.StreamEpoch `json:"epochs"`
}

// Validate applies defaults to unset fields and checks the query against the
// supported formats, merge tokens, and no-data policies. Every epoch must
// itself validate.
func (q *Query) Validate() error {
	if q.Format == "" {
		q.Format = DefaultFormat
	}
	if _, ok := contentTypes[q.Format]; !ok {
		return errors.WrapInvalid(errors.ErrInvalidData,
			"Query", "Validate", fmt.Sprintf("unsupported format %q", q.Format))
	}

	for _, m := range q.Merge {
		if !mergeTokens[m] {
			return errors.WrapInvalid(errors.ErrInvalidData,
				"Query", "Validate", fmt.Sprintf("unsupported merge option %q", m))
		}
	}

	if q.NoData == 0 {
		q.NoData = DefaultNoData
	}
	if q.NoData != NoDataNoContent && q.NoData != NoDataNotFound {
		return errors.WrapInvalid(errors.ErrInvalidData,
			"Query", "Validate", fmt.Sprintf("nodata must be 204 or 404, got %d", q.NoData))
	}

	if len(q.Epochs) == 0 {
		return errors.WrapInvalid(errors.ErrNoSelectors,
			"Query", "Validate", "at least one selector is required")
	}
	for i, e := range q.Epochs {
		if err := e.Validate(); err != nil {
			return errors.WrapInvalid(err,
				"Query", "Validate", fmt.Sprintf("selector %d validation", i))
		}
	}
	return nil
}

// ContentType returns the response Content-Type for the query's format.
// Unknown formats fall back to an octet stream so a response is always
// deliverable.
func (q *Query) ContentType() string {
	if ct, ok := contentTypes[q.Format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SelectorLines renders the epochs in wire form, one "NET STA LOC CHA START
// END" line each, in query order.
func (q *Query) SelectorLines() []string {
	lines := make([]string, 0, len(q.Epochs))
	for _, e := range q.Epochs {
		lines = append(lines, e.String())
	}
	return lines
}

// Normalize produces the canonical text form of the query: the selector lines
// sorted and deduplicated, followed by the format and the sorted merge
// options. Two queries with the same normalized form request the same payload.
// The no-data policy only picks the empty-result status, so it is excluded.
func (q *Query) Normalize() string {
	lines := q.SelectorLines()
	sort.Strings(lines)

	var b strings.Builder
	var prev string
	for i, line := range lines {
		if i > 0 && line == prev {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
		prev = line
	}

	b.WriteString("format=")
	b.WriteString(q.Format)
	b.WriteByte('\n')

	if len(q.Merge) > 0 {
		merge := make([]string, len(q.Merge))
		copy(merge, q.Merge)
		sort.Strings(merge)
		b.WriteString("merge=")
		b.WriteString(strings.Join(merge, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// Fingerprint returns the content-address of the query: the SHA-256 of its
// normalized form, hex encoded. Used as the cache key.
func (q *Query) Fingerprint() string {
	sum := sha256.Sum256([]byte(q.Normalize()))
	return hex.EncodeToString(sum[:])
}
