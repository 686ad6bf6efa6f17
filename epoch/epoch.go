// Package epoch models stream epochs and their time-interval arithmetic
package epoch

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360/seisgate/errors"
)

// Time layouts accepted on the wire. FDSN-style timestamps are ISO 8601
// without a zone designator and are interpreted as UTC.
const (
	timeLayout     = "2006-01-02T15:04:05"
	timeLayoutFrac = "2006-01-02T15:04:05.999999"
	dateLayout     = "2006-01-02"
)

// emptyLocation is the wire token for a blank location code.
const emptyLocation = "--"

// StreamEpoch is a station/channel selector bound to a time interval.
// Network, Station, Location and Channel are pattern strings ("*" and "?"
// wildcards pass through untouched). A zero End means the interval is
// open-ended and must be bound before splitting.
//
// StreamEpoch is a value object: no identity beyond its field values, and
// all operations return new values.
type StreamEpoch struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	End      time.Time
}

// Validate checks selector and interval invariants.
func (e StreamEpoch) Validate() error {
	if e.Network == "" || e.Station == "" || e.Channel == "" {
		return errors.WrapInvalid(
			fmt.Errorf("network, station and channel must be non-empty"),
			"StreamEpoch", "Validate", "selector check")
	}
	for _, field := range []string{e.Network, e.Station, e.Location, e.Channel} {
		if strings.ContainsAny(field, " \t\n") {
			return errors.WrapInvalid(
				fmt.Errorf("selector field %q contains whitespace", field),
				"StreamEpoch", "Validate", "selector check")
		}
	}
	if e.Start.IsZero() {
		return errors.WrapInvalid(errors.ErrInvalidTimeRange,
			"StreamEpoch", "Validate", "start time missing")
	}
	if !e.Open() && !e.Start.Before(e.End) {
		return errors.WrapInvalid(errors.ErrInvalidTimeRange,
			"StreamEpoch", "Validate", "start must precede end")
	}
	return nil
}

// Open reports whether the epoch has no end time yet.
func (e StreamEpoch) Open() bool {
	return e.End.IsZero()
}

// Bound returns a copy whose open end is resolved to defaultEnd. Bounded
// epochs are returned unchanged.
func (e StreamEpoch) Bound(defaultEnd time.Time) StreamEpoch {
	if e.Open() {
		e.End = defaultEnd
	}
	return e
}

// Duration returns the interval length. Open epochs have zero duration
// until bound.
func (e StreamEpoch) Duration() time.Duration {
	if e.Open() {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Slice divides the epoch into n contiguous, non-overlapping sub-epochs
// covering exactly the original interval. Open epochs are bound to
// defaultEnd first. The first n-1 sub-epochs receive the floor duration and
// the final one absorbs the rounding remainder, so coverage has no gaps or
// overlaps. Returns the epoch itself when n < 2 or the interval is too
// short to divide.
func (e StreamEpoch) Slice(n int, defaultEnd time.Time) []StreamEpoch {
	e = e.Bound(defaultEnd)
	if n < 2 {
		return []StreamEpoch{e}
	}

	step := e.Duration() / time.Duration(n)
	if step <= 0 {
		return []StreamEpoch{e}
	}

	out := make([]StreamEpoch, 0, n)
	start := e.Start
	for i := 0; i < n-1; i++ {
		sub := e
		sub.Start = start
		sub.End = start.Add(step)
		out = append(out, sub)
		start = sub.End
	}
	last := e
	last.Start = start
	out = append(out, last)
	return out
}

// Split subdivides the epoch for a payload-too-large retry. It returns the
// epoch unchanged (single-element result) when factor < 2, when the epoch
// is still open, or when the resulting sub-epoch duration would fall below
// minDuration. A single-element result therefore signals that splitting is
// exhausted.
func (e StreamEpoch) Split(factor int, minDuration time.Duration) []StreamEpoch {
	if factor < 2 || e.Open() {
		return []StreamEpoch{e}
	}
	if e.Duration()/time.Duration(factor) < minDuration {
		return []StreamEpoch{e}
	}
	return e.Slice(factor, e.End)
}

// String renders the epoch in the line-oriented wire form
// "NET STA LOC CHA START END" with "--" standing in for a blank location.
func (e StreamEpoch) String() string {
	loc := e.Location
	if loc == "" {
		loc = emptyLocation
	}
	return fmt.Sprintf("%s %s %s %s %s %s",
		e.Network, e.Station, loc, e.Channel,
		FormatTime(e.Start), FormatTime(e.End))
}

// ParseLine parses one selector line in "NET STA LOC CHA START END" form.
func ParseLine(line string) (StreamEpoch, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return StreamEpoch{}, errors.WrapInvalid(
			fmt.Errorf("expected 6 fields, got %d in %q", len(fields), line),
			"epoch", "ParseLine", "field count")
	}

	start, err := ParseTime(fields[4])
	if err != nil {
		return StreamEpoch{}, errors.WrapInvalid(err, "epoch", "ParseLine", "start time")
	}
	end, err := ParseTime(fields[5])
	if err != nil {
		return StreamEpoch{}, errors.WrapInvalid(err, "epoch", "ParseLine", "end time")
	}

	loc := fields[2]
	if loc == emptyLocation {
		loc = ""
	}

	e := StreamEpoch{
		Network:  fields[0],
		Station:  fields[1],
		Location: loc,
		Channel:  fields[3],
		Start:    start,
		End:      end,
	}
	if err := e.Validate(); err != nil {
		return StreamEpoch{}, err
	}
	return e, nil
}

// FormatTime renders a timestamp in wire form: UTC, second precision, with
// microseconds appended only when the instant has a sub-second component.
func FormatTime(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() == 0 {
		return t.Format(timeLayout)
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

// ParseTime parses wire timestamps. Zone-less forms are interpreted as UTC;
// a bare date means midnight UTC that day.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayoutFrac, timeLayout, dateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	// Zoned forms from lenient clients.
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
