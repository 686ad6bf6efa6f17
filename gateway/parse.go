package gateway

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/c360/seisgate/epoch"
	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/query"
)

// Selector parameters accept both the short and the long FDSN spelling.
var paramAliases = map[string][]string{
	"net":   {"net", "network"},
	"sta":   {"sta", "station"},
	"loc":   {"loc", "location"},
	"cha":   {"cha", "channel"},
	"start": {"start", "starttime"},
	"end":   {"end", "endtime"},
}

// parseGetQuery builds a query from GET parameters. Selector keys take
// comma-separated lists; the epoch set is their cross product over the
// shared time window. Missing selectors wildcard, a missing end leaves the
// epochs open.
func parseGetQuery(r *http.Request) (query.Query, error) {
	values := r.URL.Query()

	lookup := func(canonical string) string {
		for _, key := range paramAliases[canonical] {
			if v := values.Get(key); v != "" {
				return v
			}
		}
		return ""
	}

	var q query.Query
	q.Format = values.Get("format")
	if m := values.Get("merge"); m != "" {
		q.Merge = splitList(m)
	}
	if nd := values.Get("nodata"); nd != "" {
		n, err := strconv.Atoi(nd)
		if err != nil {
			return query.Query{}, errors.WrapInvalid(
				fmt.Errorf("nodata must be numeric, got %q", nd),
				"gateway", "parseGetQuery", "nodata parameter")
		}
		q.NoData = n
	}

	startRaw := lookup("start")
	if startRaw == "" {
		return query.Query{}, errors.WrapInvalid(
			fmt.Errorf("start time is required"),
			"gateway", "parseGetQuery", "time window")
	}
	start, err := epoch.ParseTime(startRaw)
	if err != nil {
		return query.Query{}, errors.WrapInvalid(err, "gateway", "parseGetQuery", "start time")
	}
	var end time.Time
	if endRaw := lookup("end"); endRaw != "" {
		end, err = epoch.ParseTime(endRaw)
		if err != nil {
			return query.Query{}, errors.WrapInvalid(err, "gateway", "parseGetQuery", "end time")
		}
	}

	networks := selectorList(lookup("net"))
	stations := selectorList(lookup("sta"))
	locations := selectorList(lookup("loc"))
	channels := selectorList(lookup("cha"))

	for _, net := range networks {
		for _, sta := range stations {
			for _, loc := range locations {
				if loc == "--" {
					loc = ""
				}
				for _, cha := range channels {
					q.Epochs = append(q.Epochs, epoch.StreamEpoch{
						Network:  net,
						Station:  sta,
						Location: loc,
						Channel:  cha,
						Start:    start,
						End:      end,
					})
				}
			}
		}
	}
	return q, nil
}

// parsePostQuery builds a query from a POST body: key=value option lines
// followed by one selector line per epoch. Blank lines and #-comments are
// skipped.
func parsePostQuery(body []byte) (query.Query, error) {
	var q query.Query
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if key, value, ok := cutOption(line); ok {
			switch key {
			case "format":
				q.Format = value
			case "merge":
				q.Merge = append(q.Merge, splitList(value)...)
			case "nodata":
				n, err := strconv.Atoi(value)
				if err != nil {
					return query.Query{}, errors.WrapInvalid(
						fmt.Errorf("nodata must be numeric, got %q", value),
						"gateway", "parsePostQuery", "nodata parameter")
				}
				q.NoData = n
			default:
				return query.Query{}, errors.WrapInvalid(
					fmt.Errorf("unknown parameter %q", key),
					"gateway", "parsePostQuery", "option line")
			}
			continue
		}

		e, err := epoch.ParseLine(line)
		if err != nil {
			return query.Query{}, err
		}
		q.Epochs = append(q.Epochs, e)
	}
	if err := scanner.Err(); err != nil {
		return query.Query{}, errors.WrapInvalid(err, "gateway", "parsePostQuery", "body scan")
	}
	return q, nil
}

// cutOption splits a key=value option line. Selector lines never contain
// "=" in their leading field, so a key with whitespace is not an option.
func cutOption(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

// selectorList expands a comma-separated selector value, wildcarding when
// the parameter is absent.
func selectorList(v string) []string {
	out := splitList(v)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
