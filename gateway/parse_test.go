package gateway

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/query"
)

func TestParseGetQuery_SingleSelector(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/fdsnws/dataselect/1/query?net=GR&sta=WET&loc=00&cha=BHZ&start=2024-01-01T00:00:00&end=2024-01-02T00:00:00&format=miniseed&nodata=404", nil)

	q, err := parseGetQuery(r)
	require.NoError(t, err)

	require.Len(t, q.Epochs, 1)
	e := q.Epochs[0]
	assert.Equal(t, "GR", e.Network)
	assert.Equal(t, "WET", e.Station)
	assert.Equal(t, "00", e.Location)
	assert.Equal(t, "BHZ", e.Channel)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), e.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), e.End)
	assert.Equal(t, query.FormatMiniSEED, q.Format)
	assert.Equal(t, query.NoDataNotFound, q.NoData)
}

func TestParseGetQuery_LongParameterNames(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/fdsnws/dataselect/1/query?network=CH&station=DAVOX&location=--&channel=HHZ&starttime=2024-06-01&endtime=2024-06-02", nil)

	q, err := parseGetQuery(r)
	require.NoError(t, err)

	require.Len(t, q.Epochs, 1)
	e := q.Epochs[0]
	assert.Equal(t, "CH", e.Network)
	assert.Equal(t, "DAVOX", e.Station)
	assert.Equal(t, "", e.Location, "-- denotes the blank location code")
	assert.Equal(t, "HHZ", e.Channel)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), e.Start)
}

func TestParseGetQuery_CommaListsExpandToCrossProduct(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/fdsnws/dataselect/1/query?net=GR,CH&sta=WET&cha=BHZ,LHZ&start=2024-01-01", nil)

	q, err := parseGetQuery(r)
	require.NoError(t, err)
	require.Len(t, q.Epochs, 4)

	seen := make(map[string]bool)
	for _, e := range q.Epochs {
		seen[e.Network+"/"+e.Channel] = true
		assert.Equal(t, "WET", e.Station)
		assert.True(t, e.Open(), "no end parameter means an open epoch")
	}
	for _, want := range []string{"GR/BHZ", "GR/LHZ", "CH/BHZ", "CH/LHZ"} {
		assert.True(t, seen[want], "missing combination %s", want)
	}
}

func TestParseGetQuery_MissingSelectorsWildcard(t *testing.T) {
	r := httptest.NewRequest("GET", "/fdsnws/dataselect/1/query?start=2024-01-01", nil)

	q, err := parseGetQuery(r)
	require.NoError(t, err)

	require.Len(t, q.Epochs, 1)
	e := q.Epochs[0]
	assert.Equal(t, "*", e.Network)
	assert.Equal(t, "*", e.Station)
	assert.Equal(t, "*", e.Location)
	assert.Equal(t, "*", e.Channel)
}

func TestParseGetQuery_Invalid(t *testing.T) {
	cases := []struct {
		name     string
		rawQuery string
	}{
		{"missing start", "net=GR&sta=WET"},
		{"bad start", "start=not-a-time"},
		{"bad end", "start=2024-01-01&end=whenever"},
		{"bad nodata", "start=2024-01-01&nodata=maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/fdsnws/dataselect/1/query?"+tc.rawQuery, nil)
			_, err := parseGetQuery(r)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "expected an invalid-classified error, got %v", err)
		})
	}
}

func TestParsePostQuery_OptionsThenSelectors(t *testing.T) {
	body := `# federation request
format=miniseed
nodata=404
merge=quality,overlap

GR WET -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00
CH DAVOX 00 HHZ 2024-01-01T00:00:00 2024-01-01T06:00:00
`
	q, err := parsePostQuery([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, query.FormatMiniSEED, q.Format)
	assert.Equal(t, query.NoDataNotFound, q.NoData)
	assert.ElementsMatch(t, []string{"quality", "overlap"}, q.Merge)

	require.Len(t, q.Epochs, 2)
	assert.Equal(t, "GR", q.Epochs[0].Network)
	assert.Equal(t, "", q.Epochs[0].Location)
	assert.Equal(t, "CH", q.Epochs[1].Network)
	assert.Equal(t, "00", q.Epochs[1].Location)
}

func TestParsePostQuery_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown option", "quality=B\nGR WET -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00\n"},
		{"short selector line", "GR WET BHZ\n"},
		{"bad selector time", "GR WET -- BHZ yesterday today\n"},
		{"bad nodata", "nodata=sometimes\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parsePostQuery([]byte(tc.body))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "expected an invalid-classified error, got %v", err)
		})
	}
}

// Equivalent GET and POST requests must produce the same fingerprint, or
// the response cache would split on transport details.
func TestParseQuery_GetAndPostFingerprintsMatch(t *testing.T) {
	getReq := httptest.NewRequest("GET",
		"/fdsnws/dataselect/1/query?net=GR&sta=WET&loc=--&cha=BHZ&start=2024-01-01T00:00:00&end=2024-01-02T00:00:00&nodata=404", nil)
	fromGet, err := parseGetQuery(getReq)
	require.NoError(t, err)
	require.NoError(t, fromGet.Validate())

	fromPost, err := parsePostQuery([]byte("nodata=404\nGR WET -- BHZ 2024-01-01T00:00:00 2024-01-02T00:00:00\n"))
	require.NoError(t, err)
	require.NoError(t, fromPost.Validate())

	assert.Equal(t, fromGet.Fingerprint(), fromPost.Fingerprint())
}
