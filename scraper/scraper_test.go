package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treeprimer/dataset"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
)

const locationsXML = `<?xml version="1.0" encoding="UTF-8"?>
<pujs><![CDATA[
AcademaPUJS.set({ mid:"arsoloc", points:{ _1828:{ name:"LJUBLJANA - BEŽIGRAD", lon:14.5124, lat:46.0655, alt:299, type:4 }, _1895:{ name:"KOPER", lon:13.7294, lat:45.5481, alt:3, type:4 } }})
]]></pujs>`

const ljubljanaXML = `<?xml version="1.0" encoding="UTF-8"?>
<pujs><![CDATA[
AcademaPUJS.set({ mid:"arsodata", o:["_1828"], params:{ p0:{ pid:"12", l:"povp. T [°C]", s:"T" }, p1:{ pid:"19", l:"vlaga: povp. [%]", s:"RH" } }, points:{ _1828:{ _43046400:{ p0:"1.2", p1:"80" }, _43046430:{ p0:"1.4" } } }})
]]></pujs>`

const koperXML = `<?xml version="1.0" encoding="UTF-8"?>
<pujs><![CDATA[
AcademaPUJS.set({ mid:"arsodata", o:["_1895"], params:{ p0:{ pid:"12", l:"povp. T [°C]", s:"T" }, p1:{ pid:"19", l:"vlaga: povp. [%]", s:"RH" } }, points:{ _1895:{ _43046460:{ p0:-0.5, p1:"91" } } }})
]]></pujs>`

// archive serves the fixtures and records every query it receives.
type archive struct {
	mu      sync.Mutex
	queries []string
	fail    bool
}

func (a *archive) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.queries = append(a.queries, r.URL.Path+"?"+r.URL.RawQuery)
		a.mu.Unlock()
		if a.fail {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/locations.xml":
			fmt.Fprint(w, locationsXML)
		case "/data.xml":
			switch r.URL.Query().Get("id") {
			case "1828":
				fmt.Fprint(w, ljubljanaXML)
			case "1895":
				fmt.Fprint(w, koperXML)
			default:
				http.NotFound(w, r)
			}
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, a *archive) *Client {
	t.Helper()
	srv := httptest.NewServer(a.handler(t))
	t.Cleanup(srv.Close)
	logger, _ := log.NewTestLogger(log.LevelError)
	return NewClient(
		WithBaseURL(srv.URL+"/"),
		WithHTTPClient(srv.Client()),
		WithRateLimit(1000, 10),
		WithLogger(logger),
	)
}

func TestParseLocations(t *testing.T) {
	stations, err := ParseLocations(locationsXML)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, Station{
		ID: "_1828", Name: "LJUBLJANA - BEŽIGRAD",
		Lon: "14.5124", Lat: "46.0655", Alt: "299", Type: TypeAutomatic,
	}, stations[0])
	assert.Equal(t, "1895", stations[1].NumericID())

	_, err = ParseLocations("<pujs></pujs>")
	var de *errors.DataError
	assert.True(t, errors.As(err, &de))
}

func TestParseData(t *testing.T) {
	data, err := ParseData(ljubljanaXML)
	require.NoError(t, err)

	assert.Equal(t, []Param{
		{Key: "p0", Label: "povp. T [°C]"},
		{Key: "p1", Label: "vlaga: povp. [%]"},
	}, data.Params)
	require.Len(t, data.Records, 2)
	assert.Equal(t, Record{Key: "_43046400", Offset: 43046400, Values: map[string]string{"p0": "1.2", "p1": "80"}}, data.Records[0])
	assert.Equal(t, map[string]string{"p0": "1.4"}, data.Records[1].Values)

	numeric, err := ParseData(koperXML)
	require.NoError(t, err)
	assert.Equal(t, "-0.5", numeric.Records[0].Values["p0"])

	_, err = ParseData(`params:{ p0:{ l:"x" } }`)
	assert.Error(t, err)
}

func TestQuoteKeys(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{p0:"1"}`, `{"p0":"1"}`},
		{`{ a : 1, b:true }`, `{ "a" : 1, "b":true }`},
		{`{l:"x: y", n:null}`, `{"l":"x: y", "n":null}`},
		{`{l:"say \"hi\": ok"}`, `{"l":"say \"hi\": ok"}`},
		{`{_12:{p0:1.5e3}}`, `{"_12":{"p0":1.5e3}}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteKeys(tt.in), tt.in)
	}
}

func TestClientRequests(t *testing.T) {
	a := &archive{}
	c := newTestClient(t, a)
	ctx := context.Background()
	from, to := date(2020, time.January, 1), date(2020, time.January, 15)

	stations, err := c.Stations(ctx, TypeAutomatic, from, to)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	_, err = c.StationData(ctx, stations[0], from, to)
	require.NoError(t, err)
	_, err = c.StationData(ctx, Station{ID: "_1895", Type: TypeClimatological}, from, to)
	require.NoError(t, err)

	require.Len(t, a.queries, 3)
	assert.Contains(t, a.queries[0], "/locations.xml?")
	assert.Contains(t, a.queries[0], "d1=2020-01-01")
	assert.Contains(t, a.queries[0], "type=4")
	assert.Contains(t, a.queries[1], "group=halfhourlyData0")
	assert.Contains(t, a.queries[1], "id=1828")
	assert.Contains(t, a.queries[2], "group=dailyData2")
	assert.Contains(t, a.queries[2], "type=daily")
}

func TestClientErrors(t *testing.T) {
	a := &archive{fail: true}
	c := newTestClient(t, a)
	from := date(2020, time.January, 1)

	_, err := c.Stations(context.Background(), TypeAutomatic, from, from)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Stations(ctx, TypeAutomatic, from, from)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestAssemble(t *testing.T) {
	lj, err := ParseData(ljubljanaXML)
	require.NoError(t, err)
	kp, err := ParseData(koperXML)
	require.NoError(t, err)
	stations, err := ParseLocations(locationsXML)
	require.NoError(t, err)

	from, to := date(2020, time.January, 1), date(2020, time.January, 15)
	df, err := Assemble(from, to, []StationFrame{
		{Station: stations[0], Data: lj},
		{Station: stations[1], Data: kp},
	})
	require.NoError(t, err)

	assert.Equal(t, append(append([]string(nil), metaColumns...), "povp. T [°C]", "vlaga: povp. [%]"), df.Names())
	assert.Equal(t, 3, df.Nrow())

	assert.Equal(t, []string{"2020-01-01 00:00:00", "2020-01-01 00:30:00", "2020-01-01 01:00:00"},
		df.Col("encoded_dates").Records())
	assert.Equal(t, []string{"_1828", "_1828", "_1895"}, df.Col("station_id").Records())
	assert.Equal(t, []string{"80", MissingValue, "91"}, df.Col("vlaga: povp. [%]").Records())
	assert.Equal(t, "2020-01-15", df.Col("date_to").Records()[0])

	_, err = Assemble(from, to, []StationFrame{{Station: stations[0], Data: &StationData{}}})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestMonthlyJobs(t *testing.T) {
	jobs := MonthlyJobs([]int{2020, 2023})
	require.Len(t, jobs, 48)

	feb := jobs[2:4]
	assert.Equal(t, date(2020, time.February, 1), feb[0].From)
	assert.Equal(t, date(2020, time.February, 15), feb[0].To)
	assert.Equal(t, date(2020, time.February, 16), feb[0].LocTo)
	assert.Equal(t, date(2020, time.February, 29), feb[1].To)
	assert.Equal(t, feb[1].LocTo, feb[1].To)
	assert.Equal(t, "samodejne_postaje_datefrom_2020-02-16_dateto_2020-02-29.csv", feb[1].FileName())

	assert.Equal(t, date(2023, time.February, 28), jobs[27].To)
	for _, j := range jobs {
		assert.Equal(t, TypeAutomatic, j.Type)
	}
}

func TestPeriodJobs(t *testing.T) {
	from, to := date(2020, time.January, 1), date(2023, time.December, 31)
	jobs := PeriodJobs([]StationType{TypePrecipitation, TypeClimatological, TypeMainMeteorological}, from, to)
	require.Len(t, jobs, 3)
	assert.Equal(t, "padavinske_postaje_datefrom_2020-01-01_dateto_2023-12-31.csv", jobs[0].FileName())
	assert.Equal(t, "klimatoloske_postaje_datefrom_2020-01-01_dateto_2023-12-31.csv", jobs[1].FileName())
	assert.Equal(t, from, jobs[2].LocFrom)
}

func TestScraperRun(t *testing.T) {
	a := &archive{}
	c := newTestClient(t, a)
	dir := t.TempDir()
	logger, _ := log.NewTestLogger(log.LevelError)
	s := New(c, dir, WithConcurrency(4), WithScraperLogger(logger))

	from, to := date(2020, time.January, 1), date(2020, time.January, 15)
	paths, err := s.Run(context.Background(), PeriodJobs([]StationType{TypeAutomatic}, from, to))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "samodejne_postaje_datefrom_2020-01-01_dateto_2020-01-15.csv"), paths[0])

	// 出力は実験側のローダでそのまま読める
	ds, err := dataset.LoadCSV(paths[0])
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumInstances())
	assert.Equal(t, len(metaColumns)+2, ds.NumAttributes())
	j := ds.AttributeIndex("vlaga: povp. [%]")
	require.GreaterOrEqual(t, j, 0)
	assert.True(t, ds.IsMissing(1, j))
	assert.Equal(t, 91.0, ds.Value(2, j))

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "record,encoded_dates,station_id"))
}

func TestScraperRunStopsOnError(t *testing.T) {
	a := &archive{fail: true}
	c := newTestClient(t, a)
	s := New(c, t.TempDir())

	jobs := MonthlyJobs([]int{2020})
	paths, err := s.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Empty(t, paths)
	assert.Len(t, a.queries, 1)
}
