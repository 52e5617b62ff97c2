package scraper

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// MissingValue is written for variables a record does not report.
const MissingValue = "NaN"

// EncodedDateLayout is the format of the encoded_dates column.
const EncodedDateLayout = "2006-01-02 15:04:05"

// metaColumns precede the observed variables in every output frame.
var metaColumns = []string{
	"record", "encoded_dates", "station_id", "station_type", "station_name",
	"station_lon", "station_lat", "date_from", "date_to",
}

// StationFrame pairs a station with its downloaded observations.
type StationFrame struct {
	Station Station
	Data    *StationData
}

// Assemble stacks the observations of every station into one frame.
//
// Variable columns are labelled with Param.Label, in first-seen order across
// stations; a station lacking a variable gets MissingValue. encoded_dates is
// from (at midnight) plus the minutes between each record and the first
// record of the frame.
func Assemble(from, to time.Time, frames []StationFrame) (dataframe.DataFrame, error) {
	var labels []string
	seen := map[string]bool{}
	var first *Record
	rows := 0
	for _, f := range frames {
		for _, p := range f.Data.Params {
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
		if first == nil && len(f.Data.Records) > 0 {
			first = &f.Data.Records[0]
		}
		rows += len(f.Data.Records)
	}
	if rows == 0 {
		return dataframe.DataFrame{}, errors.NewModelError("scraper.Assemble", "no records", errors.ErrEmptyData)
	}

	cols := make(map[string][]string, len(metaColumns)+len(labels))
	for _, name := range append(append([]string(nil), metaColumns...), labels...) {
		cols[name] = make([]string, 0, rows)
	}

	ref := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for _, f := range frames {
		st := f.Station
		label := make(map[string]string, len(f.Data.Params))
		for _, p := range f.Data.Params {
			label[p.Label] = p.Key
		}
		for _, r := range f.Data.Records {
			at := ref.Add(time.Duration(r.Offset-first.Offset) * time.Minute)
			meta := []string{
				r.Key, at.Format(EncodedDateLayout), st.ID, strconv.Itoa(int(st.Type)), st.Name,
				st.Lon, st.Lat, from.Format(DateLayout), to.Format(DateLayout),
			}
			for i, name := range metaColumns {
				cols[name] = append(cols[name], meta[i])
			}
			for _, l := range labels {
				v := MissingValue
				if key, has := label[l]; has {
					if x, ok := r.Values[key]; ok {
						v = x
					}
				}
				cols[l] = append(cols[l], v)
			}
		}
	}

	ss := make([]series.Series, 0, len(metaColumns)+len(labels))
	for _, name := range metaColumns {
		ss = append(ss, series.New(cols[name], series.String, name))
	}
	for _, l := range labels {
		ss = append(ss, series.New(cols[l], series.String, l))
	}
	df := dataframe.New(ss...)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, "assemble frame")
	}
	return df, nil
}

// WriteCSV writes df to path, creating parent directories.
func WriteCSV(path string, df dataframe.DataFrame) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	w := bufio.NewWriter(f)
	if err := df.WriteCSV(w); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrap(w.Flush(), "flush")
}
