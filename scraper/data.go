package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// 観測項目 (data.xml の vars)
const (
	halfHourlyVars = "12,19,13,20,14,26,2,21,15,23,16,24,17,27,4,28,18,29"
	dailyVars      = "35,56,38,57,36,58,37,59,43,60,46,61,40,62,33,63,85,65,88,66,89,67,41,68,80,69,81,70,47,71,48,72,49,74,50,75,51,77,52,78,53,83,54,82,55"
)

// Param is one observed variable: its key in records (p0, p1, ...) and
// the human readable column label.
type Param struct {
	Key   string
	Label string
}

// Record is one observation time of a station. Offset is the archive's
// minute counter taken from the record key; Values is keyed by Param.Key
// and lacks keys the archive left out.
type Record struct {
	Key    string
	Offset int64
	Values map[string]string
}

// StationData is a parsed data.xml document.
type StationData struct {
	Params  []Param
	Records []Record
}

var (
	paramsRe = regexp.MustCompile(`(?s)params:\{(.+)\},\s*points`)
	recordRe = regexp.MustCompile(`_(\d+):\{([^{}]*)\}`)
)

// ParseData parses a data.xml document. Params are ordered p0..pN-1;
// records keep document order.
func ParseData(body string) (*StationData, error) {
	pm := paramsRe.FindStringSubmatch(body)
	if pm == nil {
		return nil, errors.NewDataError("data.xml", -1, "params", errors.New("params block not found"))
	}
	var raw map[string]struct {
		L string `json:"l"`
	}
	if err := json.Unmarshal([]byte(quoteKeys("{"+pm[1]+"}")), &raw); err != nil {
		return nil, errors.NewDataError("data.xml", -1, "params", err)
	}
	data := &StationData{Params: make([]Param, len(raw))}
	for i := range data.Params {
		key := "p" + strconv.Itoa(i)
		label := key
		if p, ok := raw[key]; ok && p.L != "" {
			label = p.L
		}
		data.Params[i] = Param{Key: key, Label: label}
	}

	points := pointsRe.FindStringSubmatch(body)
	if points == nil {
		return nil, errors.NewDataError("data.xml", -1, "points", errors.New("points block not found"))
	}
	for n, m := range recordRe.FindAllStringSubmatch(points[1], -1) {
		offset, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, errors.NewDataError("data.xml", n, "record", err)
		}
		values, err := parseValues(m[2])
		if err != nil {
			return nil, errors.NewDataError("data.xml", n, "_"+m[1], err)
		}
		data.Records = append(data.Records, Record{Key: "_" + m[1], Offset: offset, Values: values})
	}
	return data, nil
}

// parseValues decodes `p0:"1.2",p1:3` into strings. null values are dropped.
func parseValues(body string) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(quoteKeys("{" + body + "}"))))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case nil:
		case string:
			out[k] = x
		case json.Number:
			out[k] = x.String()
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out, nil
}

// quoteKeys turns the bare object keys of a JavaScript literal into JSON
// strings. Text inside double quotes is copied untouched.
func quoteKeys(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/4)
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '"':
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(rs) {
				j = len(rs) - 1
			}
			sb.WriteString(string(rs[i : j+1]))
			i = j + 1
		case isWord(r):
			j := i
			for j < len(rs) && isWord(rs[j]) {
				j++
			}
			k := j
			for k < len(rs) && unicode.IsSpace(rs[k]) {
				k++
			}
			word := string(rs[i:j])
			if k < len(rs) && rs[k] == ':' {
				sb.WriteString(strconv.Quote(word))
			} else {
				sb.WriteString(word)
			}
			i = j
		default:
			sb.WriteRune(r)
			i++
		}
	}
	return sb.String()
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// StationData downloads the observations of st between from and to.
// Automatic stations report half-hourly, the others daily.
func (c *Client) StationData(ctx context.Context, st Station, from, to time.Time) (*StationData, error) {
	q := url.Values{}
	q.Set("lang", "si")
	if st.Type == TypeAutomatic {
		q.Set("vars", halfHourlyVars)
		q.Set("group", "halfhourlyData0")
		q.Set("type", "halfhourly")
	} else {
		q.Set("vars", dailyVars)
		q.Set("group", "dailyData2")
		q.Set("type", "daily")
	}
	q.Set("id", st.NumericID())
	q.Set("d1", from.Format(DateLayout))
	q.Set("d2", to.Format(DateLayout))

	body, err := c.fetch(ctx, "data.xml", q)
	if err != nil {
		return nil, err
	}
	data, err := ParseData(body)
	if err != nil {
		return nil, errors.Wrapf(err, "station %s", st.ID)
	}
	return data, nil
}
