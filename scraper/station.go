package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
)

// StationType is the archive's station category.
type StationType int

const (
	TypePrecipitation      StationType = 1
	TypeClimatological     StationType = 2
	TypeMainMeteorological StationType = 3
	TypeAutomatic          StationType = 4
)

// String returns the category name used in output file names.
func (t StationType) String() string {
	switch t {
	case TypePrecipitation:
		return "padavinske_postaje"
	case TypeClimatological:
		return "klimatoloske_postaje"
	case TypeMainMeteorological:
		return "glavne_meteroloske_postaje"
	case TypeAutomatic:
		return "samodejne_postaje"
	default:
		return "postaje_" + strconv.Itoa(int(t))
	}
}

// Valid reports whether t is one of the four archive categories.
func (t StationType) Valid() bool {
	return t >= TypePrecipitation && t <= TypeAutomatic
}

// Station is one entry of locations.xml. Coordinates are kept as the
// archive wrote them.
type Station struct {
	ID   string // "_1828"
	Name string
	Lon  string
	Lat  string
	Alt  string
	Type StationType
}

// NumericID returns the ID without the leading underscore.
func (s Station) NumericID() string {
	return strings.TrimPrefix(s.ID, "_")
}

var (
	pointsRe  = regexp.MustCompile(`(?s)points:\{(.+)\}`)
	stationRe = regexp.MustCompile(`_(\d+):\{\s*name:"([^"]+)",\s*lon:([^,]+),\s*lat:([^,]+),\s*alt:(\d+),\s*type:(\d+)\s*\}`)
)

// ParseLocations extracts the stations of a locations.xml document in
// document order.
func ParseLocations(body string) ([]Station, error) {
	m := pointsRe.FindStringSubmatch(body)
	if m == nil {
		return nil, errors.NewDataError("locations.xml", -1, "points", errors.New("points block not found"))
	}

	var stations []Station
	for _, s := range stationRe.FindAllStringSubmatch(m[1], -1) {
		typ, err := strconv.Atoi(s[6])
		if err != nil {
			return nil, errors.NewDataError("locations.xml", -1, "type", err)
		}
		stations = append(stations, Station{
			ID:   "_" + s[1],
			Name: s[2],
			Lon:  strings.TrimSpace(s[3]),
			Lat:  strings.TrimSpace(s[4]),
			Alt:  s[5],
			Type: StationType(typ),
		})
	}
	return stations, nil
}

// Stations lists the stations of type typ active between from and to.
func (c *Client) Stations(ctx context.Context, typ StationType, from, to time.Time) ([]Station, error) {
	q := url.Values{}
	q.Set("d1", from.Format(DateLayout))
	q.Set("d2", to.Format(DateLayout))
	q.Set("type", strconv.Itoa(int(typ)))
	q.Set("lang", "si")

	body, err := c.fetch(ctx, "locations.xml", q)
	if err != nil {
		return nil, err
	}
	stations, err := ParseLocations(body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Stations listed",
		"station_type", int(typ),
		"stations", len(stations),
		"date_from", from.Format(DateLayout),
		"date_to", to.Format(DateLayout))
	return stations, nil
}
