package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"tncparking/internal/parking"
)

var errNoGeometry = errors.New("missing geometry")

// flexString accepts a JSON string, number or null. The feeds are not
// consistent about how ids are typed.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id %s: %w", b, err)
	}
	*f = flexString(formatNumber(n))
	return nil
}

func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if v, err := n.Float64(); err == nil && v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return strconv.FormatInt(int64(v), 10)
	}
	return n.String()
}

type locationJSON struct {
	AB           flexString      `json:"ab"`
	MazID        flexString      `json:"mazid"`
	LocationType string          `json:"location_type"`
	Geometry     json.RawMessage `json:"geometry"`
}

type eventJSON struct {
	GeomID          flexString `json:"geom_id"`
	Day             *float64   `json:"day"`
	Hour            *float64   `json:"hour"`
	AvgTotalMinutes *float64   `json:"avg_total_minutes"`
	AvgEvents       *float64   `json:"avg_events"`
}

// NormalizeGeometry accepts a GeoJSON geometry as an object or as a
// JSON-encoded string and returns it as a compact object.
func NormalizeGeometry(raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errNoGeometry
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return nil, errNoGeometry
		}
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	if g.Geometry() == nil {
		return nil, errNoGeometry
	}
	out, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	return out, nil
}

// ParseLocations decodes the location feed. Records that cannot be decoded
// or whose geometry is not valid GeoJSON are skipped and counted.
func ParseLocations(r io.Reader) ([]parking.LocationRecord, int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", FeedLocations, err)
	}

	out := make([]parking.LocationRecord, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var rec locationJSON
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			continue
		}
		geom, err := NormalizeGeometry(rec.Geometry)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, parking.LocationRecord{
			AB:           string(rec.AB),
			MazID:        string(rec.MazID),
			LocationType: parking.LocationType(strings.ToLower(strings.TrimSpace(rec.LocationType))),
			Geometry:     geom,
		})
	}
	return out, skipped, nil
}

// ParseEvents decodes the event feed. Records missing a field or carrying a
// fractional day or hour are skipped and counted; range checks happen when
// the dataset is built.
func ParseEvents(r io.Reader) ([]parking.ParkingEvent, int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", FeedEvents, err)
	}

	out := make([]parking.ParkingEvent, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var rec eventJSON
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			continue
		}
		if rec.Day == nil || rec.Hour == nil || rec.AvgTotalMinutes == nil || rec.AvgEvents == nil {
			skipped++
			continue
		}
		day, ok := wholeNumber(*rec.Day)
		if !ok {
			skipped++
			continue
		}
		hour, ok := wholeNumber(*rec.Hour)
		if !ok {
			skipped++
			continue
		}
		out = append(out, parking.ParkingEvent{
			GeomID:          string(rec.GeomID),
			Day:             day,
			Hour:            hour,
			AvgTotalMinutes: *rec.AvgTotalMinutes,
			AvgEvents:       *rec.AvgEvents,
		})
	}
	return out, skipped, nil
}

func wholeNumber(v float64) (int, bool) {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
