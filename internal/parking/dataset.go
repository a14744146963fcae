package parking

import (
	"log/slog"
	"math"
)

const missingSampleSize = 5

// Dataset is the immutable event collection together with the geometry it
// references. Every retained event has a geometry in the index.
type Dataset struct {
	events []ParkingEvent
	index  *GeometryIndex
}

type DatasetStats struct {
	Events          int `json:"events"`
	Locations       int `json:"locations"`
	MissingGeometry int `json:"missing_geometry"`
	Malformed       int `json:"malformed"`
}

// NewDataset validates events against idx. Malformed events and events whose
// geom_id has no geometry are dropped; missing geometry is reported with a
// single warning rather than once per event.
func NewDataset(events []ParkingEvent, idx *GeometryIndex, logger *slog.Logger) (*Dataset, DatasetStats) {
	if logger == nil {
		logger = slog.Default()
	}
	if idx == nil {
		idx, _ = BuildIndex(nil)
	}

	kept := make([]ParkingEvent, 0, len(events))
	var stats DatasetStats
	var sample []string
	for _, e := range events {
		if !wellFormed(e) {
			stats.Malformed++
			continue
		}
		if _, ok := idx.Lookup(e.GeomID); !ok {
			stats.MissingGeometry++
			if len(sample) < missingSampleSize {
				sample = append(sample, e.GeomID)
			}
			continue
		}
		kept = append(kept, e)
	}
	stats.Events = len(kept)
	stats.Locations = idx.Len()

	if stats.MissingGeometry > 0 {
		logger.Warn("events reference unknown geometry; skipped",
			"count", stats.MissingGeometry,
			"sample_geom_ids", sample,
		)
	}
	if stats.Malformed > 0 {
		logger.Warn("malformed events skipped", "count", stats.Malformed)
	}

	return &Dataset{events: kept, index: idx}, stats
}

func wellFormed(e ParkingEvent) bool {
	if e.GeomID == "" {
		return false
	}
	if e.Day < 0 || e.Day >= DaysPerWeek || e.Hour < 0 || e.Hour >= HoursPerDay {
		return false
	}
	return finiteNonNegative(e.AvgTotalMinutes) && finiteNonNegative(e.AvgEvents)
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}

func (d *Dataset) Index() *GeometryIndex {
	if d == nil {
		return nil
	}
	return d.index
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.events)
}
