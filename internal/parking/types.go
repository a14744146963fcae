package parking

import (
	"encoding/json"
	"errors"
)

// LocationType classifies a curb location. The filter values All and None
// are only meaningful on FilterState.
type LocationType string

const (
	OnStreet  LocationType = "onstreet"
	OffStreet LocationType = "offstreet"

	LocationAll  LocationType = "All"
	LocationNone LocationType = "None"
)

// Valid reports whether t is a concrete location classification.
func (t LocationType) Valid() bool {
	return t == OnStreet || t == OffStreet
}

var ErrInvalidFilter = errors.New("invalid filter")

// ParkingEvent is one day x hour x location bucket of the temporal dataset.
// Day 0 is Monday.
type ParkingEvent struct {
	GeomID          string  `json:"geom_id"`
	Day             int     `json:"day"`
	Hour            int     `json:"hour"`
	AvgTotalMinutes float64 `json:"avg_total_minutes"`
	AvgEvents       float64 `json:"avg_events"`
}

// LocationRecord is one row of the reference geometry feed. Onstreet rows
// are keyed by their edge id (AB), offstreet rows by their zone id (MazID).
type LocationRecord struct {
	AB           string
	MazID        string
	LocationType LocationType
	Geometry     json.RawMessage
}

func (r LocationRecord) GeomID() string {
	if r.LocationType == OnStreet {
		return r.AB
	}
	return r.MazID
}

type LocationGeometry struct {
	GeomID       string
	Geometry     json.RawMessage
	LocationType LocationType
}

// AggregatedLocation is the map marker data for one location.
type AggregatedLocation struct {
	GeomID        string          `json:"geom_id"`
	LocationType  LocationType    `json:"location_type"`
	Geometry      json.RawMessage `json:"geometry,omitempty"`
	TotalDuration float64         `json:"total_duration"`
	Events        float64         `json:"events"`
	AvgDuration   float64         `json:"avg_duration"`
}

// BucketTotal holds stacked chart durations, in hours, for one day-of-week
// or hour-of-day bucket.
type BucketTotal struct {
	Key       int     `json:"key"`
	OnStreet  float64 `json:"onstreet"`
	OffStreet float64 `json:"offstreet"`
}

// SummaryStats are the running totals over the filtered and selected subset.
// HasData is false for the no-data sentinel, in which case every field is zero.
type SummaryStats struct {
	Duration    float64 `json:"overall_duration"`
	Events      float64 `json:"overall_events"`
	AvgDuration float64 `json:"overall_avg_duration"`
	HasData     bool    `json:"has_data"`
}

// Snapshot is the output of one full recompute.
type Snapshot struct {
	Filter    FilterState          `json:"filter"`
	Locations []AggregatedLocation `json:"locations"`
	Daily     []BucketTotal        `json:"daily"`
	Hourly    []BucketTotal        `json:"hourly"`
	Summary   SummaryStats         `json:"summary"`
}
