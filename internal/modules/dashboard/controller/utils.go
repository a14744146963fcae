package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"tncparking/internal/modules/dashboard/views"
	"tncparking/internal/parking"
	"tncparking/internal/session"
)

const (
	sessionCookieName = "tnc_session"
	maxCommandBytes   = 1 << 16
	maxZoom           = 22
)

var errEmptyCommand = errors.New("empty command body")

func parseChartKey(s string) (parking.BucketKey, error) {
	switch s {
	case "day":
		return parking.BucketDay, nil
	case "hour":
		return parking.BucketHour, nil
	default:
		return 0, fmt.Errorf("invalid chart key %q (allowed: day, hour)", s)
	}
}

// parseZoom reads the optional map zoom level; 0 means unknown.
func parseZoom(r *http.Request) (int, error) {
	s := r.URL.Query().Get("zoom")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'zoom' (expected integer)")
	}
	if n < 0 || n > maxZoom {
		return 0, fmt.Errorf("'zoom' must be between 0 and %d", maxZoom)
	}
	return n, nil
}

// sessionIDFromRequest prefers an explicit session_id query parameter over the cookie.
func sessionIDFromRequest(r *http.Request) string {
	if id := r.URL.Query().Get("session_id"); id != "" {
		return id
	}
	if ck, err := r.Cookie(sessionCookieName); err == nil {
		return ck.Value
	}
	return ""
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func decodeCommand(w http.ResponseWriter, r *http.Request) (session.Command, error) {
	var cmd session.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		if errors.Is(err, io.EOF) {
			return cmd, errEmptyCommand
		}
		return cmd, err
	}
	return cmd, nil
}

// commandStatus maps a command failure to its HTTP status.
func commandStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrInvalidCommand), errors.Is(err, parking.ErrInvalidFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func locationOrder(t parking.LocationType) int {
	if t == parking.OnStreet {
		return 0
	}
	return 1
}

// buildFeatureCollection turns the aggregated locations into map features.
// Onstreet features come first so offstreet markers are drawn on top.
func buildFeatureCollection(snap parking.Snapshot, zoom int, logger *slog.Logger) *geojson.FeatureCollection {
	locs := slices.Clone(snap.Locations)
	slices.SortStableFunc(locs, func(a, b parking.AggregatedLocation) int {
		return locationOrder(a.LocationType) - locationOrder(b.LocationType)
	})

	scaling := views.ScalingFactor(snap.Filter, zoom)
	fc := geojson.NewFeatureCollection()
	skipped := 0
	for _, loc := range locs {
		if len(loc.Geometry) == 0 {
			skipped++
			continue
		}
		g, err := geojson.UnmarshalGeometry(loc.Geometry)
		if err != nil || g.Geometry() == nil {
			skipped++
			continue
		}
		f := geojson.NewFeature(g.Geometry())
		f.ID = loc.GeomID
		f.Properties["geom_id"] = loc.GeomID
		f.Properties["location_type"] = string(loc.LocationType)
		f.Properties["total_duration"] = loc.TotalDuration
		f.Properties["events"] = loc.Events
		if loc.Events > 0 {
			f.Properties["avg_duration"] = loc.AvgDuration
		}
		f.Properties["duration_bucket"] = parking.DurationBucket(loc.TotalDuration / 60)
		f.Properties["radius"] = views.MarkerRadius(loc.TotalDuration, scaling)
		f.Properties["color"] = views.LocationColor(loc.LocationType)
		f.Properties["selected"] = loc.GeomID == snap.Filter.Selected
		f.Properties["popup"] = views.NewPopup(loc, snap.Filter)
		fc.Append(f)
	}
	if skipped > 0 {
		logger.Warn("map features skipped: unreadable geometry", "count", skipped)
	}

	fc.ExtraMembers = geojson.Properties{
		"scaling_factor": scaling,
		"legend":         views.BuildLegend(snap.Filter, zoom),
	}
	return fc
}
