// Package source loads the two reference feeds, curb locations and parking
// events, and turns them into a parking.Dataset.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tncparking/internal/parking"
)

const (
	FeedLocations = "parking_locations"
	FeedEvents    = "tnc_parking"
)

var ErrDatasetNotReady = errors.New("dataset not ready")

// Source reads both feeds. Implementations must be safe to call concurrently.
type Source interface {
	Locations(ctx context.Context) ([]parking.LocationRecord, error)
	Events(ctx context.Context) ([]parking.ParkingEvent, error)
}

// FetchError reports which feed failed to load.
type FetchError struct {
	Feed string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Feed, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type LoadStats struct {
	Index    parking.BuildStats   `json:"index"`
	Dataset  parking.DatasetStats `json:"dataset"`
	Duration time.Duration        `json:"duration"`
}

// Load fetches both feeds concurrently and joins them. The index is built
// only once the location feed is complete, so no event is resolved against
// a partial geometry map.
func Load(ctx context.Context, src Source, logger *slog.Logger) (*parking.Dataset, LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var (
		records []parking.LocationRecord
		events  []parking.ParkingEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = src.Locations(gctx)
		if err != nil {
			return &FetchError{Feed: FeedLocations, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = src.Events(gctx)
		if err != nil {
			return &FetchError{Feed: FeedEvents, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, err
	}

	idx, buildStats := parking.BuildIndex(records)
	if buildStats.Skipped > 0 {
		logger.Warn("location records skipped", "skipped", buildStats.Skipped, "indexed", buildStats.Indexed)
	}
	ds, dsStats := parking.NewDataset(events, idx, logger)

	stats := LoadStats{Index: buildStats, Dataset: dsStats, Duration: time.Since(start)}
	logger.Info("dataset loaded",
		"locations", buildStats.Indexed,
		"events", dsStats.Events,
		"missing_geometry", dsStats.MissingGeometry,
		"malformed", dsStats.Malformed,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return ds, stats, nil
}
