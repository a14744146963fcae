package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"tncparking/internal/config"
	"tncparking/internal/db/migrate"
	"tncparking/internal/parking"
	"tncparking/internal/source"
)

type fakeSource struct {
	records []parking.LocationRecord
	events  []parking.ParkingEvent
	evErr   error
}

func (f fakeSource) Locations(context.Context) ([]parking.LocationRecord, error) {
	return f.records, nil
}

func (f fakeSource) Events(context.Context) ([]parking.ParkingEvent, error) {
	return f.events, f.evErr
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRun_migrate(t *testing.T) {
	conn := openMemory(t)
	var out bytes.Buffer

	if err := run(context.Background(), "migrate", config.Config{}, conn, discard(), &out); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "migrations applied: 2") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := run(context.Background(), "migrate", config.Config{}, conn, discard(), &out); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !strings.Contains(out.String(), "migrations applied: 0") {
		t.Errorf("second output = %q", out.String())
	}
}

func TestRun_unknownCommand(t *testing.T) {
	err := run(context.Background(), "explode", config.Config{}, openMemory(t), discard(), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "explode") {
		t.Errorf("err = %v; want unknown command", err)
	}
}

func TestImportFeedsThenStats(t *testing.T) {
	conn := openMemory(t)
	if _, err := migrate.Run(context.Background(), conn, discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pt, _ := json.Marshal(map[string]any{"type": "Point", "coordinates": []float64{-122.4, 37.7}})
	src := fakeSource{
		records: []parking.LocationRecord{
			{AB: "1_2", LocationType: parking.OnStreet, Geometry: pt},
			{MazID: "77", LocationType: parking.OffStreet, Geometry: pt},
		},
		events: []parking.ParkingEvent{
			{GeomID: "1_2", Day: 0, Hour: 1, AvgTotalMinutes: 10, AvgEvents: 1},
			{GeomID: "77", Day: 6, Hour: 23, AvgTotalMinutes: 5, AvgEvents: 0.5},
			{GeomID: "ghost", Day: 1, Hour: 1, AvgTotalMinutes: 5, AvgEvents: 1},
		},
	}

	locs, evs, err := importFeeds(context.Background(), src, conn, "test")
	if err != nil {
		t.Fatalf("importFeeds: %v", err)
	}
	if locs != 2 || evs != 3 {
		t.Errorf("imported %d/%d; want 2/3", locs, evs)
	}

	var out bytes.Buffer
	if err := run(context.Background(), "stats", config.Config{}, conn, discard(), &out); err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"locations indexed: 2", "events: 2 (missing geometry 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q missing %q", out.String(), want)
		}
	}
}

func TestImportFeeds_namesFailingFeed(t *testing.T) {
	conn := openMemory(t)
	src := fakeSource{evErr: errors.New("status 500")}

	_, _, err := importFeeds(context.Background(), src, conn, "test")
	var fe *source.FetchError
	if !errors.As(err, &fe) || fe.Feed != source.FeedEvents {
		t.Errorf("err = %v; want FetchError for %s", err, source.FeedEvents)
	}
}
