package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"tncparking/internal/db/migrate"
	"tncparking/internal/parking"
)

const locationsFeed = `[
  {"ab": 101, "mazid": null, "location_type": "onstreet",
   "geometry": "{\"type\":\"LineString\",\"coordinates\":[[-122.41,37.77],[-122.40,37.78]]}"},
  {"ab": null, "mazid": "9", "location_type": "offstreet",
   "geometry": {"type":"Polygon","coordinates":[[[-122.4,37.7],[-122.3,37.7],[-122.3,37.8],[-122.4,37.7]]]}},
  {"ab": "102", "location_type": "onstreet", "geometry": "not geojson"},
  {"ab": "103", "location_type": "onstreet", "geometry": null},
  "garbage"
]`

const eventsFeed = `[
  {"geom_id": "101", "day": 0, "hour": 8, "avg_total_minutes": 120, "avg_events": 4},
  {"geom_id": 9, "day": 6.0, "hour": 23, "avg_total_minutes": 30.5, "avg_events": 1},
  {"geom_id": "101", "day": 1.5, "hour": 8, "avg_total_minutes": 1, "avg_events": 1},
  {"geom_id": "101", "day": 1, "hour": 8, "avg_total_minutes": 1},
  {"geom_id": "777", "day": 2, "hour": 2, "avg_total_minutes": 5, "avg_events": 1}
]`

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc"`, "abc"},
		{`" 12 "`, "12"},
		{`42`, "42"},
		{`42.0`, "42"},
		{`4.5`, "4.5"},
		{`null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexString
			if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if string(f) != tt.want {
				t.Errorf("got %q; want %q", f, tt.want)
			}
		})
	}
}

func TestNormalizeGeometry(t *testing.T) {
	obj := `{"type":"Point","coordinates":[1,2]}`
	fromObject, err := NormalizeGeometry([]byte(obj))
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	encoded, _ := json.Marshal(obj)
	fromString, err := NormalizeGeometry(encoded)
	if err != nil {
		t.Fatalf("string: %v", err)
	}
	if string(fromObject) != string(fromString) {
		t.Errorf("object %s != string %s", fromObject, fromString)
	}

	for _, bad := range []string{``, `null`, `""`, `"nope"`, `{"type":"Blob"}`} {
		if _, err := NormalizeGeometry([]byte(bad)); err == nil {
			t.Errorf("NormalizeGeometry(%q) error = nil; want error", bad)
		}
	}
}

func TestParseLocations(t *testing.T) {
	recs, skipped, err := ParseLocations(strings.NewReader(locationsFeed))
	if err != nil {
		t.Fatalf("ParseLocations() error = %v", err)
	}
	if skipped != 3 {
		t.Errorf("skipped = %d; want 3", skipped)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d; want 2", len(recs))
	}
	if recs[0].GeomID() != "101" || recs[0].LocationType != parking.OnStreet {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].GeomID() != "9" || recs[1].LocationType != parking.OffStreet {
		t.Errorf("second record = %+v", recs[1])
	}

	if _, _, err := ParseLocations(strings.NewReader(`{"not":"an array"}`)); err == nil {
		t.Error("non-array feed: error = nil; want error")
	}
}

func TestParseEvents(t *testing.T) {
	events, skipped, err := ParseEvents(strings.NewReader(eventsFeed))
	if err != nil {
		t.Fatalf("ParseEvents() error = %v", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d; want 2", skipped)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d; want 3", len(events))
	}
	if events[1].GeomID != "9" || events[1].Day != 6 || events[1].AvgTotalMinutes != 30.5 {
		t.Errorf("second event = %+v", events[1])
	}
}

func feedServer(t *testing.T, locStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /locations", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if locStatus != http.StatusOK {
			http.Error(w, "down", locStatus)
			return
		}
		_, _ = io.WriteString(w, locationsFeed)
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, eventsFeed)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLoad_HTTPSource(t *testing.T) {
	srv, hits := feedServer(t, http.StatusOK)
	src := NewHTTPSource(srv.URL+"/locations", srv.URL+"/events", 0, discard())

	ds, stats, err := Load(context.Background(), src, discard())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("feed hits = %d; want 2", hits.Load())
	}
	if stats.Index.Indexed != 2 {
		t.Errorf("indexed = %d; want 2", stats.Index.Indexed)
	}
	if stats.Dataset.Events != 2 || stats.Dataset.MissingGeometry != 1 {
		t.Errorf("dataset stats = %+v; want 2 events, 1 missing geometry", stats.Dataset)
	}
	if ds.Len() != 2 {
		t.Errorf("ds.Len() = %d; want 2", ds.Len())
	}
}

func TestLoad_fetchFailureNamesFeed(t *testing.T) {
	srv, _ := feedServer(t, http.StatusServiceUnavailable)
	src := NewHTTPSource(srv.URL+"/locations", srv.URL+"/events", 0, discard())

	_, _, err := Load(context.Background(), src, discard())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Load() error = %v; want *FetchError", err)
	}
	if fe.Feed != FeedLocations {
		t.Errorf("feed = %q; want %q", fe.Feed, FeedLocations)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not carry the status", err)
	}
}

type stubSource struct {
	locErr error
	calls  atomic.Int32
}

func (s *stubSource) Locations(ctx context.Context) ([]parking.LocationRecord, error) {
	s.calls.Add(1)
	if s.locErr != nil {
		return nil, s.locErr
	}
	return []parking.LocationRecord{{
		AB: "1", LocationType: parking.OnStreet,
		Geometry: json.RawMessage(`{"type":"Point","coordinates":[0,0]}`),
	}}, nil
}

func (s *stubSource) Events(ctx context.Context) ([]parking.ParkingEvent, error) {
	return []parking.ParkingEvent{{GeomID: "1", Day: 0, Hour: 0, AvgTotalMinutes: 10, AvgEvents: 1}}, nil
}

type recordingMetrics struct {
	failures []string
	loads    int
}

func (m *recordingMetrics) FetchFailureInc(feed string) { m.failures = append(m.failures, feed) }
func (m *recordingMetrics) DatasetLoaded(LoadStats)     { m.loads++ }

func TestStore(t *testing.T) {
	src := &stubSource{locErr: errors.New("boom")}
	m := &recordingMetrics{}
	store := NewStore(src, discard(), m)

	if st := store.Status(); st.Status != StatusLoading {
		t.Fatalf("initial status = %q; want loading", st.Status)
	}
	if _, err := store.Ready(); !errors.Is(err, ErrDatasetNotReady) {
		t.Fatalf("Ready() before load error = %v; want ErrDatasetNotReady", err)
	}

	if err := store.Reload(context.Background()); err == nil {
		t.Fatal("Reload() error = nil; want failure")
	}
	st := store.Status()
	if st.Status != StatusFailed || !strings.Contains(st.Error, "boom") {
		t.Errorf("status = %+v; want failed with error", st)
	}
	if len(m.failures) != 1 || m.failures[0] != FeedLocations {
		t.Errorf("failure metrics = %v", m.failures)
	}
	if _, err := store.Ready(); !errors.Is(err, ErrDatasetNotReady) {
		t.Errorf("Ready() after failure error = %v; want ErrDatasetNotReady", err)
	}

	src.locErr = nil
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("manual retry error = %v", err)
	}
	st = store.Status()
	if st.Status != StatusReady || st.Error != "" || st.LoadedAt == nil {
		t.Errorf("status after retry = %+v", st)
	}
	if store.Dataset().Len() != 1 || m.loads != 1 {
		t.Errorf("dataset len = %d loads = %d", store.Dataset().Len(), m.loads)
	}

	src.locErr = errors.New("flaky")
	_ = store.Reload(context.Background())
	if store.Dataset() == nil {
		t.Error("failed reload dropped the previous dataset")
	}
	if store.Status().Status != StatusFailed {
		t.Errorf("status = %q; want failed", store.Status().Status)
	}
}

func TestStore_ReloadLogsLoadOnce(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	store := NewStore(&stubSource{}, logger, nil)

	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	var loaded []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if rec["msg"] == "dataset loaded" {
			loaded = append(loaded, rec)
		}
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d dataset loaded records; want 1", len(loaded))
	}
	if loaded[0]["events"] != 1.0 || loaded[0]["locations"] != 1.0 {
		t.Errorf("record = %v; want events 1 locations 1", loaded[0])
	}
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := migrate.Run(context.Background(), db, discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSQLiteSource_roundTrip(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	recs, _, err := ParseLocations(strings.NewReader(locationsFeed))
	if err != nil {
		t.Fatal(err)
	}
	events, _, err := ParseEvents(strings.NewReader(eventsFeed))
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteSQLite(ctx, db, "test", recs, events); err != nil {
		t.Fatalf("WriteSQLite() error = %v", err)
	}

	src := NewSQLiteSource(db, discard())
	gotRecs, err := src.Locations(ctx)
	if err != nil {
		t.Fatalf("Locations() error = %v", err)
	}
	if len(gotRecs) != len(recs) {
		t.Fatalf("locations = %d; want %d", len(gotRecs), len(recs))
	}
	for i := range recs {
		if gotRecs[i].GeomID() != recs[i].GeomID() || string(gotRecs[i].Geometry) != string(recs[i].Geometry) {
			t.Errorf("location %d = %+v; want %+v", i, gotRecs[i], recs[i])
		}
	}

	gotEvents, err := src.Events(ctx)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(gotEvents) != len(events) {
		t.Fatalf("events = %d; want %d", len(gotEvents), len(events))
	}
	for i := range events {
		if gotEvents[i] != events[i] {
			t.Errorf("event %d = %+v; want %+v", i, gotEvents[i], events[i])
		}
	}

	if err := WriteSQLite(ctx, db, "test", recs[:1], nil); err != nil {
		t.Fatalf("second WriteSQLite() error = %v", err)
	}
	gotRecs, _ = src.Locations(ctx)
	if len(gotRecs) != 1 {
		t.Errorf("write did not replace previous rows: %d locations", len(gotRecs))
	}
	var imports int
	if err := db.QueryRow(`SELECT COUNT(*) FROM feed_imports`).Scan(&imports); err != nil {
		t.Fatal(err)
	}
	if imports != 2 {
		t.Errorf("feed_imports rows = %d; want 2", imports)
	}
}
