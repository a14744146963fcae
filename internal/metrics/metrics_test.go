package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tncparking/internal/parking"
	"tncparking/internal/playback"
	"tncparking/internal/source"
)

func TestCollector_counters(t *testing.T) {
	c := NewCollector(2 * time.Second)

	c.RecomputeObserve("tick", time.Millisecond)
	c.RecomputeObserve("tick", time.Millisecond)
	c.RecomputeObserve("set_day", time.Millisecond)
	c.PlaybackTickInc(playback.PlayingBoth)
	c.StaleTickInc()
	c.SetActiveSessions(3)
	c.FetchFailureInc(source.FeedEvents)
	c.MQTTCommandInc("applied")
	c.NATSSetConnected(true)

	if got := testutil.ToFloat64(c.Recomputes.WithLabelValues("tick")); got != 2 {
		t.Errorf("recomputes{tick} = %v; want 2", got)
	}
	if got := testutil.ToFloat64(c.PlaybackTicks.WithLabelValues("playing_both")); got != 1 {
		t.Errorf("playback ticks = %v; want 1", got)
	}
	if got := testutil.ToFloat64(c.StaleTicks); got != 1 {
		t.Errorf("stale ticks = %v; want 1", got)
	}
	if got := testutil.ToFloat64(c.ActiveSessions); got != 3 {
		t.Errorf("active sessions = %v; want 3", got)
	}
	if got := testutil.ToFloat64(c.FetchFailures.WithLabelValues(source.FeedEvents)); got != 1 {
		t.Errorf("fetch failures = %v; want 1", got)
	}
	if got := testutil.ToFloat64(c.NATSConnected); got != 1 {
		t.Errorf("nats connected = %v; want 1", got)
	}
	if got := testutil.ToFloat64(c.PlaybackInterval); got != 2 {
		t.Errorf("playback interval = %v; want 2", got)
	}
}

func TestCollector_DatasetLoaded(t *testing.T) {
	c := NewCollector(time.Second)
	c.DatasetLoaded(source.LoadStats{
		Index:   parking.BuildStats{Indexed: 10, Skipped: 1},
		Dataset: parking.DatasetStats{Events: 100, MissingGeometry: 4, Malformed: 2},
	})

	if got := testutil.ToFloat64(c.DatasetEvents); got != 100 {
		t.Errorf("dataset events = %v; want 100", got)
	}
	if got := testutil.ToFloat64(c.DroppedRecords.WithLabelValues("missing_geometry")); got != 4 {
		t.Errorf("dropped{missing_geometry} = %v; want 4", got)
	}
	if got := testutil.ToFloat64(c.DroppedRecords.WithLabelValues("invalid_location")); got != 1 {
		t.Errorf("dropped{invalid_location} = %v; want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(time.Second)
	c.StaleTickInc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tncparking_playback_stale_ticks_total 1") {
		t.Errorf("exposition missing stale tick counter:\n%s", body)
	}
}
