package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tncparking/internal/playback"
	"tncparking/internal/source"
)

type Collector struct {
	reg *prometheus.Registry

	Recomputes        *prometheus.CounterVec // trigger label: command op, tick, pull
	RecomputeDuration prometheus.Histogram
	PlaybackTicks     *prometheus.CounterVec // state label
	StaleTicks        prometheus.Counter
	ActiveSessions    prometheus.Gauge

	DatasetEvents    prometheus.Gauge
	DatasetLocations prometheus.Gauge
	DroppedRecords   *prometheus.CounterVec // reason label: missing_geometry|malformed|invalid_location
	FetchFailures    *prometheus.CounterVec // feed label
	LoadDuration     prometheus.Gauge

	MQTTCommands *prometheus.CounterVec // result label: applied|rejected|invalid

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	PlaybackInterval prometheus.Gauge // seconds
}

func NewCollector(playbackInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tncparking_recomputes_total",
			Help: "Pipeline recomputes by trigger.",
		}, []string{"trigger"}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tncparking_recompute_duration_seconds",
			Help:    "Duration of one filter and aggregate pass.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PlaybackTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tncparking_playback_ticks_total",
			Help: "Playback ticks applied, by playback state.",
		}, []string{"state"}),
		StaleTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tncparking_playback_stale_ticks_total",
			Help: "Ticks from a cancelled playback cycle that were discarded.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tncparking_active_sessions",
			Help: "Number of live dashboard sessions.",
		}),
		DatasetEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tncparking_dataset_events",
			Help: "Parking events in the loaded dataset.",
		}),
		DatasetLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tncparking_dataset_locations",
			Help: "Locations in the geometry index.",
		}),
		DroppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tncparking_dropped_records_total",
			Help: "Feed records dropped while building the dataset.",
		}, []string{"reason"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tncparking_fetch_failures_total",
			Help: "Failed feed loads.",
		}, []string{"feed"}),
		LoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tncparking_last_load_duration_seconds",
			Help: "Duration of the last successful dataset load.",
		}),
		MQTTCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tncparking_mqtt_commands_total",
			Help: "Commands received over MQTT, by result.",
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tncparking_nats_published_total",
			Help: "Total NATS frames published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tncparking_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tncparking_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tncparking_publish_duration_seconds",
			Help:    "Duration to marshal and publish a frame.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PlaybackInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tncparking_playback_interval_seconds",
			Help: "Configured playback tick interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Recomputes, c.RecomputeDuration, c.PlaybackTicks, c.StaleTicks, c.ActiveSessions,
		c.DatasetEvents, c.DatasetLocations, c.DroppedRecords, c.FetchFailures, c.LoadDuration,
		c.MQTTCommands,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.PlaybackInterval,
	)
	c.PlaybackInterval.Set(playbackInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) RecomputeObserve(trigger string, d time.Duration) {
	c.Recomputes.WithLabelValues(trigger).Inc()
	c.RecomputeDuration.Observe(d.Seconds())
}

func (c *Collector) PlaybackTickInc(state playback.State) {
	c.PlaybackTicks.WithLabelValues(state.String()).Inc()
}

func (c *Collector) StaleTickInc() { c.StaleTicks.Inc() }

func (c *Collector) SetActiveSessions(n int) { c.ActiveSessions.Set(float64(n)) }

func (c *Collector) FetchFailureInc(feed string) {
	c.FetchFailures.WithLabelValues(feed).Inc()
}

func (c *Collector) DatasetLoaded(stats source.LoadStats) {
	c.DatasetEvents.Set(float64(stats.Dataset.Events))
	c.DatasetLocations.Set(float64(stats.Index.Indexed))
	c.DroppedRecords.WithLabelValues("missing_geometry").Add(float64(stats.Dataset.MissingGeometry))
	c.DroppedRecords.WithLabelValues("malformed").Add(float64(stats.Dataset.Malformed))
	c.DroppedRecords.WithLabelValues("invalid_location").Add(float64(stats.Index.Skipped))
	c.LoadDuration.Set(stats.Duration.Seconds())
}

func (c *Collector) MQTTCommandInc(result string) {
	c.MQTTCommands.WithLabelValues(result).Inc()
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
