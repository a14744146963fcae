package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"tncparking/internal/parking"
	"tncparking/internal/session"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSPublisher sends one compact message per session frame on
// <prefix>.<session id>.
type NATSPublisher struct {
	nc          conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	logger      *slog.Logger
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("tncparking"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	logger.Info("nats connected", "url", nc.ConnectedUrl(), "subject_prefix", prefix)
	return newPublisher(nc, prefix, logSubjects, m, logger), nil
}

func newPublisher(nc conn, prefix string, logSubjects bool, m PublisherMetrics, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m, logger: logger}
}

func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("nats drain", "error", err)
	}
	p.nc.Close()
}

// FrameMessage is the wire form of a session frame. Location geometry is
// left out; subscribers fetch it once from the map endpoint.
type FrameMessage struct {
	SessionID string                `json:"session_id"`
	Seq       uint64                `json:"seq"`
	Trigger   string                `json:"trigger"`
	Playback  string                `json:"playback"`
	Timestamp time.Time             `json:"timestamp"`
	Day       int                   `json:"day"`
	Hour      int                   `json:"hour"`
	Location  parking.LocationType  `json:"location"`
	Selected  string                `json:"selected,omitempty"`
	Title     string                `json:"title"`
	Subtitle  string                `json:"subtitle"`
	Summary   parking.SummaryStats  `json:"summary"`
	Daily     []parking.BucketTotal `json:"daily"`
	Hourly    []parking.BucketTotal `json:"hourly"`
	Locations []LocationTotal       `json:"locations"`
}

type LocationTotal struct {
	GeomID        string               `json:"geom_id"`
	LocationType  parking.LocationType `json:"location_type"`
	TotalDuration float64              `json:"total_duration"`
	Events        float64              `json:"events"`
	AvgDuration   float64              `json:"avg_duration"`
}

func NewFrameMessage(f session.Frame, now time.Time) FrameMessage {
	snap := f.Snapshot
	locs := make([]LocationTotal, 0, len(snap.Locations))
	for _, l := range snap.Locations {
		locs = append(locs, LocationTotal{
			GeomID:        l.GeomID,
			LocationType:  l.LocationType,
			TotalDuration: l.TotalDuration,
			Events:        l.Events,
			AvgDuration:   l.AvgDuration,
		})
	}
	return FrameMessage{
		SessionID: f.SessionID,
		Seq:       f.Seq,
		Trigger:   f.Trigger,
		Playback:  f.Playback.String(),
		Timestamp: now.UTC(),
		Day:       snap.Filter.Day,
		Hour:      snap.Filter.Hour,
		Location:  snap.Filter.LocationType(),
		Selected:  snap.Filter.Selected,
		Title:     parking.SummaryTitle(snap.Filter),
		Subtitle:  parking.SummarySubtitle(snap.Filter),
		Summary:   snap.Summary,
		Daily:     snap.Daily,
		Hourly:    snap.Hourly,
		Locations: locs,
	}
}

// PublishFrame implements session.FrameSink. Errors are logged and counted;
// the session never waits on the broker.
func (p *NATSPublisher) PublishFrame(f session.Frame) {
	if err := p.publish(f); err != nil {
		p.logger.Warn("nats publish failed", "session_id", f.SessionID, "seq", f.Seq, "error", err)
	}
}

func (p *NATSPublisher) publish(f session.Frame) error {
	subject := p.Subject(f.SessionID)
	b, err := json.Marshal(NewFrameMessage(f, time.Now()))
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.logger.Debug("nats publish", "subject", subject, "bytes", len(b))
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func (p *NATSPublisher) Subject(sessionID string) string {
	return p.prefix + "." + subjectToken(sessionID)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain spaces, '>', '*' or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
