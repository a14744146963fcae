// Package session binds one FilterState and one playback Scheduler to a
// client and serializes every trigger that can change them.
package session

import (
	"log/slog"
	"sync"
	"time"

	"tncparking/internal/clock"
	"tncparking/internal/parking"
	"tncparking/internal/playback"
)

const (
	DefaultPlaybackInterval = time.Second
	DefaultHourDebounce     = 30 * time.Millisecond
)

// DatasetProvider returns the currently loaded dataset, or nil while none is.
type DatasetProvider interface {
	Dataset() *parking.Dataset
}

// Frame is emitted after every recompute driven by a command or a playback tick.
type Frame struct {
	SessionID string           `json:"session_id"`
	Seq       uint64           `json:"seq"`
	Trigger   string           `json:"trigger"`
	Playback  playback.State   `json:"playback"`
	Snapshot  parking.Snapshot `json:"snapshot"`
}

// FrameSink receives frames while the session lock is held and must not block.
type FrameSink interface {
	PublishFrame(f Frame)
}

type Metrics interface {
	RecomputeObserve(trigger string, d time.Duration)
	PlaybackTickInc(state playback.State)
	StaleTickInc()
	SetActiveSessions(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecomputeObserve(string, time.Duration) {}
func (noopMetrics) PlaybackTickInc(playback.State)         {}
func (noopMetrics) StaleTickInc()                          {}
func (noopMetrics) SetActiveSessions(int)                  {}

type Options struct {
	PlaybackInterval time.Duration
	HourDebounce     time.Duration
	Clock            clock.Clock
	Sinks            []FrameSink
	Metrics          Metrics
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.PlaybackInterval <= 0 {
		o.PlaybackInterval = DefaultPlaybackInterval
	}
	if o.HourDebounce < 0 {
		o.HourDebounce = 0
	}
	if o.Clock == nil {
		o.Clock = clock.System{}
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type Session struct {
	id   string
	data DatasetProvider
	opts Options

	mu     sync.Mutex
	filter parking.FilterState
	sched  *playback.Scheduler
	seq    uint64
	closed bool

	pendingHour *int
	cancelHour  func() bool
	debounceSeq uint64
}

func New(id string, data DatasetProvider, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:     id,
		data:   data,
		opts:   opts,
		filter: parking.DefaultFilter(),
	}
	s.sched = playback.NewScheduler(opts.PlaybackInterval, opts.Clock, s.onTick)
	return s
}

func (s *Session) ID() string { return s.id }

// Info describes the control state without running the pipeline.
type Info struct {
	ID            string              `json:"id"`
	Filter        parking.FilterState `json:"filter"`
	Playback      playback.State      `json:"playback"`
	PendingHour   *int                `json:"pending_hour,omitempty"`
	DayLabel      string              `json:"day_label"`
	HourLabel     string              `json:"hour_label"`
	LocationLabel string              `json:"location_label"`
	Title         string              `json:"title"`
	Subtitle      string              `json:"subtitle"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending *int
	if s.pendingHour != nil {
		h := *s.pendingHour
		pending = &h
	}
	f := s.filter
	return Info{
		ID:            s.id,
		Filter:        f,
		Playback:      s.sched.State(),
		PendingHour:   pending,
		DayLabel:      parking.DayLabel(f.Day),
		HourLabel:     parking.HourLabel(f.Hour),
		LocationLabel: parking.LocationLabel(f.LocationType()),
		Title:         parking.SummaryTitle(f),
		Subtitle:      parking.SummarySubtitle(f),
	}
}

func (s *Session) Filter() parking.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) Playback() playback.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.State()
}

// Snapshot recomputes against the current dataset without emitting a frame.
func (s *Session) Snapshot() parking.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recompute("pull")
}

// Apply validates and executes cmd. A debounced set_hour returns the
// snapshot of the state in effect before the new hour lands.
func (s *Session) Apply(cmd Command) (parking.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return parking.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return parking.Snapshot{}, ErrUnknownSession
	}

	switch cmd.Op {
	case OpSetDay:
		if err := s.filter.SetDay(*cmd.Day); err != nil {
			return parking.Snapshot{}, err
		}
		s.restartPlayback()
	case OpSetHour:
		if s.opts.HourDebounce > 0 {
			s.debounceHour(*cmd.Hour)
			return s.recompute(string(cmd.Op)), nil
		}
		if err := s.filter.SetHour(*cmd.Hour); err != nil {
			return parking.Snapshot{}, err
		}
		s.restartPlayback()
	case OpSetAllDay:
		s.cancelPendingHour()
		s.filter.SetAllDay()
		s.restartPlayback()
	case OpToggleLocation:
		if err := s.filter.ToggleLocationType(cmd.Location); err != nil {
			return parking.Snapshot{}, err
		}
	case OpSetLocations:
		s.filter.SetLocationTypes(*cmd.OnStreet, *cmd.OffStreet)
	case OpSelect:
		if err := s.filter.Select(cmd.GeomID); err != nil {
			return parking.Snapshot{}, err
		}
	case OpDeselect:
		s.filter.Deselect()
	case OpTogglePlay:
		state := s.sched.Toggle(cmd.Dimension)
		s.opts.Logger.Debug("playback toggled", "session_id", s.id, "dimension", cmd.Dimension, "state", state.String())
	case OpStopPlay:
		s.sched.Stop()
	}

	return s.emit(string(cmd.Op)), nil
}

// Close stops playback and drops any pending debounced input.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sched.Stop()
	s.cancelPendingHour()
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	state := s.sched.State()
	next, ok := s.sched.Step(gen, s.filter)
	if !ok {
		s.opts.Metrics.StaleTickInc()
		return
	}
	s.filter = next
	s.opts.Metrics.PlaybackTickInc(state)
	s.emit("tick")
}

func (s *Session) debounceHour(hour int) {
	s.cancelPendingHour()
	s.debounceSeq++
	seq := s.debounceSeq
	h := hour
	s.pendingHour = &h
	s.cancelHour = s.opts.Clock.AfterFunc(s.opts.HourDebounce, func() { s.flushHour(seq) })
}

func (s *Session) flushHour(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.debounceSeq || s.pendingHour == nil {
		return
	}
	hour := *s.pendingHour
	s.pendingHour = nil
	s.cancelHour = nil
	if err := s.filter.SetHour(hour); err != nil {
		s.opts.Logger.Warn("debounced hour rejected", "session_id", s.id, "hour", hour, "error", err)
		return
	}
	s.restartPlayback()
	s.emit(string(OpSetHour))
}

func (s *Session) cancelPendingHour() {
	if s.cancelHour != nil {
		s.cancelHour()
		s.cancelHour = nil
	}
	s.pendingHour = nil
	s.debounceSeq++
}

func (s *Session) restartPlayback() {
	if s.sched.State() != playback.Idle {
		s.sched.Restart()
	}
}

func (s *Session) recompute(trigger string) parking.Snapshot {
	start := time.Now()
	var ds *parking.Dataset
	if s.data != nil {
		ds = s.data.Dataset()
	}
	snap := parking.Recompute(ds, s.filter)
	s.opts.Metrics.RecomputeObserve(trigger, time.Since(start))
	return snap
}

func (s *Session) emit(trigger string) parking.Snapshot {
	snap := s.recompute(trigger)
	s.seq++
	if len(s.opts.Sinks) == 0 {
		return snap
	}
	frame := Frame{
		SessionID: s.id,
		Seq:       s.seq,
		Trigger:   trigger,
		Playback:  s.sched.State(),
		Snapshot:  snap,
	}
	for _, sink := range s.opts.Sinks {
		sink.PublishFrame(frame)
	}
	return snap
}
