// Package playback cycles the day and hour filters on a fixed cadence.
package playback

import (
	"fmt"
	"time"

	"tncparking/internal/clock"
	"tncparking/internal/parking"
)

type State int

const (
	Idle State = iota
	PlayingDay
	PlayingHour
	PlayingBoth
)

func (s State) String() string {
	switch s {
	case PlayingDay:
		return "playing_day"
	case PlayingHour:
		return "playing_hour"
	case PlayingBoth:
		return "playing_both"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "playing_day":
		*s = PlayingDay
	case "playing_hour":
		*s = PlayingHour
	case "playing_both":
		*s = PlayingBoth
	default:
		return fmt.Errorf("unknown playback state %q", b)
	}
	return nil
}

type Dimension string

const (
	DimensionDay  Dimension = "day"
	DimensionHour Dimension = "hour"
)

func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimensionDay, DimensionHour:
		return Dimension(s), nil
	}
	return "", fmt.Errorf("unknown playback dimension %q (allowed: day, hour)", s)
}

// StateFor combines the two playback toggles.
func StateFor(dayOn, hourOn bool) State {
	switch {
	case dayOn && hourOn:
		return PlayingBoth
	case dayOn:
		return PlayingDay
	case hourOn:
		return PlayingHour
	default:
		return Idle
	}
}

// Advance applies one playback tick to f.
func Advance(s State, f parking.FilterState) parking.FilterState {
	switch s {
	case PlayingDay:
		f.Day = nextDay(f.Day)
	case PlayingHour:
		f.Hour = nextHour(f.Hour)
	case PlayingBoth:
		wrapped := f.Hour == parking.HoursPerDay-1
		f.Hour = nextHour(f.Hour)
		if wrapped || f.IsAllWeek() {
			f.Day = nextPlayDay(f.Day)
		}
	}
	return f
}

// nextDay walks all -> 1 ... 7 -> all.
func nextDay(day int) int {
	if day >= parking.DaysPerWeek {
		return parking.AllDays
	}
	return day + 1
}

func nextHour(hour int) int {
	if hour == parking.AllHours {
		return 0
	}
	return (hour + 1) % parking.HoursPerDay
}

// nextPlayDay is the combined-mode day step; it never lands on all.
func nextPlayDay(day int) int {
	if day >= parking.DaysPerWeek {
		return 1
	}
	return day + 1
}

// Scheduler owns the timer behind the playback state machine. It is not safe
// for concurrent use; the owner serializes calls, including the fire callback
// it receives, which carries the generation of the timer that produced it.
type Scheduler struct {
	interval time.Duration
	clock    clock.Clock
	fire     func(gen uint64)

	dayOn  bool
	hourOn bool
	gen    uint64
	stop   func()
}

func NewScheduler(interval time.Duration, c clock.Clock, fire func(gen uint64)) *Scheduler {
	if c == nil {
		c = clock.System{}
	}
	return &Scheduler{interval: interval, clock: c, fire: fire}
}

func (s *Scheduler) State() State {
	return StateFor(s.dayOn, s.hourOn)
}

// Toggle flips one dimension and restarts the cycle under the new state.
func (s *Scheduler) Toggle(d Dimension) State {
	switch d {
	case DimensionDay:
		s.dayOn = !s.dayOn
	case DimensionHour:
		s.hourOn = !s.hourOn
	}
	s.Restart()
	return s.State()
}

// Restart cancels any running cycle and starts a fresh one when not idle.
func (s *Scheduler) Restart() {
	s.cancel()
	if s.State() == Idle {
		return
	}
	gen := s.gen
	s.stop = s.clock.Every(s.interval, func() { s.fire(gen) })
}

// Stop turns both dimensions off and cancels the running cycle.
func (s *Scheduler) Stop() {
	s.dayOn, s.hourOn = false, false
	s.cancel()
}

// Generation identifies the running cycle; fire callbacks carry it.
func (s *Scheduler) Generation() uint64 { return s.gen }

// Current reports whether gen belongs to the running cycle.
func (s *Scheduler) Current(gen uint64) bool {
	return s.stop != nil && gen == s.gen
}

// Step advances f for a tick of generation gen. Ticks from a cancelled cycle
// return ok=false and leave f unchanged.
func (s *Scheduler) Step(gen uint64, f parking.FilterState) (parking.FilterState, bool) {
	if !s.Current(gen) {
		return f, false
	}
	return Advance(s.State(), f), true
}

func (s *Scheduler) cancel() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.gen++
}
