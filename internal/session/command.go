package session

import (
	"errors"
	"fmt"

	"tncparking/internal/parking"
	"tncparking/internal/playback"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrInvalidCommand = errors.New("invalid command")
)

type Op string

const (
	OpSetDay         Op = "set_day"
	OpSetHour        Op = "set_hour"
	OpSetAllDay      Op = "set_all_day"
	OpToggleLocation Op = "toggle_location"
	OpSetLocations   Op = "set_locations"
	OpSelect         Op = "select"
	OpDeselect       Op = "deselect"
	OpTogglePlay     Op = "toggle_play"
	OpStopPlay       Op = "stop_play"
)

// Command is one user interaction. Only the fields its Op needs are read.
// SessionID is carried by transports that are not session-scoped.
type Command struct {
	Op        Op                   `json:"op"`
	SessionID string               `json:"session_id,omitempty"`
	Day       *int                 `json:"day,omitempty"`
	Hour      *int                 `json:"hour,omitempty"`
	Location  parking.LocationType `json:"location,omitempty"`
	OnStreet  *bool                `json:"onstreet,omitempty"`
	OffStreet *bool                `json:"offstreet,omitempty"`
	GeomID    string               `json:"geom_id,omitempty"`
	Dimension playback.Dimension   `json:"dimension,omitempty"`
}

// Validate checks that the fields required by Op are present and in range.
func (c Command) Validate() error {
	switch c.Op {
	case OpSetDay:
		if c.Day == nil {
			return invalid(c.Op, "day is required")
		}
		if *c.Day < parking.AllDays || *c.Day > parking.DaysPerWeek {
			return invalid(c.Op, fmt.Sprintf("day %d out of range 0-7", *c.Day))
		}
	case OpSetHour:
		if c.Hour == nil {
			return invalid(c.Op, "hour is required")
		}
		if *c.Hour < 0 || *c.Hour >= parking.HoursPerDay {
			return invalid(c.Op, fmt.Sprintf("hour %d out of range 0-23", *c.Hour))
		}
	case OpToggleLocation:
		if !c.Location.Valid() {
			return invalid(c.Op, fmt.Sprintf("location %q must be onstreet or offstreet", c.Location))
		}
	case OpSetLocations:
		if c.OnStreet == nil || c.OffStreet == nil {
			return invalid(c.Op, "onstreet and offstreet are required")
		}
	case OpSelect:
		if c.GeomID == "" {
			return invalid(c.Op, "geom_id is required")
		}
	case OpTogglePlay:
		if _, err := playback.ParseDimension(string(c.Dimension)); err != nil {
			return invalid(c.Op, err.Error())
		}
	case OpSetAllDay, OpDeselect, OpStopPlay:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, c.Op)
	}
	return nil
}

func invalid(op Op, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidCommand, op, msg)
}
