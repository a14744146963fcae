package parking

import "fmt"

const (
	AllDays  = 0
	AllHours = -1

	DaysPerWeek = 7
	HoursPerDay = 24
)

// FilterState is the set of active dashboard filters. Day is 0 for the whole
// week, otherwise 1 (Monday) to 7 (Sunday). Hour is AllHours or 0-23.
// Selected is the geom_id of the clicked map feature, empty when none.
//
// Setters only assign; callers decide when to recompute.
type FilterState struct {
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	OnStreet  bool   `json:"onstreet"`
	OffStreet bool   `json:"offstreet"`
	Selected  string `json:"selected,omitempty"`
}

func DefaultFilter() FilterState {
	return FilterState{
		Day:       AllDays,
		Hour:      AllHours,
		OnStreet:  true,
		OffStreet: true,
	}
}

func (f *FilterState) SetDay(day int) error {
	if day < AllDays || day > DaysPerWeek {
		return fmt.Errorf("%w: day %d (allowed: 0-7)", ErrInvalidFilter, day)
	}
	f.Day = day
	return nil
}

// SetHour sets a specific hour of day. Use SetAllDay to clear it.
func (f *FilterState) SetHour(hour int) error {
	if hour < 0 || hour >= HoursPerDay {
		return fmt.Errorf("%w: hour %d (allowed: 0-23)", ErrInvalidFilter, hour)
	}
	f.Hour = hour
	return nil
}

func (f *FilterState) SetAllDay() {
	f.Hour = AllHours
}

func (f *FilterState) ToggleLocationType(t LocationType) error {
	switch t {
	case OnStreet:
		f.OnStreet = !f.OnStreet
	case OffStreet:
		f.OffStreet = !f.OffStreet
	default:
		return fmt.Errorf("%w: location type %q", ErrInvalidFilter, t)
	}
	return nil
}

func (f *FilterState) SetLocationTypes(onStreet, offStreet bool) {
	f.OnStreet = onStreet
	f.OffStreet = offStreet
}

func (f *FilterState) Select(geomID string) error {
	if geomID == "" {
		return fmt.Errorf("%w: empty selection", ErrInvalidFilter)
	}
	f.Selected = geomID
	return nil
}

func (f *FilterState) Deselect() {
	f.Selected = ""
}

// LocationType derives the location filter from the two toggles.
func (f FilterState) LocationType() LocationType {
	switch {
	case f.OnStreet && f.OffStreet:
		return LocationAll
	case f.OnStreet:
		return OnStreet
	case f.OffStreet:
		return OffStreet
	default:
		return LocationNone
	}
}

func (f FilterState) IsAllDay() bool  { return f.Hour == AllHours }
func (f FilterState) IsAllWeek() bool { return f.Day == AllDays }
func (f FilterState) HasSelection() bool {
	return f.Selected != ""
}
