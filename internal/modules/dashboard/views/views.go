package views

import (
	"html/template"

	"tncparking/internal/parking"
)

// Option is one entry of the day or hour selector.
type Option struct {
	Value    int
	Label    string
	Selected bool
}

// SummaryData is the view model of the summary panel.
type SummaryData struct {
	SessionID   string `json:"-"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Selected    string `json:"selected,omitempty"`
	Duration    string `json:"overall_duration"`
	Events      string `json:"overall_events"`
	AvgDuration string `json:"overall_avg_duration"`
	HasData     bool   `json:"has_data"`
}

// DashboardData is the view model of the full page.
type DashboardData struct {
	SessionID      string
	DatasetStatus  string
	DatasetError   string
	Days           []Option
	Hours          []Option
	OnStreet       bool
	OffStreet      bool
	Playback       string
	OnStreetColor  template.CSS
	OffStreetColor template.CSS
	LegendTitle    string
	Summary        SummaryData
}

// NewSummaryData formats s for display. Without data every figure reads "0".
func NewSummaryData(sessionID string, f parking.FilterState, s parking.SummaryStats) SummaryData {
	d := SummaryData{
		SessionID: sessionID,
		Title:     parking.SummaryTitle(f),
		Subtitle:  parking.SummarySubtitle(f),
		Selected:  f.Selected,
		HasData:   s.HasData,
	}
	if !s.HasData || s.Duration <= 0 {
		d.Duration, d.Events, d.AvgDuration = "0", "0", "0"
		return d
	}
	d.Duration = TidyTime(s.Duration)
	d.Events = NumberWithCommas(fixed(s.Events, 0))
	d.AvgDuration = TidyTime(s.AvgDuration)
	return d
}

func DayOptions(selected int) []Option {
	opts := make([]Option, 0, parking.DaysPerWeek+1)
	for d := parking.AllDays; d <= parking.DaysPerWeek; d++ {
		opts = append(opts, Option{Value: d, Label: parking.DayLabel(d), Selected: d == selected})
	}
	return opts
}

// HourOptions lists All Day first, then every hour.
func HourOptions(selected int) []Option {
	opts := make([]Option, 0, parking.HoursPerDay+1)
	opts = append(opts, Option{Value: parking.AllHours, Label: parking.HourLabel(parking.AllHours), Selected: selected == parking.AllHours})
	for h := 0; h < parking.HoursPerDay; h++ {
		opts = append(opts, Option{Value: h, Label: parking.HourLabel(h), Selected: h == selected})
	}
	return opts
}

// Popup holds the formatted fields shown when a map marker is clicked.
type Popup struct {
	Heading     string `json:"heading"`
	Location    string `json:"location"`
	Caption     string `json:"caption"`
	Duration    string `json:"total_duration"`
	Events      string `json:"events"`
	AvgDuration string `json:"avg_duration,omitempty"`
}

func NewPopup(loc parking.AggregatedLocation, f parking.FilterState) Popup {
	p := Popup{
		Heading:  loc.GeomID,
		Location: parking.LocationLabel(loc.LocationType),
		Caption:  parking.SummarySubtitle(f),
		Duration: TidyTimeTooltip(loc.TotalDuration),
		Events:   fixed(loc.Events, 2),
	}
	if loc.Events > 0 {
		p.AvgDuration = TidyTimeTooltip(loc.AvgDuration)
	}
	return p
}

// ChartBar is one stacked bar with its segment colors resolved.
type ChartBar struct {
	Key            int     `json:"key"`
	Label          string  `json:"label"`
	OnStreet       float64 `json:"onstreet"`
	OffStreet      float64 `json:"offstreet"`
	OnStreetColor  string  `json:"onstreet_color"`
	OffStreetColor string  `json:"offstreet_color"`
	Highlighted    bool    `json:"highlighted"`
}

type Chart struct {
	Key       string     `json:"key"`
	Highlight int        `json:"highlight"`
	Bars      []ChartBar `json:"bars"`
}

// ChartHighlight returns the bucket matching a specific day or hour filter,
// or -1 when the filter spans the whole dimension.
func ChartHighlight(key parking.BucketKey, f parking.FilterState) int {
	if key == parking.BucketHour {
		if f.IsAllDay() {
			return -1
		}
		return f.Hour
	}
	if f.IsAllWeek() {
		return -1
	}
	return f.Day - 1
}

// NewChart greys out every bar other than the highlighted one.
func NewChart(key parking.BucketKey, buckets []parking.BucketTotal, f parking.FilterState) Chart {
	hl := ChartHighlight(key, f)
	c := Chart{Key: key.String(), Highlight: hl, Bars: make([]ChartBar, 0, len(buckets))}
	for _, b := range buckets {
		bar := ChartBar{
			Key:            b.Key,
			Label:          parking.BucketLabel(key, b.Key),
			OnStreet:       b.OnStreet,
			OffStreet:      b.OffStreet,
			OnStreetColor:  OnStreetColor,
			OffStreetColor: OffStreetColor,
			Highlighted:    hl == b.Key,
		}
		if hl >= 0 && !bar.Highlighted {
			bar.OnStreetColor, bar.OffStreetColor = DimmedColor, DimmedColor
		}
		c.Bars = append(c.Bars, bar)
	}
	return c
}
