package views

import (
	"math"
	"strconv"
	"strings"

	"tncparking/internal/parking"
)

const (
	OnStreetColor  = "rgb(36,125,189)"
	OffStreetColor = "rgb(219,114,156)"
	MixedColor     = "#8d8d8d"
	DimmedColor    = "#696969"

	LegendTitle = "Total Duration (Hours)"

	baseZoom        = 13
	legendMaxRadius = 20.0
)

// MinsToHours converts minutes to hours rounded to the nearest whole minute.
func MinsToHours(mins float64) float64 {
	hours := mins / 60
	whole := math.Floor(hours)
	minutes := math.Round((hours - whole) * 60)
	return whole + minutes/60
}

// NumberWithCommas groups the integer digits of a formatted number in threes.
func NumberWithCommas(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return sign + s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// TidyTime renders a duration in minutes for the summary panel: whole hours
// from 60 minutes up, minutes with two decimals below.
func TidyTime(mins float64) string {
	if mins >= 60 {
		return NumberWithCommas(fixed(MinsToHours(mins), 0)) + " hours"
	}
	return fixed(mins, 2) + " minutes"
}

// TidyTimeTooltip is TidyTime with two decimals on hours.
func TidyTimeTooltip(mins float64) string {
	if mins >= 60 {
		return NumberWithCommas(fixed(MinsToHours(mins), 2)) + " hours"
	}
	return fixed(mins, 2) + " minutes"
}

// ScalingFactor sizes map markers. A specific day or hour shrinks the totals,
// so markers are scaled up to stay legible. Zoom levels past the base zoom
// enlarge them further; pass 0 to ignore zoom.
func ScalingFactor(f parking.FilterState, zoom int) float64 {
	var sf float64
	switch {
	case f.IsAllWeek() && f.IsAllDay():
		sf = 0.25
	case f.IsAllWeek():
		sf = 0.8
	case f.IsAllDay():
		sf = 0.5
	default:
		sf = 1.3
	}
	if zoom > baseZoom {
		sf *= float64(zoom - baseZoom + 1)
	}
	return sf
}

// MarkerRadius is the circle radius, in pixels, for a total duration in minutes.
func MarkerRadius(totalMinutes, scaling float64) float64 {
	if totalMinutes <= 0 {
		return 0
	}
	return math.Sqrt(totalMinutes) * scaling
}

// LocationColor is the marker or legend color for a location filter value.
func LocationColor(t parking.LocationType) string {
	switch t {
	case parking.OnStreet:
		return OnStreetColor
	case parking.OffStreet:
		return OffStreetColor
	default:
		return MixedColor
	}
}

type LegendEntry struct {
	Radius   float64 `json:"radius"`
	FontSize int     `json:"font_size"`
	Label    string  `json:"label"`
}

type Legend struct {
	Title   string        `json:"title"`
	Color   string        `json:"color"`
	Entries []LegendEntry `json:"entries"`
}

var legendSteps = [...]struct {
	div  float64
	font int
}{{1, 15}, {1.3, 12}, {1.8, 11}, {2.5, 9}}

// BuildLegend labels the reference circles with the hours they stand for.
func BuildLegend(f parking.FilterState, zoom int) Legend {
	sf := ScalingFactor(f, zoom)
	lg := Legend{Title: LegendTitle, Color: LocationColor(f.LocationType())}
	for _, step := range legendSteps {
		r := legendMaxRadius / step.div
		hrs := MinsToHours(math.Pow(r/sf, 2))
		label := fixed(hrs, 0)
		if hrs <= 1 {
			label = strings.TrimPrefix(fixed(hrs, 2), "0")
		}
		lg.Entries = append(lg.Entries, LegendEntry{Radius: r, FontSize: step.font, Label: label})
	}
	return lg
}
