package parking

var dayLabels = [...]string{
	"All Week", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var hourLabels = [...]string{
	"12AM", "1AM", "2AM", "3AM", "4AM", "5AM", "6AM", "7AM", "8AM", "9AM", "10AM", "11AM",
	"Noon", "1PM", "2PM", "3PM", "4PM", "5PM", "6PM", "7PM", "8PM", "9PM", "10PM", "11PM",
}

var locationLabels = map[LocationType]string{
	OnStreet:     "On-Street",
	OffStreet:    "Off-Street",
	LocationAll:  "On-Street and Off-Street",
	LocationNone: "No Location Selection",
}

// DayLabel names a FilterState day (0 = All Week, 1 = Monday).
func DayLabel(day int) string {
	if day < 0 || day >= len(dayLabels) {
		return ""
	}
	return dayLabels[day]
}

// DayAbbrev names an event day (0 = Monday) the way the day chart axis does.
func DayAbbrev(eventDay int) string {
	return firstN(DayLabel(eventDay+1), 2)
}

func HourLabel(hour int) string {
	if hour == AllHours {
		return "All Day"
	}
	if hour < 0 || hour >= len(hourLabels) {
		return ""
	}
	return hourLabels[hour]
}

func LocationLabel(t LocationType) string {
	return locationLabels[t]
}

// BucketLabel is the chart axis label of bucket i.
func BucketLabel(key BucketKey, i int) string {
	if key == BucketHour {
		return HourLabel(i)
	}
	return DayAbbrev(i)
}

func SummaryTitle(f FilterState) string {
	return LocationLabel(f.LocationType()) + " Parking"
}

func SummarySubtitle(f FilterState) string {
	return DayLabel(f.Day) + ", " + HourLabel(f.Hour)
}

// DurationBucket classifies a duration in hours into the legend ranges.
func DurationBucket(hours float64) string {
	switch {
	case hours < 1:
		return "0-1"
	case hours < 2:
		return "1-2"
	case hours < 3:
		return "2-3"
	case hours < 4:
		return "3-4"
	case hours < 5:
		return "4-5"
	default:
		return "5+"
	}
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
