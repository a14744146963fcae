package parking

type BucketKey int

const (
	BucketDay BucketKey = iota
	BucketHour
)

func (k BucketKey) Size() int {
	if k == BucketHour {
		return HoursPerDay
	}
	return DaysPerWeek
}

func (k BucketKey) String() string {
	if k == BucketHour {
		return "hour"
	}
	return "day"
}

// AggregateByLocation groups events by location in first-seen order.
// Averages are computed only once both sums are complete, and locations
// whose event total is zero are left out.
func AggregateByLocation(events []ParkingEvent, idx *GeometryIndex) []AggregatedLocation {
	pos := make(map[string]int)
	groups := make([]AggregatedLocation, 0)
	for _, e := range events {
		i, ok := pos[e.GeomID]
		if !ok {
			loc, found := idx.Lookup(e.GeomID)
			if !found {
				continue
			}
			i = len(groups)
			pos[e.GeomID] = i
			groups = append(groups, AggregatedLocation{
				GeomID:       e.GeomID,
				LocationType: loc.LocationType,
				Geometry:     loc.Geometry,
			})
		}
		groups[i].TotalDuration += e.AvgTotalMinutes
		groups[i].Events += e.AvgEvents
	}

	out := groups[:0]
	for _, g := range groups {
		if g.Events == 0 {
			continue
		}
		g.AvgDuration = g.TotalDuration / g.Events
		out = append(out, g)
	}
	return out
}

// AggregateByBucket returns a dense series with one entry per day of week or
// hour of day, splitting duration (in hours) by location type.
func AggregateByBucket(events []ParkingEvent, key BucketKey, idx *GeometryIndex) []BucketTotal {
	out := make([]BucketTotal, key.Size())
	for i := range out {
		out[i].Key = i
	}
	for _, e := range events {
		b := e.Day
		if key == BucketHour {
			b = e.Hour
		}
		if b < 0 || b >= len(out) {
			continue
		}
		loc, ok := idx.Lookup(e.GeomID)
		if !ok {
			continue
		}
		hours := e.AvgTotalMinutes / 60
		switch loc.LocationType {
		case OnStreet:
			out[b].OnStreet += hours
		case OffStreet:
			out[b].OffStreet += hours
		}
	}
	return out
}

// ComputeSummary totals the events, restricted to selected when it is set.
func ComputeSummary(events []ParkingEvent, selected string) SummaryStats {
	var s SummaryStats
	for _, e := range events {
		if selected != "" && e.GeomID != selected {
			continue
		}
		s.Duration += e.AvgTotalMinutes
		s.Events += e.AvgEvents
	}
	if s.Events == 0 {
		return SummaryStats{}
	}
	s.AvgDuration = s.Duration / s.Events
	s.HasData = true
	return s
}
