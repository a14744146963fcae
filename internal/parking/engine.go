package parking

// predicate reports whether an event passes one filter.
type predicate func(e ParkingEvent) bool

func dayPredicate(f FilterState) predicate {
	if f.IsAllWeek() {
		return nil
	}
	day := f.Day - 1
	return func(e ParkingEvent) bool { return e.Day == day }
}

func hourPredicate(f FilterState) predicate {
	if f.IsAllDay() {
		return nil
	}
	hour := f.Hour
	return func(e ParkingEvent) bool { return e.Hour == hour }
}

func locationPredicate(f FilterState, idx *GeometryIndex) predicate {
	want := f.LocationType()
	switch want {
	case LocationAll:
		return nil
	case LocationNone:
		return func(ParkingEvent) bool { return false }
	}
	return func(e ParkingEvent) bool {
		loc, ok := idx.Lookup(e.GeomID)
		return ok && loc.LocationType == want
	}
}

func selectionPredicate(f FilterState) predicate {
	if !f.HasSelection() {
		return nil
	}
	id := f.Selected
	return func(e ParkingEvent) bool { return e.GeomID == id }
}

// filterEvents keeps the events passing every non-nil predicate. The input
// slice is never modified.
func filterEvents(events []ParkingEvent, preds ...predicate) []ParkingEvent {
	active := make([]predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]ParkingEvent, 0, len(events))
next:
	for _, e := range events {
		for _, p := range active {
			if !p(e) {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

// MapEvents feeds the map and the summary: day, hour and location type.
func MapEvents(ds *Dataset, f FilterState) []ParkingEvent {
	if ds == nil {
		return nil
	}
	return filterEvents(ds.events,
		dayPredicate(f),
		hourPredicate(f),
		locationPredicate(f, ds.index),
	)
}

// DailyEvents feeds the day-of-week chart, so it never filters by day.
func DailyEvents(ds *Dataset, f FilterState) []ParkingEvent {
	if ds == nil {
		return nil
	}
	return filterEvents(ds.events,
		hourPredicate(f),
		locationPredicate(f, ds.index),
		selectionPredicate(f),
	)
}

// HourlyEvents feeds the hour-of-day chart, so it never filters by hour.
func HourlyEvents(ds *Dataset, f FilterState) []ParkingEvent {
	if ds == nil {
		return nil
	}
	return filterEvents(ds.events,
		dayPredicate(f),
		locationPredicate(f, ds.index),
		selectionPredicate(f),
	)
}
