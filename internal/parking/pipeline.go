package parking

// Recompute runs every filter and aggregation for f. It is a pure function
// of its inputs; a nil dataset produces empty, zero-filled output.
func Recompute(ds *Dataset, f FilterState) Snapshot {
	idx := ds.Index()
	mapped := MapEvents(ds, f)
	return Snapshot{
		Filter:    f,
		Locations: AggregateByLocation(mapped, idx),
		Daily:     AggregateByBucket(DailyEvents(ds, f), BucketDay, idx),
		Hourly:    AggregateByBucket(HourlyEvents(ds, f), BucketHour, idx),
		Summary:   ComputeSummary(mapped, f.Selected),
	}
}
