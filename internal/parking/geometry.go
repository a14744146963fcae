package parking

// GeometryIndex maps a location id to its geometry and type. It is built once
// and read-only afterwards, so it is safe to share between sessions.
type GeometryIndex struct {
	byID map[string]LocationGeometry
}

type BuildStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// BuildIndex indexes records by GeomID. Records without an id, with an
// unknown location type or without geometry are skipped. A later record with
// the same id replaces an earlier one.
func BuildIndex(records []LocationRecord) (*GeometryIndex, BuildStats) {
	idx := &GeometryIndex{byID: make(map[string]LocationGeometry, len(records))}
	var stats BuildStats
	for _, r := range records {
		id := r.GeomID()
		if id == "" || !r.LocationType.Valid() || len(r.Geometry) == 0 {
			stats.Skipped++
			continue
		}
		idx.byID[id] = LocationGeometry{
			GeomID:       id,
			Geometry:     r.Geometry,
			LocationType: r.LocationType,
		}
	}
	stats.Indexed = len(idx.byID)
	return idx, stats
}

func (g *GeometryIndex) Lookup(id string) (LocationGeometry, bool) {
	if g == nil {
		return LocationGeometry{}, false
	}
	loc, ok := g.byID[id]
	return loc, ok
}

func (g *GeometryIndex) Len() int {
	if g == nil {
		return 0
	}
	return len(g.byID)
}
