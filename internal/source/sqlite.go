package source

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"tncparking/internal/parking"
)

//go:embed sql/select-locations.sql
var selectLocationsSQL string

//go:embed sql/select-events.sql
var selectEventsSQL string

//go:embed sql/insert-location.sql
var insertLocationSQL string

//go:embed sql/insert-event.sql
var insertEventSQL string

//go:embed sql/insert-import.sql
var insertImportSQL string

// locationRow is the table shape shared by the SQL sources.
type locationRow struct {
	AB           sql.NullString `db:"ab"`
	MazID        sql.NullString `db:"mazid"`
	LocationType string         `db:"location_type"`
	Geometry     string         `db:"geometry"`
}

type eventRow struct {
	GeomID          string  `db:"geom_id"`
	Day             int     `db:"day"`
	Hour            int     `db:"hour"`
	AvgTotalMinutes float64 `db:"avg_total_minutes"`
	AvgEvents       float64 `db:"avg_events"`
}

// SQLiteSource reads an offline export of both feeds from SQLite. The schema
// is created by internal/db/migrate.
type SQLiteSource struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteSource(db *sql.DB, logger *slog.Logger) *SQLiteSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSource{db: db, logger: logger}
}

func (s *SQLiteSource) Locations(ctx context.Context) ([]parking.LocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectLocationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close locations rows", "error", err)
		}
	}()

	var out []locationRow
	for rows.Next() {
		var r locationRow
		if err := rows.Scan(&r.AB, &r.MazID, &r.LocationType, &r.Geometry); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return toLocationRecords(out, s.logger), nil
}

func (s *SQLiteSource) Events(ctx context.Context) ([]parking.ParkingEvent, error) {
	rows, err := s.db.QueryContext(ctx, selectEventsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close events rows", "error", err)
		}
	}()

	var out []parking.ParkingEvent
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.GeomID, &r.Day, &r.Hour, &r.AvgTotalMinutes, &r.AvgEvents); err != nil {
			return nil, err
		}
		out = append(out, r.event())
	}
	return out, rows.Err()
}

// WriteSQLite replaces the contents of both tables in one transaction and
// records the import under origin.
func WriteSQLite(ctx context.Context, db *sql.DB, origin string, records []parking.LocationRecord, events []parking.ParkingEvent) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"parking_locations", "tnc_parking"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	locStmt, err := tx.PrepareContext(ctx, insertLocationSQL)
	if err != nil {
		return err
	}
	defer func() { _ = locStmt.Close() }()
	for _, r := range records {
		if _, err := locStmt.ExecContext(ctx, nullIfEmpty(r.AB), nullIfEmpty(r.MazID), string(r.LocationType), string(r.Geometry)); err != nil {
			return fmt.Errorf("insert location %q: %w", r.GeomID(), err)
		}
	}

	evStmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return err
	}
	defer func() { _ = evStmt.Close() }()
	for _, e := range events {
		if _, err := evStmt.ExecContext(ctx, e.GeomID, e.Day, e.Hour, e.AvgTotalMinutes, e.AvgEvents); err != nil {
			return fmt.Errorf("insert event %q: %w", e.GeomID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, insertImportSQL, origin, len(records), len(events)); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return tx.Commit()
}

func toLocationRecords(rows []locationRow, logger *slog.Logger) []parking.LocationRecord {
	out := make([]parking.LocationRecord, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		geom, err := NormalizeGeometry([]byte(r.Geometry))
		if err != nil {
			skipped++
			continue
		}
		out = append(out, parking.LocationRecord{
			AB:           r.AB.String,
			MazID:        r.MazID.String,
			LocationType: parking.LocationType(r.LocationType),
			Geometry:     geom,
		})
	}
	if skipped > 0 {
		logger.Warn("rows with invalid geometry skipped", "feed", FeedLocations, "skipped", skipped)
	}
	return out
}

func (r eventRow) event() parking.ParkingEvent {
	return parking.ParkingEvent{
		GeomID:          r.GeomID,
		Day:             r.Day,
		Hour:            r.Hour,
		AvgTotalMinutes: r.AvgTotalMinutes,
		AvgEvents:       r.AvgEvents,
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
