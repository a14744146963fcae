package source

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"tncparking/internal/parking"
)

// PostgresSource reads the feed tables from PostgreSQL.
type PostgresSource struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// OpenPostgres connects through the pgx stdlib driver and pings the server.
func OpenPostgres(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return db, nil
}

func NewPostgresSource(db *sqlx.DB, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{db: db, logger: logger}
}

func (s *PostgresSource) Locations(ctx context.Context) ([]parking.LocationRecord, error) {
	var rows []locationRow
	if err := s.db.SelectContext(ctx, &rows, selectLocationsSQL); err != nil {
		return nil, err
	}
	return toLocationRecords(rows, s.logger), nil
}

func (s *PostgresSource) Events(ctx context.Context) ([]parking.ParkingEvent, error) {
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, selectEventsSQL); err != nil {
		return nil, err
	}
	out := make([]parking.ParkingEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.event())
	}
	return out, nil
}
