// Command tncparking-tools manages the offline SQLite export of the parking feeds.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tncparking/internal/config"
	"tncparking/internal/db"
	"tncparking/internal/db/migrate"
	"tncparking/internal/logging"
	"tncparking/internal/source"
)

const appName = "tncparking-tools"

var version = "dev"

const usage = `usage: %s <command>
  migrate  apply pending schema migrations
  import   fetch both feeds over HTTP and replace the SQLite export
  stats    load the SQLite export and print dataset counts
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()

	if err := run(ctx, os.Args[1], cfg, conn, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, cfg config.Config, conn *sql.DB, logger *slog.Logger, out io.Writer) error {
	switch command {
	case "migrate":
		applied, err := migrate.Run(ctx, conn, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "migrations applied: %d\n", len(applied))
		return nil

	case "import":
		if _, err := migrate.Run(ctx, conn, logger); err != nil {
			return err
		}
		src := source.NewHTTPSource(cfg.LocationsURL, cfg.EventsURL, cfg.FetchTimeout, logger)
		locations, events, err := importFeeds(ctx, src, conn, cfg.EventsURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d locations, %d events\n", locations, events)
		return nil

	case "stats":
		_, stats, err := source.Load(ctx, source.NewSQLiteSource(conn, logger), logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "locations indexed: %d (skipped %d)\n", stats.Index.Indexed, stats.Index.Skipped)
		fmt.Fprintf(out, "events: %d (missing geometry %d, malformed %d)\n",
			stats.Dataset.Events, stats.Dataset.MissingGeometry, stats.Dataset.Malformed)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// importFeeds reads both feeds from src and replaces the SQLite tables with them.
func importFeeds(ctx context.Context, src source.Source, conn *sql.DB, origin string) (int, int, error) {
	records, err := src.Locations(ctx)
	if err != nil {
		return 0, 0, &source.FetchError{Feed: source.FeedLocations, Err: err}
	}
	events, err := src.Events(ctx)
	if err != nil {
		return 0, 0, &source.FetchError{Feed: source.FeedEvents, Err: err}
	}
	if err := source.WriteSQLite(ctx, conn, origin, records, events); err != nil {
		return 0, 0, fmt.Errorf("write export: %w", err)
	}
	return len(records), len(events), nil
}
