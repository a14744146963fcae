package db

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"tncparking/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		cfg    config.Config
		prefix string
	}{
		{
			name:   "explicit dsn wins",
			cfg:    config.Config{SQLiteDSN: "file::memory:?cache=shared", SQLitePath: "ignored.db"},
			prefix: "file::memory:?cache=shared",
		},
		{
			name:   "plain path",
			cfg:    config.Config{SQLitePath: filepath.Join(dir, "nested", "app.db")},
			prefix: "file:" + filepath.Join(dir, "nested", "app.db") + "?",
		},
		{
			name:   "file uri with query",
			cfg:    config.Config{SQLitePath: "file:x.db?mode=ro"},
			prefix: "file:x.db?mode=ro&",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN() error = %v", err)
			}
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("buildDSN() = %q; want prefix %q", got, tt.prefix)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	for _, logSQL := range []bool{false, true} {
		name := "plain"
		if logSQL {
			name = "logging"
		}
		t.Run(name, func(t *testing.T) {
			handler := &captureHandler{}
			cfg := config.Config{
				SQLiteDriver:       "sqlite3",
				SQLitePath:         filepath.Join(t.TempDir(), "data", "tnc.db"),
				SQLiteMaxOpenConns: 1,
				SQLiteMaxIdleConns: 1,
				SQLiteLogSQL:       logSQL,
			}
			db, err := Open(context.Background(), cfg, slog.New(handler))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() { _ = Close(db) }()

			var one int
			if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil || one != 1 {
				t.Fatalf("SELECT 1 = %d, %v", one, err)
			}
			logged := len(handler.recordsFor(t, "sql")) > 0
			if logged != logSQL {
				t.Errorf("sql logged = %v; want %v", logged, logSQL)
			}
		})
	}
}

func TestClose_nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) = %v; want nil", err)
	}
}
