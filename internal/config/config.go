package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceHTTP     = "http"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DataSource selects where the two reference feeds are read from.
	DataSource   string
	LocationsURL string
	EventsURL    string
	FetchTimeout time.Duration

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool

	DatabaseURL string

	PlaybackInterval time.Duration
	HourDebounce     time.Duration
	SessionTTL       time.Duration

	// MQTTBroker empty disables the MQTT control adapter.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	// NATSURL empty disables frame publishing.
	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
}

func LoadFromEnv() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	dataSource := strings.ToLower(getenvDefault("DATA_SOURCE", SourceHTTP))
	switch dataSource {
	case SourceHTTP, SourceSQLite, SourcePostgres:
	default:
		return Config{}, fmt.Errorf("invalid DATA_SOURCE %q (allowed: http, sqlite, postgres)", dataSource)
	}

	fetchTimeout, err := durationEnv("FETCH_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dataSource == SourcePostgres && databaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when DATA_SOURCE=postgres")
	}

	playbackInterval, err := durationEnv("PLAYBACK_INTERVAL", "1s")
	if err != nil {
		return Config{}, err
	}
	if playbackInterval <= 0 {
		return Config{}, fmt.Errorf("invalid PLAYBACK_INTERVAL %q: must be > 0", playbackInterval)
	}
	hourDebounce, err := durationEnv("HOUR_DEBOUNCE", "30ms")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := durationEnv("SESSION_TTL", "30m")
	if err != nil {
		return Config{}, err
	}
	if sessionTTL <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL %q: must be > 0", sessionTTL)
	}

	mqttPort, err := intEnv("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              getenvDefault("HTTP_ADDR", ":8080"),
		DataSource:            dataSource,
		LocationsURL:          getenvDefault("LOCATIONS_URL", "https://api.sfcta.org/api/parking_locations"),
		EventsURL:             getenvDefault("EVENTS_URL", "https://api.sfcta.org/api/tnc_parking_v2"),
		FetchTimeout:          fetchTimeout,
		SQLiteDriver:          getenvDefault("DB_DRIVER", "sqlite3"),
		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            getenvDefault("SQLITE_PATH", "data/tncparking.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogSQL:          boolEnv("DB_LOG_SQL"),
		DatabaseURL:           databaseURL,
		PlaybackInterval:      playbackInterval,
		HourDebounce:          hourDebounce,
		SessionTTL:            sessionTTL,
		MQTTBroker:            strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:              mqttPort,
		MQTTClientID:          getenvDefault("MQTT_CLIENT_ID", "tncparking-server"),
		MQTTTopic:             getenvDefault("MQTT_TOPIC", "tncparking/control"),
		NATSURL:               strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubjectPrefix:     getenvDefault("NATS_SUBJECT_PREFIX", "tncparking.frames"),
		LogNATSSubjects:       boolEnv("LOG_NATS_SUBJECTS"),
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key, def string) (int, error) {
	s := getenvDefault(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func durationEnv(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func boolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
