package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tncparking/internal/config"
	"tncparking/internal/db"
	"tncparking/internal/db/migrate"
	"tncparking/internal/httpapi"
	"tncparking/internal/metrics"
	"tncparking/internal/modules/dashboard"
	dashboardviews "tncparking/internal/modules/dashboard/views"
	"tncparking/internal/mqtt"
	"tncparking/internal/publisher"
	"tncparking/internal/session"
	"tncparking/internal/source"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataSource", cfg.DataSource,
		"sqlitePath", cfg.SQLitePath,
		"playbackInterval", cfg.PlaybackInterval,
		"hourDebounce", cfg.HourDebounce,
		"sessionTTL", cfg.SessionTTL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttTopic", cfg.MQTTTopic,
		"natsURL", cfg.NATSURL,
	)

	if err := dashboardviews.LoadTemplates(); err != nil {
		return err
	}

	collector := metrics.NewCollector(cfg.PlaybackInterval)

	src, closeSrc, pinger, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	store := source.NewStore(src, logger, collector)
	go func() {
		// Load stats are logged by source.Load. Failures stay visible through
		// the store status; POST /api/v1/dataset/reload retries.
		_ = store.Reload(ctx)
	}()

	var sinks []session.FrameSink
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, collector, logger)
		if err != nil {
			logger.Warn("nats connection failed (continuing without frame publishing)", "error", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	registry := session.NewRegistry(cfg.SessionTTL, store, session.Options{
		PlaybackInterval: cfg.PlaybackInterval,
		HourDebounce:     cfg.HourDebounce,
		Sinks:            sinks,
		Metrics:          collector,
		Logger:           logger,
	})
	defer registry.Close()

	deps := httpapi.Dependencies{Dataset: store, DB: pinger}

	var subscriber *mqtt.Subscriber
	if cfg.MQTTBroker != "" {
		subscriber, err = mqtt.NewSubscriber(cfg, logger, collector)
		if err != nil {
			return err
		}
		// The handler is set before Connect so commands queued by the broker
		// right after CONNACK are not dropped.
		dashboard.RegisterMQTT(subscriber, registry, logger)
		deps.MQTT = subscriber

		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	mux := httpapi.NewMux(deps, collector.Handler(), logger)
	dashboard.RegisterFeature(mux, registry, store, logger)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openSource returns the configured feed source, a cleanup func and, for
// database-backed sources, a pinger for the health check.
func openSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (source.Source, func(), httpapi.Pinger, error) {
	switch cfg.DataSource {
	case config.SourceHTTP:
		return source.NewHTTPSource(cfg.LocationsURL, cfg.EventsURL, cfg.FetchTimeout, logger), func() {}, nil, nil

	case config.SourceSQLite:
		conn, err := db.Open(ctx, cfg, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(conn); err != nil {
				logger.Error("db close", "error", err)
			}
		}
		applied, err := migrate.Run(ctx, conn, logger)
		if err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "versions", applied)
		}
		return source.NewSQLiteSource(conn, logger), closeFn, conn, nil

	case config.SourcePostgres:
		pg, err := source.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := pg.Close(); err != nil {
				logger.Error("postgres close", "error", err)
			}
		}
		return source.NewPostgresSource(pg, logger), closeFn, pg, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported data source %q", cfg.DataSource)
	}
}
