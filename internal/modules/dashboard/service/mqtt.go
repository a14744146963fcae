package service

import (
	"log/slog"

	"tncparking/internal/mqtt"
	"tncparking/internal/session"
)

// registerMQTTHandler routes control commands received over MQTT to their session.
func registerMQTTHandler(subscriber mqtt.CommandSubscriber, sessions CommandApplier, logger *slog.Logger) {
	subscriber.SetCommandHandler(func(cmd session.Command) error {
		logger.Debug("processing command message",
			"session_id", cmd.SessionID,
			"op", cmd.Op,
		)

		snap, err := sessions.Apply(cmd.SessionID, cmd)
		if err != nil {
			logger.Error("failed to apply command",
				"session_id", cmd.SessionID,
				"op", cmd.Op,
				"error", err,
			)
			return err
		}

		logger.Debug("successfully applied command",
			"session_id", cmd.SessionID,
			"locations", len(snap.Locations),
		)
		return nil
	})
}
