package service

import (
	"log/slog"

	"tncparking/internal/mqtt"
	"tncparking/internal/parking"
	"tncparking/internal/session"
)

// CommandApplier applies a command to the session it names.
type CommandApplier interface {
	Apply(sessionID string, cmd session.Command) (parking.Snapshot, error)
}

type Service struct {
	sessions CommandApplier
	logger   *slog.Logger
}

func NewService(sessions CommandApplier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sessions: sessions, logger: logger}
}

func (s *Service) Register(subscriber mqtt.CommandSubscriber) {
	registerMQTTHandler(subscriber, s.sessions, s.logger)
}
