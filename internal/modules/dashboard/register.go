package dashboard

import (
	"log/slog"
	"net/http"

	"tncparking/internal/modules/dashboard/controller"
	"tncparking/internal/modules/dashboard/service"
	"tncparking/internal/mqtt"
	"tncparking/internal/session"
)

func RegisterFeature(mux *http.ServeMux, sessions *session.Registry, dataset controller.Dataset, logger *slog.Logger) {
	dashboardController := controller.NewDashboardController(sessions, dataset, logger)
	dashboardController.RegisterRoutes(mux)
}

// RegisterMQTT attaches the command handler. Call it before the subscriber connects.
func RegisterMQTT(subscriber mqtt.CommandSubscriber, sessions *session.Registry, logger *slog.Logger) {
	service.NewService(sessions, logger).Register(subscriber)
}
