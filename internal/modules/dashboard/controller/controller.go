package controller

import (
	"context"
	"log/slog"
	"net/http"

	"tncparking/internal/parking"
	"tncparking/internal/session"
	"tncparking/internal/source"
)

type Sessions interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

type Dataset interface {
	Status() source.StoreStatus
	Ready() (*parking.Dataset, error)
	Reload(ctx context.Context) error
}

type DashboardController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type dashboardControllerImpl struct {
	sessions Sessions
	dataset  Dataset
	logger   *slog.Logger
}

func NewDashboardController(sessions Sessions, dataset Dataset, logger *slog.Logger) DashboardController {
	if logger == nil {
		logger = slog.Default()
	}
	return &dashboardControllerImpl{sessions: sessions, dataset: dataset, logger: logger}
}

func (c *dashboardControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/summary", c.handleSummaryPartial)

	mux.HandleFunc("POST /api/v1/sessions", c.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", c.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", c.handleDeleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/commands", c.handleCommand)
	mux.HandleFunc("GET /api/v1/sessions/{id}/map", c.handleMap)
	mux.HandleFunc("GET /api/v1/sessions/{id}/charts/{key}", c.handleChart)
	mux.HandleFunc("GET /api/v1/sessions/{id}/summary", c.handleSummary)

	mux.HandleFunc("GET /api/v1/dataset", c.handleDataset)
	mux.HandleFunc("POST /api/v1/dataset/reload", c.handleReload)
}
