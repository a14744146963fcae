package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tncparking/internal/source"
	"tncparking/internal/utils"
)

const pingTimeout = 2 * time.Second

type DatasetStatus interface {
	Status() source.StoreStatus
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type ConnectionState interface {
	IsConnected() bool
}

// Dependencies are what /healthz reports on. DB and MQTT are nil when the
// configuration does not use them.
type Dependencies struct {
	Dataset DatasetStatus
	DB      Pinger
	MQTT    ConnectionState
}

type healthResponse struct {
	Status  string             `json:"status"`
	Dataset source.StoreStatus `json:"dataset"`
	MQTT    *bool              `json:"mqtt_connected,omitempty"`
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	deps   Dependencies
	logger *slog.Logger
}

func NewHealthchecker(deps Dependencies, logger *slog.Logger) healthchecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &healthcheckerImpl{deps: deps, logger: logger}
}

// handleHealthz fails with 503 only when no dataset has ever loaded and the
// last attempt failed. A failed reload over a good dataset reports "degraded".
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.deps.DB.PingContext(ctx); err != nil {
			h.logger.Error("failed to check database connectivity", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
			return
		}
	}

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if h.deps.Dataset != nil {
		resp.Dataset = h.deps.Dataset.Status()
		switch resp.Dataset.Status {
		case source.StatusLoading:
			resp.Status = "loading"
		case source.StatusFailed:
			if resp.Dataset.LoadedAt == nil {
				resp.Status = "failed"
				code = http.StatusServiceUnavailable
			} else {
				resp.Status = "degraded"
			}
		}
	}
	if h.deps.MQTT != nil {
		connected := h.deps.MQTT.IsConnected()
		resp.MQTT = &connected
	}
	utils.WriteJSON(w, code, resp)
}

func registerHealthcheck(mux *http.ServeMux, deps Dependencies, logger *slog.Logger) {
	healthchecker := NewHealthchecker(deps, logger)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
