package httpapi

import (
	"log/slog"
	"net/http"
)

// NewMux registers the operational endpoints. Feature modules add their own
// routes to the returned mux.
func NewMux(deps Dependencies, metrics http.Handler, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, deps, logger)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
