package utils

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

const (
	contentTypeJSON    = "application/json; charset=utf-8"
	contentTypeGeoJSON = "application/geo+json"
	contentTypeHTML    = "text/html; charset=utf-8"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeEncoded(w, status, contentTypeJSON, v)
}

// WriteGeoJSON writes v (a FeatureCollection) with the GeoJSON media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) {
	writeEncoded(w, status, contentTypeGeoJSON, v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	})
}

// WriteHTML renders into a buffer and writes it with status 200. A render
// error is returned before anything reaches w, so the caller can still
// answer with WriteError.
func WriteHTML(w http.ResponseWriter, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write HTML", "error", err)
	}
	return nil
}

func writeEncoded(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}
