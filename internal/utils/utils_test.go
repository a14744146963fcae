package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"day": 3})

	if got := w.Header().Get("Content-Type"); got != contentTypeJSON {
		t.Errorf("Content-Type = %q; want %q", got, contentTypeJSON)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusCreated)
	}
	var got map[string]int
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["day"] != 3 {
		t.Errorf("body[day] = %d; want 3", got["day"])
	}
}

func TestWriteGeoJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteGeoJSON(w, http.StatusOK, map[string]any{"type": "FeatureCollection", "features": []any{}})

	if got := w.Header().Get("Content-Type"); got != "application/geo+json" {
		t.Errorf("Content-Type = %q; want application/geo+json", got)
	}
	if !strings.Contains(w.Body.String(), `"FeatureCollection"`) {
		t.Errorf("body = %s; want a FeatureCollection", w.Body.String())
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "unknown session")

	if w.Code != http.StatusNotFound {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusNotFound)
	}
	var got ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got.Error != "Not Found" || got.Message != "unknown session" {
		t.Errorf("body = %+v; want Not Found / unknown session", got)
	}
}

func TestWriteHTML(t *testing.T) {
	t.Run("writes rendered page", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteHTML(w, func(out io.Writer) error {
			_, err := io.WriteString(out, "<p>ok</p>")
			return err
		})
		if err != nil {
			t.Fatalf("WriteHTML: %v", err)
		}
		if got := w.Header().Get("Content-Type"); got != contentTypeHTML {
			t.Errorf("Content-Type = %q; want %q", got, contentTypeHTML)
		}
		if w.Body.String() != "<p>ok</p>" {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("render error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		boom := errors.New("boom")
		err := WriteHTML(w, func(out io.Writer) error {
			_, _ = io.WriteString(out, "<p>half")
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v; want boom", err)
		}
		if w.Body.Len() != 0 || w.Header().Get("Content-Type") != "" {
			t.Errorf("response touched: body=%q headers=%v", w.Body.String(), w.Header())
		}
	})
}
