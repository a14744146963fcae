package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tncparking/internal/parking"
)

// HTTPSource reads both feeds as JSON arrays over HTTP.
type HTTPSource struct {
	locationsURL string
	eventsURL    string
	client       *http.Client
	logger       *slog.Logger
}

func NewHTTPSource(locationsURL, eventsURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		locationsURL: locationsURL,
		eventsURL:    eventsURL,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

func (s *HTTPSource) Locations(ctx context.Context) ([]parking.LocationRecord, error) {
	body, err := s.get(ctx, s.locationsURL)
	if err != nil {
		return nil, err
	}
	defer s.closeBody(body, FeedLocations)

	records, skipped, err := ParseLocations(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("undecodable feed records skipped", "feed", FeedLocations, "skipped", skipped)
	}
	return records, nil
}

func (s *HTTPSource) Events(ctx context.Context) ([]parking.ParkingEvent, error) {
	body, err := s.get(ctx, s.eventsURL)
	if err != nil {
		return nil, err
	}
	defer s.closeBody(body, FeedEvents)

	events, skipped, err := ParseEvents(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("undecodable feed records skipped", "feed", FeedEvents, "skipped", skipped)
	}
	return events, nil
}

func (s *HTTPSource) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("fetching feed", "url", url)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

func (s *HTTPSource) closeBody(body io.Closer, feed string) {
	if err := body.Close(); err != nil {
		s.logger.Error("close feed body", "feed", feed, "error", err)
	}
}
