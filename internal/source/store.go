package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tncparking/internal/parking"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

type Metrics interface {
	FetchFailureInc(feed string)
	DatasetLoaded(stats LoadStats)
}

// StoreStatus is the externally visible load state.
type StoreStatus struct {
	Status   Status     `json:"status"`
	Error    string     `json:"error,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	Stats    LoadStats  `json:"stats"`
}

// Store holds the dataset every session computes against. A failed load is
// kept visible through Status; the previous dataset, if any, stays in use
// until a reload succeeds. There is no automatic retry.
type Store struct {
	src     Source
	logger  *slog.Logger
	metrics Metrics

	reload sync.Mutex

	mu       sync.RWMutex
	ds       *parking.Dataset
	status   Status
	err      error
	stats    LoadStats
	loadedAt time.Time
}

func NewStore(src Source, logger *slog.Logger, metrics Metrics) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{src: src, logger: logger, metrics: metrics, status: StatusLoading}
}

// Dataset returns the current dataset or nil if none has loaded yet.
func (s *Store) Dataset() *parking.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Ready returns the dataset or ErrDatasetNotReady.
func (s *Store) Ready() (*parking.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		if s.err != nil {
			return nil, errors.Join(ErrDatasetNotReady, s.err)
		}
		return nil, ErrDatasetNotReady
	}
	return s.ds, nil
}

func (s *Store) Status() StoreStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := StoreStatus{Status: s.status, Stats: s.stats}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	if !s.loadedAt.IsZero() {
		t := s.loadedAt
		st.LoadedAt = &t
	}
	return st
}

// Reload fetches both feeds again. Concurrent calls are serialized.
func (s *Store) Reload(ctx context.Context) error {
	s.reload.Lock()
	defer s.reload.Unlock()

	s.mu.Lock()
	s.status = StatusLoading
	s.mu.Unlock()

	ds, stats, err := Load(ctx, s.src, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.err = err
		s.logger.Error("dataset load failed", "error", err)
		var fe *FetchError
		if s.metrics != nil && errors.As(err, &fe) {
			s.metrics.FetchFailureInc(fe.Feed)
		}
		return err
	}

	s.ds = ds
	s.stats = stats
	s.err = nil
	s.status = StatusReady
	s.loadedAt = time.Now().UTC()
	if s.metrics != nil {
		s.metrics.DatasetLoaded(stats)
	}
	return nil
}
