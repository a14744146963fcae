package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tncparking/internal/cache"
	"tncparking/internal/parking"
)

// Registry owns the live sessions. Sessions idle for longer than the TTL are
// evicted and closed.
type Registry struct {
	sessions *cache.Cache[*Session]
	data     DatasetProvider
	opts     Options
	logger   *slog.Logger
}

func NewRegistry(ttl time.Duration, data DatasetProvider, opts Options) *Registry {
	opts = opts.withDefaults()
	r := &Registry{data: data, opts: opts, logger: opts.Logger}
	r.sessions = cache.New(ttl, cache.WithEvictHook(r.evicted))
	return r
}

func (r *Registry) Create() *Session {
	id := uuid.NewString()
	s := New(id, r.data, r.opts)
	r.sessions.Set(id, s)
	r.opts.Metrics.SetActiveSessions(r.sessions.Size())
	r.logger.Debug("session created", "session_id", id)
	return s
}

// Get returns a live session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	s, ok := r.sessions.Touch(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

func (r *Registry) Apply(id string, cmd Command) (parking.Snapshot, error) {
	s, err := r.Get(id)
	if err != nil {
		return parking.Snapshot{}, err
	}
	return s.Apply(cmd)
}

func (r *Registry) Delete(id string) error {
	if !r.sessions.Delete(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return nil
}

func (r *Registry) Len() int {
	return r.sessions.Size()
}

// Close closes every session and stops the expiry sweep.
func (r *Registry) Close() {
	r.sessions.Close()
}

func (r *Registry) evicted(id string, s *Session) {
	s.Close()
	r.opts.Metrics.SetActiveSessions(r.sessions.Size())
	r.logger.Debug("session closed", "session_id", id)
}
