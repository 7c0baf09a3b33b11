package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/handscribe/internal/export"
)

// Store holds the live sessions of a process, keyed by id.
type Store struct {
	deps Deps
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewStore creates sessions from deps. Sessions idle for longer than ttl are
// removed by Sweep; ttl <= 0 keeps them until Close.
func NewStore(deps Deps, ttl time.Duration) *Store {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Previews == nil {
		deps.Previews = NewMemoryPreviews()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(context.Background(), nil, deps.Logger)
	}
	return &Store{deps: deps, ttl: ttl, sessions: make(map[string]*Controller)}
}

func (s *Store) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	return c, ok
}

// Create starts a new session with a fresh id.
func (s *Store) Create() *Controller {
	id := uuid.NewString()
	c := NewController(id, s.deps)
	s.mu.Lock()
	s.sessions[id] = c
	s.mu.Unlock()
	s.deps.Logger.Info("session.create", "session_id", id)
	return c
}

// GetOrCreate returns the session for id, creating one when id is unknown.
// created reports whether the caller must hand out the new id.
func (s *Store) GetOrCreate(id string) (c *Controller, created bool) {
	if id != "" {
		if c, ok := s.Get(id); ok {
			return c, false
		}
	}
	return s.Create(), true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and drops sessions idle since before now-ttl. Sessions with an
// extraction in flight are kept. It returns the number removed.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*Controller
	for id, c := range s.sessions {
		if c.LastActive().Before(cutoff) && !c.busy() {
			expired = append(expired, c)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		s.deps.Logger.Info("session.sweep", "removed", len(expired), "live", s.Len())
	}
	return len(expired)
}

// Run sweeps every interval until ctx ends.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.deps.Now())
		}
	}
}

// Close releases every session.
func (s *Store) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Controller)
	s.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}
