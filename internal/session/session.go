// Package session keeps per-user state between HTTP calls: the FIRMS API key,
// the last query and the last result. A session runs at most one fetch at a
// time; starting a new one cancels the previous (last request wins).
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Session is the state owned by one user.
type Session struct {
	ID string

	apiKey string

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelCauseFunc
	lastQuery  *domain.QueryRequest
	lastResult *domain.FetchResult
	lastUsed   time.Time
	clock      clockwork.Clock
}

// APIKey returns the FIRMS key bound to the session.
func (s *Session) APIKey() string {
	return s.apiKey
}

// Begin starts a new fetch generation. Any fetch still in flight is
// cancelled with domain.ErrSuperseded as its cause. The returned context must
// be used for the fetch and the generation passed to Commit.
func (s *Session) Begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel(domain.ErrSuperseded)
	}
	s.generation++
	fetchCtx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel
	s.lastUsed = s.clock.Now()
	return fetchCtx, s.generation
}

// Commit records the outcome of generation gen. It returns
// domain.ErrSuperseded without touching the session if a newer fetch began
// in the meantime. A nil result keeps the previous one.
func (s *Session) Commit(gen uint64, req domain.QueryRequest, result *domain.FetchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return domain.ErrSuperseded
	}
	if s.cancel != nil {
		s.cancel(nil)
		s.cancel = nil
	}
	req.APIKey = ""
	s.lastQuery = &req
	if result != nil {
		r := *result
		r.Query.APIKey = ""
		s.lastResult = &r
	}
	s.lastUsed = s.clock.Now()
	return nil
}

// Abandon releases generation gen after a failed fetch without recording
// anything.
func (s *Session) Abandon(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen == s.generation && s.cancel != nil {
		s.cancel(nil)
		s.cancel = nil
	}
}

// Last returns the most recent committed result.
func (s *Session) Last() (domain.FetchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = s.clock.Now()
	if s.lastResult == nil {
		return domain.FetchResult{}, false
	}
	return *s.lastResult, true
}

// LastQuery returns the most recent committed query, without its key.
func (s *Session) LastQuery() (domain.QueryRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastQuery == nil {
		return domain.QueryRequest{}, false
	}
	return *s.lastQuery, true
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel(context.Canceled)
		s.cancel = nil
	}
	s.generation++
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Store holds live sessions.
type Store struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a Store whose sessions expire after ttl of inactivity.
// A nil clock uses real time.
func NewStore(ttl time.Duration, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session bound to apiKey.
func (st *Store) Create(apiKey string) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		apiKey:   apiKey,
		lastUsed: st.clock.Now(),
		clock:    st.clock,
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok || st.expired(s) {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes a session and cancels its in-flight fetch.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.close()
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if st.expired(s) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done. onSweep, if
// set, is called with the live session count after each sweep.
func (st *Store) Run(ctx context.Context, interval time.Duration, onSweep func(live int)) {
	ticker := st.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			st.Sweep()
			if onSweep != nil {
				onSweep(st.Len())
			}
		}
	}
}

func (st *Store) expired(s *Session) bool {
	return st.ttl > 0 && st.clock.Since(s.idleSince()) >= st.ttl
}
