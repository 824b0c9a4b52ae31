package workflow

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// DefaultSessionTTL is how long a paused run waits for a resume before it
// expires.
const DefaultSessionTTL = 30 * time.Minute

// Sessions stores paused workflow runs keyed by session ID. Expired
// sessions are evicted in the background; resuming one yields
// ErrSessionNotFound.
type Sessions struct {
	store *cache.Cache
}

// NewSessions creates a session store with the given TTL. A zero or
// negative TTL falls back to DefaultSessionTTL.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{store: cache.New(ttl, ttl/2)}
}

// Put stores the state under a fresh session ID and returns the ID.
func (s *Sessions) Put(state *State) string {
	id := uuid.NewString()
	s.store.SetDefault(id, state)
	return id
}

// Update re-stores the state under an existing ID, resetting its TTL.
func (s *Sessions) Update(id string, state *State) {
	s.store.SetDefault(id, state)
}

// Get returns the state for the given ID, or ErrSessionNotFound.
func (s *Sessions) Get(id string) (*State, error) {
	v, ok := s.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*State), nil
}

// Delete removes the session. Deleting an unknown ID is a no-op.
func (s *Sessions) Delete(id string) {
	s.store.Delete(id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.store.ItemCount()
}
