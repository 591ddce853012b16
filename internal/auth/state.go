package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxPendingStates = 10000

// stateStore holds single-use OAuth state values until they expire.
type stateStore struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{ttl: ttl, pending: make(map[string]time.Time)}
}

// issue mints a state value. Expired entries are swept first so abandoned
// sign-ins cannot grow the map without bound.
func (s *stateStore) issue(now time.Time) string {
	state := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= maxPendingStates {
		s.sweepLocked(now)
	}
	s.pending[state] = now.Add(s.ttl)
	return state
}

// redeem reports whether state was issued and is still live. It is removed
// either way.
func (s *stateStore) redeem(state string, now time.Time) bool {
	s.mu.Lock()
	exp, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	return ok && now.Before(exp)
}

func (s *stateStore) sweepLocked(now time.Time) {
	for k, exp := range s.pending {
		if !now.Before(exp) {
			delete(s.pending, k)
		}
	}
}
