package session

import (
	"sync"
	"time"

	"github.com/codefionn/chatschnell/internal/logger"
)

// DefaultTTL is how long a session survives without activity.
const DefaultTTL = 24 * time.Hour

// Store is a conversation-partitioned session table with lazy expiry.
// Accessing an expired session yields a fresh one; absence is never an
// error.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	defaultDir string
}

// NewStore creates a session store. Sessions default to defaultDir as their
// working context. A non-positive ttl falls back to DefaultTTL.
func NewStore(defaultDir string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		defaultDir: defaultDir,
	}
}

// GetOrCreate returns the live session for a conversation, creating a fresh
// one if none exists or the stored one expired.
func (st *Store) GetOrCreate(conversationID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[conversationID]; ok {
		if time.Since(s.lastActivity()) < st.ttl {
			return s
		}
		logger.Debug("Session %s expired after inactivity, recreating", conversationID)
		delete(st.sessions, conversationID)
	}

	s := newSession(conversationID, st.defaultDir)
	st.sessions[conversationID] = s
	return s
}

// Sweep removes every expired session. Invoked periodically in addition to
// the lazy expiry on access.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if time.Since(s.lastActivity()) >= st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Debug("Session sweep removed %d expired sessions", removed)
	}
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
