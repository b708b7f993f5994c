package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cozil/cozil-backend/internal/models"
)

// Session is the server-side state behind a session cookie.
type Session struct {
	ID        string
	User      models.UserContext
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore keeps sessions in process memory; they do not survive a restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session holding a copy of the user identity.
func (s *SessionStore) Create(user models.UserContext) *Session {
	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns a live session. Expired sessions are dropped on access.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !s.now().Before(session.ExpiresAt) {
		s.Delete(id)
		return nil, false
	}
	return session, true
}

// Delete destroys a session. Unknown IDs are ignored.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
