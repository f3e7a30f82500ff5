package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionStore issues and validates short-lived admin login tokens.
// Tokens are random UUIDs held in memory; a restart invalidates them all.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]time.Time
	now      func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Create issues a new token and its expiry time.
func (s *sessionStore) Create() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge()
	token := uuid.NewString()
	expires := s.now().Add(s.ttl)
	s.sessions[token] = expires
	return token, expires
}

// Valid reports whether token is a live session.
func (s *sessionStore) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Revoke drops a token.
func (s *sessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// purge drops expired tokens. Caller holds the lock.
func (s *sessionStore) purge() {
	now := s.now()
	for token, expires := range s.sessions {
		if now.After(expires) {
			delete(s.sessions, token)
		}
	}
}
