package store

import (
	"sync"

	"docvault/pkg/domain"
)

// MemorySessionStore keeps sessions in-memory (single instance only).
type MemorySessionStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Session
	byToken map[string]string // token -> session ID
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byID:    make(map[string]domain.Session),
		byToken: make(map[string]string),
	}
}

// NewSession records a session under both its ID and its token.
func (s *MemorySessionStore) NewSession(sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = sess
	s.byToken[sess.Token] = sess.ID
	return nil
}

// GetSessionByToken resolves a bearer token to its session record.
func (s *MemorySessionStore) GetSessionByToken(token string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return domain.Session{}, false, nil
	}
	sess, ok := s.byID[id]
	return sess, ok, nil
}

// GetSessionByID returns a session record by ID.
func (s *MemorySessionStore) GetSessionByID(id string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok, nil
}

// DeleteSession removes the session and its token mapping together.
func (s *MemorySessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byToken, sess.Token)
	return nil
}
