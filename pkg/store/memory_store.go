package store

import (
	"sync"

	"docvault/pkg/domain"
)

// MemoryStore keeps users and document metadata in-process. Suited to local
// development and tests; a single RWMutex guards all maps so the uniqueness
// check and insert in CreateUser are atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User     // key: user ID
	email     map[string]string          // email -> user ID
	userOrder []string                   // user IDs in registration order
	docs      map[string]domain.Document // key: document ID
	docOrder  []string                   // document IDs in creation order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		email: make(map[string]string),
		docs:  make(map[string]domain.Document),
	}
}

// CreateUser registers a user, rejecting duplicate emails.
func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.email[u.Email]; taken {
		return ErrDuplicateEmail
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	m.userOrder = append(m.userOrder, u.ID)
	return nil
}

// SaveUser replaces an existing user record.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// FindUsersByUsername returns users whose username matches exactly,
// in registration order.
func (m *MemoryStore) FindUsersByUsername(username string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0)
	for _, id := range m.userOrder {
		if u, ok := m.users[id]; ok && u.Username == username {
			res = append(res, u)
		}
	}
	return res, nil
}

// SaveDocument stores or replaces a document record.
func (m *MemoryStore) SaveDocument(d domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[d.ID]; !exists {
		m.docOrder = append(m.docOrder, d.ID)
	}
	m.docs[d.ID] = d
	return nil
}

// GetDocument retrieves a document by ID.
func (m *MemoryStore) GetDocument(id string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	return d, ok, nil
}

// ListDocumentsByOwner returns documents filtered by owner in creation order.
func (m *MemoryStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Document, 0)
	for _, id := range m.docOrder {
		if d, ok := m.docs[id]; ok && d.OwnerID == ownerID {
			res = append(res, d)
		}
	}
	return res, nil
}
