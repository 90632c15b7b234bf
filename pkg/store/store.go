package store

import (
	"errors"

	"docvault/pkg/domain"
)

// ErrDuplicateEmail is returned by CreateUser when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// Store defines persistence operations for users and document metadata.
type Store interface {
	// users
	CreateUser(domain.User) error
	SaveUser(domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	FindUsersByUsername(username string) ([]domain.User, error)

	// documents
	SaveDocument(domain.Document) error
	GetDocument(id string) (domain.Document, bool, error)
	ListDocumentsByOwner(ownerID string) ([]domain.Document, error)
}

// SessionStore persists session records. A record is addressable both by its
// ID (for deletion) and by its bearer token (for request authorization).
type SessionStore interface {
	NewSession(domain.Session) error
	GetSessionByToken(token string) (domain.Session, bool, error)
	GetSessionByID(id string) (domain.Session, bool, error)
	DeleteSession(id string) error
}
