package domain

import "time"

// User is a registered account and its public profile fields.
// The password hash never leaves the service.
type User struct {
	ID           string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	DateOfBirth  string    `json:"dateOfBirth"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session binds a bearer token to a user. Token and session are 1:1 for the
// session's lifetime; deleting the session invalidates the token immediately.
type Session struct {
	ID        string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Token     string    `json:"authToken"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document is owner-scoped metadata; the content bytes live in object storage.
type Document struct {
	ID        string    `json:"documentId"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
