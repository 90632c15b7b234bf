package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. The message is shown to end users and must not enable account
	// enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyRegistered   = errors.New("email already registered")

	ErrSessionNotFound = errors.New("session not found")
	// ErrNotSessionOwner is returned when the requesting token does not own
	// the session it is trying to delete.
	ErrNotSessionOwner = errors.New("token does not own session")

	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameRequired = errors.New("username query required")

	ErrDocumentNotFound = errors.New("document not found")
	// ErrNoDocuments models an owner with zero documents as absence rather
	// than an empty collection; the HTTP layer maps it to 404.
	ErrNoDocuments = errors.New("no documents for owner")

	ErrTitleRequired = errors.New("title required")

	// ErrForbidden is returned when an authenticated caller is not entitled
	// to the resource it addressed.
	ErrForbidden = errors.New("forbidden")
)
