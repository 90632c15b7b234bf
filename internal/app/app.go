package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/util"
	"docvault/pkg/auth"
	"docvault/pkg/domain"
	"docvault/pkg/storage"
	"docvault/pkg/store"
)

const contentType = "application/octet-stream"

// Config holds runtime configuration for the core application.
// Store, Sessions and Objects may be injected directly (tests, memory driver);
// otherwise they are built from the connection settings.
type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	Store    store.Store
	Sessions store.SessionStore
	Objects  storage.ObjectStore
}

// App is the core application service wiring together storage, sessions and
// document content.
type App struct {
	store    store.Store
	sessions store.SessionStore
	objects  storage.ObjectStore
}

// New constructs the application with database-backed metadata storage,
// Redis sessions and MinIO content storage.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redis addr required for session store")
		}
		sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
	}

	objectStore := cfg.Objects
	if objectStore == nil {
		var err error
		objectStore, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
		objects:  objectStore,
	}, nil
}

// CreateProfile registers a new account. Email uniqueness is enforced
// atomically by the store.
func (a *App) CreateProfile(email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, ErrEmailAndPasswordRequired
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.User{}, ErrEmailAlreadyRegistered
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// CreateSession verifies credentials and issues a session with a fresh
// bearer token.
func (a *App) CreateSession(email, password string) (domain.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.Session{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.Session{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.Session{}, ErrInvalidCredentials
	}
	sess := domain.Session{
		ID:        util.NewID(),
		UserID:    user.ID,
		Token:     util.NewToken(),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.sessions.NewSession(sess); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// UserFromToken resolves a bearer token to the owning user.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	sess, ok, err := a.sessions.GetSessionByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(sess.UserID)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// DeleteSession revokes a session. The requesting token must be the one the
// session was issued with; afterwards that token no longer resolves.
func (a *App) DeleteSession(sessionID, requestingToken string) error {
	sess, ok, err := a.sessions.GetSessionByID(sessionID)
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Token != requestingToken {
		return ErrNotSessionOwner
	}
	if err := a.sessions.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetProfile returns a user's profile by ID.
func (a *App) GetProfile(userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// ProfileUpdate carries a sparse profile change; nil fields keep their
// prior values.
type ProfileUpdate struct {
	Username    *string `json:"username"`
	FullName    *string `json:"fullName"`
	DateOfBirth *string `json:"dateOfBirth"`
}

// UpdateProfile applies a sparse update to the caller's own profile.
func (a *App) UpdateProfile(caller domain.User, userID string, upd ProfileUpdate) (domain.User, error) {
	if caller.ID != userID {
		return domain.User{}, ErrForbidden
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.FullName != nil {
		user.FullName = *upd.FullName
	}
	if upd.DateOfBirth != nil {
		user.DateOfBirth = *upd.DateOfBirth
	}
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// SearchProfiles returns users whose username matches the query exactly.
// Updates are visible immediately; there is no consistency window.
func (a *App) SearchProfiles(username string) ([]domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	users, err := a.store.FindUsersByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// CreateDocument records document metadata for the caller and initializes its
// content to zero bytes.
func (a *App) CreateDocument(owner domain.User, title, subject string) (domain.Document, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Document{}, ErrTitleRequired
	}
	now := time.Now().UTC()
	doc := domain.Document{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Title:     title,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.objects.Put(context.Background(), contentKey(doc.ID), nil, contentType); err != nil {
		return domain.Document{}, fmt.Errorf("init content: %w", err)
	}
	if err := a.store.SaveDocument(doc); err != nil {
		_ = a.objects.Delete(context.Background(), contentKey(doc.ID))
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the owner's documents. An owner with zero documents
// is reported as ErrNoDocuments, and callers may only list their own.
func (a *App) ListDocuments(caller domain.User, ownerID string) ([]domain.Document, error) {
	if ownerID == "" {
		ownerID = caller.ID
	}
	if ownerID != caller.ID {
		return nil, ErrForbidden
	}
	docs, err := a.store.ListDocumentsByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return docs, nil
}

// GetContent reads a document's bytes; empty until the first replace.
func (a *App) GetContent(caller domain.User, documentID string) ([]byte, error) {
	doc, err := a.ownedDocument(caller, documentID)
	if err != nil {
		return nil, err
	}
	data, err := a.objects.Get(context.Background(), contentKey(doc.ID))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}

// ReplaceContent fully overwrites a document's bytes and records the new size.
func (a *App) ReplaceContent(caller domain.User, documentID string, data []byte) error {
	doc, err := a.ownedDocument(caller, documentID)
	if err != nil {
		return err
	}
	if err := a.objects.Put(context.Background(), contentKey(doc.ID), data, contentType); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	doc.SizeBytes = int64(len(data))
	doc.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveDocument(doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (a *App) ownedDocument(caller domain.User, documentID string) (domain.Document, error) {
	doc, ok, err := a.store.GetDocument(documentID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("fetch document: %w", err)
	}
	if !ok {
		return domain.Document{}, ErrDocumentNotFound
	}
	if doc.OwnerID != caller.ID {
		return domain.Document{}, ErrForbidden
	}
	return doc, nil
}

func contentKey(documentID string) string {
	return "documents/" + documentID + "/content"
}
