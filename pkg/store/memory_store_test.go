package store

import (
	"errors"
	"testing"
	"time"

	"docvault/pkg/domain"
)

func testUser(id, email string) domain.User {
	now := time.Now().UTC()
	return domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateUser(testUser("u1", "a@example.com")); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.CreateUser(testUser("u2", "a@example.com"))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestMemoryStoreUserLookup(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateUser(testUser("u1", "a@example.com")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	user, ok, err := s.GetUserByEmail("a@example.com")
	if err != nil || !ok {
		t.Fatalf("lookup by email: ok=%v err=%v", ok, err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected u1, got %s", user.ID)
	}

	if _, ok, _ := s.GetUserByID("missing"); ok {
		t.Fatal("expected missing user to not be found")
	}
}

func TestMemoryStoreUsernameSearchAfterUpdate(t *testing.T) {
	s := NewMemoryStore()
	u := testUser("u1", "a@example.com")
	if err := s.CreateUser(u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	users, err := s.FindUsersByUsername("alice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no matches before update, got %d", len(users))
	}

	u.Username = "alice"
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}

	users, err = s.FindUsersByUsername("alice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("expected exactly u1, got %+v", users)
	}

	// exact match only
	users, _ = s.FindUsersByUsername("ali")
	if len(users) != 0 {
		t.Fatalf("prefix must not match, got %d users", len(users))
	}
}

func TestMemoryStoreDocumentsByOwner(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	docs := []domain.Document{
		{ID: "d1", OwnerID: "u1", Title: "first", CreatedAt: now, UpdatedAt: now},
		{ID: "d2", OwnerID: "u2", Title: "other", CreatedAt: now, UpdatedAt: now},
		{ID: "d3", OwnerID: "u1", Title: "second", CreatedAt: now, UpdatedAt: now},
	}
	for _, d := range docs {
		if err := s.SaveDocument(d); err != nil {
			t.Fatalf("save document %s: %v", d.ID, err)
		}
	}

	owned, err := s.ListDocumentsByOwner("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 documents for u1, got %d", len(owned))
	}
	if owned[0].ID != "d1" || owned[1].ID != "d3" {
		t.Fatalf("expected insertion order d1,d3, got %s,%s", owned[0].ID, owned[1].ID)
	}

	empty, err := s.ListDocumentsByOwner("nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %d", len(empty))
	}
}

func TestMemoryStoreSaveDocumentUpdatesInPlace(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	doc := domain.Document{ID: "d1", OwnerID: "u1", Title: "first", CreatedAt: now, UpdatedAt: now}
	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc.SizeBytes = 42
	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("save update: %v", err)
	}
	got, ok, err := s.GetDocument("d1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.SizeBytes != 42 {
		t.Fatalf("expected size 42, got %d", got.SizeBytes)
	}
	owned, _ := s.ListDocumentsByOwner("u1")
	if len(owned) != 1 {
		t.Fatalf("update must not duplicate the document, got %d", len(owned))
	}
}
