package server

import (
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"docvault/internal/app"
	"docvault/pkg/storage"
	"docvault/pkg/store"
)

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	h := newTestServer(t)
	register(t, h, "user@example.com", "letmeinplease")

	rec := doJSON(t, h, http.MethodPost, "/api/v0/public/auth/profiles", "", map[string]string{
		"email": "user@example.com", "password": "otherpassword",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v0/public/auth/profiles", "", map[string]string{
		"email": "user@example.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/v0/public/auth/profiles", "", map[string]string{
		"password": "letmeinplease",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email: expected 400, got %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := newTestServer(t)
	register(t, h, "user@example.com", "letmeinplease")

	rec := doJSON(t, h, http.MethodPost, "/api/v0/public/auth/sessions", "", map[string]string{
		"email": "user@example.com", "password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/v0/protected/documents", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/v0/protected/documents", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: expected 401, got %d", rec.Code)
	}
}

func TestDeleteSessionOwnership(t *testing.T) {
	h := newTestServer(t)
	register(t, h, "alice@example.com", "letmeinplease")
	register(t, h, "bob@example.com", "differentpass")
	aliceSession, aliceToken := login(t, h, "alice@example.com", "letmeinplease")
	_, bobToken := login(t, h, "bob@example.com", "differentpass")

	// another user's token cannot revoke the session
	rec := doJSON(t, h, http.MethodDelete, "/api/v0/protected/auth/sessions/"+aliceSession, bobToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/v0/protected/auth/sessions/"+aliceSession, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own token: expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	// the revoked token no longer works anywhere
	rec = doJSON(t, h, http.MethodGet, "/api/v0/protected/documents", aliceToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401, got %d", rec.Code)
	}

	// deleting an unknown session is 404
	rec = doJSON(t, h, http.MethodDelete, "/api/v0/protected/auth/sessions/no-such-session", bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", rec.Code)
	}
}

func TestSignupRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	a, err := app.New(app.Config{
		Store:    store.NewMemoryStore(),
		Sessions: store.NewRedisSessionStore(mr.Addr(), "", 0),
		Objects:  storage.NewMemoryObjectStore(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{
		App:                      a,
		RedisAddr:                mr.Addr(),
		SignupRateLimitPerMinute: 2,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h := srv.Router()

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/v0/public/auth/profiles", "", map[string]string{
			"email": "u@example.com", "password": "letmeinplease",
		})
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited too early", i+1)
		}
	}
	rec := doJSON(t, h, http.MethodPost, "/api/v0/public/auth/profiles", "", map[string]string{
		"email": "v@example.com", "password": "letmeinplease",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}
