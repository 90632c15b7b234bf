package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"docvault/internal/app"
	"docvault/internal/ratelimit"
	"docvault/internal/util"
	"docvault/pkg/auth"
	"docvault/pkg/domain"
)

const basePath = "/api/v0"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// RedisAddr enables fixed-window rate limiting of the public auth
	// routes; leave empty to disable limiting (local memory driver).
	RedisAddr                 string
	RedisPassword             string
	SignupRateLimitPerMinute  int
	SessionRateLimitPerMinute int

	MaxContentBytes int64
}

// Server exposes the HTTP endpoints.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	maxContentBytes int64
	signupLimiter   *ratelimit.FixedWindowLimiter
	sessionLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		maxContentBytes: normalizeMaxBytes(cfg.MaxContentBytes),
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		signupLimit := cfg.SignupRateLimitPerMinute
		if signupLimit <= 0 {
			signupLimit = 10
		}
		sessionLimit := cfg.SessionRateLimitPerMinute
		if sessionLimit <= 0 {
			sessionLimit = 20
		}
		newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
			prefix := "docvault:ratelimit:" + name
			limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			return limiter, nil
		}
		var err error
		if s.signupLimiter, err = newLimiter("signup", signupLimit); err != nil {
			return nil, err
		}
		if s.sessionLimiter, err = newLimiter("session", sessionLimit); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with ambient middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// public
	s.mux.HandleFunc(basePath+"/public/auth/profiles", s.handleCreateProfile)
	s.mux.HandleFunc(basePath+"/public/auth/sessions", s.handleCreateSession)
	s.mux.HandleFunc(basePath+"/public/users", s.handleSearchUsers)
	s.mux.HandleFunc(basePath+"/public/users/", s.handleGetProfile)

	// protected
	s.mux.Handle(basePath+"/protected/auth/sessions/", s.authenticated(s.handleDeleteSession))
	s.mux.Handle(basePath+"/protected/users/", s.authenticated(s.handleUpdateProfile))
	s.mux.Handle(basePath+"/protected/documents", s.authenticated(s.handleDocuments))
	s.mux.Handle(basePath+"/protected/documents/", s.authenticated(s.handleDocumentContent))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			s.audit(r, "authorize", "fail", "reason", "unknown_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// public auth handlers

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many registration attempts") {
		s.audit(r, "signup", "rate_limited")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.CreateProfile(req.Email, req.Password)
	if err != nil {
		s.audit(r, "signup", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, createProfileResponse{UserID: user.ID})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.sessionLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.app.CreateSession(req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "login", "success", "user_id", sess.UserID)
	writeJSON(w, http.StatusOK, createSessionResponse{SessionID: sess.ID, AuthToken: sess.Token})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, basePath+"/protected/auth/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.NotFound(w, r)
		return
	}
	// The middleware already validated the token; ownership of this
	// particular session is checked against the same token.
	token, _ := bearerToken(r)
	if err := s.app.DeleteSession(sessionID, token); err != nil {
		s.audit(r, "logout", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "logout", "success", "session_id", sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// profile handlers

// GET /public/users/{userId}/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID, ok := profilePathUserID(r.URL.Path, basePath+"/public/users/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	user, err := s.app.GetProfile(userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// PATCH /protected/users/{userId}/profile
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	userID, ok := profilePathUserID(r.URL.Path, basePath+"/protected/users/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var upd app.ProfileUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.app.UpdateProfile(user, userID, upd)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GET /public/users?username=...
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.SearchProfiles(r.URL.Query().Get("username"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// document handlers

// GET or POST /protected/documents
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		var req createDocumentRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		doc, err := s.app.CreateDocument(user, req.Title, req.Subject)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, createDocumentResponse{DocumentID: doc.ID})
	case http.MethodGet:
		docs, err := s.app.ListDocuments(user, r.URL.Query().Get("owner_id"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	default:
		methodNotAllowed(w)
	}
}

// GET or PATCH /protected/documents/{id}/content
func (s *Server) handleDocumentContent(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, basePath+"/protected/documents/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" || len(parts) != 2 || parts[1] != "content" {
		http.NotFound(w, r)
		return
	}
	documentID := parts[0]

	switch r.Method {
	case http.MethodGet:
		data, err := s.app.GetContent(user, documentID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case http.MethodPatch:
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxContentBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "content too large")
			return
		}
		if err := s.app.ReplaceContent(user, documentID, data); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		methodNotAllowed(w)
	}
}

// request/response bodies

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createProfileResponse struct {
	UserID string `json:"userId"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	AuthToken string `json:"authToken"`
}

type createDocumentRequest struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

type createDocumentResponse struct {
	DocumentID string `json:"documentId"`
}

// helpers

// profilePathUserID extracts {userId} from "<prefix>{userId}/profile".
func profilePathUserID(path, prefix string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" || len(parts) != 2 || parts[1] != "profile" {
		return "", false
	}
	return parts[0], true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps the application error taxonomy onto HTTP statuses.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrNotSessionOwner):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrDocumentNotFound),
		errors.Is(err, app.ErrNoDocuments):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmailAndPasswordRequired),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, app.ErrUsernameRequired),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", clientIP(r),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 50 * 1024 * 1024
	}
	return value
}
