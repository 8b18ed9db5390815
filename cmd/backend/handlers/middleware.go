package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/session"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// SessionKey is the context key for the authenticated session.
const SessionKey ContextKey = "session"

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an id that the logger picks up.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// AuthMiddleware resolves the signed session cookie to a live session.
type AuthMiddleware struct {
	sessionManager *session.Manager
	codec          *securecookie.SecureCookie
	cookieName     string
	logger         logger.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(sessionManager *session.Manager, codec *securecookie.SecureCookie, cookieName string, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessionManager: sessionManager,
		codec:          codec,
		cookieName:     cookieName,
		logger:         log,
	}
}

// Handler wraps an HTTP handler with authentication.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, reason := m.Lookup(r)
		if sess == nil {
			respondError(w, http.StatusUnauthorized, reason)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Lookup resolves the request's session cookie. On failure it returns nil
// and the message to send back with the 401.
func (m *AuthMiddleware) Lookup(r *http.Request) (*session.Session, string) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		m.logger.Warn(r.Context(), "missing session cookie", map[string]interface{}{
			"path": r.URL.Path,
		})
		return nil, "authentication required"
	}

	var sessionID string
	if err := m.codec.Decode(m.cookieName, cookie.Value, &sessionID); err != nil {
		m.logger.Warn(r.Context(), "invalid session cookie", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, "invalid session"
	}

	sess, err := m.sessionManager.Get(sessionID)
	if err != nil {
		m.logger.Warn(r.Context(), "invalid or expired session", map[string]interface{}{
			"error":      err.Error(),
			"session_id": sessionID,
		})
		return nil, "invalid or expired session"
	}
	return sess, ""
}

// GetSession extracts the session from the request context.
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*session.Session)
	return sess, ok && sess.Workspace != nil
}

// workspaceOrRespond returns the caller's workspace or writes a 401.
func workspaceOrRespond(w http.ResponseWriter, r *http.Request) (*session.Workspace, bool) {
	sess, ok := GetSession(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return sess.Workspace, true
}
