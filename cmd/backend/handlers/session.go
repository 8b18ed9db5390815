package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/session"
	"golang.org/x/crypto/bcrypt"
)

// SessionHandler signs operators in and out.
type SessionHandler struct {
	sessionManager *session.Manager
	codec          *securecookie.SecureCookie
	cookieName     string
	cookieSecure   bool
	accessCodeHash []byte
	logger         logger.Logger
}

// NewSessionHandler creates a session handler. An empty accessCodeHash lets
// anyone start a session.
func NewSessionHandler(
	sessionManager *session.Manager,
	codec *securecookie.SecureCookie,
	cookieName string,
	cookieSecure bool,
	accessCodeHash string,
	log logger.Logger,
) *SessionHandler {
	h := &SessionHandler{
		sessionManager: sessionManager,
		codec:          codec,
		cookieName:     cookieName,
		cookieSecure:   cookieSecure,
		logger:         log,
	}
	if accessCodeHash != "" {
		h.accessCodeHash = []byte(accessCodeHash)
	}
	return h
}

// LoginRequest carries the optional shop access code.
type LoginRequest struct {
	AccessCode string `json:"access_code"`
}

// LoginResponse describes the new session.
type LoginResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login starts a session and builds its workspace.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if r.ContentLength != 0 {
		if err := parseJSON(r, &req, h.logger); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if h.accessCodeHash != nil {
		if err := bcrypt.CompareHashAndPassword(h.accessCodeHash, []byte(req.AccessCode)); err != nil {
			h.logger.Warn(r.Context(), "invalid access code attempt", map[string]interface{}{
				"remote_addr": r.RemoteAddr,
			})
			respondError(w, http.StatusUnauthorized, "invalid access code")
			return
		}
	}

	sess, err := h.sessionManager.Create(r.Context())
	if err != nil {
		respondJobError(w, r, err, "create session", h.logger)
		return
	}

	encoded, err := h.codec.Encode(h.cookieName, sess.ID)
	if err != nil {
		h.sessionManager.Delete(r.Context(), sess.ID)
		h.logger.Error(r.Context(), "failed to encode session cookie", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.setSessionCookie(w, encoded)

	respondJSON(w, http.StatusCreated, LoginResponse{SessionID: sess.ID, ExpiresAt: sess.ExpiresAt})
}

// Logout ends the session and tears its live subscription down.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		var sessionID string
		if h.codec.Decode(h.cookieName, cookie.Value, &sessionID) == nil {
			h.sessionManager.Delete(r.Context(), sessionID)
		}
	}

	h.clearSessionCookie(w)
	respondSuccess(w, "signed out")
}

// setSessionCookie sets a session cookie in the response.
func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie clears the session cookie.
func (h *SessionHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
