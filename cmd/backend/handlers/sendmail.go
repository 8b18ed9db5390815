package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/notify"
)

// SendEmailErrorResponse carries the mail server's complaint.
type SendEmailErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SendEmailHandler is the server-side email endpoint the notifier posts to.
// Callers present either the shared notify key or a live session cookie.
type SendEmailHandler struct {
	mailer notify.Mailer
	apiKey string
	auth   *AuthMiddleware
	logger logger.Logger
}

// NewSendEmailHandler creates the send-email endpoint. An empty apiKey
// leaves session cookies as the only way in.
func NewSendEmailHandler(mailer notify.Mailer, apiKey string, auth *AuthMiddleware, log logger.Logger) *SendEmailHandler {
	return &SendEmailHandler{mailer: mailer, apiKey: apiKey, auth: auth, logger: log}
}

func (h *SendEmailHandler) authorized(r *http.Request) bool {
	if key := r.Header.Get(notify.APIKeyHeader); key != "" && h.apiKey != "" {
		return subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) == 1
	}
	if h.auth == nil {
		return false
	}
	sess, _ := h.auth.Lookup(r)
	return sess != nil
}

// ServeHTTP accepts POST {to, subject, text} and relays it over SMTP.
func (h *SendEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	if !h.authorized(r) {
		h.logger.Warn(r.Context(), "unauthorized send-email request", map[string]interface{}{
			"remote_addr": r.RemoteAddr,
		})
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var msg notify.Message
	if err := parseJSON(r, &msg, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg.To = strings.TrimSpace(msg.To)
	if msg.To == "" {
		respondError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	msg.Text = notify.NormalizeText(msg.Text)

	if err := h.mailer.Send(r.Context(), msg); err != nil {
		if errors.Is(err, notify.ErrMissingCredentials) {
			h.logger.Error(r.Context(), "email credentials not configured", nil)
			respondError(w, http.StatusInternalServerError, "Missing email credentials")
			return
		}
		h.logger.Error(r.Context(), "failed to send email", map[string]interface{}{
			"to":    msg.To,
			"error": err.Error(),
		})
		respondJSON(w, http.StatusInternalServerError, SendEmailErrorResponse{
			Error:   "Failed to send email",
			Details: err.Error(),
		})
		return
	}

	h.logger.Info(r.Context(), "email sent", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	respondSuccess(w, "Email sent successfully")
}
