package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/session"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "generates id", header: ""},
		{name: "keeps caller id", header: "req-123"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = logger.RequestID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			RequestIDMiddleware(next).ServeHTTP(w, req)

			if seen == "" {
				t.Fatal("request id missing from context")
			}
			if tc.header != "" && seen != tc.header {
				t.Errorf("request id = %q, want %q", seen, tc.header)
			}
			if got := w.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("response header = %q, want %q", got, seen)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	codec := securecookie.New([]byte("0123456789abcdef0123456789abcdef"), nil)
	otherCodec := securecookie.New([]byte("fedcba9876543210fedcba9876543210"), nil)

	manager := session.NewManager(time.Hour, func(ctx context.Context) (*session.Workspace, error) {
		return &session.Workspace{}, nil
	}, logger.NewTestLogger())
	sess, err := manager.Create(context.Background())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	valid, _ := codec.Encode("repair_desk_session", sess.ID)
	forged, _ := otherCodec.Encode("repair_desk_session", sess.ID)
	unknown, _ := codec.Encode("repair_desk_session", "no-such-session")

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
	}{
		{name: "no cookie", cookie: "", wantStatus: http.StatusUnauthorized},
		{name: "unsigned cookie", cookie: sess.ID, wantStatus: http.StatusUnauthorized},
		{name: "cookie signed with another key", cookie: forged, wantStatus: http.StatusUnauthorized},
		{name: "unknown session", cookie: unknown, wantStatus: http.StatusUnauthorized},
		{name: "valid session", cookie: valid, wantStatus: http.StatusOK},
	}

	mw := NewAuthMiddleware(manager, codec, "repair_desk_session", logger.NewTestLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := r.Context().Value(SessionKey).(*session.Session)
		if !ok || got.ID != sess.ID {
			t.Errorf("session missing from context")
		}
		w.WriteHeader(http.StatusOK)
	})

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "repair_desk_session", Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			mw.Handler(next).ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status code = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}
