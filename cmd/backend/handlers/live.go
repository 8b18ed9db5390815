package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/view"
)

const liveWriteTimeout = 10 * time.Second

// LiveUpdate is one websocket frame.
type LiveUpdate struct {
	Jobs  []*job.Job `json:"jobs"`
	Stats view.Stats `json:"stats"`
}

// LiveHandler pushes the job list to websocket clients after every change.
// Each connection holds its own subscription for as long as it stays open.
type LiveHandler struct {
	jobStore job.Store
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewLiveHandler creates a live feed handler. Browsers may only connect
// from one of allowedOrigins; clients that send no Origin header are let in.
func NewLiveHandler(jobStore job.Store, allowedOrigins []string, log logger.Logger) *LiveHandler {
	originAllowed := OriginAllowed(allowedOrigins)
	return &LiveHandler{
		jobStore: jobStore,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origin)
			},
		},
		logger: log,
	}
}

// OriginAllowed matches an Origin header against the configured list.
// Session cookies ride on every allowed request, so "*" is never honoured.
func OriginAllowed(allowedOrigins []string) func(origin string) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin != "*" {
			allowed[strings.TrimRight(origin, "/")] = true
		}
	}
	return func(origin string) bool {
		return allowed[origin]
	}
}

// ServeHTTP upgrades the connection and streams snapshots until the client
// goes away.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	ctx := r.Context()
	unsubscribe, err := h.jobStore.Subscribe(ctx, func(jobs []*job.Job) {
		conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(LiveUpdate{Jobs: jobs, Stats: view.ComputeStats(jobs)}); err != nil {
			h.logger.Warn(ctx, "failed to send live update", map[string]interface{}{
				"error": err.Error(),
			})
			conn.Close()
		}
	})
	if err != nil {
		h.logger.Error(ctx, "failed to subscribe live client", map[string]interface{}{
			"error": err.Error(),
		})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "job store unavailable"))
		return
	}
	defer unsubscribe()

	h.logger.Info(ctx, "live client connected", map[string]interface{}{
		"remote_addr": r.RemoteAddr,
	})

	// Clients send nothing meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.logger.Info(ctx, "live client disconnected", map[string]interface{}{
		"remote_addr": r.RemoteAddr,
	})
}
