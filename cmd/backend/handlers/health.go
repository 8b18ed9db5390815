package handlers

import (
	"net/http"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status          string `json:"status"`
	LiveSubscribers int    `json:"live_subscribers"`
}

// SubscriberCounter reports how many live subscriptions are open.
type SubscriberCounter interface {
	Len() int
}

// NewHealthHandler reports liveness along with the open subscription count.
func NewHealthHandler(feed SubscriberCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy"}
		if feed != nil {
			resp.LiveSubscribers = feed.Len()
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
