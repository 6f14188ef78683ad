package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

type refreshResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Refresh asks the loop for an immediate cycle. At most one request is
// queued; further ones get 429 until the loop picks it up.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Refresh == nil || !d.Refresh() {
			d.Logger.Warn("refresh already pending", logger.String("remote_addr", r.RemoteAddr))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, refreshResponse{Message: "refresh already pending"})
			return
		}

		d.Logger.Info("refresh requested", logger.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, refreshResponse{Triggered: true, Message: "refresh queued"})
	}
}
