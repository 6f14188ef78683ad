package mw

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/switchyard/internal/metrics"
)

func passthrough(next http.Handler) http.Handler { return next }

// reject answers with the same JSON error shape as the handlers.
func reject(w http.ResponseWriter, status int, reason, msg string) {
	metrics.Rejected(reason)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
