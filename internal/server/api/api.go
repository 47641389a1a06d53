// Package api provides the HTTP handlers for signs, training samples, level
// progress and attempt history.
package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Reloader rebuilds the live classifier after sign templates change.
type Reloader interface {
	LoadSigns() error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
