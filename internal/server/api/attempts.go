package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/isyarat/internal/store"
)

// AttemptsHandler serves the attempt log of practice sessions.
type AttemptsHandler struct {
	store *store.Store
}

// NewAttemptsHandler creates an AttemptsHandler.
func NewAttemptsHandler(s *store.Store) *AttemptsHandler {
	return &AttemptsHandler{store: s}
}

type attemptsResponse struct {
	SessionID string             `json:"session_id"`
	Stats     store.AttemptStats `json:"stats"`
	Attempts  []*store.Attempt   `json:"attempts"`
}

// ServeHTTP handles GET /api/sessions/{id}/attempts.
func (h *AttemptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "attempts" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := parts[0]
	attempts, err := h.store.Attempts().ListBySession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attempts")
		return
	}
	stats, err := h.store.Attempts().Stats(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	if attempts == nil {
		attempts = []*store.Attempt{}
	}

	writeJSON(w, http.StatusOK, attemptsResponse{
		SessionID: sessionID,
		Stats:     stats,
		Attempts:  attempts,
	})
}
