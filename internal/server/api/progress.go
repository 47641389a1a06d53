package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/isyarat/internal/quiz"
	"github.com/ayusman/isyarat/internal/store"
)

// ProgressHandler serves practice levels and their saved progress.
type ProgressHandler struct {
	store *store.Store
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(s *store.Store) *ProgressHandler {
	return &ProgressHandler{store: s}
}

type levelResponse struct {
	quiz.Level
	Completions int  `json:"completions"`
	Completed   bool `json:"completed"`
	Unlocked    bool `json:"unlocked"`
}

type listLevelsResponse struct {
	Levels []levelResponse `json:"levels"`
}

type completeResponse struct {
	Level    levelResponse `json:"level"`
	Unlocked string        `json:"unlocked,omitempty"`
}

// ServeHTTP routes:
//
//	GET    /api/progress                  all levels with progress
//	DELETE /api/progress                  reset
//	GET    /api/progress/{level}          one level
//	POST   /api/progress/{level}/complete record a completion
//	GET    /api/progress/{level}/questions draw the level's questions
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/progress")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodDelete:
			h.reset(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	level, ok := quiz.Find(parts[0])
	if !ok || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Level not found")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, level)
	case action == "complete" && r.Method == http.MethodPost:
		h.complete(w, r, level)
	case action == "questions" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"questions": level.Questions(nil)})
	case action == "" || action == "complete" || action == "questions":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ProgressHandler) level(l quiz.Level) (levelResponse, error) {
	p, err := h.store.Progress().Get(l.ID)
	if err != nil {
		return levelResponse{}, err
	}
	return levelResponse{
		Level:       l,
		Completions: p.Completions,
		Completed:   p.Completed,
		Unlocked:    p.Unlocked,
	}, nil
}

// list handles GET /api/progress.
func (h *ProgressHandler) list(w http.ResponseWriter, r *http.Request) {
	response := listLevelsResponse{}
	for _, l := range quiz.Levels() {
		lr, err := h.level(l)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load progress")
			return
		}
		response.Levels = append(response.Levels, lr)
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/progress/{level}.
func (h *ProgressHandler) get(w http.ResponseWriter, r *http.Request, l quiz.Level) {
	lr, err := h.level(l)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, lr)
}

// complete handles POST /api/progress/{level}/complete. The next level is
// unlocked.
func (h *ProgressHandler) complete(w http.ResponseWriter, r *http.Request, l quiz.Level) {
	current, err := h.store.Progress().Get(l.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	if !current.Unlocked {
		writeError(w, http.StatusConflict, "Level is locked")
		return
	}

	if err := h.store.Progress().Complete(l.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save progress")
		return
	}

	response := completeResponse{}
	if next, ok := quiz.Next(l.ID); ok {
		if err := h.store.Progress().Unlock(next); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to unlock next level")
			return
		}
		response.Unlocked = next
	}

	response.Level, err = h.level(l)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// reset handles DELETE /api/progress.
func (h *ProgressHandler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Progress().Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
