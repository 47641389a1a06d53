package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/isyarat/internal/gesture"
	"github.com/ayusman/isyarat/internal/store"
	"github.com/ayusman/isyarat/internal/validate"
)

// SignHandler handles HTTP requests for sign resources.
type SignHandler struct {
	store    *store.Store
	labels   *gesture.Labels
	reloader Reloader
}

// NewSignHandler creates a SignHandler. labels and reloader may be nil; with
// labels set, only labels in the table can be created.
func NewSignHandler(s *store.Store, labels *gesture.Labels, reloader Reloader) *SignHandler {
	return &SignHandler{store: s, labels: labels, reloader: reloader}
}

// ServeHTTP routes /api/signs and /api/signs/{id}.
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/signs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type signRequest struct {
	Label     string  `json:"label"`
	Tolerance float64 `json:"tolerance"`
}

type signResponse struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

func (h *SignHandler) toResponse(s *store.Sign) signResponse {
	hands, err := h.store.Signs().GetLandmarks(s.ID)
	if err != nil {
		log.Printf("Failed to load landmarks for %s: %v", s.Label, err)
	}
	return signResponse{
		ID:        s.ID,
		Label:     s.Label,
		Tolerance: s.Tolerance,
		Samples:   s.Samples,
		Trained:   len(hands) > 0,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

// list handles GET /api/signs.
func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, len(signs))}
	for _, s := range signs {
		response.Signs = append(response.Signs, h.toResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/signs/{id}.
func (h *SignHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sign, err := h.store.Signs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(sign))
}

// create handles POST /api/signs.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label := validate.Normalize(req.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}
	if h.labels != nil {
		if _, ok := h.labels.Index(label); !ok {
			writeError(w, http.StatusBadRequest, "Label is not in the label table")
			return
		}
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = gesture.DefaultTolerance
	}

	if _, err := h.store.Signs().GetByLabel(label); err == nil {
		writeError(w, http.StatusConflict, "Sign already exists")
		return
	}

	sign := &store.Sign{
		ID:        uuid.New().String(),
		Label:     label,
		Tolerance: tolerance,
	}
	if err := h.store.Signs().Create(sign); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(sign))
}

// update handles PUT /api/signs/{id}. Only the tolerance can change.
func (h *SignHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	sign, err := h.store.Signs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Label != "" && validate.Normalize(req.Label) != sign.Label {
		writeError(w, http.StatusBadRequest, "Label cannot be changed")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}
	if req.Tolerance != 0 {
		sign.Tolerance = req.Tolerance
	}

	if err := h.store.Signs().Update(sign); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update sign")
		return
	}
	h.reload()

	writeJSON(w, http.StatusOK, h.toResponse(sign))
}

// delete handles DELETE /api/signs/{id}.
func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Signs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sign")
		return
	}
	h.reload()

	w.WriteHeader(http.StatusNoContent)
}

func (h *SignHandler) reload() {
	if h.reloader == nil {
		return
	}
	if err := h.reloader.LoadSigns(); err != nil {
		log.Printf("Failed to reload signs: %v", err)
	}
}
