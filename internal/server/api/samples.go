package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/isyarat/internal/gesture"
	"github.com/ayusman/isyarat/internal/store"
)

// SamplesHandler handles recorded samples and training for a sign.
type SamplesHandler struct {
	store    *store.Store
	trainer  *gesture.Trainer
	reloader Reloader
}

// NewSamplesHandler creates a SamplesHandler. reloader may be nil.
func NewSamplesHandler(s *store.Store, reloader Reloader) *SamplesHandler {
	return &SamplesHandler{store: s, trainer: gesture.NewTrainer(), reloader: reloader}
}

// ServeHTTP routes /api/signs/{id}/samples and /api/signs/{id}/train.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/signs/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	signID := parts[0]

	switch {
	case parts[1] == "samples" && r.Method == http.MethodGet:
		h.list(w, r, signID)
	case parts[1] == "samples" && r.Method == http.MethodPost:
		h.create(w, r, signID)
	case parts[1] == "samples" && r.Method == http.MethodDelete:
		h.deleteAll(w, r, signID)
	case parts[1] == "train" && r.Method == http.MethodPost:
		h.train(w, r, signID)
	case parts[1] == "samples" || parts[1] == "train":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	SignID      string          `json:"sign_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type trainResponse struct {
	SignID  string `json:"sign_id"`
	Label   string `json:"label"`
	Hands   int    `json:"hands"`
	Samples int    `json:"samples"`
}

// list handles GET /api/signs/{id}/samples.
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, signID string) {
	samples, err := h.store.Samples().GetBySignID(signID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			SignID:      s.SignID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   formatTime(s.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/signs/{id}/samples. New samples replace the old
// recording.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, signID string) {
	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	if _, err := h.store.Signs().GetByID(signID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	if err := h.store.Samples().Create(signID, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"samples": len(req.Samples)})
}

// deleteAll handles DELETE /api/signs/{id}/samples.
func (h *SamplesHandler) deleteAll(w http.ResponseWriter, r *http.Request, signID string) {
	if err := h.store.Samples().DeleteBySignID(signID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// train handles POST /api/signs/{id}/train: the recorded samples are
// averaged into the sign's template and the classifier is reloaded.
func (h *SamplesHandler) train(w http.ResponseWriter, r *http.Request, signID string) {
	sign, err := h.store.Signs().GetByID(signID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	samples, err := h.store.Samples().GetBySignID(signID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "Sign has no samples")
		return
	}

	raw := make([]json.RawMessage, len(samples))
	for i, s := range samples {
		raw[i] = s.Data
	}

	hands, err := h.trainer.Train(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Signs().SetLandmarks(signID, hands); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}

	if h.reloader != nil {
		if err := h.reloader.LoadSigns(); err != nil {
			log.Printf("Failed to reload signs: %v", err)
		}
	}
	log.Printf("Trained %s from %d samples", sign.Label, len(samples))

	writeJSON(w, http.StatusOK, trainResponse{
		SignID:  signID,
		Label:   sign.Label,
		Hands:   len(hands),
		Samples: len(samples),
	})
}
