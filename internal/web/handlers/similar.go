package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/store"
)

// SimilarHandler exposes the low-level nearest-neighbor diagnostics channel.
// It is deliberately separate from the match decision: operators use it to
// inspect near-misses, and it never feeds the patient search result.
type SimilarHandler struct {
	searcher store.SimilaritySearcher
	log      zerolog.Logger
}

// NewSimilarHandler creates a new similarity diagnostics handler. searcher
// may be nil when the active backend has no vector search support.
func NewSimilarHandler(searcher store.SimilaritySearcher, log zerolog.Logger) *SimilarHandler {
	return &SimilarHandler{searcher: searcher, log: log}
}

type similarRequest struct {
	Embedding []float32 `json:"embedding"`
	Limit     int       `json:"limit"`
}

type similarCandidate struct {
	FaceUID   string  `json:"face_uid"`
	PatientID int64   `json:"patient_id"`
	Score     float64 `json:"score"`
}

// Find handles POST /api/v1/faces/similar. It takes a raw embedding and
// returns the top-k nearest enrolled faces with their similarity scores.
// Responds 501 when the active storage backend cannot do vector search.
func (h *SimilarHandler) Find(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		respondError(w, http.StatusNotImplemented, "similarity search not supported by the active storage backend")
		return
	}

	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	faces, scores, err := h.searcher.FindSimilar(r.Context(), req.Embedding, req.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("similarity search failed")
		respondError(w, http.StatusInternalServerError, "similarity search failed")
		return
	}

	candidates := make([]similarCandidate, len(faces))
	for i, f := range faces {
		candidates[i] = similarCandidate{
			FaceUID:   f.FaceUID,
			PatientID: f.PatientID,
			Score:     scores[i],
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
	})
}
