package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/store"
)

const statsCacheTTL = 1 * time.Minute

// StatsResponse summarizes the state of the embedding store.
type StatsResponse struct {
	Faces            int     `json:"faces"`
	EnrolledPatients int     `json:"enrolled_patients"`
	Threshold        float64 `json:"threshold"`
	Model            string  `json:"model"`
	Dim              int     `json:"dim"`
}

// statsCache holds cached stats with expiry. Counts walk the whole table, so
// a short TTL keeps dashboards from hammering the store.
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

// StatsHandler handles statistics endpoints.
type StatsHandler struct {
	store     store.FaceReader
	threshold float64
	model     string
	dim       int
	log       zerolog.Logger
	cache     statsCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(st store.FaceReader, threshold float64, model string, dim int, log zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		store:     st,
		threshold: threshold,
		model:     model,
		dim:       dim,
		log:       log,
	}
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	faces, err := h.store.Count(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count faces")
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	patients, err := h.store.CountPatients(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count patients")
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	resp := &StatsResponse{
		Faces:            faces,
		EnrolledPatients: patients,
		Threshold:        h.threshold,
		Model:            h.model,
		Dim:              h.dim,
	}
	h.cache.set(resp)
	respondJSON(w, http.StatusOK, resp)
}
