package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/extract"
	"github.com/clinicware/face-finder/internal/identity"
	"github.com/clinicware/face-finder/internal/store"
)

// IdentifyHandler handles face-based patient search.
type IdentifyHandler struct {
	service *identity.Service
	log     zerolog.Logger
}

// NewIdentifyHandler creates a new identify handler.
func NewIdentifyHandler(service *identity.Service, log zerolog.Logger) *IdentifyHandler {
	return &IdentifyHandler{service: service, log: log}
}

// FaceSearchResponse is the result of a face-based patient search.
// Confidence is omitted when nothing was compared: there is no meaningful
// best score over an empty corpus. Patient is present only on a match.
type FaceSearchResponse struct {
	MatchFound    bool            `json:"match_found"`
	Confidence    *float64        `json:"confidence,omitempty"`
	FacesCompared int             `json:"faces_compared"`
	SkippedFaces  int             `json:"skipped_faces,omitempty"`
	Patient       *PatientSummary `json:"patient,omitempty"`
}

// PatientSummary is the clinical summary returned with a positive match.
type PatientSummary struct {
	PatientID         int64  `json:"patient_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	DateOfBirth       string `json:"date_of_birth,omitempty"`
	Sex               string `json:"sex,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	Email             string `json:"email,omitempty"`
	Address           string `json:"address,omitempty"`
	ActiveConditions  string `json:"active_conditions,omitempty"`
	ActiveMedications string `json:"active_medications,omitempty"`
	ActiveAllergies   string `json:"active_allergies,omitempty"`
}

func toPatientSummary(s *store.PatientSummary) *PatientSummary {
	if s == nil {
		return nil
	}
	return &PatientSummary{
		PatientID:         s.PatientID,
		FirstName:         s.FirstName,
		LastName:          s.LastName,
		DateOfBirth:       s.DateOfBirth,
		Sex:               s.Sex,
		PhoneNumber:       s.PhoneNumber,
		Email:             s.Email,
		Address:           s.Address,
		ActiveConditions:  s.ActiveConditions,
		ActiveMedications: s.ActiveMedications,
		ActiveAllergies:   s.ActiveAllergies,
	}
}

// Search handles POST /api/v1/patients/search/face. It takes a multipart
// photo upload and answers with the best-matching patient, if any cleared
// the similarity threshold.
func (h *IdentifyHandler) Search(w http.ResponseWriter, r *http.Request) {
	imageData, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}

	result, err := h.service.Identify(r.Context(), imageData)
	if err != nil {
		if errors.Is(err, extract.ErrUnavailable) {
			respondError(w, http.StatusBadGateway, "face embedding service unavailable")
			return
		}
		h.log.Error().Err(err).Msg("face search failed")
		respondError(w, http.StatusInternalServerError, "face search failed")
		return
	}

	if result.Outcome == identity.OutcomeNotAnalyzable {
		respondError(w, http.StatusUnprocessableEntity, result.Reason)
		return
	}

	resp := FaceSearchResponse{
		MatchFound:    result.Outcome == identity.OutcomeMatch,
		FacesCompared: result.Compared,
		SkippedFaces:  result.Skipped,
		Patient:       toPatientSummary(result.Patient),
	}
	if result.Compared > 0 {
		confidence := result.Confidence
		resp.Confidence = &confidence
	}

	respondJSON(w, http.StatusOK, resp)
}
