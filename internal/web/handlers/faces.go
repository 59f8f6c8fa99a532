package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/extract"
	"github.com/clinicware/face-finder/internal/identity"
	"github.com/clinicware/face-finder/internal/store"
)

// FacesHandler handles enrollment and face management per patient.
type FacesHandler struct {
	service *identity.Service
	store   store.Store
	model   string
	log     zerolog.Logger
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(service *identity.Service, st store.Store, model string, log zerolog.Logger) *FacesHandler {
	return &FacesHandler{service: service, store: st, model: model, log: log}
}

// EnrolledFace describes one stored face embedding. The embedding itself is
// never returned over the API.
type EnrolledFace struct {
	FaceUID   string    `json:"face_uid"`
	PatientID int64     `json:"patient_id"`
	Model     string    `json:"model"`
	Dim       int       `json:"dim"`
	CreatedAt time.Time `json:"created_at"`
}

func patientIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// Enroll handles POST /api/v1/patients/{id}/faces. It takes a multipart
// photo upload and appends a new embedding for the patient.
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	imageData, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}

	face, err := h.service.Enroll(r.Context(), patientID, imageData, h.model)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPatientNotFound):
			respondError(w, http.StatusNotFound, "patient not found")
		case errors.Is(err, extract.ErrNoFace):
			respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
		case errors.Is(err, extract.ErrUnavailable):
			respondError(w, http.StatusBadGateway, "face embedding service unavailable")
		default:
			h.log.Error().Err(err).Int64("patient_id", patientID).Msg("enrollment failed")
			respondError(w, http.StatusInternalServerError, "enrollment failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, EnrolledFace{
		FaceUID:   face.FaceUID,
		PatientID: face.PatientID,
		Model:     face.Model,
		Dim:       face.Dim,
		CreatedAt: face.CreatedAt,
	})
}

// List handles GET /api/v1/patients/{id}/faces.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	faces, err := h.store.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.log.Error().Err(err).Int64("patient_id", patientID).Msg("failed to list faces")
		respondError(w, http.StatusInternalServerError, "failed to list faces")
		return
	}

	out := make([]EnrolledFace, len(faces))
	for i, f := range faces {
		out[i] = EnrolledFace{
			FaceUID:   f.FaceUID,
			PatientID: f.PatientID,
			Model:     f.Model,
			Dim:       f.Dim,
			CreatedAt: f.CreatedAt,
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"faces":      out,
	})
}

// Delete handles DELETE /api/v1/patients/{id}/faces. It removes every
// enrolled face for the patient, e.g. before a clean re-enrollment.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	deleted, err := h.store.DeleteByPatient(r.Context(), patientID)
	if err != nil {
		h.log.Error().Err(err).Int64("patient_id", patientID).Msg("failed to delete faces")
		respondError(w, http.StatusInternalServerError, "failed to delete faces")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"deleted":    deleted,
	})
}
