package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxUploadSize limits the size of uploaded patient photos (20 MB).
const maxUploadSize = 20 << 20

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// readImageUpload pulls the uploaded photo out of a multipart form. The
// field is named "image"; "file" is accepted as a fallback.
func readImageUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		file, _, err = r.FormFile("file")
		if err != nil {
			return nil, err
		}
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, maxUploadSize))
}
