package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const (
	defaultServiceURL = "http://localhost:8000"
	defaultModel      = "arcface-r100"
)

// Service is an HTTP client for a face-embedding model server.
type Service struct {
	baseURL string
	model   string
	dim     int
	maxEdge int
	client  *http.Client
}

var _ Provider = (*Service)(nil)

// NewService creates a client for the face-embedding server. dim is the
// agreed embedding dimensionality; responses of any other length are
// rejected. maxEdge bounds uploaded image size (0 disables resizing).
func NewService(baseURL, model string, dim, maxEdge int) *Service {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Service{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		dim:     dim,
		maxEdge: maxEdge,
		client:  &http.Client{},
	}
}

// Name returns the model name being used.
func (s *Service) Name() string {
	return s.model
}

// faceDetection is a single detected face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the response from the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// ExtractFace detects faces in an image and returns the embedding of the
// most confident detection. Returns ErrNoFace when the image contains no
// detectable face and a wrapped ErrUnavailable when the server cannot be
// reached or fails.
func (s *Service) ExtractFace(ctx context.Context, imageData []byte) ([]float32, error) {
	upload := imageData
	if s.maxEdge > 0 {
		resized, err := PrepareImage(imageData, s.maxEdge)
		if err != nil {
			return nil, fmt.Errorf("prepare image: %w", err)
		}
		upload = resized
	}

	body, err := s.postMultipartImage(ctx, "/embed/face", upload)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}

	if resp.FacesCount == 0 || len(resp.Faces) == 0 {
		return nil, ErrNoFace
	}

	best := resp.Faces[0]
	for _, face := range resp.Faces[1:] {
		if face.DetScore > best.DetScore {
			best = face
		}
	}

	if len(best.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrUnavailable)
	}
	if s.dim > 0 && len(best.Embedding) != s.dim {
		return nil, fmt.Errorf("embedding dimension %d does not match configured %d (model %s)",
			len(best.Embedding), s.dim, resp.Model)
	}

	return best.Embedding, nil
}

// Health checks that the embedding server is reachable.
func (s *Service) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (s *Service) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.WriteField("model", s.model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
