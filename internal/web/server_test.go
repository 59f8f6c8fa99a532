package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/config"
	"github.com/clinicware/face-finder/internal/identity"
	"github.com/clinicware/face-finder/internal/store/mock"
)

type noopProvider struct{}

func (noopProvider) Name() string { return "noop" }

func (noopProvider) ExtractFace(ctx context.Context, imageData []byte) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	svc, err := identity.NewService(noopProvider{}, mock.New(), 0.85, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return NewServer(cfg, svc, mock.New(), nil, zerolog.Nop())
}

func TestServer_HealthRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_SimilarWithoutBackendIs501(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/similar", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestServer_UnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/albums", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
