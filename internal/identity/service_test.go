package identity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/extract"
	"github.com/clinicware/face-finder/internal/store"
	"github.com/clinicware/face-finder/internal/store/mock"
)

// stubProvider returns a fixed embedding or a fixed error.
type stubProvider struct {
	embedding []float32
	err       error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ExtractFace(ctx context.Context, imageData []byte) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.embedding, nil
}

func newTestService(t *testing.T, provider extract.Provider, st store.Store, threshold float64) *Service {
	t.Helper()
	svc, err := NewService(provider, st, threshold, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestNewService_InvalidThreshold(t *testing.T) {
	_, err := NewService(&stubProvider{}, mock.New(), 1.5, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestIdentify_Match(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 7, FirstName: "Marie", LastName: "Nováková"})
	st.AddFace(store.PatientFace{FaceUID: "f1", PatientID: 7, Embedding: []float32{1, 0, 0}})
	st.AddFace(store.PatientFace{FaceUID: "f2", PatientID: 9, Embedding: []float32{0, 1, 0}})

	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, st, 0.85)

	result, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeMatch {
		t.Fatalf("expected outcome match, got %s", result.Outcome)
	}
	if result.Patient == nil || result.Patient.PatientID != 7 {
		t.Fatalf("expected patient 7, got %+v", result.Patient)
	}
	if result.Confidence < 0.9999 {
		t.Errorf("expected confidence ~1.0, got %f", result.Confidence)
	}
	if result.Compared != 2 {
		t.Errorf("expected 2 comparisons, got %d", result.Compared)
	}
}

func TestIdentify_NoMatch(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 7, FirstName: "Marie"})
	st.AddFace(store.PatientFace{FaceUID: "f1", PatientID: 7, Embedding: []float32{0, 1, 0}})

	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, st, 0.85)

	result, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeNoMatch {
		t.Fatalf("expected outcome no_match, got %s", result.Outcome)
	}
	// The rejected candidate's identity must not leak.
	if result.Patient != nil {
		t.Errorf("expected nil patient for no_match, got %+v", result.Patient)
	}
	// The best score is still reported for observability.
	if result.Confidence != 0 {
		t.Errorf("expected best score 0 for orthogonal vectors, got %f", result.Confidence)
	}
}

func TestIdentify_EmptyCorpus(t *testing.T) {
	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, mock.New(), 0.85)

	result, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeNoMatch {
		t.Fatalf("expected outcome no_match, got %s", result.Outcome)
	}
	if result.Compared != 0 {
		t.Errorf("expected 0 comparisons, got %d", result.Compared)
	}
	if !math.IsInf(result.Confidence, -1) {
		t.Errorf("expected -Inf sentinel confidence, got %f", result.Confidence)
	}
}

func TestIdentify_NoFaceInImage(t *testing.T) {
	svc := newTestService(t, &stubProvider{err: extract.ErrNoFace}, mock.New(), 0.85)

	result, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("expected no error for undetectable face, got %v", err)
	}

	if result.Outcome != OutcomeNotAnalyzable {
		t.Fatalf("expected outcome not_analyzable, got %s", result.Outcome)
	}
	if result.Reason == "" {
		t.Error("expected a reason for not_analyzable")
	}
}

func TestIdentify_ExtractionUnavailable(t *testing.T) {
	svc := newTestService(t, &stubProvider{err: extract.ErrUnavailable}, mock.New(), 0.85)

	_, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err == nil {
		t.Fatal("expected error when embedding service is unavailable")
	}
	if !errors.Is(err, extract.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable in chain, got %v", err)
	}
}

func TestIdentify_DimensionMismatchIsFatal(t *testing.T) {
	st := mock.New()
	st.AddFace(store.PatientFace{FaceUID: "f1", PatientID: 7, Embedding: []float32{1, 0}})

	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, st, 0.85)

	if _, err := svc.Identify(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected error for dimension mismatch against corpus")
	}
}

func TestIdentify_CorruptEntrySkipped(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 7})
	st.AddFace(store.PatientFace{FaceUID: "bad", PatientID: 3, Embedding: []float32{0, 0, 0}})
	st.AddFace(store.PatientFace{FaceUID: "f1", PatientID: 7, Embedding: []float32{1, 0, 0}})

	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, st, 0.85)

	result, err := svc.Identify(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeMatch {
		t.Fatalf("expected outcome match, got %s", result.Outcome)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped entry, got %d", result.Skipped)
	}
	if result.Compared != 1 {
		t.Errorf("expected 1 comparison, got %d", result.Compared)
	}
}

func TestIdentify_StoreFailure(t *testing.T) {
	st := mock.New()
	st.ListAllError = errors.New("connection reset")

	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, st, 0.85)

	if _, err := svc.Identify(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected error when corpus load fails")
	}
}

func TestIdentify_MatchedPatientWithoutSummary(t *testing.T) {
	st := mock.New()
	// Face row exists but the patient summary does not.
	st.AddFace(store.PatientFace{FaceUID: "f1", PatientID: 42, Embedding: []float32{1, 0, 0}})

	svc := newTestService(t, &stubProvider{embedding: []float32{1, 0, 0}}, st, 0.85)

	if _, err := svc.Identify(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected error for matched patient with no summary row")
	}
}

func TestEnroll_Success(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 11, FirstName: "Jan"})

	svc := newTestService(t, &stubProvider{embedding: []float32{0, 1, 0}}, st, 0.85)

	face, err := svc.Enroll(context.Background(), 11, []byte("jpeg"), "arcface-r100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if face.FaceUID == "" {
		t.Error("expected a generated face UID")
	}
	if face.PatientID != 11 {
		t.Errorf("expected patient 11, got %d", face.PatientID)
	}
	if face.Dim != 3 {
		t.Errorf("expected dim 3, got %d", face.Dim)
	}

	stored, err := st.ListByPatient(context.Background(), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored face, got %d", len(stored))
	}
}

func TestEnroll_UnknownPatient(t *testing.T) {
	svc := newTestService(t, &stubProvider{embedding: []float32{0, 1, 0}}, mock.New(), 0.85)

	_, err := svc.Enroll(context.Background(), 99, []byte("jpeg"), "arcface-r100")
	if !errors.Is(err, store.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestEnroll_NoFaceIsError(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 11})

	svc := newTestService(t, &stubProvider{err: extract.ErrNoFace}, st, 0.85)

	// Unlike identification, enrolling a photo with no face is a caller
	// mistake and fails.
	if _, err := svc.Enroll(context.Background(), 11, []byte("jpeg"), "arcface-r100"); err == nil {
		t.Fatal("expected error when enrolling a photo with no face")
	}
}

func TestEnroll_MultipleFacesPerPatient(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 11})

	svc := newTestService(t, &stubProvider{embedding: []float32{0, 1, 0}}, st, 0.85)

	for range 3 {
		if _, err := svc.Enroll(context.Background(), 11, []byte("jpeg"), "arcface-r100"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	count, err := st.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 enrolled faces, got %d", count)
	}
}
