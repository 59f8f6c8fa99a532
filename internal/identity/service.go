// Package identity ties the extraction boundary, the matcher and the
// embedding store together: enroll a patient's face, identify a patient
// from a photo, and hydrate a positive match with the clinical summary.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/extract"
	"github.com/clinicware/face-finder/internal/matcher"
	"github.com/clinicware/face-finder/internal/store"
)

// Outcome classifies an identification attempt. The three values are
// mutually exclusive: either the photo could not be analyzed at all, or it
// was scored against the corpus and did or did not clear the threshold.
type Outcome string

const (
	// OutcomeNotAnalyzable means no face embedding could be produced from
	// the input image. Nothing was compared.
	OutcomeNotAnalyzable Outcome = "not_analyzable"
	// OutcomeNoMatch means the photo was scored but no enrolled face
	// cleared the similarity threshold.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeMatch means one enrolled patient cleared the threshold.
	OutcomeMatch Outcome = "match"
)

// Result is the outcome of one identification attempt. Patient is set only
// for OutcomeMatch; Confidence and Compared are meaningful whenever the
// outcome is not OutcomeNotAnalyzable. A below-threshold best score is
// reported without the candidate's identity.
type Result struct {
	Outcome    Outcome
	Reason     string // human-readable detail for OutcomeNotAnalyzable
	Confidence float64
	Compared   int
	Skipped    int
	Patient    *store.PatientSummary
}

// Service implements face enrollment and identification over a pluggable
// extraction provider and embedding store.
type Service struct {
	extractor extract.Provider
	store     store.Store
	threshold float64
	log       zerolog.Logger
}

func NewService(extractor extract.Provider, st store.Store, threshold float64, log zerolog.Logger) (*Service, error) {
	if err := matcher.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	return &Service{
		extractor: extractor,
		store:     st,
		threshold: threshold,
		log:       log,
	}, nil
}

// Threshold returns the similarity threshold the service matches against.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Identify extracts a face embedding from imageData and scans the enrolled
// corpus for the best match.
//
// A photo with no detectable face yields OutcomeNotAnalyzable, not an
// error: it is an expected outcome of the product, not a fault. Extraction
// transport failures and matcher faults (dimension mismatch, zero-norm
// query) are returned as errors because they indicate a broken pipeline
// rather than an unrecognizable patient.
func (s *Service) Identify(ctx context.Context, imageData []byte) (Result, error) {
	start := time.Now()

	embedding, err := s.extractor.ExtractFace(ctx, imageData)
	if err != nil {
		if errors.Is(err, extract.ErrNoFace) {
			s.log.Info().Str("outcome", string(OutcomeNotAnalyzable)).Msg("no face detected in image")
			return Result{
				Outcome: OutcomeNotAnalyzable,
				Reason:  "no face detected in image",
			}, nil
		}
		return Result{}, fmt.Errorf("failed to extract face embedding: %w", err)
	}

	corpus, err := s.loadCorpus(ctx)
	if err != nil {
		return Result{}, err
	}

	decision, err := matcher.FindBestMatch(embedding, corpus, s.threshold)
	if err != nil {
		return Result{}, fmt.Errorf("match scan failed: %w", err)
	}

	result := Result{
		Confidence: decision.BestScore,
		Compared:   decision.Compared,
		Skipped:    decision.Skipped,
	}

	if !decision.Matched {
		result.Outcome = OutcomeNoMatch
		s.log.Info().
			Str("outcome", string(OutcomeNoMatch)).
			Int("compared", decision.Compared).
			Dur("took", time.Since(start)).
			Msg("no enrolled face cleared the threshold")
		return result, nil
	}

	summary, err := s.store.GetSummary(ctx, decision.PatientID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load summary for matched patient %d: %w", decision.PatientID, err)
	}
	if summary == nil {
		// A face row pointing at a patient the clinical schema no longer
		// has. Surfacing a match without a patient record would be worse
		// than failing loudly.
		return Result{}, fmt.Errorf("matched patient %d has no summary row", decision.PatientID)
	}

	result.Outcome = OutcomeMatch
	result.Patient = summary
	s.log.Info().
		Str("outcome", string(OutcomeMatch)).
		Int64("patient_id", decision.PatientID).
		Float64("confidence", decision.BestScore).
		Int("compared", decision.Compared).
		Dur("took", time.Since(start)).
		Msg("patient identified by face")
	return result, nil
}

// Enroll extracts a face embedding from imageData and appends it to the
// patient's enrolled faces. Returns the stored face record.
//
// Enrollment is append-only: a patient may accumulate multiple embeddings
// (different angles, ageing) and all of them participate in matching. An
// enrollment racing a concurrent identification may or may not be seen by
// that scan; the store snapshot decides.
func (s *Service) Enroll(ctx context.Context, patientID int64, imageData []byte, model string) (store.PatientFace, error) {
	exists, err := s.store.PatientExists(ctx, patientID)
	if err != nil {
		return store.PatientFace{}, fmt.Errorf("failed to check patient %d: %w", patientID, err)
	}
	if !exists {
		return store.PatientFace{}, fmt.Errorf("patient %d: %w", patientID, store.ErrPatientNotFound)
	}

	embedding, err := s.extractor.ExtractFace(ctx, imageData)
	if err != nil {
		return store.PatientFace{}, fmt.Errorf("failed to extract face embedding: %w", err)
	}

	face := store.PatientFace{
		FaceUID:   uuid.NewString(),
		PatientID: patientID,
		Embedding: embedding,
		Model:     model,
		Dim:       len(embedding),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.AppendFace(ctx, face); err != nil {
		return store.PatientFace{}, fmt.Errorf("failed to store face for patient %d: %w", patientID, err)
	}

	s.log.Info().
		Int64("patient_id", patientID).
		Str("face_uid", face.FaceUID).
		Str("model", model).
		Int("dim", face.Dim).
		Msg("face enrolled")
	return face, nil
}

// ResolvePatientByName finds exactly one patient by name, tolerating
// diacritic differences between the query and the registry spelling
// ("Novakova" resolves "Nováková"). Returns an error when the name is
// ambiguous or unknown.
func (s *Service) ResolvePatientByName(ctx context.Context, name string) (*store.PatientSummary, error) {
	candidates, err := s.store.SearchPatientsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	if len(candidates) == 0 {
		// The registry may hold an accented spelling the raw substring
		// search cannot see. Fold both sides and compare.
		all, err := s.store.SearchPatientsByName(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to search patients: %w", err)
		}
		want := NormalizePatientName(name)
		for _, p := range all {
			full := NormalizePatientName(p.FirstName + " " + p.LastName)
			if full == want ||
				NormalizePatientName(p.LastName) == want ||
				NormalizePatientName(p.FirstName) == want {
				candidates = append(candidates, p)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("patient %q: %w", name, store.ErrPatientNotFound)
	case 1:
		return &candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, p := range candidates {
			names[i] = fmt.Sprintf("%s %s (#%d)", p.FirstName, p.LastName, p.PatientID)
		}
		return nil, fmt.Errorf("patient name %q is ambiguous: %s", name, strings.Join(names, ", "))
	}
}

// loadCorpus pulls the full embedding snapshot and converts it to matcher
// candidates.
func (s *Service) loadCorpus(ctx context.Context) ([]matcher.CandidateFace, error) {
	faces, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding corpus: %w", err)
	}

	corpus := make([]matcher.CandidateFace, len(faces))
	for i, f := range faces {
		corpus[i] = matcher.CandidateFace{
			PatientID: f.PatientID,
			FaceUID:   f.FaceUID,
			Embedding: f.Embedding,
		}
	}
	return corpus, nil
}
