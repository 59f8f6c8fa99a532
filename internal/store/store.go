// Package store defines the embedding store contract the face matcher
// reads from and enrollment writes to, plus the patient lookups needed to
// hydrate a positive match. Backends live in subpackages.
package store

import "context"

// FaceReader provides read access to enrolled face embeddings.
type FaceReader interface {
	// ListAll returns every enrolled (patient, embedding) pair as a
	// consistent snapshot, ordered oldest enrollment first so a corpus
	// scan has a deterministic iteration order. Matching runs against the
	// returned slice only; rows enrolled after the snapshot are not seen.
	ListAll(ctx context.Context) ([]PatientFace, error)
	// ListByPatient returns all faces enrolled for one patient.
	ListByPatient(ctx context.Context, patientID int64) ([]PatientFace, error)
	// Count returns the total number of enrolled faces.
	Count(ctx context.Context) (int, error)
	// CountPatients returns the number of distinct patients with at least one face.
	CountPatients(ctx context.Context) (int, error)
}

// FaceWriter provides write access to enrolled face embeddings.
type FaceWriter interface {
	FaceReader

	// AppendFace stores a new embedding for a patient. Appends are not
	// linearized with in-flight ListAll snapshots.
	AppendFace(ctx context.Context, face PatientFace) error
	// DeleteByPatient removes all faces for a patient and reports how many
	// rows were removed.
	DeleteByPatient(ctx context.Context, patientID int64) (int, error)
}

// PatientReader looks up patients in the clinical schema, which this
// service reads but does not own.
type PatientReader interface {
	// PatientExists reports whether the patient id is present.
	PatientExists(ctx context.Context, patientID int64) (bool, error)
	// GetSummary returns the patient_summary row for a patient, or nil
	// when none exists.
	GetSummary(ctx context.Context, patientID int64) (*PatientSummary, error)
	// SearchPatientsByName returns summaries whose first or last name
	// contains the given term, case-insensitively. Diacritic-insensitive
	// refinement happens in the caller.
	SearchPatientsByName(ctx context.Context, name string) ([]PatientSummary, error)
}

// Store is the full contract a storage backend provides.
type Store interface {
	FaceWriter
	PatientReader

	Close() error
}

// SimilaritySearcher is the optional low-level diagnostics channel for
// near-miss inspection. It is intentionally separate from the match
// decision: a below-threshold best candidate is never exposed through
// FindBestMatch, only through this interface. The Postgres backend
// implements it via pgvector; backends without vector SQL do not.
type SimilaritySearcher interface {
	// FindSimilar returns the top-k nearest faces with their cosine
	// similarity scores, best first.
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]PatientFace, []float64, error)
}
