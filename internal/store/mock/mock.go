// Package mock provides an in-memory store.Store for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/clinicware/face-finder/internal/store"
)

// Store is an in-memory implementation of store.Store with per-method
// error injection.
type Store struct {
	mu       sync.RWMutex
	faces    []store.PatientFace
	patients map[int64]store.PatientSummary

	// Error injection.
	ListAllError       error
	ListByPatientError error
	CountError         error
	AppendError        error
	DeleteError        error
	PatientError       error
	SummaryError       error
	SearchError        error
}

var _ store.Store = (*Store)(nil)

// New creates an empty mock store.
func New() *Store {
	return &Store{patients: make(map[int64]store.PatientSummary)}
}

// AddFace seeds an enrolled face. Faces keep insertion order, which is the
// iteration order ListAll reports.
func (m *Store) AddFace(face store.PatientFace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = append(m.faces, face)
}

// AddPatient seeds a patient summary.
func (m *Store) AddPatient(summary store.PatientSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[summary.PatientID] = summary
}

// ListAll returns the seeded faces in insertion order.
func (m *Store) ListAll(ctx context.Context) ([]store.PatientFace, error) {
	if m.ListAllError != nil {
		return nil, m.ListAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.PatientFace, len(m.faces))
	copy(out, m.faces)
	return out, nil
}

// ListByPatient returns the seeded faces for one patient.
func (m *Store) ListByPatient(ctx context.Context, patientID int64) ([]store.PatientFace, error) {
	if m.ListByPatientError != nil {
		return nil, m.ListByPatientError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.PatientFace
	for _, face := range m.faces {
		if face.PatientID == patientID {
			out = append(out, face)
		}
	}
	return out, nil
}

// Count returns the number of seeded faces.
func (m *Store) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces), nil
}

// CountPatients returns the number of distinct patients with faces.
func (m *Store) CountPatients(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int64]struct{})
	for _, face := range m.faces {
		seen[face.PatientID] = struct{}{}
	}
	return len(seen), nil
}

// AppendFace stores a new face.
func (m *Store) AppendFace(ctx context.Context, face store.PatientFace) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = append(m.faces, face)
	return nil
}

// DeleteByPatient removes all faces for a patient.
func (m *Store) DeleteByPatient(ctx context.Context, patientID int64) (int, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []store.PatientFace
	deleted := 0
	for _, face := range m.faces {
		if face.PatientID == patientID {
			deleted++
			continue
		}
		kept = append(kept, face)
	}
	m.faces = kept
	return deleted, nil
}

// PatientExists reports whether a patient summary has been seeded.
func (m *Store) PatientExists(ctx context.Context, patientID int64) (bool, error) {
	if m.PatientError != nil {
		return false, m.PatientError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.patients[patientID]
	return ok, nil
}

// GetSummary returns the seeded summary, or nil when absent.
func (m *Store) GetSummary(ctx context.Context, patientID int64) (*store.PatientSummary, error) {
	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary, ok := m.patients[patientID]
	if !ok {
		return nil, nil
	}
	return &summary, nil
}

// SearchPatientsByName matches case-insensitive substrings of names.
func (m *Store) SearchPatientsByName(ctx context.Context, name string) ([]store.PatientSummary, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(name)
	var out []store.PatientSummary
	for _, summary := range m.patients {
		if strings.Contains(strings.ToLower(summary.FirstName), needle) ||
			strings.Contains(strings.ToLower(summary.LastName), needle) {
			out = append(out, summary)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out, nil
}

// Close is a no-op.
func (m *Store) Close() error {
	return nil
}
