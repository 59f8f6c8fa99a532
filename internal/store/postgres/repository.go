package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/clinicware/face-finder/internal/store"
)

// Repository implements store.Store backed by PostgreSQL.
type Repository struct {
	pool *Pool
}

var _ store.Store = (*Repository)(nil)
var _ store.SimilaritySearcher = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAll returns every enrolled face, oldest enrollment first. The single
// SELECT gives the consistent snapshot the matcher scans; the deterministic
// order makes tie-breaks favor the earliest enrollment.
func (r *Repository) ListAll(ctx context.Context) ([]store.PatientFace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT face_uid, patient_id, embedding, model, dim, created_at
		FROM patient_faces
		ORDER BY created_at, face_uid
	`)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// ListByPatient returns all faces enrolled for one patient.
func (r *Repository) ListByPatient(ctx context.Context, patientID int64) ([]store.PatientFace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT face_uid, patient_id, embedding, model, dim, created_at
		FROM patient_faces
		WHERE patient_id = $1
		ORDER BY created_at, face_uid
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list faces for patient %d: %w", patientID, err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

func scanFaces(rows *sql.Rows) ([]store.PatientFace, error) {
	var faces []store.PatientFace
	for rows.Next() {
		var face store.PatientFace
		var vec pgvector.Vector
		if err := rows.Scan(&face.FaceUID, &face.PatientID, &vec, &face.Model, &face.Dim, &face.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face row: %w", err)
		}
		face.Embedding = vec.Slice()
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

// Count returns the total number of enrolled faces.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM patient_faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// CountPatients returns the number of distinct patients with enrolled faces.
func (r *Repository) CountPatients(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT patient_id) FROM patient_faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count patients with faces: %w", err)
	}
	return count, nil
}

// AppendFace stores a new embedding for a patient.
func (r *Repository) AppendFace(ctx context.Context, face store.PatientFace) error {
	vec := pgvector.NewVector(face.Embedding)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_faces (face_uid, patient_id, embedding, model, dim, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, face.FaceUID, face.PatientID, vec, face.Model, face.Dim)
	if err != nil {
		return fmt.Errorf("append face for patient %d: %w", face.PatientID, err)
	}
	return nil
}

// DeleteByPatient removes all faces for a patient.
func (r *Repository) DeleteByPatient(ctx context.Context, patientID int64) (int, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM patient_faces WHERE patient_id = $1", patientID)
	if err != nil {
		return 0, fmt.Errorf("delete faces for patient %d: %w", patientID, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete faces for patient %d: %w", patientID, err)
	}
	return int(deleted), nil
}

// PatientExists reports whether a patient row exists in the clinical schema.
func (r *Repository) PatientExists(ctx context.Context, patientID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM patients WHERE patient_id = $1)", patientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient %d exists: %w", patientID, err)
	}
	return exists, nil
}

// GetSummary returns the patient_summary row for a patient, or nil when absent.
func (r *Repository) GetSummary(ctx context.Context, patientID int64) (*store.PatientSummary, error) {
	var s store.PatientSummary
	var dob, sex, phone, email, address, conditions, medications, allergies sql.NullString

	err := r.pool.QueryRow(ctx, `
		SELECT patient_id, first_name, last_name, date_of_birth::text, sex, phone_number,
		       email, address, active_conditions, active_medications, active_allergies
		FROM patient_summary
		WHERE patient_id = $1
	`, patientID).Scan(
		&s.PatientID, &s.FirstName, &s.LastName, &dob, &sex, &phone,
		&email, &address, &conditions, &medications, &allergies,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query patient summary %d: %w", patientID, err)
	}

	s.DateOfBirth = dob.String
	s.Sex = sex.String
	s.PhoneNumber = phone.String
	s.Email = email.String
	s.Address = address.String
	s.ActiveConditions = conditions.String
	s.ActiveMedications = medications.String
	s.ActiveAllergies = allergies.String
	return &s, nil
}

// SearchPatientsByName returns summaries matching a case-insensitive
// substring of the first or last name.
func (r *Repository) SearchPatientsByName(ctx context.Context, name string) ([]store.PatientSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT patient_id, first_name, last_name, date_of_birth::text, sex, phone_number,
		       email, address, active_conditions, active_medications, active_allergies
		FROM patient_summary
		WHERE LOWER(first_name) LIKE LOWER('%' || $1 || '%')
		   OR LOWER(last_name) LIKE LOWER('%' || $1 || '%')
		ORDER BY last_name, first_name
	`, name)
	if err != nil {
		return nil, fmt.Errorf("search patients by name: %w", err)
	}
	defer rows.Close()

	var summaries []store.PatientSummary
	for rows.Next() {
		var s store.PatientSummary
		var dob, sex, phone, email, address, conditions, medications, allergies sql.NullString
		if err := rows.Scan(
			&s.PatientID, &s.FirstName, &s.LastName, &dob, &sex, &phone,
			&email, &address, &conditions, &medications, &allergies,
		); err != nil {
			return nil, fmt.Errorf("scan patient summary: %w", err)
		}
		s.DateOfBirth = dob.String
		s.Sex = sex.String
		s.PhoneNumber = phone.String
		s.Email = email.String
		s.Address = address.String
		s.ActiveConditions = conditions.String
		s.ActiveMedications = medications.String
		s.ActiveAllergies = allergies.String
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FindSimilar returns the top-k nearest faces by cosine distance with their
// similarity scores. Diagnostics only: the match path never uses it because
// the approximate planner can reorder near-threshold and tied candidates.
func (r *Repository) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]store.PatientFace, []float64, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx, `
		SELECT face_uid, patient_id, embedding, model, dim, created_at,
		       embedding <=> $1 AS distance
		FROM patient_faces
		ORDER BY embedding <=> $1
		LIMIT $2
	`, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("find similar faces: %w", err)
	}
	defer rows.Close()

	var faces []store.PatientFace
	var scores []float64
	for rows.Next() {
		var face store.PatientFace
		var vec pgvector.Vector
		var distance float64
		if err := rows.Scan(&face.FaceUID, &face.PatientID, &vec, &face.Model, &face.Dim, &face.CreatedAt, &distance); err != nil {
			return nil, nil, fmt.Errorf("scan similar face: %w", err)
		}
		face.Embedding = vec.Slice()
		faces = append(faces, face)
		// pgvector's <=> operator yields cosine distance (1 - similarity).
		scores = append(scores, 1-distance)
	}

	return faces, scores, rows.Err()
}

// Close closes the underlying pool.
func (r *Repository) Close() error {
	return r.pool.Close()
}
