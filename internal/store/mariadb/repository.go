package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinicware/face-finder/internal/store"
)

// Repository implements store.Store backed by MariaDB. Embeddings travel
// through a JSON text column, so every read decodes the full vector.
type Repository struct {
	pool *Pool
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new MariaDB repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// encodeEmbedding serializes an embedding for the JSON text column.
func encodeEmbedding(embedding []float32) (string, error) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(data), nil
}

// decodeEmbedding parses the JSON text column back into a vector.
func decodeEmbedding(raw string) ([]float32, error) {
	var embedding []float32
	if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return embedding, nil
}

// ListAll returns every enrolled face, oldest enrollment first.
func (r *Repository) ListAll(ctx context.Context) ([]store.PatientFace, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT face_uid, patient_id, embedding_json, model, dim, created_at
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
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT face_uid, patient_id, embedding_json, model, dim, created_at
		FROM patient_faces
		WHERE patient_id = ?
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
		var raw string
		if err := rows.Scan(&face.FaceUID, &face.PatientID, &raw, &face.Model, &face.Dim, &face.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face row: %w", err)
		}
		embedding, err := decodeEmbedding(raw)
		if err != nil {
			return nil, fmt.Errorf("face %s: %w", face.FaceUID, err)
		}
		face.Embedding = embedding
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

// Count returns the total number of enrolled faces.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patient_faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// CountPatients returns the number of distinct patients with enrolled faces.
func (r *Repository) CountPatients(ctx context.Context) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT patient_id) FROM patient_faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count patients with faces: %w", err)
	}
	return count, nil
}

// AppendFace stores a new embedding for a patient.
func (r *Repository) AppendFace(ctx context.Context, face store.PatientFace) error {
	raw, err := encodeEmbedding(face.Embedding)
	if err != nil {
		return err
	}
	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO patient_faces (face_uid, patient_id, embedding_json, model, dim)
		VALUES (?, ?, ?, ?, ?)
	`, face.FaceUID, face.PatientID, raw, face.Model, face.Dim)
	if err != nil {
		return fmt.Errorf("append face for patient %d: %w", face.PatientID, err)
	}
	return nil
}

// DeleteByPatient removes all faces for a patient.
func (r *Repository) DeleteByPatient(ctx context.Context, patientID int64) (int, error) {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM patient_faces WHERE patient_id = ?", patientID)
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
	var one int
	err := r.pool.db.QueryRowContext(ctx, "SELECT 1 FROM patients WHERE patient_id = ?", patientID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check patient %d exists: %w", patientID, err)
	}
	return true, nil
}

// GetSummary returns the patient_summary row for a patient, or nil when absent.
func (r *Repository) GetSummary(ctx context.Context, patientID int64) (*store.PatientSummary, error) {
	var s store.PatientSummary
	var dob, sex, phone, email, address, conditions, medications, allergies sql.NullString

	err := r.pool.db.QueryRowContext(ctx, `
		SELECT patient_id, first_name, last_name, CAST(date_of_birth AS CHAR), sex, phone_number,
		       email, address, active_conditions, active_medications, active_allergies
		FROM patient_summary
		WHERE patient_id = ?
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
	like := "%" + name + "%"
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT patient_id, first_name, last_name, CAST(date_of_birth AS CHAR), sex, phone_number,
		       email, address, active_conditions, active_medications, active_allergies
		FROM patient_summary
		WHERE LOWER(first_name) LIKE LOWER(?) OR LOWER(last_name) LIKE LOWER(?)
		ORDER BY last_name, first_name
	`, like, like)
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

// Close closes the underlying pool.
func (r *Repository) Close() error {
	return r.pool.Close()
}
