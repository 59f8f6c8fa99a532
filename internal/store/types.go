package store

import (
	"errors"
	"time"
)

// ErrPatientNotFound is returned when an operation references a patient
// that does not exist in the clinical schema.
var ErrPatientNotFound = errors.New("patient not found")

// PatientFace is a face embedding enrolled for a patient. Embeddings are
// immutable once created; a patient may have any number of them
// (multiple photos over time).
type PatientFace struct {
	FaceUID   string
	PatientID int64
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}

// PatientSummary is the clinical snapshot returned alongside a positive
// face match: demographics plus the active problem/medication/allergy
// lists aggregated by the EMR's patient_summary view.
type PatientSummary struct {
	PatientID         int64
	FirstName         string
	LastName          string
	DateOfBirth       string
	Sex               string
	PhoneNumber       string
	Email             string
	Address           string
	ActiveConditions  string
	ActiveMedications string
	ActiveAllergies   string
}
