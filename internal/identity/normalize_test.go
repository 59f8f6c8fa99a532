package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicware/face-finder/internal/store"
	"github.com/clinicware/face-finder/internal/store/mock"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří", "Jiri"},
		{"Nováková", "Novakova"},
		{"François", "Francois"},
		{"Smith", "Smith"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RemoveDiacritics(tt.input); got != tt.want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizePatientName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Marie Nováková", "marie novakova"},
		{"Jean-Pierre", "jean pierre"},
		{"  Anna   Smith  ", "anna smith"},
		{"BROWN", "brown"},
	}

	for _, tt := range tests {
		if got := NormalizePatientName(tt.input); got != tt.want {
			t.Errorf("NormalizePatientName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolvePatientByName_DirectMatch(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 1, FirstName: "Marie", LastName: "Nováková"})
	st.AddPatient(store.PatientSummary{PatientID: 2, FirstName: "Jan", LastName: "Dvořák"})

	svc := newTestService(t, &stubProvider{}, st, 0.85)

	patient, err := svc.ResolvePatientByName(context.Background(), "Dvořák")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patient.PatientID != 2 {
		t.Errorf("expected patient 2, got %d", patient.PatientID)
	}
}

func TestResolvePatientByName_DiacriticFolded(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 1, FirstName: "Marie", LastName: "Nováková"})

	svc := newTestService(t, &stubProvider{}, st, 0.85)

	// ASCII query against an accented registry spelling.
	patient, err := svc.ResolvePatientByName(context.Background(), "Novakova")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patient.PatientID != 1 {
		t.Errorf("expected patient 1, got %d", patient.PatientID)
	}
}

func TestResolvePatientByName_Unknown(t *testing.T) {
	svc := newTestService(t, &stubProvider{}, mock.New(), 0.85)

	_, err := svc.ResolvePatientByName(context.Background(), "Nobody")
	if !errors.Is(err, store.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestResolvePatientByName_Ambiguous(t *testing.T) {
	st := mock.New()
	st.AddPatient(store.PatientSummary{PatientID: 1, FirstName: "Anna", LastName: "Smith"})
	st.AddPatient(store.PatientSummary{PatientID: 2, FirstName: "Bea", LastName: "Smith"})

	svc := newTestService(t, &stubProvider{}, st, 0.85)

	if _, err := svc.ResolvePatientByName(context.Background(), "Smith"); err == nil {
		t.Fatal("expected error for ambiguous name")
	}
}
