package matcher

import (
	"errors"
	"math"
	"testing"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// threePatientCorpus is the reference corpus used by the scenario tests:
// patient 1 aligned with the x axis, patient 2 with the y axis, patient 3
// close to patient 1 but not identical.
func threePatientCorpus() []CandidateFace {
	return []CandidateFace{
		{PatientID: 1, FaceUID: "face-1", Embedding: []float32{1, 0, 0}},
		{PatientID: 2, FaceUID: "face-2", Embedding: []float32{0, 1, 0}},
		{PatientID: 3, FaceUID: "face-3", Embedding: []float32{0.99, 0.1, 0}},
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 0.64},
		{5, 5, 5, 5},
	}
	for _, v := range vectors {
		score, err := CosineSimilarity(v, v)
		if err != nil {
			t.Fatalf("CosineSimilarity(v, v) failed: %v", err)
		}
		if !almostEqual(score, 1.0) {
			t.Errorf("expected self-similarity 1.0, got %v", score)
		}
	}
}

func TestCosineSimilarity_Symmetry(t *testing.T) {
	a := []float32{0.2, -0.4, 0.9, 0.1}
	b := []float32{-0.5, 0.3, 0.3, 0.8}

	ab, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("CosineSimilarity(a, b) failed: %v", err)
	}
	ba, err := CosineSimilarity(b, a)
	if err != nil {
		t.Fatalf("CosineSimilarity(b, a) failed: %v", err)
	}
	if !almostEqual(ab, ba) {
		t.Errorf("expected symmetric similarity, got %v and %v", ab, ba)
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	_, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 0, 0})
	if !errors.Is(err, ErrZeroVector) {
		t.Fatalf("expected ErrZeroVector for zero first vector, got %v", err)
	}
	_, err = CosineSimilarity([]float32{1, 0, 0}, []float32{0, 0, 0})
	if !errors.Is(err, ErrZeroVector) {
		t.Fatalf("expected ErrZeroVector for zero second vector, got %v", err)
	}
}

func TestFindBestMatch_EmptyCorpus(t *testing.T) {
	for _, threshold := range []float64{-1, 0, 0.85, 1} {
		decision, err := FindBestMatch([]float32{1, 0, 0}, nil, threshold)
		if err != nil {
			t.Fatalf("FindBestMatch over empty corpus failed: %v", err)
		}
		if decision.Matched {
			t.Errorf("threshold %v: expected no match over empty corpus", threshold)
		}
		if !math.IsInf(decision.BestScore, -1) {
			t.Errorf("threshold %v: expected ScoreNone sentinel, got %v", threshold, decision.BestScore)
		}
		if decision.Compared != 0 {
			t.Errorf("threshold %v: expected 0 comparisons, got %d", threshold, decision.Compared)
		}
	}
}

func TestFindBestMatch_ExactSingleEntry(t *testing.T) {
	query := []float32{0.6, 0.8, 0}
	corpus := []CandidateFace{{PatientID: 42, FaceUID: "face-42", Embedding: []float32{0.6, 0.8, 0}}}

	decision, err := FindBestMatch(query, corpus, 1.0)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if !decision.Matched {
		t.Fatal("expected a match for an identical embedding")
	}
	if decision.PatientID != 42 {
		t.Errorf("expected patient 42, got %d", decision.PatientID)
	}
	if !almostEqual(decision.BestScore, 1.0) {
		t.Errorf("expected best score 1.0, got %v", decision.BestScore)
	}
}

func TestFindBestMatch_ThresholdIsPostScanFilter(t *testing.T) {
	query := []float32{1, 0, 0}
	corpus := []CandidateFace{{PatientID: 7, FaceUID: "face-7", Embedding: []float32{0.9, 0.1, 0}}}

	low, err := FindBestMatch(query, corpus, 0.5)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	high, err := FindBestMatch(query, corpus, 0.9999)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}

	if !low.Matched {
		t.Error("expected a match below the true best score")
	}
	if high.Matched {
		t.Error("expected no match above the true best score")
	}
	// Raising the threshold only flips the boolean; the scan itself is unchanged.
	if !almostEqual(low.BestScore, high.BestScore) {
		t.Errorf("expected identical best scores, got %v and %v", low.BestScore, high.BestScore)
	}
	if high.PatientID != 0 {
		t.Errorf("rejected candidate id must not leak, got %d", high.PatientID)
	}
	if low.Compared != high.Compared {
		t.Errorf("expected identical comparison counts, got %d and %d", low.Compared, high.Compared)
	}
}

func TestFindBestMatch_ZeroNormEntryNeverBest(t *testing.T) {
	query := []float32{1, 0, 0}

	t.Run("sole entry", func(t *testing.T) {
		corpus := []CandidateFace{{PatientID: 9, FaceUID: "face-9", Embedding: []float32{0, 0, 0}}}
		decision, err := FindBestMatch(query, corpus, -1)
		if err != nil {
			t.Fatalf("FindBestMatch failed: %v", err)
		}
		if decision.Matched {
			t.Error("a zero vector must never match")
		}
		if !math.IsInf(decision.BestScore, -1) {
			t.Errorf("expected ScoreNone sentinel, got %v", decision.BestScore)
		}
		if decision.Skipped != 1 {
			t.Errorf("expected 1 skipped entry, got %d", decision.Skipped)
		}
	})

	t.Run("corrupt entry does not abort scan", func(t *testing.T) {
		corpus := []CandidateFace{
			{PatientID: 9, FaceUID: "face-9", Embedding: []float32{0, 0, 0}},
			{PatientID: 10, FaceUID: "face-10", Embedding: []float32{1, 0, 0}},
		}
		decision, err := FindBestMatch(query, corpus, 0.85)
		if err != nil {
			t.Fatalf("FindBestMatch failed: %v", err)
		}
		if !decision.Matched || decision.PatientID != 10 {
			t.Errorf("expected patient 10 to match, got %+v", decision)
		}
		if decision.Compared != 1 || decision.Skipped != 1 {
			t.Errorf("expected 1 compared and 1 skipped, got %+v", decision)
		}
	})
}

func TestFindBestMatch_DimensionMismatchIsFatal(t *testing.T) {
	query := []float32{1, 0, 0}
	// The first entry would match perfectly; the later malformed entry must
	// still fail the whole call.
	corpus := []CandidateFace{
		{PatientID: 1, FaceUID: "face-1", Embedding: []float32{1, 0, 0}},
		{PatientID: 2, FaceUID: "face-2", Embedding: []float32{1, 0}},
	}

	_, err := FindBestMatch(query, corpus, 0.85)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFindBestMatch_ZeroNormQueryIsFatal(t *testing.T) {
	corpus := []CandidateFace{{PatientID: 1, FaceUID: "face-1", Embedding: []float32{1, 0, 0}}}
	_, err := FindBestMatch([]float32{0, 0, 0}, corpus, 0.85)
	if !errors.Is(err, ErrZeroVector) {
		t.Fatalf("expected ErrZeroVector, got %v", err)
	}
}

func TestFindBestMatch_InvalidThreshold(t *testing.T) {
	corpus := []CandidateFace{{PatientID: 1, FaceUID: "face-1", Embedding: []float32{1, 0, 0}}}
	for _, threshold := range []float64{-1.5, 1.5, math.NaN()} {
		_, err := FindBestMatch([]float32{1, 0, 0}, corpus, threshold)
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %v: expected ErrInvalidThreshold, got %v", threshold, err)
		}
	}
}

func TestFindBestMatch_ExactArithmeticScenario(t *testing.T) {
	// Patient 3 scores 0.99/sqrt(0.99^2+0.1^2) ~= 0.995, which must lose to
	// patient 1's exact 1.0.
	decision, err := FindBestMatch([]float32{1, 0, 0}, threePatientCorpus(), 0.85)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if !decision.Matched {
		t.Fatal("expected a match")
	}
	if decision.PatientID != 1 {
		t.Errorf("expected patient 1 to win, got %d", decision.PatientID)
	}
	if !almostEqual(decision.BestScore, 1.0) {
		t.Errorf("expected best score 1.0, got %v", decision.BestScore)
	}
}

func TestFindBestMatch_TieBreakScenario(t *testing.T) {
	// Patients 1 and 2 both score cos(45 deg) ~= 0.7071 against this query,
	// a genuine tie.
	query := []float32{0.5, 0.5, 0}
	corpus := []CandidateFace{
		{PatientID: 1, FaceUID: "face-1", Embedding: []float32{1, 0, 0}},
		{PatientID: 2, FaceUID: "face-2", Embedding: []float32{0, 1, 0}},
	}
	wantScore := 1 / math.Sqrt2

	t.Run("below threshold", func(t *testing.T) {
		decision, err := FindBestMatch(query, corpus, 0.9)
		if err != nil {
			t.Fatalf("FindBestMatch failed: %v", err)
		}
		if decision.Matched {
			t.Error("expected no match at threshold 0.9")
		}
		if math.Abs(decision.BestScore-wantScore) > 1e-6 {
			t.Errorf("expected best score ~%v, got %v", wantScore, decision.BestScore)
		}
	})

	t.Run("first entry wins the tie", func(t *testing.T) {
		decision, err := FindBestMatch(query, corpus, 0.5)
		if err != nil {
			t.Fatalf("FindBestMatch failed: %v", err)
		}
		if !decision.Matched {
			t.Fatal("expected a match at threshold 0.5")
		}
		if decision.PatientID != 1 {
			t.Errorf("tie-break must keep the first entry in iteration order, got patient %d", decision.PatientID)
		}
	})
}

func TestValidateThreshold(t *testing.T) {
	for _, valid := range []float64{-1, -0.5, 0, 0.85, 1} {
		if err := ValidateThreshold(valid); err != nil {
			t.Errorf("threshold %v: unexpected error %v", valid, err)
		}
	}
	for _, invalid := range []float64{-1.01, 1.01, math.Inf(1), math.NaN()} {
		if err := ValidateThreshold(invalid); err == nil {
			t.Errorf("threshold %v: expected an error", invalid)
		}
	}
}
