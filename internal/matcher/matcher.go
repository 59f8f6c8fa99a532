// Package matcher decides which enrolled patient, if any, a query face
// embedding belongs to. It is a pure function over its inputs: a single
// linear scan with no index, no caching and no retries.
package matcher

import (
	"errors"
	"fmt"
	"math"
)

// ScoreNone marks a decision where no comparison was possible (empty corpus
// or every stored embedding unusable). It is deliberately distinguishable
// from -1.0, which is a legitimate worst-case cosine similarity.
var ScoreNone = math.Inf(-1)

// CandidateFace is one stored (patient, embedding) pair considered during a scan.
type CandidateFace struct {
	PatientID int64
	FaceUID   string
	Embedding []float32
}

// Decision is the outcome of a best-match scan. PatientID and FaceUID are
// only populated when Matched is true: a nearest-but-rejected candidate is
// not leaked through the decision. Compared counts embeddings actually
// scored; Skipped counts zero-norm entries excluded from consideration.
type Decision struct {
	Matched   bool
	PatientID int64
	FaceUID   string
	BestScore float64
	Compared  int
	Skipped   int
}

// FindBestMatch scans the full corpus once, tracking the highest cosine
// similarity against the query, and applies threshold as a post-scan filter.
//
// Semantics:
//   - empty corpus: Matched=false, BestScore=ScoreNone, no error
//   - ties keep the first corpus entry in iteration order (strict > on the
//     running maximum, never re-ranked)
//   - a zero-norm stored embedding is skipped, never selected as best, and
//     never aborts the scan against the rest of the corpus
//   - a zero-norm query or a dimension mismatch against any corpus entry
//     fails the whole call; a silent skip could mask an encoding-version
//     mismatch between enrollment and query pipelines
func FindBestMatch(query []float32, corpus []CandidateFace, threshold float64) (Decision, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return Decision{}, err
	}
	if norm(query) == 0 {
		return Decision{}, fmt.Errorf("query: %w", ErrZeroVector)
	}

	decision := Decision{BestScore: ScoreNone}
	bestIdx := -1

	for i, candidate := range corpus {
		score, err := CosineSimilarity(query, candidate.Embedding)
		if err != nil {
			if errors.Is(err, ErrZeroVector) {
				// Corrupt stored record; exclude it and keep scanning.
				decision.Skipped++
				continue
			}
			return Decision{}, fmt.Errorf("face %s (patient %d): %w", candidate.FaceUID, candidate.PatientID, err)
		}

		decision.Compared++
		if bestIdx < 0 || score > decision.BestScore {
			decision.BestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 && decision.BestScore >= threshold {
		decision.Matched = true
		decision.PatientID = corpus[bestIdx].PatientID
		decision.FaceUID = corpus[bestIdx].FaceUID
	}

	return decision, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
