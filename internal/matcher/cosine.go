package matcher

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two embeddings have different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrZeroVector is returned when an embedding has zero Euclidean norm,
	// which makes cosine similarity undefined.
	ErrZeroVector = errors.New("embedding has zero norm")
	// ErrInvalidThreshold is returned when a threshold falls outside [-1, 1].
	ErrInvalidThreshold = errors.New("threshold must be in [-1, 1]")
)

// CosineSimilarity computes the cosine similarity between two embeddings.
// Returns a value in [-1, 1]: 1 means identical direction, -1 opposite.
// Embeddings are stored as float32 but all arithmetic runs in float64 so
// a corpus scan uses one consistent precision throughout.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity, nil
}

// ValidateThreshold checks that a similarity threshold is a usable value.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}
