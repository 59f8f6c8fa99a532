// Package extract turns raw patient photos into face embeddings by calling
// a face-embedding model server. Extraction failures are always loud and
// typed so callers can tell "could not analyze this image" apart from
// "analyzed it and found no match."
package extract

import (
	"context"
	"errors"
)

var (
	// ErrNoFace means the image was analyzable but contains no detectable face.
	ErrNoFace = errors.New("no face detected in image")
	// ErrUnavailable means the embedding service could not be reached or
	// returned a server-side failure.
	ErrUnavailable = errors.New("face embedding service unavailable")
)

// Provider computes a face embedding from raw image bytes. Implementations
// must never return a garbage vector on failure: either a valid embedding
// of the agreed dimensionality or an error.
type Provider interface {
	Name() string
	ExtractFace(ctx context.Context, imageData []byte) ([]float32, error)
}
