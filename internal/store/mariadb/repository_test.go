package mariadb

import (
	"math"
	"testing"
)

func TestEmbeddingCodec_RoundTrip(t *testing.T) {
	embedding := []float32{0.125, -0.5, 0, 1, -1, 0.0078125}

	raw, err := encodeEmbedding(embedding)
	if err != nil {
		t.Fatalf("encodeEmbedding failed: %v", err)
	}

	decoded, err := decodeEmbedding(raw)
	if err != nil {
		t.Fatalf("decodeEmbedding failed: %v", err)
	}

	if len(decoded) != len(embedding) {
		t.Fatalf("expected %d values, got %d", len(embedding), len(decoded))
	}
	for i := range embedding {
		if math.Abs(float64(decoded[i]-embedding[i])) > 1e-9 {
			t.Errorf("value %d: expected %v, got %v", i, embedding[i], decoded[i])
		}
	}
}

func TestDecodeEmbedding_LegacyPythonFormat(t *testing.T) {
	// Rows written by the previous clinic backend store plain JSON arrays.
	decoded, err := decodeEmbedding("[0.1, 0.2, 0.3]")
	if err != nil {
		t.Fatalf("decodeEmbedding failed: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 values, got %d", len(decoded))
	}
}

func TestDecodeEmbedding_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"a":1}`, `["x"]`} {
		if _, err := decodeEmbedding(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
