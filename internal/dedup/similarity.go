package dedup

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding serializes a float32 vector to a binary BLOB using
// little-endian encoding.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding deserializes a binary BLOB back to a float32 vector.
func DecodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}

	n := len(b) / 4
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// CosineDistance computes 1 - cosine similarity between two vectors, so
// lower means more similar. Zero vectors are maximally distant. Returns an
// error on dimension mismatch.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 1, nil
	}

	var dot, normA, normB float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	d := 1 - dot/math.Sqrt(normA*normB)
	// Float error can push the result a hair outside [0, 2].
	if d < 0 {
		d = 0
	}
	return d, nil
}
