package ingest

import "math"

// NormalizeVector returns a unit-length copy of v. Stored and query vectors
// are both normalized so cosine similarity reduces to a dot product at
// search time. A zero vector has no direction and comes back as zeros.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := float32(math.Sqrt(sumSquares))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}
