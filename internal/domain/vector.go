package domain

import "math"

// CosineSimilarity computes the cosine of the angle between a and b.
// Returns 0 for mismatched lengths or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// CosineDistance is 1 - CosineSimilarity. Not a true metric, but every
// clustering threshold in this codebase is calibrated against it.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
