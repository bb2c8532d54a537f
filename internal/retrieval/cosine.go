package retrieval

import "math"

// CosineSimilarity returns dot(a,b)/(||a||*||b||), or 0 when either vector
// has zero norm. Mismatched lengths compare only the shared prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		normA += float64(x) * float64(x)
	}
	for _, x := range b {
		normB += float64(x) * float64(x)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
