package vector

import "math"

// CosineSimilarity returns the dot product of two vectors, clipped to [-1,1].
// For L2-normalized vectors this is the cosine similarity.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return math.Max(-1, math.Min(1, dot))
}

// CosineDistance returns max(0, 1 - CosineSimilarity(a, b)).
func CosineDistance(a, b []float32) float64 {
	return math.Max(0, 1-CosineSimilarity(a, b))
}

// EuclideanDistance returns the L2 distance between two vectors.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Mean returns the component-wise mean of the vectors. All vectors must share
// one dimension; returns nil for empty input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range v {
			out[i] += float64(v[i])
		}
	}
	mean := make([]float32, len(out))
	for i := range out {
		mean[i] = float32(out[i] / float64(len(vectors)))
	}
	return mean
}
