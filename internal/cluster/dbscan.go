// Package cluster groups face embeddings into person identities.
package cluster

import (
	"github.com/omoide-dev/omoide/internal/vector"
)

// Noise marks a point that belongs to no cluster.
const Noise = -1

// DBSCAN clusters points by cosine distance. It returns one label per point:
// consecutive cluster indices starting at 0, or Noise for outliers. The result
// is deterministic for a fixed input order.
func DBSCAN(points [][]float32, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}

	// Distances are symmetric; compute the upper triangle once.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := vector.CosineDistance(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if dist[i][j] <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	visited := make([]bool, n)
	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		seeds := neighbors(i)
		if len(seeds) < minSamples {
			continue
		}

		labels[i] = next
		for k := 0; k < len(seeds); k++ {
			j := seeds[k]
			if labels[j] == Noise {
				labels[j] = next
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			more := neighbors(j)
			if len(more) >= minSamples {
				seeds = append(seeds, more...)
			}
		}
		next++
	}
	return labels
}
