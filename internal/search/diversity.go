package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/vector"
)

// EmbeddingLookup recomputes the embedding for an image on a cache miss.
type EmbeddingLookup func(ctx context.Context, imageID string) ([]float32, error)

// DiversityReranker filters near-duplicate results while preserving rank
// order. A result is kept only when its embedding is at most threshold-similar
// to every already accepted result.
type DiversityReranker struct {
	cache     embedding.Cache
	lookup    EmbeddingLookup
	threshold float64
	logger    *zap.Logger
}

// NewDiversityReranker creates a reranker. A non-positive threshold falls
// back to 0.95.
func NewDiversityReranker(cache embedding.Cache, lookup EmbeddingLookup, threshold float64, logger *zap.Logger) *DiversityReranker {
	if threshold <= 0 {
		threshold = 0.95
	}
	return &DiversityReranker{cache: cache, lookup: lookup, threshold: threshold, logger: logger}
}

// Rerank returns up to target results with near-duplicates removed. Results
// whose embedding cannot be obtained are accepted unchanged.
func (d *DiversityReranker) Rerank(ctx context.Context, results []*models.SearchResult, target int) []*models.SearchResult {
	if target <= 0 || len(results) <= 1 {
		return results
	}

	accepted := make([]*models.SearchResult, 0, target)
	acceptedVecs := make([][]float32, 0, target)

	for _, result := range results {
		if len(accepted) >= target {
			break
		}
		vec := d.embeddingFor(ctx, result.ImageID)
		if vec == nil {
			accepted = append(accepted, result)
			continue
		}

		duplicate := false
		for _, prev := range acceptedVecs {
			if vector.CosineSimilarity(vec, prev) > d.threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		accepted = append(accepted, result)
		acceptedVecs = append(acceptedVecs, vec)
	}
	return accepted
}

func (d *DiversityReranker) embeddingFor(ctx context.Context, imageID string) []float32 {
	if vec, ok := d.cache.Get(ctx, imageID); ok {
		return vec
	}
	if d.lookup == nil {
		return nil
	}
	vec, err := d.lookup(ctx, imageID)
	if err != nil {
		d.logger.Debug("diversity lookup failed", zap.String("image_id", imageID), zap.Error(err))
		return nil
	}
	d.cache.Set(ctx, imageID, vec)
	return vec
}
