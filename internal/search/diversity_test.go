package search

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/models"
)

func resultList(ids ...string) []*models.SearchResult {
	out := make([]*models.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = &models.SearchResult{ImageID: id, Score: 1.0 - float64(i)*0.1}
	}
	return out
}

func TestDiversityFiltersNearDuplicates(t *testing.T) {
	ctx := context.Background()
	cache := embedding.NewLRUCache(16)
	cache.Set(ctx, "a", []float32{1, 0, 0})
	cache.Set(ctx, "b", []float32{0.999, 0.01, 0}) // near-duplicate of a
	cache.Set(ctx, "c", []float32{0, 1, 0})

	d := NewDiversityReranker(cache, nil, 0.95, zap.NewNop())
	got := d.Rerank(ctx, resultList("a", "b", "c"), 3)

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ImageID != "a" || got[1].ImageID != "c" {
		t.Errorf("kept %s, %s; want a, c", got[0].ImageID, got[1].ImageID)
	}
}

func TestDiversityPreservesOrderAndStopsAtTarget(t *testing.T) {
	ctx := context.Background()
	cache := embedding.NewLRUCache(16)
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}}
	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		cache.Set(ctx, id, vecs[i])
	}

	d := NewDiversityReranker(cache, nil, 0.95, zap.NewNop())
	got := d.Rerank(ctx, resultList(ids...), 2)

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ImageID != "a" || got[1].ImageID != "b" {
		t.Errorf("order not preserved: %s, %s", got[0].ImageID, got[1].ImageID)
	}
}

func TestDiversityRecomputesOnMiss(t *testing.T) {
	ctx := context.Background()
	cache := embedding.NewLRUCache(16)
	cache.Set(ctx, "a", []float32{1, 0, 0})

	calls := 0
	lookup := func(_ context.Context, imageID string) ([]float32, error) {
		calls++
		if imageID == "dup" {
			return []float32{1, 0, 0}, nil
		}
		return nil, fmt.Errorf("no pixels for %s", imageID)
	}

	d := NewDiversityReranker(cache, lookup, 0.95, zap.NewNop())
	got := d.Rerank(ctx, resultList("a", "dup", "unknowable"), 3)

	if calls != 2 {
		t.Errorf("lookup calls = %d, want 2", calls)
	}
	// dup was recomputed and filtered; unknowable could not be compared and
	// is accepted unchanged.
	if len(got) != 2 || got[1].ImageID != "unknowable" {
		t.Errorf("unexpected survivors: %+v", got)
	}
	// The recomputed embedding was written back to the cache.
	if _, ok := cache.Get(ctx, "dup"); !ok {
		t.Error("recomputed embedding should be cached")
	}
}
