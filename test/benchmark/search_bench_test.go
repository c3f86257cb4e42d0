package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/query"
	"github.com/omoide-dev/omoide/internal/ranking"
	"github.com/omoide-dev/omoide/internal/vector"
)

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(512)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		vec := make([]float32, 512)
		vec[i%512] = 1.0
		_ = idx.Upsert(ctx, "default", fmt.Sprintf("img-%d", i), vec, nil)
	}
	q := make([]float32, 512)
	q[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, "default", q, 10, -1)
	}
}

func BenchmarkMetadataMatchScore(b *testing.B) {
	attrs := query.Parse("dog playing in the park at sunset")
	meta := &models.ImageMetadata{
		Objects: []string{"dog", "ball", "tree"},
		Action:  "playing",
		Time:    "sunset",
		Scene:   "park",
		Weather: "sunny",
		Emotion: "happy",
	}
	weights := ranking.DefaultWeights()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ranking.MatchScore(attrs, meta, weights)
	}
}

func BenchmarkMockEmbedderEncodeText(b *testing.B) {
	e := embedding.NewMockEmbedder(512)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.EncodeText(ctx, "benchmark query text for embedding")
	}
}
