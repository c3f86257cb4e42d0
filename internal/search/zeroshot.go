package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/vector"
	"github.com/omoide-dev/omoide/pkg/utils"
)

// Prompts contrasted against the concept prompts. The confidence measures how
// much closer the image sits to the concept than to these.
var negativePrompts = []string{
	"a photo without any specific subject",
	"an empty scene",
	"a landscape or nature scene",
}

// ZeroShotGate decides whether an image actually contains a queried concept.
type ZeroShotGate struct {
	embedder  embedding.Embedder
	threshold float64
}

// NewZeroShotGate creates a gate. A non-positive threshold falls back to 0.5.
func NewZeroShotGate(embedder embedding.Embedder, threshold float64) *ZeroShotGate {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &ZeroShotGate{embedder: embedder, threshold: threshold}
}

// Confidence scores how confidently the image embedding matches concept,
// mapped to [0,1].
func (g *ZeroShotGate) Confidence(ctx context.Context, concept string, imageVec []float32) (float64, error) {
	positives := []string{
		fmt.Sprintf("a photo of %s", concept),
		concept,
		fmt.Sprintf("an image containing %s", concept),
	}

	meanPos, err := g.meanSimilarity(ctx, positives, imageVec)
	if err != nil {
		return 0, err
	}
	meanNeg, err := g.meanSimilarity(ctx, negativePrompts, imageVec)
	if err != nil {
		return 0, err
	}
	return (meanPos - meanNeg + 1.0) / 2.0, nil
}

// Contains reports whether the image passes the confidence threshold. When
// the embedder is unavailable every image passes.
func (g *ZeroShotGate) Contains(ctx context.Context, concept string, imageVec []float32) (bool, float64, error) {
	confidence, err := g.Confidence(ctx, concept, imageVec)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			return true, 0, nil
		}
		return false, 0, err
	}
	return confidence > g.threshold, confidence, nil
}

func (g *ZeroShotGate) meanSimilarity(ctx context.Context, prompts []string, imageVec []float32) (float64, error) {
	sims := make([]float64, 0, len(prompts))
	for _, prompt := range prompts {
		vec, err := g.embedder.EncodeText(ctx, prompt)
		if err != nil {
			return 0, err
		}
		sims = append(sims, vector.CosineSimilarity(vec, imageVec))
	}
	return utils.Mean(sims), nil
}
