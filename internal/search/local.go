package search

import (
	"context"
	"errors"
	"image"

	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/vector"
)

// LocalReranker refines a global image score with crop-level similarity: the
// best crop match captures concepts that occupy only part of the frame.
type LocalReranker struct {
	embedder     embedding.Embedder
	globalWeight float64
	localWeight  float64
}

// NewLocalReranker creates a reranker. Non-positive weights fall back to the
// 0.6/0.4 defaults.
func NewLocalReranker(embedder embedding.Embedder, globalWeight, localWeight float64) *LocalReranker {
	if globalWeight <= 0 {
		globalWeight = 0.6
	}
	if localWeight <= 0 {
		localWeight = 0.4
	}
	return &LocalReranker{embedder: embedder, globalWeight: globalWeight, localWeight: localWeight}
}

// Rescore blends globalScore with the maximum crop similarity. When the
// embedder is unavailable the global score passes through unchanged.
func (l *LocalReranker) Rescore(ctx context.Context, img image.Image, queryVec []float32, globalScore float64) (float64, error) {
	local, err := l.localScore(ctx, img, queryVec)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			return globalScore, nil
		}
		return 0, err
	}
	return l.globalWeight*globalScore + l.localWeight*local, nil
}

func (l *LocalReranker) localScore(ctx context.Context, img image.Image, queryVec []float32) (float64, error) {
	crops := GenerateCrops(img)
	best := -1.0
	for _, crop := range crops {
		vec, err := l.embedder.EncodeImage(ctx, crop)
		if err != nil {
			return 0, err
		}
		if sim := vector.CosineSimilarity(queryVec, vec); sim > best {
			best = sim
		}
	}
	return best, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// GenerateCrops returns the center square crop followed by the 2x2 grid
// quadrants. Images that do not support cropping yield only themselves.
func GenerateCrops(img image.Image) []image.Image {
	src, ok := img.(subImager)
	if !ok {
		return []image.Image{img}
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	crops := make([]image.Image, 0, 5)

	side := width
	if height < side {
		side = height
	}
	left := bounds.Min.X + (width-side)/2
	top := bounds.Min.Y + (height-side)/2
	crops = append(crops, src.SubImage(image.Rect(left, top, left+side, top+side)))

	halfW, halfH := width/2, height/2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			x0 := bounds.Min.X + j*halfW
			y0 := bounds.Min.Y + i*halfH
			crops = append(crops, src.SubImage(image.Rect(x0, y0, x0+halfW, y0+halfH)))
		}
	}
	return crops
}
