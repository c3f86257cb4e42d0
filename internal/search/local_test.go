package search

import (
	"context"
	"image"
	"testing"

	"github.com/omoide-dev/omoide/internal/embedding"
)

func TestGenerateCrops(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	crops := GenerateCrops(img)
	if len(crops) != 5 {
		t.Fatalf("got %d crops, want 5", len(crops))
	}

	// Center crop is square on the short side.
	center := crops[0].Bounds()
	if center.Dx() != 60 || center.Dy() != 60 {
		t.Errorf("center crop = %dx%d, want 60x60", center.Dx(), center.Dy())
	}

	// Quadrants cover half the frame each.
	for i, crop := range crops[1:] {
		b := crop.Bounds()
		if b.Dx() != 50 || b.Dy() != 30 {
			t.Errorf("quadrant %d = %dx%d, want 50x30", i, b.Dx(), b.Dy())
		}
	}
}

func TestLocalRescoreBlendsScores(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewMockEmbedder(32)
	reranker := NewLocalReranker(emb, 0.6, 0.4)

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	queryVec, err := emb.EncodeText(ctx, "sunset")
	if err != nil {
		t.Fatal(err)
	}

	got, err := reranker.Rescore(ctx, img, queryVec, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	// final = 0.6*global + 0.4*local with local in [-1,1].
	if got < 0.6*0.8-0.4 || got > 0.6*0.8+0.4 {
		t.Errorf("blended score %f out of range", got)
	}
}

func TestLocalRescorePassesThroughWhenUnavailable(t *testing.T) {
	ctx := context.Background()
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{}}
	reranker := NewLocalReranker(emb, 0.6, 0.4)

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	got, err := reranker.Rescore(ctx, img, []float32{1, 0, 0}, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.8 {
		t.Errorf("got %f, want the untouched global score", got)
	}
}
