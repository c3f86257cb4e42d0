package embedding

import (
	"context"
	"hash/fnv"
	"image"
	"math"
	"strings"

	"github.com/omoide-dev/omoide/pkg/utils"
)

// MockEmbedder produces deterministic unit vectors without any model backend.
// Texts sharing words produce correlated vectors, which is enough for tests
// and for running the pipeline offline.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder creates a mock embedder with the given dimensionality.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEmbedder{dimensions: dimensions}
}

// EncodeText returns a deterministic embedding built from the text's words.
func (m *MockEmbedder) EncodeText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.dimensions)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{""}
	}
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		seed := h.Sum64()
		for i := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] += float32(math.Sin(float64(seed%10007)) / float64(len(words)))
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EncodeImage hashes the image bounds and a sparse pixel sample into a
// deterministic embedding.
func (m *MockEmbedder) EncodeImage(_ context.Context, img image.Image) ([]float32, error) {
	h := fnv.New64a()
	bounds := img.Bounds()
	h.Write([]byte{byte(bounds.Dx()), byte(bounds.Dy())})
	step := bounds.Dx() / 8
	if step < 1 {
		step = 1
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			h.Write([]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8)})
		}
	}
	seed := h.Sum64()
	vec := make([]float32, m.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(math.Sin(float64(seed % 10007)))
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// Dimensions returns the embedding dimensionality.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// Close is a no-op.
func (m *MockEmbedder) Close() error {
	return nil
}
