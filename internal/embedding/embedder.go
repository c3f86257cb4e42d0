// Package embedding defines the model-oracle boundary: text/image encoders,
// the caption extractor, the face detector, and the embedding cache.
package embedding

import (
	"context"
	"errors"
	"image"

	"github.com/omoide-dev/omoide/internal/models"
)

// ErrUnavailable is returned when an optional oracle is not configured or not
// reachable. Callers degrade the affected scoring path instead of failing the
// whole operation.
var ErrUnavailable = errors.New("embedding: oracle unavailable")

// Embedder produces L2-normalized vector embeddings for text and images.
// Implementations must be deterministic for identical input.
type Embedder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	Dimensions() int
	Close() error
}

// Captioner generates free-text captions and structured metadata for images.
// An unavailable captioner is a valid state; both methods then return
// ErrUnavailable.
type Captioner interface {
	Describe(ctx context.Context, img image.Image) (string, error)
	ExtractMetadata(ctx context.Context, img image.Image) (*models.ImageMetadata, error)
	Available() bool
}

// DetectedFace is a single face found in an image.
type DetectedFace struct {
	Embedding  []float32 // L2-normalized
	BBox       models.BBox
	Confidence float64
}

// FaceDetector locates faces in an image and extracts their embeddings.
type FaceDetector interface {
	DetectFaces(ctx context.Context, img image.Image) ([]DetectedFace, error)
}
