// Package vector provides the vector index boundary and similarity helpers.
package vector

import (
	"context"

	"github.com/omoide-dev/omoide/internal/models"
)

// Hit is a single nearest-neighbor result with its stored payload.
type Hit struct {
	ID       string
	Score    float64 // raw cosine similarity in [-1,1] for normalized vectors
	Metadata *models.ImageMetadata
	Filename string
}

// Payload is the metadata stored alongside a vector.
type Payload struct {
	Filename string
	Metadata *models.ImageMetadata
}

// Index defines vector storage and similarity search with per-user namespaces.
// A search against an unknown namespace returns zero hits, not an error.
type Index interface {
	Upsert(ctx context.Context, user, id string, vec []float32, payload *Payload) error
	// Search returns up to topK hits ordered by descending similarity.
	// Hits below scoreThreshold are excluded; a threshold <= -1 disables it.
	Search(ctx context.Context, user string, vec []float32, topK int, scoreThreshold float64) ([]*Hit, error)
	Delete(ctx context.Context, user, id string) error
	Size(user string) int
	Close() error
}
