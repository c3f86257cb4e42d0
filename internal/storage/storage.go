// Package storage defines the persistence interface for images, faces and
// face clusters.
package storage

import (
	"context"
	"errors"

	"github.com/omoide-dev/omoide/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage defines image, face and cluster persistence operations.
type Storage interface {
	// Image operations
	CreateImage(ctx context.Context, img *models.Image) error
	GetImage(ctx context.Context, id string) (*models.Image, error)
	UpdateImageMetadata(ctx context.Context, id string, meta *models.ImageMetadata) error
	DeleteImage(ctx context.Context, id string) error
	ListImages(ctx context.Context, offset, limit int) ([]*models.Image, error)
	GetImagesByClusterID(ctx context.Context, clusterID string) ([]*models.Image, error)

	// Face operations
	CreateFaces(ctx context.Context, faces []*models.Face) error
	GetFace(ctx context.Context, id string) (*models.Face, error)
	ListFaces(ctx context.Context) ([]*models.Face, error)
	ListUnassignedFaces(ctx context.Context) ([]*models.Face, error)
	AssignFaceCluster(ctx context.Context, faceID, clusterID string) error
	ReassignFaces(ctx context.Context, fromClusterID, toClusterID string) error
	DeleteFacesByImageID(ctx context.Context, imageID string) error

	// Cluster operations
	CreateCluster(ctx context.Context, cluster *models.FaceCluster) error
	GetCluster(ctx context.Context, id string) (*models.FaceCluster, error)
	ListClusters(ctx context.Context) ([]*models.FaceCluster, error)
	UpdateCluster(ctx context.Context, cluster *models.FaceCluster) error
	DeleteCluster(ctx context.Context, id string) error
	FindClusterByName(ctx context.Context, name string) (*models.FaceCluster, error)
	FindClusterByNameSubstring(ctx context.Context, fragment string) (*models.FaceCluster, error)
	ResetClusters(ctx context.Context) error

	// Stats
	CountImages(ctx context.Context) (int64, error)
	CountFaces(ctx context.Context) (int64, error)

	Close() error
}
