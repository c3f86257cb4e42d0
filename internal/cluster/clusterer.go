package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/storage"
	"github.com/omoide-dev/omoide/internal/vector"
)

// DefaultEps and DefaultMinSamples are the clustering defaults. With
// minSamples 2 a person seen only once stays unclustered until a second
// face arrives.
const (
	DefaultEps        = 0.35
	DefaultMinSamples = 2
)

var (
	// ErrBusy is returned when a clustering run is already in progress.
	ErrBusy = errors.New("cluster: clustering already in progress")
	// ErrInvalidArgument is returned for malformed cluster operations.
	ErrInvalidArgument = errors.New("cluster: invalid argument")
)

// Clusterer runs face clustering and manages person identities.
type Clusterer struct {
	store      storage.Storage
	eps        float64
	minSamples int
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewClusterer creates a clusterer. Non-positive eps or minSamples fall back
// to the defaults.
func NewClusterer(store storage.Storage, eps float64, minSamples int, logger *zap.Logger) *Clusterer {
	if eps <= 0 {
		eps = DefaultEps
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Clusterer{store: store, eps: eps, minSamples: minSamples, logger: logger}
}

func (c *Clusterer) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrBusy
	}
	c.running = true
	return nil
}

func (c *Clusterer) release() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// ClusterFaces groups all currently unassigned faces. Faces ingested while a
// run is in progress are picked up by the next run. At most one run executes
// at a time; concurrent calls fail with ErrBusy.
func (c *Clusterer) ClusterFaces(ctx context.Context) (*models.ClusterStats, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	faces, err := c.store.ListUnassignedFaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unassigned faces: %w", err)
	}
	return c.run(ctx, faces)
}

// Recluster discards every existing cluster and assignment, then clusters all
// faces from scratch.
func (c *Clusterer) Recluster(ctx context.Context) (*models.ClusterStats, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	if err := c.store.ResetClusters(ctx); err != nil {
		return nil, fmt.Errorf("resetting clusters: %w", err)
	}
	faces, err := c.store.ListFaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing faces: %w", err)
	}
	return c.run(ctx, faces)
}

func (c *Clusterer) run(ctx context.Context, faces []*models.Face) (*models.ClusterStats, error) {
	stats := &models.ClusterStats{TotalFaces: len(faces)}
	if len(faces) == 0 {
		return stats, nil
	}

	points := make([][]float32, len(faces))
	for i, face := range faces {
		points[i] = face.Embedding
	}
	labels := DBSCAN(points, c.eps, c.minSamples)

	// Group member indices per cluster label.
	groups := make(map[int][]int)
	order := make([]int, 0)
	for i, label := range labels {
		if label == Noise {
			stats.Outliers++
			continue
		}
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], i)
	}

	for _, label := range order {
		members := groups[label]
		clusterID := uuid.New().String()
		repID := representative(faces, members)

		if err := c.store.CreateCluster(ctx, &models.FaceCluster{
			ID:                   clusterID,
			RepresentativeFaceID: repID,
		}); err != nil {
			return nil, fmt.Errorf("creating cluster: %w", err)
		}
		for _, idx := range members {
			if err := c.store.AssignFaceCluster(ctx, faces[idx].ID, clusterID); err != nil {
				return nil, fmt.Errorf("assigning face %s: %w", faces[idx].ID, err)
			}
		}
		stats.Clustered += len(members)
		stats.ClustersCreated++
	}

	c.logger.Info("face clustering completed",
		zap.Int("total_faces", stats.TotalFaces),
		zap.Int("clustered", stats.Clustered),
		zap.Int("clusters_created", stats.ClustersCreated),
		zap.Int("outliers", stats.Outliers),
	)
	return stats, nil
}

// representative returns the member face closest to the cluster centroid by
// Euclidean distance.
func representative(faces []*models.Face, members []int) string {
	embeddings := make([][]float32, len(members))
	for i, idx := range members {
		embeddings[i] = faces[idx].Embedding
	}
	mean := vector.Mean(embeddings)

	bestID := faces[members[0]].ID
	bestDist := vector.EuclideanDistance(faces[members[0]].Embedding, mean)
	for _, idx := range members[1:] {
		if d := vector.EuclideanDistance(faces[idx].Embedding, mean); d < bestDist {
			bestDist = d
			bestID = faces[idx].ID
		}
	}
	return bestID
}

// Merge combines two or more clusters into the first. Every listed cluster
// must exist; nothing is modified when validation fails.
func (c *Clusterer) Merge(ctx context.Context, clusterIDs []string) (*models.FaceCluster, error) {
	if len(clusterIDs) < 2 {
		return nil, fmt.Errorf("%w: merge requires at least two cluster ids", ErrInvalidArgument)
	}

	clusters := make([]*models.FaceCluster, len(clusterIDs))
	for i, id := range clusterIDs {
		cluster, err := c.store.GetCluster(ctx, id)
		if err != nil {
			return nil, err
		}
		clusters[i] = cluster
	}

	target := clusters[0]
	for _, source := range clusters[1:] {
		if source.ID == target.ID {
			continue
		}
		if err := c.store.ReassignFaces(ctx, source.ID, target.ID); err != nil {
			return nil, fmt.Errorf("reassigning faces: %w", err)
		}
		if target.Name == "" && source.Name != "" {
			target.Name = source.Name
		}
		if err := c.store.DeleteCluster(ctx, source.ID); err != nil {
			return nil, fmt.Errorf("deleting merged cluster: %w", err)
		}
	}

	if err := c.refreshRepresentative(ctx, target); err != nil {
		return nil, err
	}
	if err := c.store.UpdateCluster(ctx, target); err != nil {
		return nil, err
	}
	return c.store.GetCluster(ctx, target.ID)
}

// Label names a cluster. If another cluster already carries the same name the
// two are merged and the surviving, named cluster is returned.
func (c *Clusterer) Label(ctx context.Context, clusterID, name string) (*models.FaceCluster, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
	}
	cluster, err := c.store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.FindClusterByName(ctx, name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != cluster.ID {
		c.logger.Info("merging cluster into existing person",
			zap.String("cluster_id", clusterID),
			zap.String("existing_id", existing.ID),
			zap.String("name", name),
		)
		return c.Merge(ctx, []string{existing.ID, cluster.ID})
	}

	cluster.Name = name
	if err := c.store.UpdateCluster(ctx, cluster); err != nil {
		return nil, err
	}
	return cluster, nil
}

func (c *Clusterer) refreshRepresentative(ctx context.Context, cluster *models.FaceCluster) error {
	faces, err := c.memberFaces(ctx, cluster.ID)
	if err != nil {
		return err
	}
	if len(faces) == 0 {
		cluster.RepresentativeFaceID = ""
		return nil
	}
	members := make([]int, len(faces))
	for i := range faces {
		members[i] = i
	}
	cluster.RepresentativeFaceID = representative(faces, members)
	return nil
}

func (c *Clusterer) memberFaces(ctx context.Context, clusterID string) ([]*models.Face, error) {
	all, err := c.store.ListFaces(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Face
	for _, face := range all {
		if face.ClusterID == clusterID {
			out = append(out, face)
		}
	}
	return out, nil
}
