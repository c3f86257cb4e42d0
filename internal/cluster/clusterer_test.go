package cluster

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/storage"
)

func newTestClusterer(t *testing.T) (*Clusterer, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return NewClusterer(store, DefaultEps, DefaultMinSamples, zap.NewNop()), store
}

func seedFaces(t *testing.T, store storage.Storage, embeddings ...[]float32) {
	t.Helper()
	ctx := context.Background()
	if err := store.CreateImage(ctx, &models.Image{ID: "img1", Filename: "a.jpg"}); err != nil {
		t.Fatal(err)
	}
	faces := make([]*models.Face, len(embeddings))
	for i, emb := range embeddings {
		faces[i] = &models.Face{ID: fmt.Sprintf("f%d", i), ImageID: "img1", Embedding: emb}
	}
	if err := store.CreateFaces(ctx, faces); err != nil {
		t.Fatal(err)
	}
}

func TestClusterFacesEmpty(t *testing.T) {
	clusterer, _ := newTestClusterer(t)

	stats, err := clusterer.ClusterFaces(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFaces != 0 || stats.ClustersCreated != 0 {
		t.Errorf("expected zeroed stats, got %+v", stats)
	}
}

func TestClusterFacesGroupsSimilar(t *testing.T) {
	clusterer, store := newTestClusterer(t)
	ctx := context.Background()

	seedFaces(t, store,
		[]float32{1, 0, 0},
		[]float32{0.99, 0.05, 0},
		[]float32{0, 1, 0},
		[]float32{0.05, 0.99, 0},
		[]float32{0, 0, 1}, // isolated
	)

	stats, err := clusterer.ClusterFaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFaces != 5 {
		t.Errorf("total = %d, want 5", stats.TotalFaces)
	}
	if stats.ClustersCreated != 2 {
		t.Errorf("clusters = %d, want 2", stats.ClustersCreated)
	}
	if stats.Clustered != 4 || stats.Outliers != 1 {
		t.Errorf("clustered/outliers = %d/%d, want 4/1", stats.Clustered, stats.Outliers)
	}

	// Each clustered face carries exactly one cluster id, and the isolated
	// face carries none.
	faces, err := store.ListFaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assigned := 0
	for _, face := range faces {
		if face.ClusterID != "" {
			assigned++
		}
		if face.ID == "f4" && face.ClusterID != "" {
			t.Error("isolated face should stay unassigned")
		}
	}
	if assigned != 4 {
		t.Errorf("assigned = %d, want 4", assigned)
	}

	clusters, err := store.ListClusters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range clusters {
		if c.RepresentativeFaceID == "" {
			t.Errorf("cluster %s has no representative", c.ID)
		}
	}

	// A second run has nothing new to do.
	stats, err = clusterer.ClusterFaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFaces != 1 || stats.ClustersCreated != 0 {
		t.Errorf("second run stats = %+v", stats)
	}
}

func TestMergeValidation(t *testing.T) {
	clusterer, store := newTestClusterer(t)
	ctx := context.Background()

	_ = store.CreateCluster(ctx, &models.FaceCluster{ID: "c1"})

	if _, err := clusterer.Merge(ctx, []string{"c1"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("single id: got %v, want ErrInvalidArgument", err)
	}
	if _, err := clusterer.Merge(ctx, []string{"c1", "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing id: got %v, want ErrNotFound", err)
	}
	// Validation failure must leave the existing cluster untouched.
	if _, err := store.GetCluster(ctx, "c1"); err != nil {
		t.Errorf("c1 should survive failed merge: %v", err)
	}
}

func TestMergeCombinesFaces(t *testing.T) {
	clusterer, store := newTestClusterer(t)
	ctx := context.Background()

	seedFaces(t, store,
		[]float32{1, 0}, []float32{0.99, 0.1}, []float32{0.98, 0.15},
		[]float32{0.97, 0.2}, []float32{0.96, 0.25},
	)
	_ = store.CreateCluster(ctx, &models.FaceCluster{ID: "a"})
	_ = store.CreateCluster(ctx, &models.FaceCluster{ID: "b", Name: "Grandma"})
	for i, cid := range []string{"a", "a", "a", "b", "b"} {
		_ = store.AssignFaceCluster(ctx, fmt.Sprintf("f%d", i), cid)
	}

	merged, err := clusterer.Merge(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if merged.ID != "a" {
		t.Errorf("merged into %s, want a", merged.ID)
	}
	if merged.FaceCount != 5 {
		t.Errorf("face count = %d, want 5", merged.FaceCount)
	}
	if merged.Name != "Grandma" {
		t.Errorf("name = %q, want source name carried over", merged.Name)
	}
	if merged.RepresentativeFaceID == "" {
		t.Error("merged cluster has no representative")
	}
	if _, err := store.GetCluster(ctx, "b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("source cluster should be gone, got %v", err)
	}
}

func TestLabelAndAutoMerge(t *testing.T) {
	clusterer, store := newTestClusterer(t)
	ctx := context.Background()

	seedFaces(t, store, []float32{1, 0}, []float32{0, 1})
	_ = store.CreateCluster(ctx, &models.FaceCluster{ID: "c1"})
	_ = store.CreateCluster(ctx, &models.FaceCluster{ID: "c2"})
	_ = store.AssignFaceCluster(ctx, "f0", "c1")
	_ = store.AssignFaceCluster(ctx, "f1", "c2")

	if _, err := clusterer.Label(ctx, "c1", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty name: got %v", err)
	}

	got, err := clusterer.Label(ctx, "c1", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Alice" {
		t.Errorf("name = %q, want Alice", got.Name)
	}

	// Naming c2 identically merges it into the cluster already named Alice.
	got, err = clusterer.Label(ctx, "c2", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "c1" {
		t.Errorf("surviving cluster = %s, want c1", got.ID)
	}
	if got.FaceCount != 2 {
		t.Errorf("face count = %d, want 2", got.FaceCount)
	}
	if _, err := store.GetCluster(ctx, "c2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("c2 should be merged away, got %v", err)
	}
}

func TestReclusterResets(t *testing.T) {
	clusterer, store := newTestClusterer(t)
	ctx := context.Background()

	seedFaces(t, store, []float32{1, 0}, []float32{0.99, 0.1})
	if _, err := clusterer.ClusterFaces(ctx); err != nil {
		t.Fatal(err)
	}
	before, _ := store.ListClusters(ctx)
	if len(before) != 1 {
		t.Fatalf("expected 1 cluster before recluster, got %d", len(before))
	}
	_, _ = clusterer.Label(ctx, before[0].ID, "Alice")

	stats, err := clusterer.Recluster(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFaces != 2 || stats.ClustersCreated != 1 {
		t.Errorf("recluster stats = %+v", stats)
	}

	after, _ := store.ListClusters(ctx)
	if len(after) != 1 {
		t.Fatalf("expected 1 cluster after recluster, got %d", len(after))
	}
	if after[0].ID == before[0].ID {
		t.Error("recluster should create fresh clusters")
	}
	if after[0].Name != "" {
		t.Errorf("label should not survive recluster, got %q", after[0].Name)
	}
}

func TestClusterBusy(t *testing.T) {
	clusterer, _ := newTestClusterer(t)

	if err := clusterer.acquire(); err != nil {
		t.Fatal(err)
	}
	defer clusterer.release()

	if _, err := clusterer.ClusterFaces(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("got %v, want ErrBusy", err)
	}
}
