package models

import "time"

// BBox is a face bounding box in image pixel coordinates.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Face is a detected face with its L2-normalized embedding.
// ClusterID is empty until the face is assigned by the clusterer.
type Face struct {
	ID        string    `json:"id" db:"id"`
	ImageID   string    `json:"image_id" db:"image_id"`
	Embedding []float32 `json:"-" db:"embedding"`
	BBox      BBox      `json:"bbox"`
	ClusterID string    `json:"cluster_id,omitempty" db:"cluster_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FaceCluster groups faces believed to belong to one person.
// FaceCount is recomputed on every membership change.
type FaceCluster struct {
	ID                   string    `json:"id" db:"id"`
	Name                 string    `json:"name,omitempty" db:"name"`
	RepresentativeFaceID string    `json:"representative_face_id" db:"representative_face_id"`
	FaceCount            int       `json:"face_count" db:"face_count"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// ClusterStats summarizes a clustering run.
type ClusterStats struct {
	TotalFaces      int `json:"total_faces"`
	Clustered       int `json:"clustered"`
	ClustersCreated int `json:"clusters_created"`
	Outliers        int `json:"outliers"`
}
