// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/omoide-dev/omoide/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		thumbnail_path TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at);

	CREATE TABLE IF NOT EXISTS face_clusters (
		id TEXT PRIMARY KEY,
		name TEXT,
		representative_face_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS faces (
		id TEXT PRIMARY KEY,
		image_id TEXT NOT NULL,
		embedding BLOB NOT NULL,
		bbox_x REAL NOT NULL,
		bbox_y REAL NOT NULL,
		bbox_w REAL NOT NULL,
		bbox_h REAL NOT NULL,
		cluster_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (image_id) REFERENCES images(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_faces_image_id ON faces(image_id);
	CREATE INDEX IF NOT EXISTS idx_faces_cluster_id ON faces(cluster_id);
	`
	_, err := db.Exec(schema)
	return err
}

func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
	}
	return vec
}

// CreateImage inserts an image record.
func (s *SQLiteStorage) CreateImage(ctx context.Context, img *models.Image) error {
	metadataJSON := ""
	if img.Metadata != nil {
		data, err := json.Marshal(img.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = string(data)
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, filename, thumbnail_path, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		img.ID, img.Filename, img.ThumbnailPath, metadataJSON, img.CreatedAt,
	)
	return err
}

func scanImage(scan func(dest ...any) error) (*models.Image, error) {
	var img models.Image
	var metadataJSON string
	if err := scan(&img.ID, &img.Filename, &img.ThumbnailPath, &metadataJSON, &img.CreatedAt); err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		_ = json.Unmarshal([]byte(metadataJSON), &img.Metadata)
	}
	return &img, nil
}

// GetImage returns an image by ID.
func (s *SQLiteStorage) GetImage(ctx context.Context, id string) (*models.Image, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, thumbnail_path, metadata, created_at FROM images WHERE id = ?`, id)
	img, err := scanImage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// UpdateImageMetadata replaces the structured metadata of an image.
func (s *SQLiteStorage) UpdateImageMetadata(ctx context.Context, id string, meta *models.ImageMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE images SET metadata = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteImage removes an image and, via cascade, its faces.
func (s *SQLiteStorage) DeleteImage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	return err
}

// ListImages returns images with offset and limit, newest first.
func (s *SQLiteStorage) ListImages(ctx context.Context, offset, limit int) ([]*models.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, thumbnail_path, metadata, created_at
		 FROM images ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imgs []*models.Image
	for rows.Next() {
		img, err := scanImage(rows.Scan)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

// GetImagesByClusterID returns the distinct images containing a face assigned
// to the given cluster.
func (s *SQLiteStorage) GetImagesByClusterID(ctx context.Context, clusterID string) ([]*models.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT i.id, i.filename, i.thumbnail_path, i.metadata, i.created_at
		 FROM images i JOIN faces f ON f.image_id = i.id
		 WHERE f.cluster_id = ?
		 ORDER BY i.created_at DESC`,
		clusterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imgs []*models.Image
	for rows.Next() {
		img, err := scanImage(rows.Scan)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

// CreateFaces inserts faces in a single transaction.
func (s *SQLiteStorage) CreateFaces(ctx context.Context, faces []*models.Face) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO faces (id, image_id, embedding, bbox_x, bbox_y, bbox_w, bbox_h, cluster_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, face := range faces {
		if face.CreatedAt.IsZero() {
			face.CreatedAt = now
		}
		clusterID := sql.NullString{String: face.ClusterID, Valid: face.ClusterID != ""}
		if _, err := stmt.ExecContext(ctx,
			face.ID, face.ImageID, encodeEmbedding(face.Embedding),
			face.BBox.X, face.BBox.Y, face.BBox.W, face.BBox.H,
			clusterID, face.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanFace(scan func(dest ...any) error) (*models.Face, error) {
	var face models.Face
	var embedding []byte
	var clusterID sql.NullString
	if err := scan(&face.ID, &face.ImageID, &embedding,
		&face.BBox.X, &face.BBox.Y, &face.BBox.W, &face.BBox.H,
		&clusterID, &face.CreatedAt); err != nil {
		return nil, err
	}
	face.Embedding = decodeEmbedding(embedding)
	face.ClusterID = clusterID.String
	return &face, nil
}

const faceColumns = `id, image_id, embedding, bbox_x, bbox_y, bbox_w, bbox_h, cluster_id, created_at`

// GetFace returns a face by ID.
func (s *SQLiteStorage) GetFace(ctx context.Context, id string) (*models.Face, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+faceColumns+` FROM faces WHERE id = ?`, id)
	face, err := scanFace(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("face %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return face, nil
}

func (s *SQLiteStorage) queryFaces(ctx context.Context, query string, args ...any) ([]*models.Face, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faces []*models.Face
	for rows.Next() {
		face, err := scanFace(rows.Scan)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

// ListFaces returns every face, oldest first.
func (s *SQLiteStorage) ListFaces(ctx context.Context) ([]*models.Face, error) {
	return s.queryFaces(ctx, `SELECT `+faceColumns+` FROM faces ORDER BY created_at`)
}

// ListUnassignedFaces returns faces with no cluster, oldest first.
func (s *SQLiteStorage) ListUnassignedFaces(ctx context.Context) ([]*models.Face, error) {
	return s.queryFaces(ctx,
		`SELECT `+faceColumns+` FROM faces WHERE cluster_id IS NULL ORDER BY created_at`)
}

// AssignFaceCluster sets the cluster of a single face.
func (s *SQLiteStorage) AssignFaceCluster(ctx context.Context, faceID, clusterID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE faces SET cluster_id = ? WHERE id = ?`, clusterID, faceID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("face %s: %w", faceID, ErrNotFound)
	}
	return nil
}

// ReassignFaces moves every face from one cluster to another.
func (s *SQLiteStorage) ReassignFaces(ctx context.Context, fromClusterID, toClusterID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE faces SET cluster_id = ? WHERE cluster_id = ?`, toClusterID, fromClusterID)
	return err
}

// DeleteFacesByImageID removes all faces of an image.
func (s *SQLiteStorage) DeleteFacesByImageID(ctx context.Context, imageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM faces WHERE image_id = ?`, imageID)
	return err
}

// CreateCluster inserts a cluster record.
func (s *SQLiteStorage) CreateCluster(ctx context.Context, cluster *models.FaceCluster) error {
	if cluster.CreatedAt.IsZero() {
		cluster.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO face_clusters (id, name, representative_face_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		cluster.ID, cluster.Name, cluster.RepresentativeFaceID, cluster.CreatedAt,
	)
	return err
}

const clusterQuery = `
	SELECT c.id, c.name, c.representative_face_id, c.created_at,
	       (SELECT COUNT(*) FROM faces f WHERE f.cluster_id = c.id)
	FROM face_clusters c`

func scanCluster(scan func(dest ...any) error) (*models.FaceCluster, error) {
	var cluster models.FaceCluster
	var name, rep sql.NullString
	if err := scan(&cluster.ID, &name, &rep, &cluster.CreatedAt, &cluster.FaceCount); err != nil {
		return nil, err
	}
	cluster.Name = name.String
	cluster.RepresentativeFaceID = rep.String
	return &cluster, nil
}

// GetCluster returns a cluster by ID with its current face count.
func (s *SQLiteStorage) GetCluster(ctx context.Context, id string) (*models.FaceCluster, error) {
	row := s.db.QueryRowContext(ctx, clusterQuery+` WHERE c.id = ?`, id)
	cluster, err := scanCluster(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cluster %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return cluster, nil
}

// ListClusters returns all clusters, oldest first.
func (s *SQLiteStorage) ListClusters(ctx context.Context) ([]*models.FaceCluster, error) {
	rows, err := s.db.QueryContext(ctx, clusterQuery+` ORDER BY c.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []*models.FaceCluster
	for rows.Next() {
		cluster, err := scanCluster(rows.Scan)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, cluster)
	}
	return clusters, rows.Err()
}

// UpdateCluster updates a cluster's name and representative face.
func (s *SQLiteStorage) UpdateCluster(ctx context.Context, cluster *models.FaceCluster) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE face_clusters SET name = ?, representative_face_id = ? WHERE id = ?`,
		cluster.Name, cluster.RepresentativeFaceID, cluster.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("cluster %s: %w", cluster.ID, ErrNotFound)
	}
	return nil
}

// DeleteCluster removes a cluster and unassigns its faces.
func (s *SQLiteStorage) DeleteCluster(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE faces SET cluster_id = NULL WHERE cluster_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM face_clusters WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// FindClusterByName returns the cluster whose name matches exactly.
func (s *SQLiteStorage) FindClusterByName(ctx context.Context, name string) (*models.FaceCluster, error) {
	row := s.db.QueryRowContext(ctx,
		clusterQuery+` WHERE c.name = ? ORDER BY c.created_at LIMIT 1`, name)
	cluster, err := scanCluster(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cluster named %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return cluster, nil
}

// FindClusterByNameSubstring returns the oldest named cluster whose name
// contains fragment, matched case-insensitively.
func (s *SQLiteStorage) FindClusterByNameSubstring(ctx context.Context, fragment string) (*models.FaceCluster, error) {
	row := s.db.QueryRowContext(ctx,
		clusterQuery+` WHERE c.name IS NOT NULL AND c.name != '' AND LOWER(c.name) LIKE '%' || LOWER(?) || '%'
		 ORDER BY c.created_at LIMIT 1`, fragment)
	cluster, err := scanCluster(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cluster matching %q: %w", fragment, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return cluster, nil
}

// ResetClusters deletes all clusters and clears every face assignment.
func (s *SQLiteStorage) ResetClusters(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE faces SET cluster_id = NULL`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM face_clusters`); err != nil {
		return err
	}
	return tx.Commit()
}

// CountImages returns the total number of images.
func (s *SQLiteStorage) CountImages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	return count, err
}

// CountFaces returns the total number of faces.
func (s *SQLiteStorage) CountFaces(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faces`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
