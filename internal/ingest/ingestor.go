// Package ingest turns photo files into indexed, searchable images.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/keyword"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/storage"
	"github.com/omoide-dev/omoide/internal/vector"
	"github.com/omoide-dev/omoide/pkg/utils"
)

// Ingestor processes photos: embedding, captioning, face detection and
// persistence. The captioner and face detector are optional; when they are
// unavailable the photo is still searchable by embedding.
type Ingestor struct {
	store     storage.Storage
	embedder  embedding.Embedder
	captioner embedding.Captioner
	faces     embedding.FaceDetector
	index     vector.Index
	cache     embedding.Cache
	keywords  *keyword.Matcher
	user      string
	logger    *zap.Logger

	thumbnailDir string
}

// NewIngestor creates an ingestor. captioner, faces, cache and keywords may
// be nil; the corresponding steps are then skipped.
func NewIngestor(
	store storage.Storage,
	embedder embedding.Embedder,
	captioner embedding.Captioner,
	faces embedding.FaceDetector,
	index vector.Index,
	cache embedding.Cache,
	keywords *keyword.Matcher,
	user string,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		store:     store,
		embedder:  embedder,
		captioner: captioner,
		faces:     faces,
		index:     index,
		cache:     cache,
		keywords:  keywords,
		user:      user,
		logger:    logger,
	}
}

// WithThumbnails enables thumbnail generation under dir.
func (in *Ingestor) WithThumbnails(dir string) *Ingestor {
	in.thumbnailDir = dir
	return in
}

// IngestFile decodes and ingests the photo at path.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (*models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening photo: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return in.Ingest(ctx, filepath.Base(path), img)
}

// Ingest indexes a decoded photo and returns the stored record.
func (in *Ingestor) Ingest(ctx context.Context, filename string, img image.Image) (*models.Image, error) {
	vec, err := in.embedder.EncodeImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embedding photo: %w", err)
	}

	record := &models.Image{
		ID:       uuid.New().String(),
		Filename: filename,
	}

	// Caption and structured attributes are best-effort: a missing oracle
	// must not block indexing.
	if in.captioner != nil && in.captioner.Available() {
		meta, err := in.captioner.ExtractMetadata(ctx, img)
		switch {
		case errors.Is(err, embedding.ErrUnavailable):
			in.logger.Warn("captioner unavailable, indexing without metadata",
				zap.String("filename", filename))
		case err != nil:
			in.logger.Warn("metadata extraction failed",
				zap.String("filename", filename), zap.Error(err))
		default:
			if meta.Caption == "" {
				if caption, err := in.captioner.Describe(ctx, img); err == nil {
					meta.Caption = caption
				}
			}
			record.Metadata = meta
			in.logger.Debug("photo captioned",
				zap.String("filename", filename),
				zap.String("caption", utils.Truncate(meta.Caption, 120)),
			)
		}
	}

	if in.thumbnailDir != "" {
		path, err := in.writeThumbnail(record.ID, img)
		if err != nil {
			in.logger.Warn("thumbnail generation failed",
				zap.String("filename", filename), zap.Error(err))
		} else {
			record.ThumbnailPath = path
		}
	}

	if err := in.store.CreateImage(ctx, record); err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}
	if err := in.index.Upsert(ctx, in.user, record.ID, vec, &vector.Payload{
		Filename: record.Filename,
		Metadata: record.Metadata,
	}); err != nil {
		return nil, fmt.Errorf("indexing image: %w", err)
	}
	if in.cache != nil {
		in.cache.Set(ctx, record.ID, vec)
	}

	if err := in.detectFaces(ctx, record.ID, img); err != nil {
		in.logger.Warn("face detection failed",
			zap.String("image_id", record.ID), zap.Error(err))
	}

	// The caption corpus is rebuilt wholesale; cheap for a personal library.
	if record.Metadata != nil && record.Metadata.Caption != "" {
		if err := in.RebuildCaptionIndex(ctx); err != nil {
			in.logger.Warn("caption index rebuild failed", zap.Error(err))
		}
	}

	in.logger.Info("photo ingested",
		zap.String("image_id", record.ID),
		zap.String("filename", filename),
		zap.Bool("has_metadata", record.Metadata.HasAttributes()),
	)
	return record, nil
}

// Remove deletes an image from the store and every index.
func (in *Ingestor) Remove(ctx context.Context, imageID string) error {
	if record, err := in.store.GetImage(ctx, imageID); err == nil && record.ThumbnailPath != "" {
		if err := os.Remove(record.ThumbnailPath); err != nil && !os.IsNotExist(err) {
			in.logger.Warn("thumbnail removal failed",
				zap.String("image_id", imageID), zap.Error(err))
		}
	}
	if err := in.store.DeleteFacesByImageID(ctx, imageID); err != nil {
		return err
	}
	if err := in.store.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	return in.index.Delete(ctx, in.user, imageID)
}

// RebuildCaptionIndex reindexes the lexical matcher from every stored
// caption. Images without a caption are left out of the corpus.
func (in *Ingestor) RebuildCaptionIndex(ctx context.Context) error {
	if in.keywords == nil {
		return nil
	}
	images, err := in.store.ListImages(ctx, 0, 1<<30)
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}

	var ids, captions []string
	for _, img := range images {
		if img.Metadata == nil || img.Metadata.Caption == "" {
			continue
		}
		ids = append(ids, img.ID)
		captions = append(captions, img.Metadata.Caption)
	}
	in.keywords.Index(ids, captions)
	in.logger.Info("caption index rebuilt", zap.Int("documents", len(ids)))
	return nil
}

// writeThumbnail scales img so its longest side is at most 512 pixels and
// writes it as a JPEG under the thumbnail directory.
func (in *Ingestor) writeThumbnail(imageID string, img image.Image) (string, error) {
	if err := os.MkdirAll(in.thumbnailDir, 0o755); err != nil {
		return "", fmt.Errorf("creating thumbnail dir: %w", err)
	}

	const maxSide = 512
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxSide || h > maxSide {
		scale := float64(maxSide) / float64(w)
		if h > w {
			scale = float64(maxSide) / float64(h)
		}
		dst := image.NewRGBA(image.Rect(0, 0,
			int(float64(w)*scale), int(float64(h)*scale)))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		img = dst
	}

	path := filepath.Join(in.thumbnailDir, imageID+".jpg")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating thumbnail: %w", err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encoding thumbnail: %w", err)
	}
	return path, nil
}

func (in *Ingestor) detectFaces(ctx context.Context, imageID string, img image.Image) error {
	if in.faces == nil {
		return nil
	}
	detected, err := in.faces.DetectFaces(ctx, img)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			return nil
		}
		return err
	}
	if len(detected) == 0 {
		return nil
	}

	faces := make([]*models.Face, len(detected))
	for i, d := range detected {
		faces[i] = &models.Face{
			ID:        uuid.New().String(),
			ImageID:   imageID,
			Embedding: d.Embedding,
			BBox:      d.BBox,
		}
	}
	// New faces stay unassigned until the next clustering run.
	return in.store.CreateFaces(ctx, faces)
}
