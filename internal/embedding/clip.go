package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/models"
)

// CLIPEmbedder talks to a CLIP inference sidecar over HTTP. The sidecar
// exposes POST /encode/text accepting {"text": ...} and POST /encode/image
// accepting raw PNG bytes, both returning {"embedding": [...]}, plus
// POST /detect/faces returning face embeddings and bounding boxes.
type CLIPEmbedder struct {
	baseURL    string
	dimensions int
	client     *http.Client
	logger     *zap.Logger
}

// NewCLIPEmbedder creates an embedder backed by the sidecar at baseURL.
func NewCLIPEmbedder(baseURL string, dimensions int, logger *zap.Logger) *CLIPEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &CLIPEmbedder{
		baseURL:    baseURL,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type encodeResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EncodeText embeds a text query.
func (e *CLIPEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return e.encode(ctx, e.baseURL+"/encode/text", "application/json", body)
}

// EncodeImage embeds an image.
func (e *CLIPEmbedder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return e.encode(ctx, e.baseURL+"/encode/image", "image/png", buf.Bytes())
}

func (e *CLIPEmbedder) encode(ctx context.Context, url, contentType string, body []byte) ([]float32, error) {
	var vec []float32
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", contentType)

			resp, err := e.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(fmt.Errorf("encode request rejected: %s", resp.Status))
				}
				return fmt.Errorf("encode request failed: %s", resp.Status)
			}

			var decoded encodeResponse
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return err
			}
			if len(decoded.Embedding) != e.dimensions {
				return retry.Unrecoverable(fmt.Errorf("unexpected embedding size %d, want %d", len(decoded.Embedding), e.dimensions))
			}
			vec = decoded.Embedding
			return nil
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		e.logger.Warn("embedding sidecar unreachable", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vec, nil
}

type detectResponse struct {
	Faces []struct {
		Embedding  []float32   `json:"embedding"`
		BBox       models.BBox `json:"bbox"`
		Confidence float64     `json:"confidence"`
	} `json:"faces"`
}

// DetectFaces asks the sidecar for face embeddings and bounding boxes.
func (e *CLIPEmbedder) DetectFaces(ctx context.Context, img image.Image) ([]DetectedFace, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	var decoded detectResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/detect/faces", bytes.NewReader(buf.Bytes()))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "image/png")

			resp, err := e.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(fmt.Errorf("detect request rejected: %s", resp.Status))
				}
				return fmt.Errorf("detect request failed: %s", resp.Status)
			}
			decoded = detectResponse{}
			return json.NewDecoder(resp.Body).Decode(&decoded)
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		e.logger.Warn("face detection sidecar unreachable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	faces := make([]DetectedFace, 0, len(decoded.Faces))
	for _, f := range decoded.Faces {
		faces = append(faces, DetectedFace{
			Embedding:  f.Embedding,
			BBox:       f.BBox,
			Confidence: f.Confidence,
		})
	}
	return faces, nil
}

// Dimensions returns the embedding dimensionality.
func (e *CLIPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no persistent state.
func (e *CLIPEmbedder) Close() error {
	return nil
}
