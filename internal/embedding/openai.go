package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/models"
)

const metadataPrompt = `Describe this photo as JSON with exactly these fields:
{"objects": ["..."], "action": "...", "time": "...", "scene": "...", "weather": "...", "emotion": "...", "caption": "..."}
Use short lowercase words. Leave a field empty if it cannot be determined. Respond with JSON only.`

// OpenAICaptioner generates captions and structured photo attributes with a
// vision-capable chat model. A captioner with no API key reports itself
// unavailable and ingestion proceeds without captions.
type OpenAICaptioner struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAICaptioner creates a captioner. An empty apiKey yields an
// unavailable captioner rather than an error.
func NewOpenAICaptioner(apiKey, baseURL, model string, logger *zap.Logger) *OpenAICaptioner {
	c := &OpenAICaptioner{model: model, logger: logger}
	if c.model == "" {
		c.model = openai.GPT4oMini
	}
	if apiKey == "" {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

// Available reports whether the captioner has a configured backend.
func (c *OpenAICaptioner) Available() bool {
	return c.client != nil
}

// Describe returns a one-sentence caption for the image.
func (c *OpenAICaptioner) Describe(ctx context.Context, img image.Image) (string, error) {
	content, err := c.complete(ctx, img, "Describe this photo in one short sentence.")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// ExtractMetadata returns structured attributes for the image.
func (c *OpenAICaptioner) ExtractMetadata(ctx context.Context, img image.Image) (*models.ImageMetadata, error) {
	content, err := c.complete(ctx, img, metadataPrompt)
	if err != nil {
		return nil, err
	}

	// Models occasionally wrap JSON in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var meta models.ImageMetadata
	if err := json.Unmarshal([]byte(content), &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata response: %w", err)
	}
	for i, obj := range meta.Objects {
		meta.Objects[i] = strings.ToLower(strings.TrimSpace(obj))
	}
	meta.Action = strings.ToLower(strings.TrimSpace(meta.Action))
	meta.Time = strings.ToLower(strings.TrimSpace(meta.Time))
	meta.Scene = strings.ToLower(strings.TrimSpace(meta.Scene))
	meta.Weather = strings.ToLower(strings.TrimSpace(meta.Weather))
	meta.Emotion = strings.ToLower(strings.TrimSpace(meta.Emotion))
	return &meta, nil
}

func (c *OpenAICaptioner) complete(ctx context.Context, img image.Image, prompt string) (string, error) {
	if c.client == nil {
		return "", ErrUnavailable
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	var content string
	err := retry.Do(
		func() error {
			resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: c.model,
				Messages: []openai.ChatCompletionMessage{
					{
						Role: openai.ChatMessageRoleUser,
						MultiContent: []openai.ChatMessagePart{
							{Type: openai.ChatMessagePartTypeText, Text: prompt},
							{
								Type:     openai.ChatMessagePartTypeImageURL,
								ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailLow},
							},
						},
					},
				},
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("empty completion response")
			}
			content = resp.Choices[0].Message.Content
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.logger.Warn("caption request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return content, nil
}
