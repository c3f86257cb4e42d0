// Package models defines core data structures for images, faces, queries, and search results.
package models

import "time"

// Image represents an indexed photo with its extracted metadata.
type Image struct {
	ID            string         `json:"id" db:"id"`
	Filename      string         `json:"filename" db:"filename"`
	ThumbnailPath string         `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	Metadata      *ImageMetadata `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// ImageMetadata is the fixed set of structured attributes extracted from an image.
// Empty string (or nil slice) means the attribute was not extracted.
type ImageMetadata struct {
	Objects []string `json:"objects,omitempty"`
	Action  string   `json:"action,omitempty"`
	Time    string   `json:"time,omitempty"`
	Scene   string   `json:"scene,omitempty"`
	Weather string   `json:"weather,omitempty"`
	Emotion string   `json:"emotion,omitempty"`
	Caption string   `json:"caption,omitempty"`
}

// HasAttributes reports whether any structured attribute is set.
func (m *ImageMetadata) HasAttributes() bool {
	if m == nil {
		return false
	}
	return len(m.Objects) > 0 || m.Action != "" || m.Time != "" ||
		m.Scene != "" || m.Weather != "" || m.Emotion != ""
}
