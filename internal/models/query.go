package models

import "fmt"

// Search modes.
const (
	ModeNormal = "normal"
	ModeDeep   = "deep"
)

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
// Returns an error for an empty query or unknown mode; otherwise normalizes TopK.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Mode == "" {
		q.Mode = ModeNormal
	}
	if q.Mode != ModeNormal && q.Mode != ModeDeep {
		return fmt.Errorf("unknown search mode: %q", q.Mode)
	}
	if q.TopK <= 0 {
		q.TopK = 20
	}
	if q.TopK > 100 {
		q.TopK = 100
	}
	return nil
}
