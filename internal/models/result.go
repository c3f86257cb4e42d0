package models

// SearchResult is a single ranked image hit.
type SearchResult struct {
	ImageID       string         `json:"image_id"`
	Filename      string         `json:"filename,omitempty"`
	ThumbnailPath string         `json:"thumbnail_path,omitempty"`
	Score         float64        `json:"score"`
	MatchedTerm   string         `json:"matched_term,omitempty"`
	Metadata      *ImageMetadata `json:"metadata,omitempty"`
	Rank          int            `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query       string          `json:"query"`
	Mode        string          `json:"mode"`
	Results     []*SearchResult `json:"results"`
	Total       int             `json:"total"`
	QueryTime   int64           `json:"query_time_ms"`
	PersonMatch string          `json:"person_match,omitempty"`
	// Suggestion holds a spelling correction offered when the query found
	// nothing and a close corpus term exists.
	Suggestion string `json:"suggestion,omitempty"`
	// Degraded is set when an optional oracle was unavailable and the
	// ranking fell back to embedding-only scoring.
	Degraded bool `json:"degraded,omitempty"`
}
