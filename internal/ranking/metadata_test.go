package ranking

import (
	"testing"

	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/query"
)

func TestMatchObjects(t *testing.T) {
	tests := []struct {
		name  string
		query []string
		image []string
		want  float64
	}{
		{"exact", []string{"dog"}, []string{"dog"}, 1.0},
		{"query more specific", []string{"man"}, []string{"person"}, 0.8},
		{"image more specific", []string{"person"}, []string{"man"}, 0.9},
		{"siblings in category", []string{"man"}, []string{"woman"}, 0.8},
		{"no relation", []string{"dog"}, []string{"skyscraper"}, 0.0},
		{"best over pairs", []string{"dog", "man"}, []string{"cat", "man"}, 1.0},
		{"empty image", []string{"dog"}, nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchObjects(tt.query, tt.image); got != tt.want {
				t.Errorf("matchObjects(%v, %v) = %v, want %v", tt.query, tt.image, got, tt.want)
			}
		})
	}
}

func TestMatchTime(t *testing.T) {
	tests := []struct {
		q, i string
		want float64
	}{
		{"night", "night", 1.0},
		{"night", "evening", 0.9},
		{"dark", "midnight", 0.9},
		{"day", "afternoon", 0.9},
		{"night", "day", 0.0},
		{"night", "", 0.0},
	}
	for _, tt := range tests {
		if got := matchTime(tt.q, tt.i); got != tt.want {
			t.Errorf("matchTime(%q, %q) = %v, want %v", tt.q, tt.i, got, tt.want)
		}
	}
}

func TestMatchScoreWeightedMean(t *testing.T) {
	meta := &models.ImageMetadata{
		Objects: []string{"person"},
		Action:  "walking",
		Time:    "night",
	}

	// All present attributes match exactly except objects (0.8).
	attrs := &query.Attributes{
		Objects: []string{"man"},
		Action:  "walking",
		Time:    "night",
	}
	got := MatchScore(attrs, meta, nil)
	// (0.8*0.3 + 1.0*0.3 + 1.0*0.2) / (0.3+0.3+0.2) = 0.925
	want := 0.925
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("MatchScore = %v, want %v", got, want)
	}
}

func TestMatchScoreSkipsAbsentAttributes(t *testing.T) {
	meta := &models.ImageMetadata{Action: "walking", Scene: "street"}

	// Only action present in the query; scene mismatch must not be counted.
	attrs := &query.Attributes{Action: "walking"}
	if got := MatchScore(attrs, meta, nil); got != 1.0 {
		t.Errorf("MatchScore = %v, want 1.0", got)
	}
}

func TestMatchScoreNoAttributes(t *testing.T) {
	meta := &models.ImageMetadata{Objects: []string{"dog"}}
	if got := MatchScore(&query.Attributes{Raw: "x"}, meta, nil); got != 0 {
		t.Errorf("MatchScore with no query attributes = %v, want 0", got)
	}
}

func TestRelaxLadder(t *testing.T) {
	attrs := &query.Attributes{
		Objects: []string{"man"},
		Action:  "walking",
		Time:    "night",
		Scene:   "street",
		Weather: "rainy",
		Emotion: "happy",
	}

	l1 := Relax(attrs, RelaxObjects)
	if l1.Objects[0] != "person" {
		t.Errorf("Level 1 should generalize objects, got %v", l1.Objects)
	}
	if l1.Scene != "street" || l1.Weather != "rainy" {
		t.Error("Level 1 must not clear scene or weather")
	}

	l2 := Relax(attrs, RelaxScene)
	if l2.Scene != "" {
		t.Error("Level 2 should clear scene")
	}
	if l2.Weather == "" || l2.Emotion == "" {
		t.Error("Level 2 must not clear weather/emotion")
	}

	l3 := Relax(attrs, RelaxAmbient)
	if l3.Weather != "" || l3.Emotion != "" {
		t.Error("Level 3 should clear weather and emotion")
	}

	// Action and time are core intent at every level.
	for level := 0; level <= 3; level++ {
		r := Relax(attrs, level)
		if r.Action != "walking" || r.Time != "night" {
			t.Errorf("Level %d touched action/time: %+v", level, r)
		}
	}

	// Relax must not mutate its input.
	if attrs.Objects[0] != "man" || attrs.Scene != "street" {
		t.Error("Relax mutated the input attributes")
	}
}

func TestRelaxationNeverDecreasesBestScore(t *testing.T) {
	meta := &models.ImageMetadata{
		Objects: []string{"person"},
		Action:  "walking",
		Time:    "night",
	}
	attrs := &query.Attributes{
		Objects: []string{"man"},
		Action:  "walking",
		Time:    "night",
		Scene:   "street",
	}

	// With keep-max semantics (as applied by deep search), the retained meta
	// score is monotone in the relaxation level.
	best := MatchScore(attrs, meta, nil)
	for level := 1; level <= 3; level++ {
		s := MatchScore(Relax(attrs, level), meta, nil)
		if s > best {
			best = s
		}
		if best < MatchScore(attrs, meta, nil) {
			t.Fatalf("Retained score decreased at level %d", level)
		}
	}
	if best <= MatchScore(attrs, meta, nil) {
		t.Error("Relaxation should improve the score for this candidate")
	}
}
