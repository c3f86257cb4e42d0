package query

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		objects []string
		action  string
		time    string
		scene   string
		weather string
		emotion string
	}{
		{
			name:    "man walking at night",
			query:   "man walking at night",
			objects: []string{"man"},
			action:  "walking",
			time:    "night",
		},
		{
			name:    "happy dog",
			query:   "happy dog",
			objects: []string{"dog"},
			emotion: "happy",
		},
		{
			name:    "scene phrase",
			query:   "car on the street",
			objects: []string{"car"},
			scene:   "street",
		},
		{
			name:    "weather term",
			query:   "sunny beach day",
			scene:   "beach",
			time:    "day",
			weather: "sunny",
		},
		{
			name:   "ing fallback action",
			query:  "person surfing",
			action: "surfing",
			objects: []string{
				"person",
			},
		},
		{
			name:  "no attributes",
			query: "quiet composition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := Parse(tt.query)
			if !reflect.DeepEqual(attrs.Objects, tt.objects) {
				t.Errorf("Objects = %v, want %v", attrs.Objects, tt.objects)
			}
			if attrs.Action != tt.action {
				t.Errorf("Action = %q, want %q", attrs.Action, tt.action)
			}
			if attrs.Time != tt.time {
				t.Errorf("Time = %q, want %q", attrs.Time, tt.time)
			}
			if attrs.Scene != tt.scene {
				t.Errorf("Scene = %q, want %q", attrs.Scene, tt.scene)
			}
			if attrs.Weather != tt.weather {
				t.Errorf("Weather = %q, want %q", attrs.Weather, tt.weather)
			}
			if attrs.Emotion != tt.emotion {
				t.Errorf("Emotion = %q, want %q", attrs.Emotion, tt.emotion)
			}
		})
	}
}

func TestParseOnlyExplicitAttributes(t *testing.T) {
	attrs := Parse("man walking at night")
	if attrs.Scene != "" {
		t.Errorf("Scene should stay unset, got %q", attrs.Scene)
	}
	if attrs.Weather != "" || attrs.Emotion != "" {
		t.Error("Weather and emotion should stay unset")
	}
}

func TestAttributesClone(t *testing.T) {
	a := &Attributes{Objects: []string{"man"}, Action: "walking"}
	b := a.Clone()
	b.Objects[0] = "woman"
	if a.Objects[0] != "man" {
		t.Error("Clone should not share the objects slice")
	}
}

func TestAttributesEmpty(t *testing.T) {
	if !(&Attributes{Raw: "x"}).Empty() {
		t.Error("attributes with only raw query should be empty")
	}
	if (&Attributes{Action: "walking"}).Empty() {
		t.Error("attributes with an action should not be empty")
	}
}
