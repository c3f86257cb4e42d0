package ranking

// Weights holds the per-attribute weights for metadata match scoring.
type Weights struct {
	Objects float64 `yaml:"objects"` // default: 0.30
	Action  float64 `yaml:"action"`  // default: 0.30
	Time    float64 `yaml:"time"`    // default: 0.20
	Scene   float64 `yaml:"scene"`   // default: 0.10
	Weather float64 `yaml:"weather"` // default: 0.05
	Emotion float64 `yaml:"emotion"` // default: 0.05
}

// DefaultWeights returns the default attribute weights.
func DefaultWeights() *Weights {
	return &Weights{
		Objects: 0.30,
		Action:  0.30,
		Time:    0.20,
		Scene:   0.10,
		Weather: 0.05,
		Emotion: 0.05,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (w *Weights) ApplyDefaults() {
	d := DefaultWeights()
	if w.Objects == 0 {
		w.Objects = d.Objects
	}
	if w.Action == 0 {
		w.Action = d.Action
	}
	if w.Time == 0 {
		w.Time = d.Time
	}
	if w.Scene == 0 {
		w.Scene = d.Scene
	}
	if w.Weather == 0 {
		w.Weather = d.Weather
	}
	if w.Emotion == 0 {
		w.Emotion = d.Emotion
	}
}
