package ranking

import "github.com/omoide-dev/omoide/internal/query"

// Relaxation levels. Level 0 is the exact query; each level loosens more
// constraints so the deep ranking path can recover recall.
const (
	RelaxNone    = 0 // exact attributes
	RelaxObjects = 1 // objects replaced by their top-level categories
	RelaxScene   = 2 // additionally clears scene
	RelaxAmbient = 3 // additionally clears weather and emotion
)

// Relax returns a copy of attrs with the given relaxation level applied.
// Action and time are never touched at any level: they carry the core intent
// of the query.
func Relax(attrs *query.Attributes, level int) *query.Attributes {
	relaxed := attrs.Clone()

	if level >= RelaxObjects {
		for i, obj := range relaxed.Objects {
			relaxed.Objects[i] = query.ObjectCategory(obj)
		}
	}
	if level >= RelaxScene {
		relaxed.Scene = ""
	}
	if level >= RelaxAmbient {
		relaxed.Weather = ""
		relaxed.Emotion = ""
	}
	return relaxed
}
