// Package query provides query parsing, attribute extraction, and semantic expansion.
package query

import "strings"

// objectSynonyms maps a canonical object category to its more specific members.
var objectSynonyms = map[string][]string{
	"person":   {"man", "woman", "boy", "girl", "child", "human", "people", "guy", "lady", "kid"},
	"vehicle":  {"car", "truck", "bus", "motorcycle", "bike", "automobile", "van"},
	"animal":   {"dog", "cat", "bird", "horse", "cow", "pet"},
	"building": {"house", "apartment", "skyscraper", "office", "store", "shop"},
}

// actionSynonyms maps a canonical action to near-equivalent phrasings.
var actionSynonyms = map[string][]string{
	"walking":  {"walk", "strolling", "slow walking", "ambling"},
	"running":  {"run", "jogging", "sprinting", "dashing"},
	"sitting":  {"sit", "seated", "resting"},
	"standing": {"stand", "upright", "waiting"},
	"eating":   {"eat", "dining", "having food"},
	"talking":  {"talk", "speaking", "chatting", "conversing"},
}

var timeSynonyms = map[string][]string{
	"day":    {"daytime", "afternoon", "midday", "bright"},
	"night":  {"nighttime", "dark", "evening", "midnight"},
	"sunset": {"dusk", "twilight", "golden hour"},
	"dawn":   {"sunrise", "early morning", "daybreak"},
}

var sceneSynonyms = map[string][]string{
	"street":  {"road", "sidewalk", "pavement", "avenue"},
	"indoor":  {"inside", "interior", "room", "indoors"},
	"outdoor": {"outside", "exterior", "outdoors"},
	"beach":   {"shore", "seaside", "coast"},
	"park":    {"garden", "green space", "lawn"},
	"city":    {"urban", "downtown", "metropolitan"},
}

// weatherTerms and emotionTerms are flat keyword sets (no synonym structure).
var weatherTerms = []string{"sunny", "rainy", "cloudy", "snowy", "foggy", "stormy", "clear"}

var emotionTerms = []string{"happy", "sad", "angry", "surprised", "scared", "smiling", "laughing", "crying"}

// normalize maps a term to its canonical key in the given synonym table,
// or returns the lowercased term unchanged when it is not in the table.
func normalize(term string, table map[string][]string) string {
	t := strings.ToLower(strings.TrimSpace(term))
	for canonical, synonyms := range table {
		if t == canonical {
			return canonical
		}
		for _, s := range synonyms {
			if t == s {
				return canonical
			}
		}
	}
	return t
}

// NormalizeObject maps an object term to its canonical category,
// e.g. "man" -> "person". Unknown terms are lowercased and returned as-is.
func NormalizeObject(obj string) string {
	return normalize(obj, objectSynonyms)
}

// NormalizeAction maps an action term to its canonical form.
func NormalizeAction(action string) string {
	return normalize(action, actionSynonyms)
}

// NormalizeTime maps a time-of-day term to its canonical form.
func NormalizeTime(t string) string {
	return normalize(t, timeSynonyms)
}

// NormalizeScene maps a scene term to its canonical form.
func NormalizeScene(scene string) string {
	return normalize(scene, sceneSynonyms)
}

// ObjectHierarchy returns [obj, category] when obj is a specific member of a
// category, or [obj] when it is itself a category or unknown.
func ObjectHierarchy(obj string) []string {
	o := strings.ToLower(strings.TrimSpace(obj))
	for category, members := range objectSynonyms {
		for _, m := range members {
			if o == m {
				return []string{o, category}
			}
		}
	}
	return []string{o}
}

// ObjectCategory returns the top-level category for obj, or obj itself when it
// has no more general category. Used by the relaxation ladder.
func ObjectCategory(obj string) string {
	h := ObjectHierarchy(obj)
	return h[len(h)-1]
}

// ActionSimilarity scores two actions: 1.0 exact, 0.8 same canonical group, else 0.
func ActionSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	for canonical, synonyms := range actionSynonyms {
		aIn := a == canonical || contains(synonyms, a)
		bIn := b == canonical || contains(synonyms, b)
		if aIn && bIn {
			return 0.8
		}
	}
	return 0
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// allTerms returns the union of canonical keys and synonyms in a table.
func allTerms(table map[string][]string) map[string]struct{} {
	out := make(map[string]struct{})
	for canonical, synonyms := range table {
		out[canonical] = struct{}{}
		for _, s := range synonyms {
			out[s] = struct{}{}
		}
	}
	return out
}
