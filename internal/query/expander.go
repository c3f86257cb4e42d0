package query

import "strings"

// expansions maps a query word to its semantic expansion group. Groups include
// the word itself so the verbatim intent is always represented.
var expansions = map[string][]string{
	// Animals
	"dog":    {"dog", "puppy", "canine", "pet", "animal", "pup"},
	"cat":    {"cat", "kitten", "feline", "pet", "animal"},
	"bird":   {"bird", "birds", "avian", "feather"},
	"horse":  {"horse", "pony", "equine", "foal"},
	"person": {"person", "people", "human", "face", "portrait", "guy", "girl", "man", "woman"},
	"child":  {"child", "kid", "children", "infant", "baby", "toddler"},
	"baby":   {"baby", "infant", "newborn", "toddler"},

	// Locations
	"outdoor":  {"outdoor", "nature", "outside", "exterior", "landscape", "scenery"},
	"indoor":   {"indoor", "inside", "interior", "building", "room"},
	"mountain": {"mountain", "mountains", "peak", "alpine", "summit"},
	"beach":    {"beach", "sand", "shore", "coast", "ocean"},
	"forest":   {"forest", "woods", "woodland", "trees", "nature"},
	"city":     {"city", "urban", "downtown", "street", "building"},
	"park":     {"park", "garden", "outdoor", "nature"},

	// Nature and weather
	"sunset":  {"sunset", "dusk", "evening", "sunrise", "dawn", "golden hour"},
	"sunrise": {"sunrise", "dawn", "morning", "golden hour"},
	"rain":    {"rain", "rainy", "wet", "weather", "storm"},
	"snow":    {"snow", "snowy", "winter", "cold", "frost"},
	"cloud":   {"cloud", "cloudy", "clouds", "sky", "overcast"},
	"sky":     {"sky", "blue sky", "clouds", "weather", "atmosphere"},
	"water":   {"water", "ocean", "sea", "lake", "river", "splash"},
	"tree":    {"tree", "trees", "forest", "nature", "wood"},
	"flower":  {"flower", "flowers", "bloom", "blossom", "floral"},

	// Objects and food
	"food":  {"food", "eating", "meal", "cuisine", "dish", "eat"},
	"drink": {"drink", "beverage", "coffee", "tea", "water"},
	"car":   {"car", "vehicle", "automobile", "truck", "sedan"},
	"bike":  {"bike", "bicycle", "motorcycle", "cycle"},
	"phone": {"phone", "mobile", "smartphone", "device"},
	"book":  {"book", "reading", "literature", "novel", "text"},

	// Activities
	"running":  {"running", "jogging", "sprint", "active"},
	"walking":  {"walking", "walk", "stroll", "hiking"},
	"jumping":  {"jumping", "jump", "leap", "bounce"},
	"playing":  {"playing", "play", "game", "sport", "recreation"},
	"swimming": {"swimming", "swim", "water", "pool", "beach"},
	"dancing":  {"dancing", "dance", "movement", "performance"},
	"sleeping": {"sleeping", "sleep", "rest", "bed"},

	// Colors
	"blue":   {"blue", "azure", "navy", "cyan", "turquoise"},
	"red":    {"red", "crimson", "scarlet", "ruby", "pink"},
	"green":  {"green", "lime", "forest", "emerald", "olive"},
	"yellow": {"yellow", "golden", "gold", "amber", "orange"},
	"black":  {"black", "dark", "shadow", "noir"},
	"white":  {"white", "light", "bright", "pale", "snow"},

	// Moods
	"happy":  {"happy", "joyful", "smile", "joy", "cheerful"},
	"sad":    {"sad", "unhappy", "melancholy", "tears", "sorrow"},
	"calm":   {"calm", "peaceful", "serene", "quiet", "tranquil"},
	"busy":   {"busy", "crowded", "hectic", "active", "chaos"},
	"dark":   {"dark", "night", "shadow", "dim", "nighttime"},
	"bright": {"bright", "light", "sunny", "illuminated", "clear"},
	"cold":   {"cold", "winter", "frost", "snow", "chill"},
	"hot":    {"hot", "warm", "summer", "heat", "sunny"},

	// Composition
	"portrait":  {"portrait", "headshot", "face", "person", "selfie"},
	"landscape": {"landscape", "wide", "scenery", "nature", "vista"},
	"wide":      {"wide", "landscape", "broad", "expansive", "panoramic"},
}

// Expand returns an ordered, de-duplicated list of search terms for q: the
// verbatim query first, then the expansion-group members of each query word in
// word order. Queries with no recognized word expand to the verbatim query alone.
func Expand(q string) []string {
	lower := strings.ToLower(strings.TrimSpace(q))
	if lower == "" {
		return nil
	}

	ordered := []string{lower}
	seen := map[string]struct{}{lower: {}}

	for _, word := range strings.Fields(lower) {
		group, ok := expansions[word]
		if !ok {
			continue
		}
		for _, term := range group {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			ordered = append(ordered, term)
		}
	}
	return ordered
}

// PrimaryTerm returns the first recognized expansion key in the query, or the
// normalized query itself when nothing matches.
func PrimaryTerm(q string) string {
	lower := strings.ToLower(strings.TrimSpace(q))
	if _, ok := expansions[lower]; ok {
		return lower
	}
	for _, word := range strings.Fields(lower) {
		if _, ok := expansions[word]; ok {
			return word
		}
	}
	return lower
}
