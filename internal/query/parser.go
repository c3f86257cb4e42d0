package query

import "strings"

// Attributes holds the structured attributes explicitly present in a query.
// Empty string / empty slice means the attribute was not mentioned; parsing
// never infers attributes the user did not state.
type Attributes struct {
	Objects []string
	Action  string
	Time    string
	Scene   string
	Weather string
	Emotion string
	Raw     string
}

// Clone returns a deep copy of the attributes.
func (a *Attributes) Clone() *Attributes {
	c := *a
	c.Objects = append([]string(nil), a.Objects...)
	return &c
}

// Empty reports whether no attribute was extracted.
func (a *Attributes) Empty() bool {
	return len(a.Objects) == 0 && a.Action == "" && a.Time == "" &&
		a.Scene == "" && a.Weather == "" && a.Emotion == ""
}

// Parse extracts explicit structured attributes from a natural language query.
// Tokens are matched against the static vocabulary; first match per class wins
// for single-valued classes. Words ending in "-ing" that are not in the action
// vocabulary are still accepted as a candidate action.
func Parse(q string) *Attributes {
	lower := strings.ToLower(strings.TrimSpace(q))
	tokens := strings.Fields(lower)

	attrs := &Attributes{Raw: q}

	objects := allTerms(objectSynonyms)
	for _, tok := range tokens {
		if _, ok := objects[tok]; ok {
			attrs.Objects = append(attrs.Objects, tok)
		}
	}
	// Multi-word person patterns keep the specific noun ("young man" -> "man").
	for _, pattern := range []string{"young man", "old man", "young woman", "old woman", "little boy", "little girl"} {
		if strings.Contains(lower, pattern) {
			parts := strings.Fields(pattern)
			noun := parts[len(parts)-1]
			if !contains(attrs.Objects, noun) {
				attrs.Objects = append(attrs.Objects, noun)
			}
		}
	}

	actions := allTerms(actionSynonyms)
	for _, tok := range tokens {
		if _, ok := actions[tok]; ok {
			attrs.Action = tok
			break
		}
	}
	if attrs.Action == "" {
		for _, tok := range tokens {
			if strings.HasSuffix(tok, "ing") && len(tok) > 4 {
				attrs.Action = tok
				break
			}
		}
	}

	times := allTerms(timeSynonyms)
	for _, tok := range tokens {
		if _, ok := times[tok]; ok {
			attrs.Time = tok
			break
		}
	}
	// Fixed time phrases override token matching.
	switch {
	case strings.Contains(lower, "at night"), strings.Contains(lower, "during night"):
		attrs.Time = "night"
	case strings.Contains(lower, "at day"), strings.Contains(lower, "during day"), strings.Contains(lower, "daytime"):
		attrs.Time = "day"
	}

	scenes := allTerms(sceneSynonyms)
	for _, tok := range tokens {
		if _, ok := scenes[tok]; ok {
			attrs.Scene = tok
			break
		}
	}
	switch {
	case strings.Contains(lower, "on the street"), strings.Contains(lower, "on street"):
		attrs.Scene = "street"
	case strings.Contains(lower, "at the beach"), strings.Contains(lower, "on beach"):
		attrs.Scene = "beach"
	case strings.Contains(lower, "in the park"), strings.Contains(lower, "at park"):
		attrs.Scene = "park"
	}

	for _, term := range weatherTerms {
		if strings.Contains(lower, term) {
			attrs.Weather = term
			break
		}
	}
	for _, term := range emotionTerms {
		if strings.Contains(lower, term) {
			attrs.Emotion = term
			break
		}
	}

	return attrs
}
