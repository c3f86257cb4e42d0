package keyword

import (
	"sort"
	"strings"
)

// Suggestion is a spelling suggestion for a query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
}

// Suggester proposes corrections for query terms using the indexed corpus
// vocabulary, ranking candidates by edit distance and corpus frequency.
type Suggester struct {
	matcher     *Matcher
	maxDistance int
	minFreq     int
}

// NewSuggester creates a Suggester over the matcher's corpus vocabulary.
func NewSuggester(matcher *Matcher) *Suggester {
	return &Suggester{
		matcher:     matcher,
		maxDistance: 2,
		minFreq:     1,
	}
}

// Suggest returns up to limit corpus terms within the edit-distance budget of
// term, best first. An exact corpus term yields no suggestions.
func (s *Suggester) Suggest(term string, limit int) []Suggestion {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || s.matcher.TermFrequency(term) > 0 {
		return nil
	}

	var candidates []Suggestion
	for _, t := range s.matcher.Terms() {
		freq := s.matcher.TermFrequency(t)
		if freq < s.minFreq {
			continue
		}
		// Cheap length filter before computing the full distance.
		if abs(len(t)-len(term)) > s.maxDistance {
			continue
		}
		d := Levenshtein(term, t)
		if d > s.maxDistance {
			continue
		}
		candidates = append(candidates, Suggestion{Term: t, Distance: d, Frequency: freq})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Frequency > candidates[j].Frequency
	})
	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates
}

// DidYouMean returns a corrected form of the query when any word is not in the
// corpus vocabulary and has a close correction, or "" when nothing applies.
func (s *Suggester) DidYouMean(query string) string {
	words := strings.Fields(strings.ToLower(query))
	corrected := false
	for i, word := range words {
		if s.matcher.TermFrequency(word) > 0 {
			continue
		}
		if suggestions := s.Suggest(word, 1); len(suggestions) > 0 {
			words[i] = suggestions[0].Term
			corrected = true
		}
	}
	if !corrected {
		return ""
	}
	return strings.Join(words, " ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
