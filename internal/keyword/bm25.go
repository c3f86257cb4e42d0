// Package keyword provides lexical (BM25) matching over image descriptions.
package keyword

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Default BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Tokenize lowercases text, strips non-word characters, and splits on whitespace.
func Tokenize(text string) []string {
	text = nonWord.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(text)
}

// Matcher ranks free-text descriptions against a query with BM25.
// The corpus is immutable once indexed; Index replaces it wholesale.
type Matcher struct {
	k1 float64
	b  float64

	mu         sync.RWMutex
	ids        []string
	tokenized  [][]string
	docLengths []int
	avgDocLen  float64
	docFreqs   map[string]int
	idf        map[string]float64
}

// Result is a single lexical hit.
type Result struct {
	ID    string
	Score float64
}

// NewMatcher creates a BM25 matcher with the given parameters.
// Non-positive values fall back to the defaults (k1=1.5, b=0.75).
func NewMatcher(k1, b float64) *Matcher {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}
	return &Matcher{k1: k1, b: b}
}

// Index replaces the corpus with the given documents. ids[i] identifies
// documents[i]; both slices must have equal length.
func (m *Matcher) Index(ids []string, documents []string) {
	tokenized := make([][]string, len(documents))
	docLengths := make([]int, len(documents))
	var totalLen int
	for i, doc := range documents {
		tokenized[i] = Tokenize(doc)
		docLengths[i] = len(tokenized[i])
		totalLen += docLengths[i]
	}

	docFreqs := make(map[string]int)
	for _, tokens := range tokenized {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			docFreqs[tok]++
		}
	}

	n := len(documents)
	idf := make(map[string]float64, len(docFreqs))
	for tok, df := range docFreqs {
		idf[tok] = math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	var avg float64
	if n > 0 {
		avg = float64(totalLen) / float64(n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append([]string(nil), ids...)
	m.tokenized = tokenized
	m.docLengths = docLengths
	m.avgDocLen = avg
	m.docFreqs = docFreqs
	m.idf = idf
}

// Score returns the BM25 score of the document at index i for the query.
func (m *Matcher) Score(query string, i int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.score(Tokenize(query), i)
}

func (m *Matcher) score(queryTokens []string, i int) float64 {
	if i < 0 || i >= len(m.tokenized) || m.avgDocLen == 0 {
		return 0
	}
	termFreqs := make(map[string]int, len(m.tokenized[i]))
	for _, tok := range m.tokenized[i] {
		termFreqs[tok]++
	}

	docLen := float64(m.docLengths[i])
	var score float64
	for _, tok := range queryTokens {
		idf, ok := m.idf[tok]
		if !ok {
			continue
		}
		tf := float64(termFreqs[tok])
		numerator := tf * (m.k1 + 1)
		denominator := tf + m.k1*(1-m.b+m.b*(docLen/m.avgDocLen))
		score += idf * (numerator / denominator)
	}
	return score
}

// Search scores every document and returns those with score > 0, sorted
// descending; ties keep the original insertion order. topK <= 0 returns all hits.
func (m *Matcher) Search(query string, topK int) []*Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := Tokenize(query)
	results := make([]*Result, 0)
	for i := range m.tokenized {
		if s := m.score(queryTokens, i); s > 0 {
			results = append(results, &Result{ID: m.ids[i], Score: s})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}

// Size returns the number of indexed documents.
func (m *Matcher) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// TermFrequency returns the document frequency for a term.
func (m *Matcher) TermFrequency(term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docFreqs[strings.ToLower(term)]
}

// Terms returns all unique terms in the corpus.
func (m *Matcher) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.docFreqs))
	for tok := range m.docFreqs {
		terms = append(terms, tok)
	}
	return terms
}
