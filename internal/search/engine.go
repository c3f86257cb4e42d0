// Package search provides the multi-signal photo search engine.
package search

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/config"
	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/keyword"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/query"
	"github.com/omoide-dev/omoide/internal/ranking"
	"github.com/omoide-dev/omoide/internal/storage"
	"github.com/omoide-dev/omoide/internal/vector"
)

const perTermCap = 10

// Candidate is a raw recall hit before ranking.
type Candidate struct {
	ImageID       string
	Filename      string
	ThumbnailPath string
	Metadata      *models.ImageMetadata
	RawScore      float64
	MatchedTerm   string
}

// ScoredCandidate carries the ranking signals for a candidate.
type ScoredCandidate struct {
	Candidate
	EmbeddingScore float64
	MetaScore      float64
	Combined       float64
}

// Engine runs person, embedding and metadata based photo search.
type Engine struct {
	storage  storage.Storage
	embedder embedding.Embedder
	index    vector.Index
	keywords *keyword.Matcher
	config   *config.SearchConfig
	logger   *zap.Logger

	// Optional refinement stages, enabled through the WithX methods.
	cache     embedding.Cache
	diversity *DiversityReranker
	zeroshot  *ZeroShotGate
	local     *LocalReranker
	suggester *keyword.Suggester
}

// NewEngine creates a search engine with the given dependencies. The keyword
// matcher may be nil; lexical fallback is then unavailable.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	index vector.Index,
	keywords *keyword.Matcher,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		storage:  store,
		embedder: embedder,
		index:    index,
		keywords: keywords,
		config:   cfg,
		logger:   logger,
	}
}

// WithDiversity enables near-duplicate filtering of final results. lookup is
// consulted on cache misses and may be nil.
func (e *Engine) WithDiversity(cache embedding.Cache, lookup EmbeddingLookup) *Engine {
	e.cache = cache
	e.diversity = NewDiversityReranker(cache, lookup, e.config.DiversityThreshold, e.logger)
	return e
}

// WithZeroShot enables concept verification of deep-mode candidates. It needs
// the embedding cache from WithDiversity to obtain image vectors.
func (e *Engine) WithZeroShot() *Engine {
	e.zeroshot = NewZeroShotGate(e.embedder, e.config.ZeroShotThreshold)
	return e
}

// WithLocalRerank enables crop-level rescoring of deep-mode results that have
// a thumbnail on disk.
func (e *Engine) WithLocalRerank() *Engine {
	e.local = NewLocalReranker(e.embedder, e.config.LocalGlobalWeight, e.config.LocalCropWeight)
	return e
}

// WithSpellChecker enables "did you mean" suggestions against the caption
// corpus when a search comes back empty. It needs a keyword matcher.
func (e *Engine) WithSpellChecker() *Engine {
	if e.keywords != nil {
		e.suggester = keyword.NewSuggester(e.keywords)
	}
	return e
}

// Search runs a search request for the given user namespace.
func (e *Engine) Search(ctx context.Context, user string, q *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	resp := &models.SearchResponse{Query: q.Query, Mode: q.Mode}

	// A query naming a labeled person wins over everything else.
	if done, err := e.personSearch(ctx, q.Query, resp); err != nil {
		return nil, err
	} else if done {
		resp.QueryTime = time.Since(startTime).Milliseconds()
		return resp, nil
	}

	// Over-fetch when duplicates may be filtered out afterwards.
	fetchK := q.TopK
	if e.diversity != nil {
		fetchK = q.TopK * 2
	}

	var (
		results []*models.SearchResult
		err     error
	)
	switch q.Mode {
	case models.ModeDeep:
		results, err = e.deepSearch(ctx, user, q.Query, fetchK, resp)
	default:
		results, err = e.normalSearch(ctx, user, q.Query, fetchK, resp)
	}
	if err != nil {
		return nil, err
	}

	if e.diversity != nil && !resp.Degraded {
		results = e.diversity.Rerank(ctx, results, q.TopK)
	}
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}

	for i, r := range results {
		r.Rank = i + 1
	}
	resp.Results = results
	resp.Total = len(results)
	if len(results) == 0 && e.suggester != nil {
		resp.Suggestion = e.suggester.DidYouMean(q.Query)
	}
	resp.QueryTime = time.Since(startTime).Milliseconds()
	return resp, nil
}

// personSearch returns every image linked to the first cluster whose name
// contains the query, all with a perfect score.
func (e *Engine) personSearch(ctx context.Context, q string, resp *models.SearchResponse) (bool, error) {
	cluster, err := e.storage.FindClusterByNameSubstring(ctx, q)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("person lookup failed: %w", err)
	}

	images, err := e.storage.GetImagesByClusterID(ctx, cluster.ID)
	if err != nil {
		return false, fmt.Errorf("person image lookup failed: %w", err)
	}

	e.logger.Info("person search matched",
		zap.String("query", q),
		zap.String("person", cluster.Name),
		zap.Int("images", len(images)),
	)

	results := make([]*models.SearchResult, 0, len(images))
	for i, img := range images {
		results = append(results, &models.SearchResult{
			ImageID:       img.ID,
			Filename:      img.Filename,
			ThumbnailPath: img.ThumbnailPath,
			Score:         1.0,
			Metadata:      img.Metadata,
			Rank:          i + 1,
		})
	}
	resp.Results = results
	resp.Total = len(results)
	resp.PersonMatch = cluster.Name
	return true, nil
}

// normalSearch fans out over expansion terms and merges per-image best hits.
// Hits for the verbatim query always override hits for expanded synonyms.
func (e *Engine) normalSearch(ctx context.Context, user, q string, topK int, resp *models.SearchResponse) ([]*models.SearchResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(q))
	terms := query.Expand(q)

	maxTerms := 10
	if len(strings.Fields(normalized)) <= 2 {
		maxTerms = 6
	}
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	perCall := topK
	if perCall > perTermCap {
		perCall = perTermCap
	}

	directBest := make(map[string]*Candidate)
	expandedBest := make(map[string]*Candidate)

	for _, term := range terms {
		vec, err := e.embedder.EncodeText(ctx, term)
		if err != nil {
			if term == normalized {
				if errors.Is(err, embedding.ErrUnavailable) {
					return e.lexicalFallback(ctx, q, topK, resp)
				}
				return nil, fmt.Errorf("query embedding failed: %w", err)
			}
			e.logger.Debug("skipping expansion term", zap.String("term", term), zap.Error(err))
			continue
		}

		hits, err := e.index.Search(ctx, user, vec, perCall, -1)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}

		for _, hit := range hits {
			score := ranking.Calibrate(hit.Score, e.config.Temperature)
			cand := &Candidate{
				ImageID:     hit.ID,
				Filename:    hit.Filename,
				Metadata:    hit.Metadata,
				RawScore:    score,
				MatchedTerm: term,
			}
			if term == normalized {
				if prev, ok := directBest[hit.ID]; !ok || cand.RawScore > prev.RawScore {
					directBest[hit.ID] = cand
				}
			} else {
				// Penalize synonyms so the exact query stays on top
				// when the scores are close.
				cand.RawScore *= e.config.ExpansionPenalty
				if prev, ok := expandedBest[hit.ID]; !ok || cand.RawScore > prev.RawScore {
					expandedBest[hit.ID] = cand
				}
			}
		}
	}

	merged := make(map[string]*Candidate, len(expandedBest)+len(directBest))
	for id, cand := range expandedBest {
		merged[id] = cand
	}
	for id, cand := range directBest {
		merged[id] = cand
	}

	candidates := make([]*Candidate, 0, len(merged))
	for _, cand := range merged {
		candidates = append(candidates, cand)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RawScore > candidates[j].RawScore
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]*models.SearchResult, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, &models.SearchResult{
			ImageID:     cand.ImageID,
			Filename:    cand.Filename,
			Score:       cand.RawScore,
			MatchedTerm: cand.MatchedTerm,
			Metadata:    cand.Metadata,
		})
	}
	return results, nil
}

// deepSearch recalls a wide candidate pool, fuses calibrated embedding scores
// with metadata match scores and progressively relaxes the query attributes
// when too few candidates clear the confidence threshold.
func (e *Engine) deepSearch(ctx context.Context, user, q string, topK int, resp *models.SearchResponse) ([]*models.SearchResult, error) {
	vec, err := e.embedder.EncodeText(ctx, q)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			return e.lexicalFallback(ctx, q, topK, resp)
		}
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	hits, err := e.index.Search(ctx, user, vec, e.config.DeepCandidates, -1)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	attrs := query.Parse(q)

	scored := make([]*ScoredCandidate, 0, len(hits))
	for _, hit := range hits {
		img, err := e.storage.GetImage(ctx, hit.ID)
		if err != nil {
			e.logger.Warn("dropping candidate without image record",
				zap.String("image_id", hit.ID), zap.Error(err))
			continue
		}
		embScore := ranking.Calibrate(hit.Score, e.config.Temperature)
		metaScore := ranking.MatchScore(attrs, img.Metadata, e.config.Weights)
		scored = append(scored, &ScoredCandidate{
			Candidate: Candidate{
				ImageID:       img.ID,
				Filename:      img.Filename,
				ThumbnailPath: img.ThumbnailPath,
				Metadata:      img.Metadata,
				RawScore:      hit.Score,
			},
			EmbeddingScore: embScore,
			MetaScore:      metaScore,
			Combined:       e.combine(embScore, metaScore),
		})
	}

	if e.countAbove(scored, e.config.DeepThreshold) < topK {
		for level := ranking.RelaxObjects; level <= ranking.RelaxAmbient; level++ {
			relaxed := ranking.Relax(attrs, level)
			for _, cand := range scored {
				newMeta := ranking.MatchScore(relaxed, cand.Metadata, e.config.Weights)
				if newMeta > cand.MetaScore {
					cand.MetaScore = newMeta
					cand.Combined = e.combine(cand.EmbeddingScore, newMeta)
				}
			}
			if e.countAbove(scored, e.config.DeepThreshold) >= topK {
				break
			}
		}
	}

	if e.zeroshot != nil && e.cache != nil && len(attrs.Objects) > 0 {
		scored = e.verifyConcept(ctx, attrs.Objects[0], scored)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Combined > scored[j].Combined
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	if e.local != nil {
		e.rescoreWithCrops(ctx, vec, scored)
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Combined > scored[j].Combined
		})
	}

	results := make([]*models.SearchResult, 0, len(scored))
	for _, cand := range scored {
		results = append(results, &models.SearchResult{
			ImageID:       cand.ImageID,
			Filename:      cand.Filename,
			ThumbnailPath: cand.ThumbnailPath,
			Score:         cand.Combined,
			Metadata:      cand.Metadata,
		})
	}
	return results, nil
}

// verifyConcept drops candidates that demonstrably do not contain the queried
// concept. Candidates without a cached embedding are kept.
func (e *Engine) verifyConcept(ctx context.Context, concept string, scored []*ScoredCandidate) []*ScoredCandidate {
	kept := scored[:0]
	for _, cand := range scored {
		imageVec, ok := e.cache.Get(ctx, cand.ImageID)
		if !ok {
			kept = append(kept, cand)
			continue
		}
		pass, confidence, err := e.zeroshot.Contains(ctx, concept, imageVec)
		if err != nil || pass {
			kept = append(kept, cand)
			continue
		}
		e.logger.Debug("candidate rejected by concept check",
			zap.String("image_id", cand.ImageID),
			zap.String("concept", concept),
			zap.Float64("confidence", confidence),
		)
	}
	return kept
}

// rescoreWithCrops refines the combined score of candidates whose thumbnail
// can be read. Failures leave the score unchanged.
func (e *Engine) rescoreWithCrops(ctx context.Context, queryVec []float32, scored []*ScoredCandidate) {
	for _, cand := range scored {
		if cand.ThumbnailPath == "" {
			continue
		}
		img, err := decodePhoto(cand.ThumbnailPath)
		if err != nil {
			e.logger.Debug("crop rescore skipped",
				zap.String("image_id", cand.ImageID), zap.Error(err))
			continue
		}
		if rescored, err := e.local.Rescore(ctx, img, queryVec, cand.Combined); err == nil {
			cand.Combined = rescored
		}
	}
}

func decodePhoto(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	return img, err
}

func (e *Engine) combine(embScore, metaScore float64) float64 {
	return e.config.SemanticWeight*embScore + e.config.MetadataWeight*metaScore
}

func (e *Engine) countAbove(scored []*ScoredCandidate, threshold float64) int {
	count := 0
	for _, cand := range scored {
		if cand.Combined > threshold {
			count++
		}
	}
	return count
}

// lexicalFallback answers a query from the caption corpus when the text
// encoder is unavailable. BM25 scores are normalized by the top score so the
// response stays on the usual 0-1 scale.
func (e *Engine) lexicalFallback(ctx context.Context, q string, topK int, resp *models.SearchResponse) ([]*models.SearchResult, error) {
	if e.keywords == nil {
		return nil, fmt.Errorf("search unavailable: %w", embedding.ErrUnavailable)
	}

	e.logger.Warn("text encoder unavailable, falling back to caption search",
		zap.String("query", q))
	resp.Degraded = true

	lexical := e.keywords.Search(q, topK)
	if len(lexical) == 0 {
		return nil, nil
	}
	maxScore := lexical[0].Score

	results := make([]*models.SearchResult, 0, len(lexical))
	for _, hit := range lexical {
		img, err := e.storage.GetImage(ctx, hit.ID)
		if err != nil {
			e.logger.Warn("dropping lexical hit without image record",
				zap.String("image_id", hit.ID), zap.Error(err))
			continue
		}
		results = append(results, &models.SearchResult{
			ImageID:       img.ID,
			Filename:      img.Filename,
			ThumbnailPath: img.ThumbnailPath,
			Score:         hit.Score / maxScore,
			Metadata:      img.Metadata,
		})
	}
	return results, nil
}
