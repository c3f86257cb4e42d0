package search

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/config"
	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/keyword"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/storage"
	"github.com/omoide-dev/omoide/internal/vector"
)

// stubEmbedder returns fixed vectors for known texts and reports itself
// unavailable for anything else, so expansion terms without a fixture are
// simply skipped.
type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
}

func (s *stubEmbedder) EncodeText(_ context.Context, text string) ([]float32, error) {
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return nil, embedding.ErrUnavailable
}

func (s *stubEmbedder) EncodeImage(_ context.Context, _ image.Image) ([]float32, error) {
	return nil, embedding.ErrUnavailable
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Close() error    { return nil }

func newTestEngine(t *testing.T, emb embedding.Embedder, kw *keyword.Matcher) (*Engine, storage.Storage, vector.Index) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	index, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default().Search
	engine := NewEngine(store, emb, index, kw, &cfg, zap.NewNop())
	return engine, store, index
}

func seedImage(t *testing.T, store storage.Storage, index vector.Index, id string, vec []float32, meta *models.ImageMetadata) {
	t.Helper()
	ctx := context.Background()
	img := &models.Image{ID: id, Filename: id + ".jpg", Metadata: meta}
	if err := store.CreateImage(ctx, img); err != nil {
		t.Fatal(err)
	}
	if err := index.Upsert(ctx, "default", id, vec, &vector.Payload{Filename: img.Filename, Metadata: meta}); err != nil {
		t.Fatal(err)
	}
}

func TestSearchValidation(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{}, dims: 3}
	engine, _, _ := newTestEngine(t, emb, nil)

	if _, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: ""}); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: "x", Mode: "fuzzy"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNormalSearchRanksBySimilarity(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"red bicycle": {1, 0, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)

	seedImage(t, store, index, "close", []float32{0.99, 0.1, 0}, nil)
	seedImage(t, store, index, "far", []float32{0, 1, 0}, nil)

	resp, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: "red bicycle"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	if resp.Results[0].ImageID != "close" {
		t.Errorf("top result = %s, want close", resp.Results[0].ImageID)
	}
	if resp.Results[0].Score <= resp.Results[1].Score {
		t.Error("results not sorted by score")
	}
	for i, r := range resp.Results {
		if r.Rank != i+1 {
			t.Errorf("rank[%d] = %d", i, r.Rank)
		}
		if r.Score <= 0 || r.Score >= 1 {
			t.Errorf("score %f outside (0,1)", r.Score)
		}
	}
	if resp.Results[0].MatchedTerm != "red bicycle" {
		t.Errorf("matched term = %q", resp.Results[0].MatchedTerm)
	}
}

func TestNormalSearchExpansionPenalty(t *testing.T) {
	// "dog" expands to "puppy" among others. The image is a much better hit
	// for the expanded term, but a direct hit for the verbatim query must
	// override the penalized expanded record.
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"dog":   {1, 0, 0},
		"puppy": {0.8, 0.6, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)
	seedImage(t, store, index, "img1", []float32{0.8, 0.6, 0}, nil)

	resp, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: "dog"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	if resp.Results[0].MatchedTerm != "dog" {
		t.Errorf("matched term = %q, want the verbatim query", resp.Results[0].MatchedTerm)
	}
}

func TestNormalSearchExpandedOnlyHitIsPenalized(t *testing.T) {
	// An image reachable only through an expansion term keeps the penalized
	// score and reports the expansion term it matched. The distractors push
	// it out of the per-term hit window for the verbatim query while staying
	// strictly below the direct hit, so the top rank is deterministic.
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"dog":   {1, 0, 0},
		"puppy": {0, 1, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)
	seedImage(t, store, index, "direct", []float32{1, 0, 0}, nil)
	seedImage(t, store, index, "viaPuppy", []float32{0, 1, 0}, nil)
	for i := 0; i < 11; i++ {
		seedImage(t, store, index, fmt.Sprintf("distractor%d", i), []float32{0.9, 0.05 * float32(i+1), 0}, nil)
	}

	resp, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: "dog"})
	if err != nil {
		t.Fatal(err)
	}
	var expanded *models.SearchResult
	for _, r := range resp.Results {
		if r.ImageID == "viaPuppy" {
			expanded = r
		}
	}
	if expanded == nil {
		t.Fatal("expanded-only hit missing from results")
	}
	if expanded.MatchedTerm != "puppy" {
		t.Errorf("matched term = %q, want puppy", expanded.MatchedTerm)
	}
	if direct := resp.Results[0]; direct.ImageID != "direct" || expanded.Score >= direct.Score {
		t.Errorf("penalized expansion should rank below equal direct hit: %+v", resp.Results)
	}
}

func TestPersonSearchOverride(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{}}
	engine, store, _ := newTestEngine(t, emb, nil)
	ctx := context.Background()

	_ = store.CreateImage(ctx, &models.Image{ID: "img1", Filename: "a.jpg"})
	_ = store.CreateImage(ctx, &models.Image{ID: "img2", Filename: "b.jpg"})
	_ = store.CreateCluster(ctx, &models.FaceCluster{ID: "c1", Name: "Alice Smith"})
	_ = store.CreateFaces(ctx, []*models.Face{
		{ID: "f1", ImageID: "img1", Embedding: []float32{1}, ClusterID: "c1"},
		{ID: "f2", ImageID: "img2", Embedding: []float32{1}, ClusterID: "c1"},
	})

	resp, err := engine.Search(ctx, "default", &models.SearchQuery{Query: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.PersonMatch != "Alice Smith" {
		t.Errorf("person match = %q", resp.PersonMatch)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	for _, r := range resp.Results {
		if r.Score != 1.0 {
			t.Errorf("person result score = %f, want 1.0", r.Score)
		}
	}
}

func TestDeepSearchPrefersMatchingMetadata(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"man walking at night": {1, 0, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)

	// Identical embedding similarity; only metadata separates them.
	seedImage(t, store, index, "match", []float32{1, 0, 0}, &models.ImageMetadata{
		Objects: []string{"person"}, Action: "walking", Time: "night",
	})
	seedImage(t, store, index, "mismatch", []float32{1, 0, 0}, &models.ImageMetadata{
		Objects: []string{"car"}, Action: "parked", Time: "day",
	})

	resp, err := engine.Search(context.Background(), "default", &models.SearchQuery{
		Query: "man walking at night", Mode: models.ModeDeep,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	if resp.Results[0].ImageID != "match" {
		t.Errorf("top result = %s, want metadata match", resp.Results[0].ImageID)
	}
	if resp.Results[0].Score <= resp.Results[1].Score {
		t.Error("metadata match should outscore mismatch")
	}
}

func TestDeepSearchRelaxationRecoversCategory(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"man sleeping": {1, 0, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)

	// Tagged with the category rather than the specific object. Relaxation
	// can only raise the metadata score, never lower it.
	seedImage(t, store, index, "img1", []float32{0.9, 0.3, 0}, &models.ImageMetadata{
		Objects: []string{"person"}, Action: "sleeping",
	})

	resp, err := engine.Search(context.Background(), "default", &models.SearchQuery{
		Query: "man sleeping", Mode: models.ModeDeep,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	if resp.Results[0].Score <= 0.5 {
		t.Errorf("relaxed score = %f, expected above threshold", resp.Results[0].Score)
	}
}

func TestDeepSearchDropsCandidateWithoutRecord(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"sunset": {1, 0, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)
	ctx := context.Background()

	seedImage(t, store, index, "kept", []float32{1, 0, 0}, nil)
	// Present in the index but missing from storage.
	if err := index.Upsert(ctx, "default", "orphan", []float32{0.9, 0.1, 0}, nil); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Search(ctx, "default", &models.SearchQuery{Query: "sunset", Mode: models.ModeDeep})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ImageID != "kept" {
		t.Errorf("orphan should be dropped: %+v", resp.Results)
	}
}

func TestLexicalFallbackWhenEncoderUnavailable(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{}}
	kw := keyword.NewMatcher(0, 0)
	engine, store, _ := newTestEngine(t, emb, kw)
	ctx := context.Background()

	for i, caption := range []string{
		"a golden retriever playing on the beach",
		"sunset over the mountains",
		"a dog sleeping on the couch",
	} {
		id := fmt.Sprintf("img%d", i)
		_ = store.CreateImage(ctx, &models.Image{
			ID: id, Filename: id + ".jpg",
			Metadata: &models.ImageMetadata{Caption: caption},
		})
	}
	kw.Index(
		[]string{"img0", "img1", "img2"},
		[]string{
			"a golden retriever playing on the beach",
			"sunset over the mountains",
			"a dog sleeping on the couch",
		},
	)

	resp, err := engine.Search(ctx, "default", &models.SearchQuery{Query: "sleeping dog"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Degraded {
		t.Error("response should be marked degraded")
	}
	if resp.Total == 0 {
		t.Fatal("expected lexical results")
	}
	if resp.Results[0].ImageID != "img2" {
		t.Errorf("top lexical hit = %s, want img2", resp.Results[0].ImageID)
	}
	if resp.Results[0].Score != 1.0 {
		t.Errorf("top lexical score = %f, want normalized 1.0", resp.Results[0].Score)
	}
}

func TestSearchUnavailableWithoutFallback(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{}}
	engine, _, _ := newTestEngine(t, emb, nil)

	if _, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: "anything"}); err == nil {
		t.Error("expected error when encoder and fallback are both unavailable")
	}
}

func TestSearchDiversityFiltersDuplicateResults(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"red bicycle": {1, 0, 0},
	}}
	engine, store, index := newTestEngine(t, emb, nil)

	seedImage(t, store, index, "shot1", []float32{1, 0, 0}, nil)
	seedImage(t, store, index, "shot2", []float32{1, 0, 0}, nil)
	seedImage(t, store, index, "other", []float32{0, 1, 0}, nil)

	cache := embedding.NewLRUCache(8)
	ctx := context.Background()
	cache.Set(ctx, "shot1", []float32{1, 0, 0})
	cache.Set(ctx, "shot2", []float32{1, 0, 0})
	cache.Set(ctx, "other", []float32{0, 1, 0})
	engine.WithDiversity(cache, nil)

	resp, err := engine.Search(ctx, "default", &models.SearchQuery{Query: "red bicycle", TopK: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2 (one duplicate burst shot filtered)", resp.Total)
	}
	seen := map[string]bool{}
	for _, r := range resp.Results {
		seen[r.ImageID] = true
	}
	if seen["shot1"] == seen["shot2"] {
		t.Error("exactly one of the duplicate shots should survive")
	}
	if !seen["other"] {
		t.Error("the distinct photo should survive filtering")
	}
}

func TestSearchSuggestsCorrectionOnEmptyResult(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{}}
	kw := keyword.NewMatcher(0, 0)
	kw.Index([]string{"img1"}, []string{"sunset over the ocean"})
	engine, _, _ := newTestEngine(t, emb, kw)
	engine.WithSpellChecker()

	resp, err := engine.Search(context.Background(), "default", &models.SearchQuery{Query: "sunsett"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Fatalf("total = %d, want 0", resp.Total)
	}
	if resp.Suggestion != "sunset" {
		t.Errorf("suggestion = %q, want %q", resp.Suggestion, "sunset")
	}

	// A query whose words are all in the corpus gets no suggestion.
	resp, err = engine.Search(context.Background(), "default", &models.SearchQuery{Query: "ocean"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Suggestion != "" {
		t.Errorf("unexpected suggestion %q", resp.Suggestion)
	}
}
