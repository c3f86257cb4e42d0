// Package main is the Omoide CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/cluster"
	"github.com/omoide-dev/omoide/internal/config"
	"github.com/omoide-dev/omoide/internal/embedding"
	"github.com/omoide-dev/omoide/internal/ingest"
	"github.com/omoide-dev/omoide/internal/keyword"
	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/search"
	"github.com/omoide-dev/omoide/internal/server"
	"github.com/omoide-dev/omoide/internal/storage"
	"github.com/omoide-dev/omoide/internal/vector"
	"github.com/omoide-dev/omoide/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/omoide/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "omoide server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "remove":
		runRemove()
	case "cluster":
		runCluster()
	case "people":
		runPeople()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("omoide version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (photo ingestion, search detail, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if err := components.Ingestor.RebuildCaptionIndex(context.Background()); err != nil {
		logger.Warn("caption index rebuild failed", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		ing := components.Ingestor
		watchSvc := ingest.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			func(path string) {
				if _, err := ing.IngestFile(watchCtx, path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := removeByFilename(watchCtx, components.Storage, ing, filepath.Base(path)); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Engine,
		components.Clusterer,
		components.Storage,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	mode := fs.String("mode", "normal", "search mode: normal (fast) or deep (metadata-aware reranking)")
	topK := fs.Int("top-k", 0, "number of results (0 = server default)")
	user := fs.String("user", "default", "photo library namespace")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: omoide search [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: omoide search [flags] <query>")
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query: queryStr,
		Mode:  *mode,
		TopK:  *topK,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, *user, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Engine.Search(context.Background(), *user, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if response.PersonMatch != "" {
			fmt.Printf("person: %s\n", response.PersonMatch)
		}
		if response.Degraded {
			fmt.Println("(degraded: embedding backend unavailable, caption matching used)")
		}
		for _, r := range response.Results {
			name := r.Filename
			if name == "" {
				name = r.ImageID
			}
			fmt.Printf("%3d. %.3f  %s", r.Rank, r.Score, name)
			if r.MatchedTerm != "" {
				fmt.Printf("  (%s)", r.MatchedTerm)
			}
			fmt.Println()
		}
		if response.Suggestion != "" {
			fmt.Printf("Did you mean: %s\n", response.Suggestion)
		}
		fmt.Printf("\n%d result(s) in %dms\n", response.Total, response.QueryTime)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL, user string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: omoide ingest [flags] <photo-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := ingestDirectory(ctx, components.Ingestor, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d photo(s) from %s\n", n, path)
	} else {
		img, err := components.Ingestor.IngestFile(ctx, path)
		if err != nil {
			fmt.Printf("Ingesting failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Photo ingested: %s (%s)\n", img.ID, img.Filename)
	}

	if cfg.Storage.VectorIndexPath != "" {
		if err := components.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.Error(err))
		}
	}
}

func ingestDirectory(ctx context.Context, ing *ingest.Ingestor, dir string, extensions []string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		matched := false
		for _, allowed := range extensions {
			if ext == allowed {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if _, err := ing.IngestFile(ctx, filepath.Join(dir, entry.Name())); err != nil {
			fmt.Printf("  skipped %s: %v\n", entry.Name(), err)
			continue
		}
		count++
	}
	return count, nil
}

// removeByFilename finds the image record matching filename and removes it
// along with its index entries and faces.
func removeByFilename(ctx context.Context, store storage.Storage, ing *ingest.Ingestor, filename string) error {
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		images, err := store.ListImages(ctx, offset, pageSize)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		for _, img := range images {
			if img.Filename == filename {
				return ing.Remove(ctx, img.ID)
			}
		}
	}
}

func runRemove() {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: omoide remove [flags] <image-id>")
		os.Exit(1)
	}
	imageID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Ingestor.Remove(context.Background(), imageID); err != nil {
		fmt.Printf("Removal failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Photo removed: %s\n", imageID)
}

func runCluster() {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	full := fs.Bool("full", false, "recluster all faces from scratch (drops existing groups)")
	_ = fs.Parse(os.Args[2:])

	endpoint := "/api/v1/cluster"
	if *full {
		endpoint = "/api/v1/recluster"
	}
	resp, err := http.Post(*serverURL+endpoint, "application/json", nil)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Clustering failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var stats models.ClusterStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		fmt.Printf("Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("faces:     %d\n", stats.TotalFaces)
	fmt.Printf("clustered: %d\n", stats.Clustered)
	fmt.Printf("groups:    %d\n", stats.ClustersCreated)
	fmt.Printf("outliers:  %d\n", stats.Outliers)
}

func runPeople() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: omoide people <list|label|merge|images|delete> [args]")
		fmt.Println("  omoide people list                     List face groups")
		fmt.Println("  omoide people label <id> <name>        Name a face group")
		fmt.Println("  omoide people merge <id> <id> [...]    Merge face groups into the first")
		fmt.Println("  omoide people images <id>              List photos of a person")
		fmt.Println("  omoide people delete <id>              Delete a face group")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("people", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])

	switch sub {
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/people")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			People []*models.FaceCluster `json:"people"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, p := range out.People {
			name := p.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%s  %-20s %d face(s)\n", p.ID, name, p.FaceCount)
		}
	case "label":
		if fs.NArg() < 2 {
			fmt.Println("Usage: omoide people label <id> <name>")
			os.Exit(1)
		}
		id := fs.Arg(0)
		name := buildSearchQuery(fs.Args()[1:])
		body, _ := json.Marshal(map[string]string{"name": name})
		resp, err := http.Post(*serverURL+"/api/v1/people/"+id+"/label", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Label failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Labeled %s as %q\n", id, name)
	case "merge":
		if fs.NArg() < 2 {
			fmt.Println("Usage: omoide people merge <id> <id> [...]")
			os.Exit(1)
		}
		body, _ := json.Marshal(map[string]interface{}{"cluster_ids": fs.Args()})
		resp, err := http.Post(*serverURL+"/api/v1/people/merge", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Merge failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var merged models.FaceCluster
		if err := json.NewDecoder(resp.Body).Decode(&merged); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Merged into %s (%d face(s))\n", merged.ID, merged.FaceCount)
	case "images":
		if fs.NArg() < 1 {
			fmt.Println("Usage: omoide people images <id>")
			os.Exit(1)
		}
		resp, err := http.Get(*serverURL + "/api/v1/people/" + fs.Arg(0) + "/images")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Images failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Images []*models.Image `json:"images"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, img := range out.Images {
			fmt.Printf("%s  %s\n", img.ID, img.Filename)
		}
	case "delete":
		if fs.NArg() < 1 {
			fmt.Println("Usage: omoide people delete <id>")
			os.Exit(1)
		}
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/people/"+fs.Arg(0), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Delete failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Deleted: %s\n", fs.Arg(0))
	default:
		fmt.Printf("Unknown people subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", "default", "photo library namespace")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx := context.Background()
	imageCount, err := components.Storage.CountImages(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count images failed: %v\n", err)
		os.Exit(1)
	}
	faceCount, err := components.Storage.CountFaces(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count faces failed: %v\n", err)
		os.Exit(1)
	}
	clusters, err := components.Storage.ListClusters(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List people failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("photos:             %d\n", imageCount)
	fmt.Printf("faces:              %d\n", faceCount)
	fmt.Printf("people:             %d\n", len(clusters))
	fmt.Printf("vector_index_size:  %d\n", components.Index.Size(*user))
	fmt.Printf("embedding_dims:     %d\n", cfg.Embedding.Dimensions)
	fmt.Printf("database_path:      %s\n", cfg.Storage.DatabasePath)
	if cfg.Storage.VectorIndexPath != "" {
		fmt.Printf("vector_index_path:  %s\n", cfg.Storage.VectorIndexPath)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Embedder  embedding.Embedder
	Index     *vector.MemoryIndex
	Keywords  *keyword.Matcher
	Engine    *search.Engine
	Ingestor  *ingest.Ingestor
	Clusterer *cluster.Clusterer

	redisCache *embedding.RedisCache
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.redisCache != nil {
		c.redisCache.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	var faces embedding.FaceDetector
	if cfg.Embedding.SidecarURL == "" || cfg.Embedding.SidecarURL == "mock" {
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		clip := embedding.NewCLIPEmbedder(cfg.Embedding.SidecarURL, cfg.Embedding.Dimensions, logger)
		embedder = clip
		faces = clip
	}

	index, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := index.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	var cache embedding.Cache
	var redisCache *embedding.RedisCache
	if len(cfg.Embedding.RedisAddrs) > 0 {
		rc, rcErr := embedding.NewRedisCache(cfg.Embedding.RedisAddrs, cfg.Embedding.RedisPassword, logger)
		if rcErr != nil {
			logger.Warn("redis cache unavailable, using in-process cache", zap.Error(rcErr))
			cache = embedding.NewLRUCache(cfg.Embedding.CacheSize)
		} else {
			cache = rc
			redisCache = rc
		}
	} else {
		cache = embedding.NewLRUCache(cfg.Embedding.CacheSize)
	}

	apiKey := cfg.Embedding.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	captioner := embedding.NewOpenAICaptioner(apiKey, cfg.Embedding.OpenAIBaseURL, cfg.Embedding.CaptionModel, logger)
	if !captioner.Available() {
		logger.Info("captioner not configured, captions and attributes disabled")
	}

	keywords := keyword.NewMatcher(0, 0)
	engine := search.NewEngine(store, embedder, index, keywords, &cfg.Search, logger)
	lookup := func(ctx context.Context, imageID string) ([]float32, error) {
		img, err := store.GetImage(ctx, imageID)
		if err != nil {
			return nil, err
		}
		if img.ThumbnailPath == "" {
			return nil, fmt.Errorf("image %s has no thumbnail", imageID)
		}
		file, err := os.Open(img.ThumbnailPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		decoded, _, err := image.Decode(file)
		if err != nil {
			return nil, err
		}
		return embedder.EncodeImage(ctx, decoded)
	}
	engine.WithDiversity(cache, lookup).WithZeroShot().WithLocalRerank().WithSpellChecker()
	ingestor := ingest.NewIngestor(store, embedder, captioner, faces, index, cache, keywords, "default", logger).
		WithThumbnails(cfg.Storage.ThumbnailDir)
	clusterer := cluster.NewClusterer(store, cfg.Cluster.Eps, cfg.Cluster.MinSamples, logger)

	return &Components{
		Storage:    store,
		Embedder:   embedder,
		Index:      index,
		Keywords:   keywords,
		Engine:     engine,
		Ingestor:   ingestor,
		Clusterer:  clusterer,
		redisCache: redisCache,
	}, nil
}

func printUsage() {
	fmt.Println(`omoide - Personal photo search engine

Usage:
  omoide server [flags]            Start the HTTP server
  omoide search [flags] <query>    Search photos
  omoide ingest [flags] <photo>    Ingest a photo or directory
  omoide remove [flags] <id>       Remove a photo
  omoide cluster [flags]           Group detected faces into people
  omoide people <subcommand>       Manage face groups
  omoide status [flags]            Show library/storage status
  omoide version                   Show version
  omoide help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/omoide/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage.
  --mode string      Search mode: normal or deep (default: normal)
  --top-k int        Number of results (default: server default)
  --user string      Photo library namespace (default: default)
  --output string    Output format: text or json (default: text)

Cluster Flags:
  --server string    Server URL (default: http://localhost:8080)
  --full             Recluster all faces from scratch

Examples:
  omoide server
  omoide ingest ~/Pictures/vacation
  omoide search "dog playing in the park"
  omoide search --mode deep "family dinner at night"
  omoide cluster
  omoide people list
  omoide people label 3f2a... "Alice"
  omoide people merge 3f2a... 9c1b...`)
}
