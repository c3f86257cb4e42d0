package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/config"
	"github.com/omoide-dev/omoide/internal/storage"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"dog in the park", "-mode", "deep"},
			expected: []string{"-mode", "deep", "dog in the park"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-mode", "deep", "dog in the park"},
			expected: []string{"-mode", "deep", "dog in the park"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"dog in the park"},
			expected: []string{"dog in the park"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"sunset", "beach", "-top-k", "5"},
			expected: []string{"-top-k", "5", "sunset", "beach"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"sunset"}, "sunset"},
		{"multiple words", []string{"dog", "playing"}, "dog playing"},
		{"single quoted phrase", []string{"dog playing"}, "dog playing"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestInitializeComponentsWithMockEmbedder(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Storage.VectorIndexPath = ""
	cfg.Embedding.SidecarURL = "mock"
	cfg.Embedding.RedisAddrs = nil

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer components.Close()

	if components.Engine == nil || components.Ingestor == nil || components.Clusterer == nil {
		t.Fatal("expected all services to be wired")
	}
	if components.Embedder.Dimensions() != cfg.Embedding.Dimensions {
		t.Errorf("dimensions = %d, want %d", components.Embedder.Dimensions(), cfg.Embedding.Dimensions)
	}
}

func TestRemoveByFilename(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Storage.VectorIndexPath = ""
	cfg.Embedding.SidecarURL = "mock"
	cfg.Embedding.RedisAddrs = nil

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer components.Close()

	photoPath := filepath.Join(dir, "beach.png")
	writePNG(t, photoPath)
	ctx := context.Background()
	img, err := components.Ingestor.IngestFile(ctx, photoPath)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	if err := removeByFilename(ctx, components.Storage, components.Ingestor, "beach.png"); err != nil {
		t.Fatalf("removeByFilename: %v", err)
	}
	if _, err := components.Storage.GetImage(ctx, img.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetImage after remove = %v, want ErrNotFound", err)
	}

	// Unknown filename is a no-op.
	if err := removeByFilename(ctx, components.Storage, components.Ingestor, "missing.png"); err != nil {
		t.Errorf("removeByFilename(missing) = %v", err)
	}
}

func TestIngestDirectoryFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Storage.VectorIndexPath = ""
	cfg.Embedding.SidecarURL = "mock"
	cfg.Embedding.RedisAddrs = nil

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer components.Close()

	photoDir := filepath.Join(dir, "photos")
	if err := os.MkdirAll(photoDir, 0755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(photoDir, "one.png"))
	writePNG(t, filepath.Join(photoDir, "two.png"))
	if err := os.WriteFile(filepath.Join(photoDir, "notes.txt"), []byte("not a photo"), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := ingestDirectory(context.Background(), components.Ingestor, photoDir, []string{".png"})
	if err != nil {
		t.Fatalf("ingestDirectory: %v", err)
	}
	if n != 2 {
		t.Errorf("ingested = %d, want 2", n)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}
