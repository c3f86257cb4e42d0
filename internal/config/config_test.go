package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./data/db/omoide.db"
watch:
  directories: ["./photos"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "omoide.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "photos")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 512 {
		t.Errorf("dimensions = %d, want 512", cfg.Embedding.Dimensions)
	}
	if cfg.Search.Temperature != 25.0 {
		t.Errorf("temperature = %f, want 25.0", cfg.Search.Temperature)
	}
	if cfg.Search.ExpansionPenalty != 0.85 {
		t.Errorf("expansion_penalty = %f, want 0.85", cfg.Search.ExpansionPenalty)
	}
	if cfg.Search.DeepCandidates != 50 {
		t.Errorf("deep_candidates = %d, want 50", cfg.Search.DeepCandidates)
	}
	if cfg.Search.Weights == nil || cfg.Search.Weights.Objects != 0.30 {
		t.Errorf("weights not defaulted: %+v", cfg.Search.Weights)
	}
	if cfg.Cluster.Eps != 0.35 || cfg.Cluster.MinSamples != 2 {
		t.Errorf("cluster defaults: %+v", cfg.Cluster)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions should default")
	}
}
