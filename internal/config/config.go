// Package config provides configuration loading and structs for the Omoide server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/omoide-dev/omoide/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the vector index snapshot.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	ThumbnailDir    string `yaml:"thumbnail_dir"`
}

// EmbeddingConfig holds oracle and cache settings.
type EmbeddingConfig struct {
	SidecarURL    string   `yaml:"sidecar_url"`
	Dimensions    int      `yaml:"dimensions"`
	OpenAIAPIKey  string   `yaml:"openai_api_key"`
	OpenAIBaseURL string   `yaml:"openai_base_url"`
	CaptionModel  string   `yaml:"caption_model"`
	CacheSize     int      `yaml:"cache_size"`
	RedisAddrs    []string `yaml:"redis_addrs"`
	RedisPassword string   `yaml:"redis_password"`
}

// SearchConfig holds retrieval and ranking settings.
type SearchConfig struct {
	DefaultTopK        int              `yaml:"default_top_k"`
	MaxTopK            int              `yaml:"max_top_k"`
	Temperature        float64          `yaml:"temperature"`
	ExpansionPenalty   float64          `yaml:"expansion_penalty"`
	DeepCandidates     int              `yaml:"deep_candidates"`
	DeepThreshold      float64          `yaml:"deep_threshold"`
	SemanticWeight     float64          `yaml:"semantic_weight"`
	MetadataWeight     float64          `yaml:"metadata_weight"`
	LocalGlobalWeight  float64          `yaml:"local_global_weight"`
	LocalCropWeight    float64          `yaml:"local_crop_weight"`
	ZeroShotThreshold  float64          `yaml:"zero_shot_threshold"`
	DiversityThreshold float64          `yaml:"diversity_threshold"`
	Weights            *ranking.Weights `yaml:"weights"`
}

// ClusterConfig holds face clustering settings.
type ClusterConfig struct {
	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
}

// WatchConfig holds photo directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.ThumbnailDir = expandPath(cfg.Storage.ThumbnailDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == "" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
