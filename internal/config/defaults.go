package config

import (
	"github.com/omoide-dev/omoide/internal/cluster"
	"github.com/omoide-dev/omoide/internal/ranking"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/omoide/data/db/omoide.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/omoide/data/indices/vectors.gob"
	}
	if cfg.Storage.ThumbnailDir == "" {
		cfg.Storage.ThumbnailDir = "/usr/local/var/omoide/data/thumbnails"
	}
	if cfg.Embedding.SidecarURL == "" {
		cfg.Embedding.SidecarURL = "http://localhost:8901"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 20
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.Temperature == 0 {
		cfg.Search.Temperature = ranking.DefaultTemperature
	}
	if cfg.Search.ExpansionPenalty == 0 {
		cfg.Search.ExpansionPenalty = 0.85
	}
	if cfg.Search.DeepCandidates == 0 {
		cfg.Search.DeepCandidates = 50
	}
	if cfg.Search.DeepThreshold == 0 {
		cfg.Search.DeepThreshold = 0.5
	}
	if cfg.Search.SemanticWeight == 0 {
		cfg.Search.SemanticWeight = 0.6
	}
	if cfg.Search.MetadataWeight == 0 {
		cfg.Search.MetadataWeight = 0.4
	}
	if cfg.Search.LocalGlobalWeight == 0 {
		cfg.Search.LocalGlobalWeight = 0.6
	}
	if cfg.Search.LocalCropWeight == 0 {
		cfg.Search.LocalCropWeight = 0.4
	}
	if cfg.Search.ZeroShotThreshold == 0 {
		cfg.Search.ZeroShotThreshold = 0.5
	}
	if cfg.Search.DiversityThreshold == 0 {
		cfg.Search.DiversityThreshold = 0.95
	}
	if cfg.Search.Weights == nil {
		cfg.Search.Weights = ranking.DefaultWeights()
	} else {
		cfg.Search.Weights.ApplyDefaults()
	}
	if cfg.Cluster.Eps == 0 {
		cfg.Cluster.Eps = cluster.DefaultEps
	}
	if cfg.Cluster.MinSamples == 0 {
		cfg.Cluster.MinSamples = cluster.DefaultMinSamples
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	}
}
