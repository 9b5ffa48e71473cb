// Package ocfg resolves OpenContext's on-disk layout and embedding settings
// from explicit overrides, environment variables, and config files, in that
// priority order (highest wins).
package ocfg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Overrides are explicit caller-supplied values that outrank everything else.
type Overrides struct {
	BaseRoot     string
	ContextsRoot string
	DBPath       string
}

// Paths is the resolved on-disk layout.
type Paths struct {
	BaseRoot          string
	ContextsRoot      string
	DBPath            string
	VectorStorePath   string
	IndexMetadataPath string
}

// Embedding holds the resolved embedding API settings.
type Embedding struct {
	APIKey     string
	APIBase    string
	Model      string
	Dimensions int
	BatchSize  int
}

// Behavior holds the resolved search/chunking defaults.
type Behavior struct {
	DefaultLimit int
	ChunkSize    int
	ChunkOverlap int
}

// Config is the fully resolved configuration for one process.
type Config struct {
	Paths     Paths
	Embedding Embedding
	Behavior  Behavior
}

const (
	defaultAPIBase      = "https://api.openai.com/v1"
	defaultModel        = "text-embedding-3-small"
	defaultDimensions   = 1536
	defaultBatchSize    = 10
	defaultLimit        = 10
	defaultChunkSize    = 1500
	defaultChunkOverlap = 200
)

// fileConfig is config.yaml's shape, with the legacy OPENAI_* key names
// accepted as fallbacks for backward compatibility.
type fileConfig struct {
	EmbeddingAPIKey  string `yaml:"embedding_api_key"`
	EmbeddingAPIBase string `yaml:"embedding_api_base"`
	EmbeddingModel   string `yaml:"embedding_model"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIBaseURL    string `yaml:"openai_base_url"`

	Search struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
		DefaultLimit int `yaml:"default_limit"`
	} `yaml:"search"`

	Paths struct {
		VectorStorePath   string `yaml:"vector_store_path"`
		IndexMetadataPath string `yaml:"index_metadata_path"`
	} `yaml:"paths"`
}

// Load resolves the full configuration: defaults < config.yaml <
// environment < overrides.
func Load(o Overrides) (*Config, error) {
	cfg := &Config{
		Embedding: Embedding{
			APIBase:    defaultAPIBase,
			Model:      defaultModel,
			Dimensions: defaultDimensions,
			BatchSize:  defaultBatchSize,
		},
		Behavior: Behavior{
			DefaultLimit: defaultLimit,
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
	}

	baseRoot := resolveBaseRoot(o.BaseRoot)
	cfg.Paths = Paths{
		BaseRoot:          baseRoot,
		ContextsRoot:      firstNonEmpty(o.ContextsRoot, os.Getenv("OPENCONTEXT_CONTEXTS_ROOT"), filepath.Join(baseRoot, "contexts")),
		DBPath:            firstNonEmpty(o.DBPath, os.Getenv("OPENCONTEXT_DB_PATH"), filepath.Join(baseRoot, "opencontext.db")),
		VectorStorePath:   filepath.Join(baseRoot, "vectors.db"),
		IndexMetadataPath: filepath.Join(baseRoot, "index-metadata.json"),
	}

	applyFile(cfg, yamlConfigPath(baseRoot))

	if v, ok := firstEnv("EMBEDDING_API_BASE", "OPENAI_API_BASE"); ok {
		cfg.Embedding.APIBase = v
	}
	if v, ok := firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY"); ok {
		cfg.Embedding.APIKey = v
	}
	if v, ok := os.LookupEnv("EMBEDDING_MODEL"); ok && v != "" {
		cfg.Embedding.Model = v
	}

	return cfg, nil
}

func resolveBaseRoot(override string) string {
	if override != "" {
		return override
	}
	if root := os.Getenv("OPENCONTEXT_ROOT"); root != "" {
		return root
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".opencontext")
	}
	return ".opencontext"
}

func yamlConfigPath(baseRoot string) string {
	return filepath.Join(baseRoot, "config.yaml")
}

func applyFile(cfg *Config, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	fc, err := loadYAML(path)
	if err != nil || fc == nil {
		return
	}
	if v := firstNonEmpty(fc.EmbeddingAPIKey, fc.OpenAIAPIKey); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := firstNonEmpty(fc.EmbeddingAPIBase, fc.OpenAIBaseURL); v != "" {
		cfg.Embedding.APIBase = v
	}
	if fc.EmbeddingModel != "" {
		cfg.Embedding.Model = fc.EmbeddingModel
	}
	if fc.Search.ChunkSize > 0 {
		cfg.Behavior.ChunkSize = fc.Search.ChunkSize
	}
	if fc.Search.ChunkOverlap > 0 {
		cfg.Behavior.ChunkOverlap = fc.Search.ChunkOverlap
	}
	if fc.Search.DefaultLimit > 0 {
		cfg.Behavior.DefaultLimit = fc.Search.DefaultLimit
	}
	if fc.Paths.VectorStorePath != "" {
		cfg.Paths.VectorStorePath = fc.Paths.VectorStorePath
	}
	if fc.Paths.IndexMetadataPath != "" {
		cfg.Paths.IndexMetadataPath = fc.Paths.IndexMetadataPath
	}
}

func loadYAML(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstEnv(names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := os.LookupEnv(n); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
