package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the medichat API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Generation GenerationConfig `yaml:"generation"`
	Auth       AuthConfig       `yaml:"auth"`
	Static     StaticConfig     `yaml:"static"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the account database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // sqlite file, default users.db (or /data/users.db if /data exists)
}

// CacheConfig holds the optional Redis embedding cache settings.
// Empty addrs disables caching entirely.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CorpusConfig holds the corpus artifact source and retrieval settings.
type CorpusConfig struct {
	DatasetID  string `yaml:"dataset_id"`  // HuggingFace dataset repo, e.g. gekina/dataset_qna
	ChunksFile string `yaml:"chunks_file"` // parquet chunk table filename
	IndexFile  string `yaml:"index_file"`  // flat vector index filename
	DataDir    string `yaml:"data_dir"`    // local artifact cache directory
	HFToken    string `yaml:"hf_token"`
	SearchK    int    `yaml:"search_k"` // nearest-neighbor candidates per query
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	QueryInstruction string `yaml:"query_instruction"` // must match how the corpus was indexed
}

// RerankConfig holds cross-encoder settings. ScoreFloor and TopN are tied to
// the scoring model's output distribution and must be retuned when the model
// changes.
type RerankConfig struct {
	BaseURL    string   `yaml:"base_url"`
	Model      string   `yaml:"model"`
	APIKey     string   `yaml:"api_key"`
	TopN       int      `yaml:"top_n"`
	ScoreFloor *float64 `yaml:"score_floor"` // pointer: 0 is a legal floor
}

// GenerationConfig holds generation model settings.
type GenerationConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	SecretKey    string `yaml:"secret_key"`
	TokenTTLDays int    `yaml:"token_ttl_days"`
}

// StaticConfig holds frontend serving settings.
type StaticConfig struct {
	BuildDir string `yaml:"build_dir"` // empty disables the SPA fallback
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DefaultScoreFloor is the relevance cutoff below which a reranked passage is
// judged too weak to ground an answer. Tuned against bge-reranker-v2-m3 raw
// logits.
const DefaultScoreFloor = -2.0

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation can take a while on a cold upstream.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath()
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Corpus.ChunksFile == "" {
		c.Corpus.ChunksFile = "chunks_data.parquet"
	}
	if c.Corpus.IndexFile == "" {
		c.Corpus.IndexFile = "alodokter_index.flat"
	}
	if c.Corpus.DataDir == "" {
		c.Corpus.DataDir = "data"
	}
	if c.Corpus.SearchK <= 0 {
		c.Corpus.SearchK = 10
	}
	if c.Embedding.QueryInstruction == "" {
		c.Embedding.QueryInstruction = "query: "
	}
	if c.Rerank.TopN <= 0 {
		c.Rerank.TopN = 3
	}
	if c.Rerank.ScoreFloor == nil {
		floor := DefaultScoreFloor
		c.Rerank.ScoreFloor = &floor
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 2048
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.1
	}
	if c.Auth.TokenTTLDays <= 0 {
		c.Auth.TokenTTLDays = 7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}
	if c.Corpus.DatasetID == "" {
		return fmt.Errorf("corpus.dataset_id is required")
	}
	return nil
}

// defaultDBPath mirrors the deployment convention: a mounted /data volume
// wins over the working directory.
func defaultDBPath() string {
	if info, err := os.Stat("/data"); err == nil && info.IsDir() {
		return "/data/users.db"
	}
	return "users.db"
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
