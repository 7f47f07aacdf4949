package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure for the evaluation engine
type Config struct {
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Index     IndexConfig     `json:"index" yaml:"index"`
	Criteria  CriteriaConfig  `json:"criteria" yaml:"criteria"`
	Student   StudentConfig   `json:"student" yaml:"student"`
	Updater   UpdaterConfig   `json:"updater" yaml:"updater"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	// Analysis holds optional analyzer settings. If nil, feedback stays
	// fully template-driven.
	Analysis *AnalysisConfig `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// EmbeddingConfig defines configuration for the embedding provider
type EmbeddingConfig struct {
	Provider        string `json:"provider" yaml:"provider"` // Available options: openai
	APIKey          string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL         string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions      int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	TimeoutMs       int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	CacheSize       int    `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds,omitempty" yaml:"cache_ttl_seconds,omitempty"`
}

// IndexConfig defines configuration for the knowledge index backend
type IndexConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: memory, milvus
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	TopK       int    `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// CriteriaConfig holds the aggregate weights for the four criteria.
// The weights must sum to exactly 1.0.
type CriteriaConfig struct {
	TimeWeight     float64 `json:"time_weight" yaml:"time_weight"`
	StyleWeight    float64 `json:"style_weight" yaml:"style_weight"`
	BehaviorWeight float64 `json:"behavior_weight" yaml:"behavior_weight"`
	SubjectWeight  float64 `json:"subject_weight" yaml:"subject_weight"`
	TopK           int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// StudentConfig defines the baseline for deriving initial student state
type StudentConfig struct {
	BaselineAttention   float64 `json:"baseline_attention" yaml:"baseline_attention"`
	BaselineFrustration float64 `json:"baseline_frustration" yaml:"baseline_frustration"`
	BaselineConfidence  float64 `json:"baseline_confidence" yaml:"baseline_confidence"`
}

// UpdaterConfig defines thresholds for the knowledge updater
type UpdaterConfig struct {
	MinOverall     float64 `json:"min_overall" yaml:"min_overall"`
	DedupThreshold float64 `json:"dedup_threshold" yaml:"dedup_threshold"`
	MaxTokens      int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Encoding       string  `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// SessionConfig defines session history persistence and escalation limits
type SessionConfig struct {
	StorePath     string `json:"store_path,omitempty" yaml:"store_path,omitempty"`
	LowScoreLimit int    `json:"low_score_limit,omitempty" yaml:"low_score_limit,omitempty"`
}

// AnalysisConfig defines the optional external analysis service
type AnalysisConfig struct {
	Endpoint string            `json:"endpoint" yaml:"endpoint"`
	Model    string            `json:"model,omitempty" yaml:"model,omitempty"`
	HTTP     *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// HTTPClientConfig defines bounded-timeout HTTP client behavior
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns the engine defaults: the original weighting scheme,
// in-memory index, and conservative updater thresholds.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:        "openai",
			Model:           "text-embedding-3-small",
			Dimensions:      1536,
			TimeoutMs:       2000,
			CacheSize:       512,
			CacheTTLSeconds: 300,
		},
		Index: IndexConfig{
			Provider: "memory",
			TopK:     5,
		},
		Criteria: CriteriaConfig{
			TimeWeight:     0.20,
			StyleWeight:    0.20,
			BehaviorWeight: 0.30,
			SubjectWeight:  0.30,
			TopK:           3,
		},
		Student: StudentConfig{
			BaselineAttention:   0.5,
			BaselineFrustration: 0.5,
			BaselineConfidence:  0.5,
		},
		Updater: UpdaterConfig{
			MinOverall:     0.8,
			DedupThreshold: 0.95,
			MaxTokens:      256,
			Encoding:       "cl100k_base",
		},
		Session: SessionConfig{
			LowScoreLimit: 3,
		},
	}
}

// Load reads a yaml config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
