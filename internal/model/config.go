package model

import (
	"runtime"
	"time"
)

// Config is the full numscan configuration
type Config struct {
	Extraction   ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Scaling      ScalingConfig      `yaml:"scaling" mapstructure:"scaling"`
	Report       ReportConfig       `yaml:"report" mapstructure:"report"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// ExtractionConfig controls number detection
type ExtractionConfig struct {
	ContextRadius int `yaml:"context_radius" mapstructure:"context_radius"` // Characters kept on each side of a match
}

// ScalingConfig controls scale attribution
type ScalingConfig struct {
	ExplicitWindow int    `yaml:"explicit_window" mapstructure:"explicit_window"` // Max spaces/hyphens between number and scale word
	Abbreviations  bool   `yaml:"abbreviations" mapstructure:"abbreviations"`     // Accept mn, bn, tn, ...
	ContextScope   string `yaml:"context_scope" mapstructure:"context_scope"`     // "page" or "document"
}

// ReportConfig controls ranking output
type ReportConfig struct {
	TopN           int `yaml:"top_n" mapstructure:"top_n"`
	ContextPreview int `yaml:"context_preview" mapstructure:"context_preview"` // Context characters shown in summaries
}

// ConcurrencyConfig controls parallelism
type ConcurrencyConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`     // Pages analysed in parallel
	Documents int `yaml:"documents" mapstructure:"documents"` // Documents processed in parallel (batch)
}

// CacheConfig controls the page analysis cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Empty keeps the cache in memory only
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig controls document downloads
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitingConfig controls per-host download rates in batch mode
type RateLimitingConfig struct {
	RequestsPerSecond float64            `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int                `yaml:"burst_size" mapstructure:"burst_size"`
	Delay             time.Duration      `yaml:"delay" mapstructure:"delay"`           // Pause after each token, per download
	Hosts             map[string]float64 `yaml:"hosts,omitempty" mapstructure:"hosts"` // Per-host requests per second
}

// StoreConfig controls the run archive
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite file; empty disables archiving
}

// OutputConfig controls presentation
type OutputConfig struct {
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFormat     string `yaml:"log_format" mapstructure:"log_format"` // console or json
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			ContextRadius: 40,
		},
		Scaling: ScalingConfig{
			ExplicitWindow: 3,
			Abbreviations:  true,
			ContextScope:   "page",
		},
		Report: ReportConfig{
			TopN:           5,
			ContextPreview: 150,
		},
		Concurrency: ConcurrencyConfig{
			Workers:   runtime.NumCPU(),
			Documents: 2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       2 * time.Minute,
			UserAgent:     "numscan/0.1",
			MaxBodyBytes:  200_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Output: OutputConfig{
			LogFormat:     "console",
			IncludeFooter: true,
		},
	}
}

// Settings extracts the ranking-relevant settings for a report
func (c *Config) Settings() Settings {
	return Settings{
		TopN:           c.Report.TopN,
		ContextRadius:  c.Extraction.ContextRadius,
		ExplicitWindow: c.Scaling.ExplicitWindow,
		Abbreviations:  c.Scaling.Abbreviations,
		ContextScope:   c.Scaling.ContextScope,
	}
}
