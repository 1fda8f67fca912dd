package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Sources      SourcesConfig      `yaml:"sources" mapstructure:"sources"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Judge        JudgeConfig        `yaml:"judge" mapstructure:"judge"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Aggregate    AggregateConfig    `yaml:"aggregate" mapstructure:"aggregate"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls reference fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRedirects  int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// SearchConfig selects and tunes the news search backend
type SearchConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // googlenews, newsapi
	Language        string `yaml:"language" mapstructure:"language"`
	Region          string `yaml:"region" mapstructure:"region"`
	BaseURL         string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	NewsAPIKey      string `yaml:"newsapi_key,omitempty" mapstructure:"newsapi_key"`
	MaxResults      int    `yaml:"max_results" mapstructure:"max_results"`
	MaxReferences   int    `yaml:"max_references" mapstructure:"max_references"`
	MinTextChars    int    `yaml:"min_text_chars" mapstructure:"min_text_chars"`
	PreferReputable bool   `yaml:"prefer_reputable" mapstructure:"prefer_reputable"`
}

// SourcesConfig lists the reputable news domains
type SourcesConfig struct {
	File              string   `yaml:"file,omitempty" mapstructure:"file"` // JSON file with a "websites" list
	ReputableDomains  []string `yaml:"reputable_domains" mapstructure:"reputable_domains"`
	MainstreamDomains []string `yaml:"mainstream_domains" mapstructure:"mainstream_domains"`
}

// LLMConfig selects the judgment backend
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, gemini, ollama
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
}

// JudgeConfig bounds each oracle call
type JudgeConfig struct {
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxEvidenceChars int           `yaml:"max_evidence_chars" mapstructure:"max_evidence_chars"`
}

// PipelineConfig bounds the gathering phase
type PipelineConfig struct {
	GatherTimeout time.Duration `yaml:"gather_timeout" mapstructure:"gather_timeout"`
	EventBuffer   int           `yaml:"event_buffer" mapstructure:"event_buffer"`
}

// AggregateConfig tunes the final assessment
type AggregateConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// CacheConfig controls the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes worker pools
type ConcurrencyConfig struct {
	FetchWorkers int `yaml:"fetch_workers" mapstructure:"fetch_workers"`
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// RateLimitingConfig limits requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace"`
}

// StoreConfig controls persistence of finished analyses
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig controls logrus output
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "claimlens/0.1 (+https://github.com/ppiankov/claimlens)",
			MaxBodyBytes:  5 * 1024 * 1024,
			MaxRedirects:  5,
			MaxRetries:    2,
			RespectRobots: true,
		},
		Search: SearchConfig{
			Provider:        "googlenews",
			Language:        "en",
			Region:          "US",
			MaxResults:      10,
			MaxReferences:   10,
			MinTextChars:    200,
			PreferReputable: true,
		},
		Sources: SourcesConfig{
			ReputableDomains: DefaultReputableDomains(),
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Timeout:     60 * time.Second,
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Judge: JudgeConfig{
			Timeout:          60 * time.Second,
			MaxAttempts:      2,
			MaxEvidenceChars: 4000,
		},
		Pipeline: PipelineConfig{
			GatherTimeout: 2 * time.Minute,
			EventBuffer:   16,
		},
		Aggregate: AggregateConfig{
			TopK: 3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "~/.claimlens/cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers: 4,
			BatchWorkers: 2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    30 * time.Second,
			ShutdownGrace:  10 * time.Second,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "~/.claimlens/analyses.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultReputableDomains is the built-in reputable news list
func DefaultReputableDomains() []string {
	return []string{
		"reuters.com",
		"apnews.com",
		"bbc.com",
		"bbc.co.uk",
		"npr.org",
		"pbs.org",
		"nytimes.com",
		"washingtonpost.com",
		"wsj.com",
		"theguardian.com",
		"economist.com",
		"bloomberg.com",
		"ft.com",
		"politico.com",
		"axios.com",
	}
}
