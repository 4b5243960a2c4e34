package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when CONFIG_PATH is unset. A missing file is not
// an error.
const DefaultConfigPath = "clausecheck.yaml"

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Completion service
	LLMProvider     string        `yaml:"llm_provider"`
	LLMModel        string        `yaml:"llm_model"`
	LLMTimeout      time.Duration `yaml:"llm_timeout"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`

	// Circuit breaker around the completion service
	Breaker Breaker `yaml:"breaker"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Latency stats window for /api/stats/llm
	StatsWindow time.Duration `yaml:"stats_window"`

	Analysis Analysis `yaml:"analysis"`
}

type Breaker struct {
	Enabled          bool          `yaml:"enabled"`
	MinRequests      uint32        `yaml:"min_requests"`
	FailureRatio     float64       `yaml:"failure_ratio"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	HalfOpenMaxCalls uint32        `yaml:"half_open_max_calls"`
}

// Analysis holds the default analysis settings. Requests and CLI flags may
// override any of them.
type Analysis struct {
	Mode             string `yaml:"mode"`
	LocationColumn   string `yaml:"location_column"`
	ClauseTypeColumn string `yaml:"clause_type_column"`
	ClauseColumn     string `yaml:"clause_column"`
	SearchKeyword    string `yaml:"search_keyword"`
	Subject          string `yaml:"subject"`

	AllowedPrompt       string `yaml:"allowed_prompt"`
	SummaryPrompt       string `yaml:"summary_prompt"`
	ProhibitedUsePrompt string `yaml:"prohibited_use_prompt"`
	UseClausePrompt     string `yaml:"use_clause_prompt"`

	AllowedMaxTokens int `yaml:"allowed_max_tokens"`
	SummaryMaxTokens int `yaml:"summary_max_tokens"`
	ClauseMaxTokens  int `yaml:"clause_max_tokens"`
}

// Load reads the file named by CONFIG_PATH (or DefaultConfigPath), then
// applies environment overrides and defaults.
func Load() (Config, error) {
	path := os.Getenv("CONFIG_PATH")
	required := path != ""
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadFile(path, required)
}

// LoadFile is Load with an explicit file. When required is false a missing
// file is skipped.
func LoadFile(path string, required bool) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.APIKey = envOr("CLAUSECHECK_API_KEY", c.APIKey)

	c.LLMProvider = envOr("LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = envOr("LLM_MODEL", c.LLMModel)
	c.LLMTimeout = envDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)

	c.Breaker.Enabled = envBool("BREAKER_ENABLED", c.Breaker.Enabled)
	c.Breaker.MinRequests = uint32(envInt("BREAKER_MIN_REQUESTS", int(c.Breaker.MinRequests)))
	c.Breaker.FailureRatio = envFloat("BREAKER_FAILURE_RATIO", c.Breaker.FailureRatio)
	c.Breaker.OpenTimeout = envDuration("BREAKER_OPEN_TIMEOUT", c.Breaker.OpenTimeout)
	c.Breaker.HalfOpenMaxCalls = uint32(envInt("BREAKER_HALF_OPEN_MAX_CALLS", int(c.Breaker.HalfOpenMaxCalls)))

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)

	a := &c.Analysis
	a.Mode = envOr("ANALYSIS_MODE", a.Mode)
	a.LocationColumn = envOr("LOCATION_COLUMN", a.LocationColumn)
	a.ClauseTypeColumn = envOr("CLAUSE_TYPE_COLUMN", a.ClauseTypeColumn)
	a.ClauseColumn = envOr("CLAUSE_COLUMN", a.ClauseColumn)
	a.SearchKeyword = envOr("SEARCH_KEYWORD", a.SearchKeyword)
	a.Subject = envOr("SUBJECT", a.Subject)
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LLMProvider == "" {
		c.LLMProvider = "openai"
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 120 * time.Second
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800 // 50MB
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = 1 * time.Hour
	}
}

// Validate checks what every entry point needs: credentials for the
// selected provider.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLMProvider)
	}
	return nil
}

// ValidateServer additionally requires the API key guarding the HTTP server.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("CLAUSECHECK_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
