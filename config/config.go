// Package config loads and validates run configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/datar-psa/ragscore/api"
)

// Environment variables that override file values. Endpoint credentials in
// particular are expected to come from the environment rather than the file.
const (
	EnvEndpointURL = "RAG_ENDPOINT_URL"
	EnvLoginURL    = "RAG_LOGIN_URL"
	EnvUsername    = "RAG_USERNAME"
	EnvPassword    = "RAG_PASSWORD"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvOpenAIBase  = "OPENAI_BASE_URL"
	EnvGeminiKey   = "GOOGLE_API_KEY"
	EnvDatasetPath = "RAG_DATASET_PATH"
	EnvSummaryPath = "RAG_SUMMARY_PATH"
)

// Provider names accepted in Config.Judge.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Endpoint configures the RAG system under test.
type Endpoint struct {
	URL           string            `yaml:"url"`
	Method        string            `yaml:"method"`
	QuestionField string            `yaml:"question_field"`
	Headers       map[string]string `yaml:"headers"`
	ExtraParams   map[string]any    `yaml:"extra_params"`
	TimeoutSec    int               `yaml:"timeout_sec"`
	MaxRetries    int               `yaml:"max_retries"`

	LoginURL string `yaml:"login_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Judge configures the scoring provider.
type Judge struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Detailed         bool    `yaml:"detailed"`
	CorrectThreshold int     `yaml:"correct_threshold"`
	Temperature      float64 `yaml:"temperature"`
}

// Run configures batch execution.
type Run struct {
	DatasetPath    string  `yaml:"dataset_path"`
	SummaryPath    string  `yaml:"summary_path"`
	Concurrency    int     `yaml:"concurrency"`
	RateLimitDelay float64 `yaml:"rate_limit_delay_sec"`
}

// Config is the full run configuration.
type Config struct {
	Endpoint Endpoint `yaml:"endpoint"`
	Judge    Judge    `yaml:"judge"`
	Run      Run      `yaml:"run"`
}

// Default returns a Config with usable defaults for everything but the
// endpoint URL and the judge credentials.
func Default() Config {
	return Config{
		Endpoint: Endpoint{
			Method:        "POST",
			QuestionField: "question",
			TimeoutSec:    40,
			MaxRetries:    3,
		},
		Judge: Judge{
			Provider:         ProviderOpenAI,
			CorrectThreshold: 4,
			Temperature:      0.3,
		},
		Run: Run{
			SummaryPath: "assessment_summary.json",
			Concurrency: 5,
		},
	}
}

// Load reads a YAML config file, applies environment overrides, and
// validates the result. An empty path skips the file and uses defaults plus
// environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Endpoint.URL, EnvEndpointURL)
	setFromEnv(&c.Endpoint.LoginURL, EnvLoginURL)
	setFromEnv(&c.Endpoint.Username, EnvUsername)
	setFromEnv(&c.Endpoint.Password, EnvPassword)
	setFromEnv(&c.Run.DatasetPath, EnvDatasetPath)
	setFromEnv(&c.Run.SummaryPath, EnvSummaryPath)

	switch c.Judge.Provider {
	case ProviderGemini:
		setFromEnv(&c.Judge.APIKey, EnvGeminiKey)
	default:
		setFromEnv(&c.Judge.APIKey, EnvOpenAIKey)
		setFromEnv(&c.Judge.BaseURL, EnvOpenAIBase)
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports the first fatal configuration problem. All validation
// errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Endpoint.URL == "" {
		return fmt.Errorf("%w: endpoint url is required", api.ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(c.Endpoint.URL); err != nil {
		return fmt.Errorf("%w: endpoint url %q: %v", api.ErrInvalidConfig, c.Endpoint.URL, err)
	}
	if m := c.Endpoint.Method; m != "POST" && m != "GET" {
		return fmt.Errorf("%w: endpoint method %q (want POST or GET)", api.ErrInvalidConfig, m)
	}
	if c.Endpoint.TimeoutSec <= 0 {
		return fmt.Errorf("%w: endpoint timeout must be positive", api.ErrInvalidConfig)
	}
	if c.Endpoint.MaxRetries < 1 {
		return fmt.Errorf("%w: endpoint max_retries must be at least 1", api.ErrInvalidConfig)
	}
	if c.Endpoint.LoginURL != "" && (c.Endpoint.Username == "" || c.Endpoint.Password == "") {
		return fmt.Errorf("%w: login_url set without username and password", api.ErrInvalidConfig)
	}

	switch c.Judge.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown judge provider %q", api.ErrInvalidConfig, c.Judge.Provider)
	}
	if c.Judge.APIKey == "" {
		return fmt.Errorf("%w: judge api key is required", api.ErrInvalidConfig)
	}
	if c.Judge.CorrectThreshold < 1 || c.Judge.CorrectThreshold > 5 {
		return fmt.Errorf("%w: correct_threshold %d outside [1,5]", api.ErrInvalidConfig, c.Judge.CorrectThreshold)
	}

	if c.Run.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", api.ErrInvalidConfig)
	}
	if c.Run.RateLimitDelay < 0 {
		return fmt.Errorf("%w: rate_limit_delay_sec must not be negative", api.ErrInvalidConfig)
	}
	return nil
}

// Timeout returns the endpoint timeout as a duration.
func (e Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// DispatchGap returns the inter-item delay as a duration.
func (r Run) DispatchGap() time.Duration {
	return time.Duration(r.RateLimitDelay * float64(time.Second))
}
