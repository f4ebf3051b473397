// Package config loads deckpipe settings from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gaurav-prasanna/deckpipe/core/normalize"
	"github.com/gaurav-prasanna/deckpipe/core/prompt"
	"github.com/gaurav-prasanna/deckpipe/core/provider"
	"github.com/joho/godotenv"
)

// Vendor is the per-provider part of the configuration.
type Vendor struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

type Config struct {
	Addr           string        `env:"ADDR"             envDefault:":5000"`
	SecretKey      string        `env:"SECRET_KEY"`
	MaxFileSizeMB  int64         `env:"MAX_FILE_SIZE_MB" envDefault:"50"`
	UploadDir      string        `env:"UPLOAD_DIR"       envDefault:"uploads"`
	OutputDir      string        `env:"OUTPUT_DIR"       envDefault:"outputs"`
	CleanupEvery   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	FileRetention  time.Duration `env:"FILE_RETENTION"   envDefault:"24h"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"120s"`

	PromptsDir      string `env:"PROMPTS_DIR"`
	DefaultTemplate string `env:"DEFAULT_PROMPT_TEMPLATE" envDefault:"presales_engineer"`

	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT"     envDefault:"15s"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" envDefault:"4"`
	FetchMaxChars    int           `env:"FETCH_MAX_CHARS"   envDefault:"10000"`
	FetchFormat      string        `env:"FETCH_FORMAT"      envDefault:"text"`
	FetchCacheTTL    time.Duration `env:"FETCH_CACHE_TTL"   envDefault:"10m"`

	Provider        string        `env:"AI_PROVIDER"      envDefault:"anthropic"`
	MaxTokens       int           `env:"AI_MAX_TOKENS"    envDefault:"4096"`
	Temperature     float64       `env:"AI_TEMPERATURE"   envDefault:"0.7"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"90s"`
	ProviderRPM     int           `env:"PROVIDER_RPM"     envDefault:"0"`

	Anthropic Vendor `envPrefix:"ANTHROPIC_"`
	OpenAI    Vendor `envPrefix:"OPENAI_"`
	Google    Vendor `envPrefix:"GOOGLE_"`
	Ollama    Vendor `envPrefix:"OLLAMA_"`
	XAI       Vendor `envPrefix:"XAI_"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot.
func (c *Config) Validate() error {
	if _, err := provider.ParseKind(c.Provider); err != nil {
		return err
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2, got %g", c.Temperature)
	}
	switch normalize.Format(c.FetchFormat) {
	case normalize.FormatText, normalize.FormatMarkdown:
	default:
		return fmt.Errorf("FETCH_FORMAT must be text or markdown, got %q", c.FetchFormat)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// MaxUploadBytes is the upload and download size cap.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxFileSizeMB << 20
}

// ProviderConfig maps the environment onto the provider factory's settings.
func (c *Config) ProviderConfig() provider.Config {
	conv := func(v Vendor) provider.Vendor {
		return provider.Vendor{APIKey: v.APIKey, Model: v.Model, BaseURL: v.BaseURL}
	}
	return provider.Config{
		Provider:  provider.Kind(c.Provider),
		Anthropic: conv(c.Anthropic),
		OpenAI:    conv(c.OpenAI),
		Google:    conv(c.Google),
		Ollama:    conv(c.Ollama),
		XAI:       conv(c.XAI),
		Timeout:   c.ProviderTimeout,
		RPM:       c.ProviderRPM,
	}
}

// Templates loads the prompt templates: PROMPTS_DIR when set, otherwise
// the embedded set.
func (c *Config) Templates() (*prompt.Store, error) {
	fsys := prompt.Embedded()
	if c.PromptsDir != "" {
		info, err := os.Stat(c.PromptsDir)
		if err != nil {
			return nil, fmt.Errorf("PROMPTS_DIR: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("PROMPTS_DIR %s is not a directory", c.PromptsDir)
		}
		fsys = os.DirFS(c.PromptsDir)
	}
	return prompt.LoadStore(fsys, c.DefaultTemplate)
}
