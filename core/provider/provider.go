// Package provider sends a finished prompt to one of the supported model
// vendors and returns the raw text response.
//
// The vendor is chosen once at startup; every failure comes back as a
// *core.ProviderError so callers never see vendor error types.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind names a supported vendor.
type Kind string

const (
	Anthropic Kind = "anthropic"
	OpenAI    Kind = "openai"
	Google    Kind = "google"
	Ollama    Kind = "ollama"
	XAI       Kind = "xai"
)

// Kinds lists every supported vendor.
var Kinds = []Kind{Anthropic, OpenAI, Google, Ollama, XAI}

// Default models and endpoints per vendor.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultGoogleModel    = "gemini-1.5-pro"
	DefaultOllamaModel    = "llama3.1"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultXAIModel       = "grok-beta"
	DefaultXAIURL         = "https://api.x.ai/v1"
)

// Request is a single generation call. The model is fixed by configuration.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client is a configured connection to one vendor.
type Client interface {
	Name() string
	Model() string
	Send(ctx context.Context, req Request) (string, error)
}

// Vendor holds the credentials and endpoint of one vendor.
type Vendor struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config selects and configures the active vendor.
type Config struct {
	Provider  Kind
	Anthropic Vendor
	OpenAI    Vendor
	Google    Vendor
	Ollama    Vendor
	XAI       Vendor
	// Timeout bounds transports that do not follow the request context alone.
	Timeout time.Duration
	// RPM paces outbound calls; zero disables pacing.
	RPM int
}

// ParseKind validates a vendor name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown AI provider %q (supported: anthropic, openai, google, ollama, xai)", name)
}

// New builds the client for cfg.Provider. A missing API key is a startup error.
func New(ctx context.Context, cfg Config) (Client, error) {
	kind, err := ParseKind(string(cfg.Provider))
	if err != nil {
		return nil, err
	}

	var c Client
	switch kind {
	case Anthropic:
		c, err = newAnthropic(cfg.Anthropic)
	case OpenAI:
		c, err = newOpenAI(cfg.OpenAI)
	case Google:
		c, err = newGoogle(ctx, cfg.Google)
	case Ollama:
		c, err = newOllama(cfg.Ollama, cfg.Timeout)
	case XAI:
		c, err = newXAI(ctx, cfg.XAI, cfg.Timeout)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RPM > 0 {
		c = WithRateLimit(c, cfg.RPM)
	}
	return c, nil
}

func requireKey(kind Kind, v Vendor) error {
	if strings.TrimSpace(v.APIKey) == "" {
		return fmt.Errorf("%s provider selected but no API key configured (set %s_API_KEY)", kind, strings.ToUpper(string(kind)))
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
