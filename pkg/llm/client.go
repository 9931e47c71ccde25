// Package llm abstracts the generative-model backends used for address
// extraction behind one completion interface.
package llm

import (
	"context"

	"github.com/rotisserie/eris"
)

// Client sends a single-turn prompt to a generative model and returns the
// raw reply text.
type Client interface {
	// Name returns the backend identifier.
	Name() string
	// Complete runs one prompt and returns the model's text output.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

const defaultMaxTokens = 800

// NewClient creates the backend named by cfg.Provider. An empty provider
// returns (nil, nil): the generative pipeline is simply disabled.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch cfg.Provider {
	case "anthropic", "claude":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	case "":
		return nil, nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q (supported: anthropic, openai)", cfg.Provider)
	}
}
