package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/example/draft-agent/internal/config"
)

// New selects a Generator from configuration. With provider "auto" the
// first provider whose credential is present wins, in the order openai,
// anthropic, gemini; without any credential the mock serves fixtures.
func New(ctx context.Context, cfg config.LLMConfig, creds config.Credentials, fixtures map[string]any, mockDelay time.Duration) (Generator, error) {
	provider := cfg.Provider
	if provider == "" || provider == config.ProviderAuto {
		provider = detect(creds)
	}

	switch provider {
	case config.ProviderMock:
		return NewMockGenerator(fixtures, mockDelay), nil
	case config.ProviderOpenAI:
		if creds.OpenAIKey == "" {
			return nil, missingKey(provider, "OPENAI_API_KEY")
		}
		return NewLiveGenerator(NewOpenAIClient(creds.OpenAIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout)), nil
	case config.ProviderAnthropic:
		if creds.AnthropicKey == "" {
			return nil, missingKey(provider, "ANTHROPIC_API_KEY")
		}
		return NewLiveGenerator(NewAnthropicClient(creds.AnthropicKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout)), nil
	case config.ProviderGemini:
		if creds.GoogleKey == "" {
			return nil, missingKey(provider, "GOOGLE_API_KEY")
		}
		c, err := NewGeminiClient(ctx, creds.GoogleKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return NewLiveGenerator(c), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}

func detect(creds config.Credentials) string {
	switch {
	case creds.OpenAIKey != "":
		return config.ProviderOpenAI
	case creds.AnthropicKey != "":
		return config.ProviderAnthropic
	case creds.GoogleKey != "":
		return config.ProviderGemini
	default:
		return config.ProviderMock
	}
}

func missingKey(provider, env string) error {
	return fmt.Errorf("llm: provider %s selected but %s is not set", provider, env)
}

// ProviderName reports which realization backs g.
func ProviderName(g Generator) string {
	if p, ok := g.(interface{ Provider() string }); ok {
		return p.Provider()
	}
	return "custom"
}
