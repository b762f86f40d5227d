package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/fadilmartias/ai-grader/internal/config"
	"github.com/fadilmartias/ai-grader/internal/grading"
)

type providerBuilder func(ctx context.Context, model string) (grading.Provider, error)

var providers = map[string]providerBuilder{
	"anthropic": func(_ context.Context, model string) (grading.Provider, error) {
		cfg := config.LoadAnthropicConfig()
		return NewAnthropicService(cfg.APIKey, model, cfg.BaseURL), nil
	},
	"gemini": func(ctx context.Context, model string) (grading.Provider, error) {
		return NewGeminiService(ctx, config.LoadGeminiConfig().APIKey, model)
	},
	"openrouter": func(_ context.Context, model string) (grading.Provider, error) {
		cfg := config.LoadOpenRouterConfig()
		return NewOpenRouterService(cfg.APIKey, model, cfg.BaseURL), nil
	},
}

// ProviderNames lists the registered provider names in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider builds the named provider from environment configuration.
func NewProvider(ctx context.Context, name, model string) (grading.Provider, error) {
	build, ok := providers[name]
	if !ok {
		return nil, grading.ConfigurationError(fmt.Sprintf("unknown grading provider %q (available: %v)", name, ProviderNames()))
	}
	return build(ctx, model)
}

// NewGrader wires the configured provider into a grading.Grader.
func NewGrader(ctx context.Context, cfg *config.GradingConfig) (*grading.Grader, error) {
	provider, err := NewProvider(ctx, cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}
	return grading.NewGrader(provider,
		grading.WithTimeout(cfg.MaxDuration),
		grading.WithRetries(cfg.MaxRetries, 0),
	), nil
}
