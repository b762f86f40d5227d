package config

import (
	"os"
	"sync"
)

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
}

var (
	anthropicConfig *AnthropicConfig
	anthropicOnce   sync.Once
)

func LoadAnthropicConfig() *AnthropicConfig {
	anthropicOnce.Do(func() {
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			key = os.Getenv("CLAUDE_KEY")
		}
		anthropicConfig = &AnthropicConfig{
			APIKey:  key,
			BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		}
	})
	return anthropicConfig
}
