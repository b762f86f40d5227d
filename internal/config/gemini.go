package config

import (
	"os"
	"sync"
)

type GeminiConfig struct {
	APIKey string
	// FeedbackModel is used by the feedback simplifier.
	FeedbackModel string
}

var (
	geminiConfig *GeminiConfig
	geminiOnce   sync.Once
)

func LoadGeminiConfig() *GeminiConfig {
	geminiOnce.Do(func() {
		geminiConfig = &GeminiConfig{
			APIKey:        os.Getenv("GEMINI_API_KEY"),
			FeedbackModel: os.Getenv("GEMINI_FEEDBACK_MODEL"),
		}
	})
	return geminiConfig
}
