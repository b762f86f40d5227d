package service

import (
	"context"
	"encoding/base64"
	"log"
	"strings"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	openRouterDefaultBaseURL = "https://openrouter.ai"
	openRouterDefaultModel   = "openai/gpt-4o-mini"
)

// OpenRouterService sends the submission inline as a data URL, so there is no
// upload step and nothing to clean up.
type OpenRouterService struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *resty.Client
}

func NewOpenRouterService(apiKey, model, baseURL string) *OpenRouterService {
	if model == "" {
		model = openRouterDefaultModel
	}
	if baseURL == "" {
		baseURL = openRouterDefaultBaseURL
	}
	return &OpenRouterService{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  resty.New(),
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) Upload(ctx context.Context, sub grading.Submission) (*grading.FileHandle, error) {
	if s.APIKey == "" {
		return nil, grading.ConfigurationError("Missing OPENROUTER_API_KEY")
	}
	return nil, nil
}

func (s *OpenRouterService) Complete(ctx context.Context, req grading.Request, sub grading.Submission, _ *grading.FileHandle) (string, error) {
	if s.APIKey == "" {
		return "", grading.ConfigurationError("Missing OPENROUTER_API_KEY")
	}

	dataURL := "data:" + sub.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(sub.Data)
	payload := map[string]any{
		"model": s.Model,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": req.User},
				{"type": "file", "file": map[string]any{"filename": sub.Filename, "file_data": dataURL}},
			}},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "grade_result",
				"strict": true,
				"schema": req.Schema,
			},
		},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.BaseURL + "/api/v1/chat/completions")
	if err != nil {
		return "", grading.UpstreamError("Failed to process with OpenRouter API", 0, err)
	}
	if resp.IsError() {
		log.Printf("OpenRouter API error: %s %s", resp.Status(), resp.String())
		return "", grading.UpstreamError("Failed to process with OpenRouter API", resp.StatusCode(), nil)
	}

	return gjson.Get(resp.String(), "choices.0.message.content").String(), nil
}

func (s *OpenRouterService) Cleanup(ctx context.Context, handle *grading.FileHandle) error {
	return nil
}
