package service

import (
	"bytes"
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicDefaultModel   = "claude-sonnet-4-20250514"
	anthropicVersion        = "2023-06-01"
	anthropicFilesBeta      = "files-api-2025-04-14"
	anthropicMaxTokens      = 4000
	gradeToolName           = "record_grade"
)

// AnthropicService uploads the submission through the Files API, references it
// from a Messages call and deletes it afterwards.
type AnthropicService struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *resty.Client
}

func NewAnthropicService(apiKey, model, baseURL string) *AnthropicService {
	if model == "" {
		model = anthropicDefaultModel
	}
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &AnthropicService{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  resty.New(),
	}
}

func (s *AnthropicService) Name() string {
	return "anthropic"
}

func (s *AnthropicService) request(ctx context.Context) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", s.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("anthropic-beta", anthropicFilesBeta)
}

func (s *AnthropicService) Upload(ctx context.Context, sub grading.Submission) (*grading.FileHandle, error) {
	if s.APIKey == "" {
		return nil, grading.ConfigurationError("Missing ANTHROPIC_API_KEY")
	}

	resp, err := s.request(ctx).
		SetMultipartField("file", sub.Filename, sub.MIMEType(), bytes.NewReader(sub.Data)).
		Post(s.BaseURL + "/v1/files")
	if err != nil {
		return nil, grading.UpstreamError("Failed to upload PDF file", 0, err)
	}
	if resp.IsError() {
		log.Printf("File upload error: %s %s", resp.Status(), resp.String())
		return nil, grading.UpstreamError("Failed to upload PDF file", resp.StatusCode(), nil)
	}

	id := gjson.Get(resp.String(), "id").String()
	if id == "" {
		log.Printf("File upload returned no id: %s", resp.String())
		return nil, grading.UpstreamError("Failed to upload PDF file", resp.StatusCode(), nil)
	}
	return &grading.FileHandle{ID: id, MIMEType: sub.MIMEType()}, nil
}

func (s *AnthropicService) Complete(ctx context.Context, req grading.Request, sub grading.Submission, handle *grading.FileHandle) (string, error) {
	if s.APIKey == "" {
		return "", grading.ConfigurationError("Missing ANTHROPIC_API_KEY")
	}
	if handle == nil {
		return "", grading.NewError(grading.ErrUpstreamUnavailable, "Failed to upload PDF file", nil)
	}

	payload := map[string]any{
		"model":      s.Model,
		"max_tokens": anthropicMaxTokens,
		"system":     req.System,
		"tools": []map[string]any{{
			"name":         gradeToolName,
			"description":  "Record the rubric grade for the attached submission.",
			"input_schema": req.Schema,
		}},
		"tool_choice": map[string]any{"type": "tool", "name": gradeToolName},
		"messages": []map[string]any{{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": req.User},
				{"type": "document", "source": map[string]any{"type": "file", "file_id": handle.ID}},
			},
		}},
	}

	resp, err := s.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.BaseURL + "/v1/messages")
	if err != nil {
		return "", grading.UpstreamError("Failed to process with Claude API", 0, err)
	}
	if resp.IsError() {
		log.Printf("Claude API error: %s %s", resp.Status(), resp.String())
		return "", grading.UpstreamError("Failed to process with Claude API", resp.StatusCode(), nil)
	}

	body := resp.String()
	if input := gjson.Get(body, `content.#(type=="tool_use").input`); input.Exists() && input.IsObject() {
		return input.Raw, nil
	}
	return gjson.Get(body, `content.#(type=="text").text`).String(), nil
}

func (s *AnthropicService) Cleanup(ctx context.Context, handle *grading.FileHandle) error {
	resp, err := s.request(ctx).Delete(s.BaseURL + "/v1/files/" + url.PathEscape(handle.ID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return grading.UpstreamError("Failed to delete uploaded file", resp.StatusCode(), nil)
	}
	return nil
}
