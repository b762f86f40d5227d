package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

var geminiPollInterval = time.Second

// GeminiService grades through the Gemini Files API and a structured
// generateContent call.
type GeminiService struct {
	Client *genai.Client
	Model  string
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// NewGeminiService builds the provider. A missing key is not an error here;
// grading calls fail with a configuration error instead.
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiService{Client: client, Model: model}, nil
}

func (s *GeminiService) Name() string {
	return "gemini"
}

func (s *GeminiService) Upload(ctx context.Context, sub grading.Submission) (*grading.FileHandle, error) {
	if s.Client == nil {
		return nil, grading.ConfigurationError("Missing GEMINI_API_KEY")
	}

	file, err := s.Client.Files.Upload(ctx, bytes.NewReader(sub.Data), &genai.UploadFileConfig{
		MIMEType:    sub.MIMEType(),
		DisplayName: sub.Filename,
	})
	if err != nil {
		log.Printf("File upload error: %v", err)
		return nil, grading.UpstreamError("Failed to upload PDF file", geminiStatus(err), err)
	}
	handle := &grading.FileHandle{ID: file.Name, URI: file.URI, MIMEType: file.MIMEType}

	// Large documents are processed asynchronously before they can be referenced.
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return handle, grading.UpstreamError("Failed to upload PDF file", 0, ctx.Err())
		case <-time.After(geminiPollInterval):
		}
		file, err = s.Client.Files.Get(ctx, handle.ID, nil)
		if err != nil {
			return handle, grading.UpstreamError("Failed to upload PDF file", geminiStatus(err), err)
		}
	}
	if file.State == genai.FileStateFailed {
		return handle, grading.UpstreamError("Failed to upload PDF file", 0, fmt.Errorf("file %s failed processing", file.Name))
	}
	handle.URI = file.URI
	return handle, nil
}

func (s *GeminiService) Complete(ctx context.Context, req grading.Request, sub grading.Submission, handle *grading.FileHandle) (string, error) {
	if s.Client == nil {
		return "", grading.ConfigurationError("Missing GEMINI_API_KEY")
	}
	if handle == nil {
		return "", grading.NewError(grading.ErrUpstreamUnavailable, "Failed to upload PDF file", nil)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.User),
			genai.NewPartFromURI(handle.URI, handle.MIMEType),
		}, genai.RoleUser),
	}
	result, err := s.Client.Models.GenerateContent(ctx, s.Model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.1)),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    gradeResponseSchema(),
	})
	if err != nil {
		log.Printf("Gemini API error: %v", err)
		return "", grading.UpstreamError("Failed to process with Gemini API", geminiStatus(err), err)
	}
	return result.Text(), nil
}

func (s *GeminiService) Cleanup(ctx context.Context, handle *grading.FileHandle) error {
	if s.Client == nil {
		return nil
	}
	_, err := s.Client.Files.Delete(ctx, handle.ID, nil)
	return err
}

// gradeResponseSchema mirrors grading.GradeSchema in Gemini's schema dialect.
func gradeResponseSchema() *genai.Schema {
	number := &genai.Schema{Type: genai.TypeNumber}
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"totalAwarded":  number,
			"totalPossible": number,
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":        str,
						"label":     str,
						"maxPoints": number,
						"points":    number,
						"comments":  str,
					},
					Required:         []string{"id", "label", "maxPoints", "points", "comments"},
					PropertyOrdering: []string{"id", "label", "maxPoints", "points", "comments"},
				},
			},
			"overallFeedback": str,
		},
		Required:         []string{"totalAwarded", "totalPossible", "items", "overallFeedback"},
		PropertyOrdering: []string{"totalAwarded", "totalPossible", "items", "overallFeedback"},
	}
}

// geminiStatus extracts the HTTP status from a genai API error, or 0.
func geminiStatus(err error) int {
	if apiErr, ok := err.(*genai.APIError); ok {
		return apiErr.Code
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
