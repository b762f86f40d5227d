package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"google.golang.org/genai"
)

const feedbackDefaultModel = "gemini-2.0-flash"

type FeedbackServiceInterface interface {
	Simplify(ctx context.Context, feedback string) (string, error)
	ReadingLevel(ctx context.Context, text string) string
}

// FeedbackService rewrites grader feedback for younger readers. The Gemini key
// stays on the server.
type FeedbackService struct {
	Client *genai.Client
	Model  string
}

func NewFeedbackService(ctx context.Context, apiKey, model string) (*FeedbackService, error) {
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = feedbackDefaultModel
	}
	return &FeedbackService{Client: client, Model: model}, nil
}

func (s *FeedbackService) Simplify(ctx context.Context, feedback string) (string, error) {
	if strings.TrimSpace(feedback) == "" {
		return "", grading.ValidationError("`feedback` is required")
	}
	if s.Client == nil {
		return "", grading.ConfigurationError("Missing GEMINI_API_KEY")
	}

	prompt := fmt.Sprintf(`You are an educational assistant that helps simplify complex feedback for students.

Take the following complex feedback and rewrite it in simpler language that a middle school student (grades 6-8) can easily understand. Keep all the important points, but use:
- Shorter sentences
- Simpler vocabulary
- More direct language
- Everyday examples when helpful
- An encouraging tone

Complex Feedback:
%s

Simplified Feedback:`, feedback)

	result, err := s.Client.Models.GenerateContent(ctx, s.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.7)),
		MaxOutputTokens: 1024,
	})
	if err != nil {
		log.Printf("Error simplifying feedback: %v", err)
		return "", grading.UpstreamError("Failed to simplify feedback", geminiStatus(err), err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", &grading.Error{Kind: grading.ErrEmptyResponse, Message: "Failed to simplify feedback"}
	}
	return text, nil
}

// ReadingLevel returns a label such as "Grade 6-8", or "Unknown" when the
// model cannot be reached.
func (s *FeedbackService) ReadingLevel(ctx context.Context, text string) string {
	if s.Client == nil || strings.TrimSpace(text) == "" {
		return "Unknown"
	}

	prompt := fmt.Sprintf(`Analyze the reading level of the following text and respond with ONLY the grade level range in this exact format: "Grade X-Y" or "Middle School (Grade X-Y)" or "College (Grade X-Y)".

Text:
%s

Reading Level:`, text)

	result, err := s.Client.Models.GenerateContent(ctx, s.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.3)),
		MaxOutputTokens: 50,
	})
	if err != nil {
		log.Printf("Error analyzing reading level: %v", err)
		return "Unknown"
	}
	level := strings.TrimSpace(result.Text())
	if level == "" {
		return "Unknown"
	}
	return level
}
