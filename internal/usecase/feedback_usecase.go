package usecase

import (
	"context"

	"github.com/fadilmartias/ai-grader/internal/dto"
	"github.com/fadilmartias/ai-grader/internal/service"
)

type FeedbackUsecase struct {
	feedback service.FeedbackServiceInterface
}

func NewFeedbackUsecase(feedback service.FeedbackServiceInterface) *FeedbackUsecase {
	return &FeedbackUsecase{feedback: feedback}
}

// Simplify rewrites feedback for a middle-school reader and reports the
// reading level before and after.
func (uc *FeedbackUsecase) Simplify(ctx context.Context, feedback string) (*dto.SimplifyFeedbackResponse, error) {
	simplified, err := uc.feedback.Simplify(ctx, feedback)
	if err != nil {
		return nil, err
	}
	return &dto.SimplifyFeedbackResponse{
		Simplified:           simplified,
		ReadingLevel:         uc.feedback.ReadingLevel(ctx, simplified),
		OriginalReadingLevel: uc.feedback.ReadingLevel(ctx, feedback),
	}, nil
}
