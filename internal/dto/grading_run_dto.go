package dto

import (
	"encoding/json"
	"time"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/fadilmartias/ai-grader/internal/model"
	"github.com/google/uuid"
)

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// TriggerGradingRequest is the body of POST /api/submissions/:id/ai-grade.
type TriggerGradingRequest struct {
	RubricID    string               `json:"rubricId"`
	Rubric      []grading.RubricItem `json:"rubric"`
	Attachments []Attachment         `json:"attachments"`
}

type GradingRunDTO struct {
	ID           uuid.UUID            `json:"id"`
	SubmissionID string               `json:"submission_id"`
	RubricID     string               `json:"rubric_id,omitempty"`
	Provider     string               `json:"provider"`
	Status       string               `json:"status"` // pending, completed, failed, regenerated
	AIGradeData  *grading.GradeResult `json:"ai_grade_data,omitempty"`
	AIComments   map[string]string    `json:"ai_comments,omitempty"`
	Error        string               `json:"error,omitempty"`
	GradedAt     *time.Time           `json:"ai_graded_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type SimplifyFeedbackRequest struct {
	Feedback string `json:"feedback"`
}

type SimplifyFeedbackResponse struct {
	Simplified           string `json:"simplified"`
	ReadingLevel         string `json:"readingLevel"`
	OriginalReadingLevel string `json:"originalReadingLevel"`
}

// NewGradingRunDTO decodes the stored JSON columns of a run.
func NewGradingRunDTO(run *model.GradingRun) GradingRunDTO {
	out := GradingRunDTO{
		ID:           run.ID,
		SubmissionID: run.SubmissionID,
		RubricID:     run.RubricID,
		Provider:     run.Provider,
		Status:       run.Status,
		Error:        run.Error,
		GradedAt:     run.GradedAt,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}
	if len(run.Result) > 0 {
		var result grading.GradeResult
		if err := json.Unmarshal(run.Result, &result); err == nil {
			out.AIGradeData = &result
		}
	}
	if len(run.AIComments) > 0 {
		_ = json.Unmarshal(run.AIComments, &out.AIComments)
	}
	return out
}
