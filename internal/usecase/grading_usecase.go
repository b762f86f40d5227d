package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fadilmartias/ai-grader/internal/dto"
	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/fadilmartias/ai-grader/internal/model"
	"github.com/fadilmartias/ai-grader/internal/repository"
	"github.com/fadilmartias/ai-grader/internal/response"
	"github.com/fadilmartias/ai-grader/internal/service"
	"gorm.io/gorm"
)

var (
	ErrRunNotFound         = errors.New("no AI grading run found for this submission")
	ErrPersistenceDisabled = errors.New("grading runs are not available: database is not configured")
)

// RubricGrader is satisfied by *grading.Grader.
type RubricGrader interface {
	Grade(ctx context.Context, rubric []grading.RubricItem, sub grading.Submission) (*grading.GradeResult, error)
	ProviderName() string
}

type GradingUsecase struct {
	runRepo     repository.GradingRunRepositoryInterface
	grader      RubricGrader
	attachments service.AttachmentServiceInterface
}

// NewGradingUsecase wires the usecase. runRepo may be nil, in which case only
// Grade is available.
func NewGradingUsecase(runRepo repository.GradingRunRepositoryInterface, grader RubricGrader, attachments service.AttachmentServiceInterface) *GradingUsecase {
	return &GradingUsecase{runRepo: runRepo, grader: grader, attachments: attachments}
}

// Grade grades a submission without recording anything.
func (uc *GradingUsecase) Grade(ctx context.Context, rubric []grading.RubricItem, sub grading.Submission) (*grading.GradeResult, error) {
	return uc.grader.Grade(ctx, rubric, sub)
}

// TriggerGrading grades the first PDF attachment of a submission and records
// the outcome. The returned run reflects the final status even when err is set.
func (uc *GradingUsecase) TriggerGrading(ctx context.Context, submissionID string, req dto.TriggerGradingRequest) (*model.GradingRun, error) {
	if uc.runRepo == nil {
		return nil, ErrPersistenceDisabled
	}
	if err := grading.ValidateRubric(req.Rubric); err != nil {
		return nil, err
	}
	attachment, ok := firstPDF(req.Attachments)
	if !ok {
		return nil, grading.ValidationError("No PDF attachments found")
	}
	if err := uc.attachments.Check(attachment.URL); err != nil {
		return nil, err
	}

	rubricJSON, err := json.Marshal(req.Rubric)
	if err != nil {
		return nil, fmt.Errorf("encode rubric: %w", err)
	}
	run := &model.GradingRun{
		SubmissionID:   submissionID,
		RubricID:       req.RubricID,
		Provider:       uc.grader.ProviderName(),
		Status:         model.RunStatusPending,
		Rubric:         rubricJSON,
		AttachmentName: attachment.Name,
		AttachmentURL:  attachment.URL,
	}
	if err := uc.runRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create grading run: %w", err)
	}
	return uc.execute(ctx, run, req.Rubric)
}

// RegenerateGrading marks the latest run as regenerated and grades the same
// attachment against the same rubric again.
func (uc *GradingUsecase) RegenerateGrading(ctx context.Context, submissionID string) (*model.GradingRun, error) {
	latest, err := uc.latestRun(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	var rubric []grading.RubricItem
	if err := json.Unmarshal(latest.Rubric, &rubric); err != nil {
		return nil, fmt.Errorf("decode stored rubric: %w", err)
	}

	latest.Status = model.RunStatusRegenerated
	if err := uc.runRepo.UpdateRun(ctx, latest); err != nil {
		return nil, fmt.Errorf("update grading run: %w", err)
	}

	run := &model.GradingRun{
		SubmissionID:   latest.SubmissionID,
		RubricID:       latest.RubricID,
		Provider:       uc.grader.ProviderName(),
		Status:         model.RunStatusPending,
		Rubric:         latest.Rubric,
		AttachmentName: latest.AttachmentName,
		AttachmentURL:  latest.AttachmentURL,
	}
	if err := uc.runRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create grading run: %w", err)
	}
	return uc.execute(ctx, run, rubric)
}

func (uc *GradingUsecase) GradingStatus(ctx context.Context, submissionID string) (*model.GradingRun, error) {
	run, err := uc.latestRun(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if run.Status == "" {
		run.Status = model.RunStatusPending
	}
	return run, nil
}

func (uc *GradingUsecase) ListRuns(ctx context.Context, submissionID string, page, pageSize int) ([]model.GradingRun, *response.Pagination, error) {
	if uc.runRepo == nil {
		return nil, nil, ErrPersistenceDisabled
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	runs, total, err := uc.runRepo.ListRuns(ctx, submissionID, page, pageSize)
	if err != nil {
		return nil, nil, err
	}
	return runs, paginate(page, pageSize, total, len(runs)), nil
}

func (uc *GradingUsecase) latestRun(ctx context.Context, submissionID string) (*model.GradingRun, error) {
	if uc.runRepo == nil {
		return nil, ErrPersistenceDisabled
	}
	run, err := uc.runRepo.FindLatestRun(ctx, submissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (uc *GradingUsecase) execute(ctx context.Context, run *model.GradingRun, rubric []grading.RubricItem) (*model.GradingRun, error) {
	data, err := uc.attachments.Fetch(ctx, run.AttachmentURL)
	if err != nil {
		return uc.fail(ctx, run, err)
	}

	name := run.AttachmentName
	if name == "" {
		name = "submission.pdf"
	}
	result, err := uc.grader.Grade(ctx, rubric, grading.Submission{
		Filename:    name,
		ContentType: "application/pdf",
		Data:        data,
	})
	if err != nil {
		return uc.fail(ctx, run, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return uc.fail(ctx, run, fmt.Errorf("encode grade result: %w", err))
	}
	commentsJSON, err := json.Marshal(result.Comments())
	if err != nil {
		return uc.fail(ctx, run, fmt.Errorf("encode ai comments: %w", err))
	}

	now := time.Now()
	run.Status = model.RunStatusCompleted
	run.Result = resultJSON
	run.AIComments = commentsJSON
	run.Error = ""
	run.GradedAt = &now
	if err := uc.runRepo.UpdateRun(ctx, run); err != nil {
		return run, fmt.Errorf("update grading run: %w", err)
	}
	return run, nil
}

func (uc *GradingUsecase) fail(ctx context.Context, run *model.GradingRun, cause error) (*model.GradingRun, error) {
	log.Printf("AI grading error for submission %s: %v", run.SubmissionID, cause)
	run.Status = model.RunStatusFailed
	run.Error = grading.PublicMessage(cause)
	// the request context may already be gone
	if err := uc.runRepo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("failed to record grading failure for run %s: %v", run.ID, err)
	}
	return run, cause
}

func firstPDF(attachments []dto.Attachment) (dto.Attachment, bool) {
	for _, a := range attachments {
		if a.URL == "" {
			continue
		}
		if a.Type == "application/pdf" || (a.Type == "" && strings.HasSuffix(strings.ToLower(a.Name), ".pdf")) {
			return a, true
		}
	}
	return dto.Attachment{}, false
}

func paginate(page, pageSize int, total int64, count int) *response.Pagination {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	from := (page-1)*pageSize + 1
	to := from + count - 1
	if count == 0 {
		from, to = 0, 0
	}
	return &response.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: total,
		HasMore:    int64(page) < totalPages,
		From:       from,
		To:         to,
	}
}
