package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fadilmartias/ai-grader/internal/dto"
	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/fadilmartias/ai-grader/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []model.GradingRun
}

func (r *fakeRunRepo) CreateRun(ctx context.Context, run *model.GradingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().Add(time.Duration(len(r.runs)) * time.Second)
	r.runs = append(r.runs, *run)
	return nil
}

func (r *fakeRunRepo) UpdateRun(ctx context.Context, run *model.GradingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].ID == run.ID {
			r.runs[i] = *run
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRunRepo) FindLatestRun(ctx context.Context, submissionID string) (*model.GradingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].SubmissionID == submissionID {
			run := r.runs[i]
			return &run, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRunRepo) ListRuns(ctx context.Context, submissionID string, page, pageSize int) ([]model.GradingRun, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.GradingRun
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].SubmissionID == submissionID {
			matched = append(matched, r.runs[i])
		}
	}
	start := min((page-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))
	return matched[start:end], int64(len(matched)), nil
}

type fakeGrader struct {
	result *grading.GradeResult
	err    error
	calls  int
	last   grading.Submission
}

func (g *fakeGrader) Grade(ctx context.Context, rubric []grading.RubricItem, sub grading.Submission) (*grading.GradeResult, error) {
	g.calls++
	g.last = sub
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGrader) ProviderName() string { return "fake" }

type fakeAttachments struct {
	data     []byte
	err      error
	checkErr error
	urls     []string
}

func (a *fakeAttachments) Check(rawURL string) error {
	return a.checkErr
}

func (a *fakeAttachments) Fetch(ctx context.Context, url string) ([]byte, error) {
	a.urls = append(a.urls, url)
	return a.data, a.err
}

var (
	rubric = []grading.RubricItem{
		{ID: "thesis", Label: "Thesis", MaxPoints: 10},
		{ID: "evidence", Label: "Evidence", MaxPoints: 5},
	}
	gradeResult = &grading.GradeResult{
		TotalAwarded:  13,
		TotalPossible: 15,
		Items: []grading.GradeItem{
			{ID: "thesis", Label: "Thesis", MaxPoints: 10, Points: 9, Comments: "clear claim"},
			{ID: "evidence", Label: "Evidence", MaxPoints: 5, Points: 4, Comments: "cite more"},
		},
		OverallFeedback: "good work",
	}
	triggerReq = dto.TriggerGradingRequest{
		RubricID: "rubric-1",
		Rubric:   rubric,
		Attachments: []dto.Attachment{
			{Name: "notes.txt", URL: "https://files.example/notes.txt", Type: "text/plain"},
			{Name: "essay.pdf", URL: "https://files.example/essay.pdf", Type: "application/pdf"},
		},
	}
)

func newUsecase() (*GradingUsecase, *fakeRunRepo, *fakeGrader, *fakeAttachments) {
	repo := &fakeRunRepo{}
	grader := &fakeGrader{result: gradeResult}
	attachments := &fakeAttachments{data: []byte("%PDF-1.7")}
	return NewGradingUsecase(repo, grader, attachments), repo, grader, attachments
}

func TestTriggerGradingCompletesRun(t *testing.T) {
	uc, repo, grader, attachments := newUsecase()

	run, err := uc.TriggerGrading(context.Background(), "sub-1", triggerReq)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, "fake", run.Provider)
	assert.NotNil(t, run.GradedAt)
	assert.Equal(t, []string{"https://files.example/essay.pdf"}, attachments.urls)
	assert.Equal(t, "essay.pdf", grader.last.Filename)

	var comments map[string]string
	require.NoError(t, json.Unmarshal(run.AIComments, &comments))
	assert.Equal(t, map[string]string{"thesis": "clear claim", "evidence": "cite more"}, comments)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, model.RunStatusCompleted, repo.runs[0].Status)
}

func TestTriggerGradingValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.TriggerGradingRequest
		message string
	}{
		{
			name:    "no pdf attachment",
			req:     dto.TriggerGradingRequest{Rubric: rubric, Attachments: []dto.Attachment{{Name: "a.docx", URL: "u", Type: "application/msword"}}},
			message: "No PDF attachments found",
		},
		{
			name: "empty rubric",
			req:  dto.TriggerGradingRequest{Attachments: triggerReq.Attachments},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, repo, grader, _ := newUsecase()
			_, err := uc.TriggerGrading(context.Background(), "sub-1", tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, grading.ErrValidation)
			if tt.message != "" {
				assert.Equal(t, tt.message, grading.PublicMessage(err))
			}
			assert.Empty(t, repo.runs)
			assert.Zero(t, grader.calls)
		})
	}
}

func TestTriggerGradingRejectsDisallowedAttachment(t *testing.T) {
	uc, repo, grader, attachments := newUsecase()
	attachments.checkErr = grading.ValidationError("attachment URL must not point to a private address")

	_, err := uc.TriggerGrading(context.Background(), "sub-1", triggerReq)
	require.Error(t, err)
	assert.ErrorIs(t, err, grading.ErrValidation)
	assert.Empty(t, repo.runs)
	assert.Empty(t, attachments.urls)
	assert.Zero(t, grader.calls)
}

func TestTriggerGradingRecordsFailure(t *testing.T) {
	uc, repo, grader, _ := newUsecase()
	grader.err = grading.UpstreamError("Failed to process with fake API", http.StatusServiceUnavailable, nil)

	run, err := uc.TriggerGrading(context.Background(), "sub-1", triggerReq)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, grading.StatusCode(err))
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, "Failed to process with fake API", run.Error)
	assert.Equal(t, model.RunStatusFailed, repo.runs[0].Status)
}

func TestTriggerGradingAttachmentFailure(t *testing.T) {
	uc, repo, grader, attachments := newUsecase()
	attachments.err = grading.UpstreamError("Failed to fetch PDF file", http.StatusNotFound, nil)

	_, err := uc.TriggerGrading(context.Background(), "sub-1", triggerReq)
	require.Error(t, err)
	assert.ErrorIs(t, err, grading.ErrUpstreamUnavailable)
	assert.Zero(t, grader.calls)
	assert.Equal(t, model.RunStatusFailed, repo.runs[0].Status)
}

func TestRegenerateGrading(t *testing.T) {
	uc, repo, grader, attachments := newUsecase()
	_, err := uc.TriggerGrading(context.Background(), "sub-1", triggerReq)
	require.NoError(t, err)

	run, err := uc.RegenerateGrading(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, "rubric-1", run.RubricID)
	assert.Equal(t, 2, grader.calls)
	assert.Len(t, attachments.urls, 2)

	require.Len(t, repo.runs, 2)
	assert.Equal(t, model.RunStatusRegenerated, repo.runs[0].Status)
	assert.NotEqual(t, repo.runs[0].ID, repo.runs[1].ID)
}

func TestRegenerateGradingWithoutRun(t *testing.T) {
	uc, _, _, _ := newUsecase()
	_, err := uc.RegenerateGrading(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGradingStatusDefaultsToPending(t *testing.T) {
	uc, repo, _, _ := newUsecase()
	require.NoError(t, repo.CreateRun(context.Background(), &model.GradingRun{SubmissionID: "sub-1"}))

	run, err := uc.GradingStatus(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPending, run.Status)
}

func TestListRunsPaginates(t *testing.T) {
	uc, repo, _, _ := newUsecase()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateRun(context.Background(), &model.GradingRun{SubmissionID: "sub-1", Status: model.RunStatusCompleted}))
	}

	runs, page, err := uc.ListRuns(context.Background(), "sub-1", 2, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, int64(5), page.TotalItems)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.True(t, page.HasMore)
	assert.Equal(t, 3, page.From)
	assert.Equal(t, 4, page.To)

	_, page, err = uc.ListRuns(context.Background(), "sub-1", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.False(t, page.HasMore)
}

func TestRunsRequirePersistence(t *testing.T) {
	uc := NewGradingUsecase(nil, &fakeGrader{result: gradeResult}, &fakeAttachments{})

	_, err := uc.TriggerGrading(context.Background(), "sub-1", triggerReq)
	assert.ErrorIs(t, err, ErrPersistenceDisabled)
	_, err = uc.GradingStatus(context.Background(), "sub-1")
	assert.ErrorIs(t, err, ErrPersistenceDisabled)
	_, _, err = uc.ListRuns(context.Background(), "sub-1", 1, 10)
	assert.ErrorIs(t, err, ErrPersistenceDisabled)

	got, err := uc.Grade(context.Background(), rubric, grading.Submission{Filename: "a.pdf", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 13.0, got.TotalAwarded)
}
