package repository

import (
	"context"

	"github.com/fadilmartias/ai-grader/internal/model"
	"gorm.io/gorm"
)

type GradingRunRepositoryInterface interface {
	CreateRun(ctx context.Context, run *model.GradingRun) error
	UpdateRun(ctx context.Context, run *model.GradingRun) error
	FindLatestRun(ctx context.Context, submissionID string) (*model.GradingRun, error)
	ListRuns(ctx context.Context, submissionID string, page, pageSize int) ([]model.GradingRun, int64, error)
}

type GradingRunRepository struct {
	db *gorm.DB
}

func NewGradingRunRepository(db *gorm.DB) *GradingRunRepository {
	return &GradingRunRepository{db}
}

func (r *GradingRunRepository) CreateRun(ctx context.Context, run *model.GradingRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *GradingRunRepository) UpdateRun(ctx context.Context, run *model.GradingRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// FindLatestRun returns gorm.ErrRecordNotFound when the submission was never graded.
func (r *GradingRunRepository) FindLatestRun(ctx context.Context, submissionID string) (*model.GradingRun, error) {
	var run model.GradingRun
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *GradingRunRepository) ListRuns(ctx context.Context, submissionID string, page, pageSize int) ([]model.GradingRun, int64, error) {
	var (
		runs  []model.GradingRun
		total int64
	)
	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.GradingRun{}).Where("submission_id = ?", submissionID)
	}
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := scope().Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&runs).Error
	return runs, total, err
}
