package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// GradingRepository stores the current grade of a submission and its history.
type GradingRepository interface {
	Upsert(ctx context.Context, grading *models.Grading) (models.Grading, error)
	GetBySubmission(ctx context.Context, submissionID uint) (models.Grading, error)
	AppendHistory(ctx context.Context, entry *models.GradeHistory) error
	ListHistory(ctx context.Context, submissionID uint) ([]models.GradeHistory, error)
}

type gradingRepository struct {
	db *gorm.DB
}

// NewGradingRepository constructs the grading repository.
func NewGradingRepository(db *gorm.DB) GradingRepository {
	return &gradingRepository{db: db}
}

// Upsert inserts the first grade or overwrites score, feedback, grader and time on regrade.
func (r *gradingRepository) Upsert(ctx context.Context, grading *models.Grading) (models.Grading, error) {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "feedback", "graded_by", "graded_at"}),
	}).Create(grading).Error
	if err != nil {
		return models.Grading{}, err
	}

	return r.GetBySubmission(ctx, grading.SubmissionID)
}

func (r *gradingRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Grading, error) {
	var grading models.Grading
	if err := conn(ctx, r.db).Where("submission_id = ?", submissionID).First(&grading).Error; err != nil {
		return models.Grading{}, err
	}

	return grading, nil
}

func (r *gradingRepository) AppendHistory(ctx context.Context, entry *models.GradeHistory) error {
	return conn(ctx, r.db).Create(entry).Error
}

func (r *gradingRepository) ListHistory(ctx context.Context, submissionID uint) ([]models.GradeHistory, error) {
	var entries []models.GradeHistory
	if err := conn(ctx, r.db).
		Where("submission_id = ?", submissionID).
		Order("graded_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
