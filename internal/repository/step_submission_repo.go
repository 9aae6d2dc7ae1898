package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// StepReview is a teacher verdict on one step submission.
type StepReview struct {
	Status     models.StepReviewStatus
	Comment    string
	ReviewerID uint
	ReviewedAt time.Time
}

// StepSubmissionRepository stores the evidence attached to task steps.
type StepSubmissionRepository interface {
	Upsert(ctx context.Context, evidence *models.StepSubmission) (models.StepSubmission, error)
	GetByID(ctx context.Context, id uint) (models.StepSubmission, error)
	Review(ctx context.Context, id uint, review StepReview) error
	ListStepIDs(ctx context.Context, submissionID uint) ([]uint, error)
}

type stepSubmissionRepository struct {
	db *gorm.DB
}

// NewStepSubmissionRepository constructs the step evidence repository.
func NewStepSubmissionRepository(db *gorm.DB) StepSubmissionRepository {
	return &stepSubmissionRepository{db: db}
}

// Upsert writes evidence keyed by (submission, step). On conflict the verdict is reset
// and only the evidence URLs that were supplied replace the stored ones.
func (r *stepSubmissionRepository) Upsert(ctx context.Context, evidence *models.StepSubmission) (models.StepSubmission, error) {
	columns := []string{"status", "comment", "reviewed_by", "reviewed_at", "submitted_at"}
	if evidence.PhotoURL != "" {
		columns = append(columns, "photo_url")
	}
	if evidence.VideoURL != "" {
		columns = append(columns, "video_url")
	}

	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "step_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Omit(clause.Associations).Create(evidence).Error
	if err != nil {
		return models.StepSubmission{}, err
	}

	var stored models.StepSubmission
	if err := conn(ctx, r.db).
		Preload("Step").
		Where("submission_id = ? AND step_id = ?", evidence.SubmissionID, evidence.StepID).
		First(&stored).Error; err != nil {
		return models.StepSubmission{}, err
	}

	return stored, nil
}

func (r *stepSubmissionRepository) GetByID(ctx context.Context, id uint) (models.StepSubmission, error) {
	var evidence models.StepSubmission
	if err := conn(ctx, r.db).Preload("Step").First(&evidence, id).Error; err != nil {
		return models.StepSubmission{}, err
	}

	return evidence, nil
}

func (r *stepSubmissionRepository) Review(ctx context.Context, id uint, review StepReview) error {
	result := conn(ctx, r.db).Model(&models.StepSubmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      review.Status,
			"comment":     review.Comment,
			"reviewed_by": review.ReviewerID,
			"reviewed_at": review.ReviewedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *stepSubmissionRepository) ListStepIDs(ctx context.Context, submissionID uint) ([]uint, error) {
	var ids []uint
	if err := conn(ctx, r.db).Model(&models.StepSubmission{}).
		Where("submission_id = ?", submissionID).
		Pluck("step_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
