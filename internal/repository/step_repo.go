package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// StepRepository persists the steps of task-analysis assignments.
type StepRepository interface {
	GetByID(ctx context.Context, id uint) (models.TaskStep, error)
	Create(ctx context.Context, step *models.TaskStep) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	MaxStepNumber(ctx context.Context, assignmentID uint) (int, error)
	ListMandatory(ctx context.Context, assignmentID uint) ([]models.TaskStep, error)
}

type stepRepository struct {
	db *gorm.DB
}

// NewStepRepository constructs the task step repository.
func NewStepRepository(db *gorm.DB) StepRepository {
	return &stepRepository{db: db}
}

func (r *stepRepository) GetByID(ctx context.Context, id uint) (models.TaskStep, error) {
	var step models.TaskStep
	if err := conn(ctx, r.db).First(&step, id).Error; err != nil {
		return models.TaskStep{}, err
	}

	return step, nil
}

func (r *stepRepository) Create(ctx context.Context, step *models.TaskStep) error {
	return conn(ctx, r.db).Create(step).Error
}

func (r *stepRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := conn(ctx, r.db).Model(&models.TaskStep{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the step and the evidence submitted for it. Call it inside a transaction.
func (r *stepRepository) Delete(ctx context.Context, id uint) error {
	db := conn(ctx, r.db)

	if err := db.Where("step_id = ?", id).Delete(&models.StepSubmission{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.TaskStep{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *stepRepository) MaxStepNumber(ctx context.Context, assignmentID uint) (int, error) {
	var highest int
	if err := conn(ctx, r.db).Model(&models.TaskStep{}).
		Where("assignment_id = ?", assignmentID).
		Select("COALESCE(MAX(step_number), 0)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}

	return highest, nil
}

func (r *stepRepository) ListMandatory(ctx context.Context, assignmentID uint) ([]models.TaskStep, error) {
	var steps []models.TaskStep
	if err := conn(ctx, r.db).
		Where("assignment_id = ? AND is_mandatory = ?", assignmentID, true).
		Order("step_number ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}

	return steps, nil
}
