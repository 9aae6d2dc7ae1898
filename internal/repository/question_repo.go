package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// QuestionRepository persists quiz questions together with their options.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.QuizQuestion, error)
	Create(ctx context.Context, question *models.QuizQuestion) error
	Replace(ctx context.Context, question *models.QuizQuestion) error
	Delete(ctx context.Context, id uint) error
	MaxOrder(ctx context.Context, assignmentID uint) (int, error)
	CountByAssignment(ctx context.Context, assignmentID uint) (int64, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository constructs the quiz question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.QuizQuestion, error) {
	var question models.QuizQuestion
	err := conn(ctx, r.db).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("key ASC") }).
		First(&question, id).Error
	if err != nil {
		return models.QuizQuestion{}, err
	}

	return question, nil
}

// Create inserts the question and its options in one statement group.
func (r *questionRepository) Create(ctx context.Context, question *models.QuizQuestion) error {
	return conn(ctx, r.db).Create(question).Error
}

// Replace overwrites the question fields and swaps the whole option set, then re-scores answers
// still held by draft submissions against the new key. Call it inside a transaction.
func (r *questionRepository) Replace(ctx context.Context, question *models.QuizQuestion) error {
	db := conn(ctx, r.db)

	result := db.Model(&models.QuizQuestion{}).Where("id = ?", question.ID).Updates(map[string]interface{}{
		"prompt":     question.Prompt,
		"image_url":  question.ImageURL,
		"sort_order": question.Order,
		"updated_at": question.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	if err := db.Where("question_id = ?", question.ID).Delete(&models.QuizOption{}).Error; err != nil {
		return err
	}

	for i := range question.Options {
		question.Options[i].ID = 0
		question.Options[i].QuestionID = question.ID
	}
	if len(question.Options) == 0 {
		return nil
	}
	if err := db.Create(&question.Options).Error; err != nil {
		return err
	}

	correctKey, _ := question.CorrectKey()
	return db.Model(&models.QuizAnswer{}).
		Where("question_id = ?", question.ID).
		Where("submission_id IN (?)", db.Model(&models.Submission{}).Select("id").Where("status = ?", models.SubmissionStatusDraft)).
		Update("is_correct", gorm.Expr("selected_option = ?", correctKey)).Error
}

// Delete removes the question, its options and any answers recorded for it. Call it inside a transaction.
func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	db := conn(ctx, r.db)

	if err := db.Where("question_id = ?", id).Delete(&models.QuizAnswer{}).Error; err != nil {
		return err
	}
	if err := db.Where("question_id = ?", id).Delete(&models.QuizOption{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.QuizQuestion{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) MaxOrder(ctx context.Context, assignmentID uint) (int, error) {
	var highest int
	if err := conn(ctx, r.db).Model(&models.QuizQuestion{}).
		Where("assignment_id = ?", assignmentID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}

	return highest, nil
}

func (r *questionRepository) CountByAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.QuizQuestion{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
