package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// AnswerRepository stores the option a student currently selects per question.
type AnswerRepository interface {
	Upsert(ctx context.Context, answer *models.QuizAnswer) (models.QuizAnswer, error)
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.QuizAnswer, error)
	CountCorrect(ctx context.Context, submissionID, assignmentID uint) (int64, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository constructs the quiz answer repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// Upsert writes the answer keyed by (submission, question) in one statement.
func (r *answerRepository) Upsert(ctx context.Context, answer *models.QuizAnswer) (models.QuizAnswer, error) {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_option", "is_correct", "answered_at"}),
	}).Create(answer).Error
	if err != nil {
		return models.QuizAnswer{}, err
	}

	var stored models.QuizAnswer
	if err := conn(ctx, r.db).
		Where("submission_id = ? AND question_id = ?", answer.SubmissionID, answer.QuestionID).
		First(&stored).Error; err != nil {
		return models.QuizAnswer{}, err
	}

	return stored, nil
}

func (r *answerRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.QuizAnswer, error) {
	var answers []models.QuizAnswer
	if err := conn(ctx, r.db).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

// CountCorrect counts correct answers to questions that still belong to the assignment.
func (r *answerRepository) CountCorrect(ctx context.Context, submissionID, assignmentID uint) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.QuizAnswer{}).
		Joins("JOIN quiz_questions ON quiz_questions.id = quiz_answers.question_id").
		Where("quiz_answers.submission_id = ?", submissionID).
		Where("quiz_questions.assignment_id = ?", assignmentID).
		Where("quiz_answers.is_correct = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
