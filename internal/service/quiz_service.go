package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// QuizService records quiz answers while a submission is still a draft.
type QuizService interface {
	SubmitAnswer(ctx context.Context, submissionID uint, student auth.Student, payload dto.QuizAnswerRequest) (dto.QuizAnswerResponse, error)
}

type quizService struct {
	workflow
}

// NewQuizService builds the quiz engine.
func NewQuizService(deps WorkflowDeps) QuizService {
	return &quizService{workflow: newWorkflow(deps, "quiz_service")}
}

// SubmitAnswer upserts the selected option for one question and re-evaluates its correctness.
func (s *quizService) SubmitAnswer(ctx context.Context, submissionID uint, student auth.Student, payload dto.QuizAnswerRequest) (dto.QuizAnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizAnswerResponse{}, err
	}

	if _, _, err := s.ownedSubmission(ctx, submissionID, student); err != nil {
		return dto.QuizAnswerResponse{}, err
	}

	selected := strings.ToUpper(strings.TrimSpace(payload.SelectedOption))

	var stored models.QuizAnswer
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		submission, err := s.lockSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if !submission.IsDraft() {
			return ErrSubmissionNotDraft
		}

		question, err := s.repos.Questions.GetByID(ctx, payload.QuestionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("load question %d: %w", payload.QuestionID, err)
		}
		if question.AssignmentID != submission.AssignmentID {
			return ErrQuestionNotInQuiz
		}
		if !question.HasOption(selected) {
			return ErrUnknownOption
		}

		correctKey, _ := question.CorrectKey()
		stored, err = s.repos.Answers.Upsert(ctx, &models.QuizAnswer{
			SubmissionID:   submission.ID,
			QuestionID:     question.ID,
			SelectedOption: selected,
			IsCorrect:      selected == correctKey,
			AnsweredAt:     s.clock(),
		})
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.QuizAnswerResponse{}, err
	}

	s.logger.Debug().
		Uint("submission_id", submissionID).
		Uint("question_id", payload.QuestionID).
		Msg("quiz answer recorded")

	return dto.NewQuizAnswerResponse(stored), nil
}
