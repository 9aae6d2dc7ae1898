package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/observability"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

const (
	defaultRecentGrades = 5
	maxRecentGrades     = 50
)

// SubmissionService owns the submission state machine and the submission read models.
type SubmissionService interface {
	Start(ctx context.Context, assignmentID uint, student auth.Student) (dto.SubmissionResponse, error)
	CompleteQuiz(ctx context.Context, submissionID uint, student auth.Student) (dto.QuizCompletionResponse, error)
	CompleteTask(ctx context.Context, submissionID uint, student auth.Student) (dto.SubmissionResponse, error)
	Detail(ctx context.Context, submissionID uint, identity auth.Identity) (dto.SubmissionDetailResponse, error)
	ListMine(ctx context.Context, student auth.Student) ([]dto.SubmissionResponse, error)
	ListForAssignment(ctx context.Context, assignmentID uint, teacher auth.Teacher) ([]dto.SubmissionResponse, error)
	ListPending(ctx context.Context, teacher auth.Teacher) ([]dto.SubmissionResponse, error)
	RecentGrades(ctx context.Context, student auth.Student, limit int) ([]dto.RecentGradeResponse, error)
}

type submissionService struct {
	workflow
}

// NewSubmissionService builds the submission lifecycle service.
func NewSubmissionService(deps WorkflowDeps) SubmissionService {
	return &submissionService{workflow: newWorkflow(deps, "submission_service")}
}

// Start returns the student's draft for the assignment, creating it on first call.
func (s *submissionService) Start(ctx context.Context, assignmentID uint, student auth.Student) (dto.SubmissionResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !assignment.IsPublished() {
		return dto.SubmissionResponse{}, ErrAssignmentNotFound
	}

	profile, err := s.resolveStudent(ctx, student)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	existing, err := s.repos.Submissions.GetByAssignmentAndStudent(ctx, assignmentID, profile.ID)
	switch {
	case err == nil:
		if !existing.IsDraft() {
			return dto.SubmissionResponse{}, ErrAlreadySubmitted
		}
		existing.Assignment = assignment
		return dto.NewSubmissionResponse(existing), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.SubmissionResponse{}, fmt.Errorf("lookup submission: %w", err)
	}

	stored, created, err := s.repos.Submissions.CreateIfAbsent(ctx, &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    profile.ID,
		Status:       models.SubmissionStatusDraft,
	})
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("create submission: %w", err)
	}
	// A concurrent start may have won and already moved on.
	if !stored.IsDraft() {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	}

	if created {
		observability.RecordTransition(string(assignment.Kind), string(models.SubmissionStatusDraft))
		s.effects.invalidate(ctx, profile.ID)
		s.logger.Info().
			Uint("submission_id", stored.ID).
			Uint("assignment_id", assignmentID).
			Uint("student_id", profile.ID).
			Msg("submission started")
	}

	stored.Assignment = assignment
	return dto.NewSubmissionResponse(stored), nil
}

type answerBreakdown struct {
	QuestionID uint   `json:"question_id"`
	Selected   string `json:"selected_option,omitempty"`
	Correct    bool   `json:"correct"`
}

// CompleteQuiz auto-grades a draft quiz and moves it straight to graded.
func (s *submissionService) CompleteQuiz(ctx context.Context, submissionID uint, student auth.Student) (dto.QuizCompletionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.complete_quiz")
	span.SetAttributes(attribute.Int64("submission.id", int64(submissionID)))
	defer span.End()

	owned, profile, err := s.ownedSubmission(ctx, submissionID, student)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ownership_failed")
		return dto.QuizCompletionResponse{}, err
	}

	var (
		assignment models.Assignment
		outcome    gradeOutcome
		completion dto.QuizCompletionResponse
	)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		submission, err := s.lockSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if !submission.IsDraft() {
			return ErrSubmissionNotDraft
		}

		assignment, err = s.repos.Assignments.GetWithContent(ctx, submission.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		if assignment.Kind != models.AssignmentKindQuiz {
			return ErrAssignmentKindMismatch
		}

		answers, err := s.repos.Answers.ListBySubmission(ctx, submission.ID)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}
		correct, err := s.repos.Answers.CountCorrect(ctx, submission.ID, assignment.ID)
		if err != nil {
			return fmt.Errorf("count correct answers: %w", err)
		}

		total := len(assignment.Questions)
		score := quizScore(int(correct), total)
		breakdown, err := buildBreakdown(assignment.Questions, answers)
		if err != nil {
			return err
		}

		now := s.clock()
		if err := s.repos.Submissions.Transition(ctx, submission.ID, repository.SubmissionTransition{
			From:        []models.SubmissionStatus{models.SubmissionStatusDraft},
			To:          models.SubmissionStatusGraded,
			Score:       &score,
			SubmittedAt: &now,
			GradedAt:    &now,
		}); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrSubmissionNotDraft
			}
			return fmt.Errorf("transition submission %d: %w", submission.ID, err)
		}

		outcome, err = s.grades.apply(ctx, gradeInput{
			submission: submission,
			assignment: assignment,
			score:      score,
			feedback:   fmt.Sprintf("%d of %d questions answered correctly", correct, total),
			gradedBy:   assignment.CreatedBy,
			source:     models.GradeSourceAuto,
			breakdown:  breakdown,
			at:         now,
		})
		if err != nil {
			return err
		}

		completion = dto.QuizCompletionResponse{
			SubmissionID:   submission.ID,
			Score:          score,
			CorrectCount:   int(correct),
			TotalQuestions: total,
			XPEarned:       outcome.xpAwarded(),
		}
		if outcome.award != nil {
			completion.LevelsGained = outcome.award.LevelsGained
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "complete_quiz_failed")
		return dto.QuizCompletionResponse{}, err
	}

	span.SetAttributes(
		attribute.Float64("submission.score", completion.Score),
		attribute.Int("submission.xp_earned", completion.XPEarned),
	)

	passed := s.policy.Passes(completion.Score)
	observability.RecordTransition(string(models.AssignmentKindQuiz), string(models.SubmissionStatusGraded))
	s.effects.graded(ctx, profile.UserID, owned, assignment, outcome, models.GradeSourceAuto, passed)

	s.logger.Info().
		Uint("submission_id", submissionID).
		Float64("score", completion.Score).
		Int("xp_earned", completion.XPEarned).
		Msg("quiz auto-graded")

	return completion, nil
}

// CompleteTask submits a draft task once every mandatory step carries evidence.
func (s *submissionService) CompleteTask(ctx context.Context, submissionID uint, student auth.Student) (dto.SubmissionResponse, error) {
	_, profile, err := s.ownedSubmission(ctx, submissionID, student)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		submission, err := s.lockSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if !submission.IsDraft() {
			return ErrSubmissionNotDraft
		}

		assignment, err := s.loadAssignment(ctx, submission.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.Kind != models.AssignmentKindTaskAnalysis {
			return ErrAssignmentKindMismatch
		}

		mandatory, err := s.repos.Steps.ListMandatory(ctx, assignment.ID)
		if err != nil {
			return fmt.Errorf("list mandatory steps: %w", err)
		}
		present, err := s.repos.StepSubmissions.ListStepIDs(ctx, submission.ID)
		if err != nil {
			return fmt.Errorf("list submitted steps: %w", err)
		}

		if missing := missingSteps(mandatory, present); len(missing) > 0 {
			return &MissingStepsError{StepNumbers: missing}
		}

		now := s.clock()
		if err := s.repos.Submissions.Transition(ctx, submission.ID, repository.SubmissionTransition{
			From:        []models.SubmissionStatus{models.SubmissionStatusDraft},
			To:          models.SubmissionStatusSubmitted,
			SubmittedAt: &now,
		}); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrSubmissionNotDraft
			}
			return fmt.Errorf("transition submission %d: %w", submission.ID, err)
		}
		return nil
	})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.RecordTransition(string(models.AssignmentKindTaskAnalysis), string(models.SubmissionStatusSubmitted))
	s.effects.invalidate(ctx, profile.ID)
	s.logger.Info().Uint("submission_id", submissionID).Msg("task submitted for grading")

	updated, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(updated), nil
}

// Detail is visible to the classroom's teachers and to the owning student.
func (s *submissionService) Detail(ctx context.Context, submissionID uint, identity auth.Identity) (dto.SubmissionDetailResponse, error) {
	if teacher, ok := identity.AsTeacher(); ok {
		if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceSubmission, submissionID, teacher); err != nil {
			return dto.SubmissionDetailResponse{}, err
		}
	} else if student, ok := identity.AsStudent(); ok {
		if _, _, err := s.ownedSubmission(ctx, submissionID, student); err != nil {
			return dto.SubmissionDetailResponse{}, err
		}
	} else {
		return dto.SubmissionDetailResponse{}, newError(ErrForbidden, "only teachers and students can view submissions")
	}

	submission, err := s.repos.Submissions.GetDetail(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionDetailResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionDetailResponse{}, err
	}

	history, err := s.repos.Gradings.ListHistory(ctx, submissionID)
	if err != nil {
		return dto.SubmissionDetailResponse{}, fmt.Errorf("list grade history: %w", err)
	}

	return dto.NewSubmissionDetailResponse(submission, history), nil
}

func (s *submissionService) ListMine(ctx context.Context, student auth.Student) ([]dto.SubmissionResponse, error) {
	profile, err := s.resolveStudent(ctx, student)
	if err != nil {
		return nil, err
	}

	submissions, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{StudentID: &profile.ID})
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) ListForAssignment(ctx context.Context, assignmentID uint, teacher auth.Teacher) ([]dto.SubmissionResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceAssignment, assignmentID, teacher); err != nil {
		return nil, err
	}

	submissions, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

// ListPending returns submitted work awaiting a grade across every classroom of the teacher.
func (s *submissionService) ListPending(ctx context.Context, teacher auth.Teacher) ([]dto.SubmissionResponse, error) {
	submissions, err := s.repos.Submissions.ListPendingForTeacher(ctx, teacher.UserID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) RecentGrades(ctx context.Context, student auth.Student, limit int) ([]dto.RecentGradeResponse, error) {
	profile, err := s.resolveStudent(ctx, student)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultRecentGrades
	}
	if limit > maxRecentGrades {
		limit = maxRecentGrades
	}

	submissions, err := s.repos.Submissions.ListRecentGraded(ctx, profile.ID, limit)
	if err != nil {
		return nil, err
	}

	grades := make([]dto.RecentGradeResponse, 0, len(submissions))
	for _, submission := range submissions {
		grades = append(grades, dto.NewRecentGradeResponse(submission))
	}
	return grades, nil
}

// quizScore is correct/total scaled to 0..100 and rounded to two decimals. An empty quiz scores 0.
func quizScore(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	raw := float64(correct) / float64(total) * 100
	return math.Round(raw*100) / 100
}

func buildBreakdown(questions []models.QuizQuestion, answers []models.QuizAnswer) (datatypes.JSON, error) {
	byQuestion := make(map[uint]models.QuizAnswer, len(answers))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = answer
	}

	entries := make([]answerBreakdown, 0, len(questions))
	for _, question := range questions {
		entry := answerBreakdown{QuestionID: question.ID}
		if answer, ok := byQuestion[question.ID]; ok {
			entry.Selected = answer.SelectedOption
			entry.Correct = answer.IsCorrect
		}
		entries = append(entries, entry)
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	return datatypes.JSON(payload), nil
}

func missingSteps(mandatory []models.TaskStep, present []uint) []int {
	submitted := make(map[uint]struct{}, len(present))
	for _, id := range present {
		submitted[id] = struct{}{}
	}

	var missing []int
	for _, step := range mandatory {
		if _, ok := submitted[step.ID]; !ok {
			missing = append(missing, step.StepNumber)
		}
	}
	return missing
}
