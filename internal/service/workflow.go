package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

// WorkflowRepositories groups the stores touched by the submission workflow.
type WorkflowRepositories struct {
	Assignments     repository.AssignmentRepository
	Questions       repository.QuestionRepository
	Steps           repository.StepRepository
	Students        repository.StudentRepository
	Submissions     repository.SubmissionRepository
	Answers         repository.AnswerRepository
	StepSubmissions repository.StepSubmissionRepository
	Gradings        repository.GradingRepository
}

// WorkflowDeps wires the submission, quiz, task and grading services.
type WorkflowDeps struct {
	Repos     WorkflowRepositories
	Ownership OwnershipService
	Tx        repository.Transactor
	Validator *validator.Validate
	XP        XPService
	Policy    GradingPolicy
	Notifier  Notifier
	Dashboard DashboardInvalidator
	Activity  ActivityRecorder
	Logger    zerolog.Logger
}

type workflow struct {
	repos     WorkflowRepositories
	ownership OwnershipService
	tx        repository.Transactor
	validator *validator.Validate
	policy    GradingPolicy
	grades    gradeWriter
	effects   effects
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

func newWorkflow(deps WorkflowDeps, component string) workflow {
	logger := deps.Logger.With().Str("component", component).Logger()
	policy := deps.Policy.normalized()

	return workflow{
		repos:     deps.Repos,
		ownership: deps.Ownership,
		tx:        deps.Tx,
		validator: deps.Validator,
		policy:    policy,
		grades: gradeWriter{
			gradings: deps.Repos.Gradings,
			xp:       deps.XP,
			policy:   policy,
		},
		effects: effects{
			notifier:  deps.Notifier,
			dashboard: deps.Dashboard,
			activity:  deps.Activity,
			logger:    logger,
		},
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-classroom-api/internal/service/" + component),
		logger:    logger,
		now:       time.Now,
	}
}

func (w workflow) clock() time.Time {
	return w.now().UTC()
}

// resolveStudent maps the authenticated user to the learner profile.
func (w workflow) resolveStudent(ctx context.Context, student auth.Student) (models.Student, error) {
	profile, err := w.repos.Students.GetByUserID(ctx, student.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentProfileMissing
		}
		return models.Student{}, fmt.Errorf("resolve student profile: %w", err)
	}
	return profile, nil
}

func (w workflow) loadSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := w.repos.Submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, fmt.Errorf("load submission %d: %w", id, err)
	}
	return submission, nil
}

// ownedSubmission loads the submission and checks it belongs to the calling student.
func (w workflow) ownedSubmission(ctx context.Context, id uint, student auth.Student) (models.Submission, models.Student, error) {
	profile, err := w.resolveStudent(ctx, student)
	if err != nil {
		return models.Submission{}, models.Student{}, err
	}

	submission, err := w.loadSubmission(ctx, id)
	if err != nil {
		return models.Submission{}, models.Student{}, err
	}
	if submission.StudentID != profile.ID {
		w.logger.Warn().
			Uint("submission_id", id).
			Uint("student_id", profile.ID).
			Msg("student accessed another student's submission")
		return models.Submission{}, models.Student{}, ErrNotSubmissionOwner
	}

	return submission, profile, nil
}

// lockSubmission re-reads the submission under a row lock. ctx must carry a transaction.
func (w workflow) lockSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := w.repos.Submissions.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, fmt.Errorf("lock submission %d: %w", id, err)
	}
	return submission, nil
}

func (w workflow) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := w.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, fmt.Errorf("load assignment %d: %w", id, err)
	}
	return assignment, nil
}

func (w workflow) teacherActivity(ctx context.Context, teacher auth.Teacher, action, entityType string, entityID uint, metadata map[string]interface{}) {
	w.effects.record(ctx, TeacherAction(teacher, action, entityType, entityID, metadata))
}
