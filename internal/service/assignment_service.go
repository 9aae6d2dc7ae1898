package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

const (
	defaultAssignmentPageSize = 20
	maxAssignmentPageSize     = 100
)

// AssignmentService exposes assignment authoring and the lesson views.
type AssignmentService interface {
	Create(ctx context.Context, lessonID uint, teacher auth.Teacher, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, teacher auth.Teacher, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, teacher auth.Teacher) error
	ListForTeacher(ctx context.Context, lessonID uint, teacher auth.Teacher, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	ListPublished(ctx context.Context, lessonID uint, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	GetForTeacher(ctx context.Context, id uint, teacher auth.Teacher) (dto.AssignmentResponse, error)
	GetPublished(ctx context.Context, id uint) (dto.AssignmentResponse, error)

	CreateQuestion(ctx context.Context, assignmentID uint, teacher auth.Teacher, payload dto.QuizQuestionRequest) (dto.QuizQuestionResponse, error)
	UpdateQuestion(ctx context.Context, questionID uint, teacher auth.Teacher, payload dto.QuizQuestionRequest) (dto.QuizQuestionResponse, error)
	DeleteQuestion(ctx context.Context, questionID uint, teacher auth.Teacher) error

	CreateStep(ctx context.Context, assignmentID uint, teacher auth.Teacher, payload dto.TaskStepRequest) (dto.TaskStepResponse, error)
	UpdateStep(ctx context.Context, stepID uint, teacher auth.Teacher, payload dto.TaskStepUpdateRequest) (dto.TaskStepResponse, error)
	DeleteStep(ctx context.Context, stepID uint, teacher auth.Teacher) error
}

// AssignmentRepositories groups the stores used by assignment authoring.
type AssignmentRepositories struct {
	Assignments repository.AssignmentRepository
	Questions   repository.QuestionRepository
	Steps       repository.StepRepository
}

type assignmentService struct {
	repos     AssignmentRepositories
	ownership OwnershipService
	tx        repository.Transactor
	validator *validator.Validate
	policy    GradingPolicy
	effects   effects
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repos AssignmentRepositories, ownership OwnershipService, tx repository.Transactor, validate *validator.Validate, policy GradingPolicy, activity ActivityRecorder, logger zerolog.Logger) AssignmentService {
	logger = logger.With().Str("component", "assignment_service").Logger()
	return &assignmentService{
		repos:     repos,
		ownership: ownership,
		tx:        tx,
		validator: validate,
		policy:    policy.normalized(),
		effects:   effects{activity: activity, logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, lessonID uint, teacher auth.Teacher, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.ownership.VerifyTeacherOwnsLesson(ctx, lessonID, teacher); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	kind := models.AssignmentKind(payload.Kind)
	if !kind.Valid() {
		return dto.AssignmentResponse{}, ErrInvalidKind
	}

	assignment := models.Assignment{
		LessonID:    lessonID,
		CreatedBy:   teacher.UserID,
		Kind:        kind,
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		DueDate:     payload.DueDate,
		XPReward:    s.policy.DefaultXPReward,
		IsDraft:     true,
		IsActive:    true,
	}
	if payload.XPReward != nil {
		assignment.XPReward = *payload.XPReward
	}
	if payload.IsDraft != nil {
		assignment.IsDraft = *payload.IsDraft
	}

	if err := s.repos.Assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("create assignment: %w", err)
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("lesson_id", lessonID).Str("kind", string(kind)).Msg("assignment created")
	s.audit(ctx, teacher, "assignment.created", "assignment", assignment.ID, map[string]interface{}{
		"lesson_id": lessonID,
		"kind":      string(kind),
		"title":     assignment.Title,
	})

	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, teacher auth.Teacher, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceAssignment, id, teacher); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	updates := map[string]interface{}{}
	if payload.Title != nil {
		updates["title"] = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		updates["description"] = strings.TrimSpace(*payload.Description)
	}
	if payload.ClearDue {
		updates["due_date"] = nil
	} else if payload.DueDate != nil {
		updates["due_date"] = *payload.DueDate
	}
	if payload.XPReward != nil {
		updates["xp_reward"] = *payload.XPReward
	}
	if payload.IsDraft != nil {
		updates["is_draft"] = *payload.IsDraft
	}
	if payload.IsActive != nil {
		updates["is_active"] = *payload.IsActive
	}

	if err := s.repos.Assignments.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, fmt.Errorf("update assignment %d: %w", id, err)
	}

	assignment, err := s.repos.Assignments.GetWithContent(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, s.mapAssignmentErr(err)
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	s.audit(ctx, teacher, "assignment.updated", "assignment", id, map[string]interface{}{"fields": fields})

	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, teacher auth.Teacher) error {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceAssignment, id, teacher); err != nil {
		return err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.repos.Assignments.Delete(ctx, id)
	})
	if err != nil {
		return s.mapAssignmentErr(err)
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	s.audit(ctx, teacher, "assignment.deleted", "assignment", id, nil)
	return nil
}

func (s *assignmentService) ListForTeacher(ctx context.Context, lessonID uint, teacher auth.Teacher, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	if err := s.ownership.VerifyTeacherOwnsLesson(ctx, lessonID, teacher); err != nil {
		return dto.AssignmentListResponse{}, err
	}
	return s.list(ctx, lessonID, false, query)
}

func (s *assignmentService) ListPublished(ctx context.Context, lessonID uint, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	return s.list(ctx, lessonID, true, query)
}

func (s *assignmentService) list(ctx context.Context, lessonID uint, publishedOnly bool, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultAssignmentPageSize
	}
	if pageSize > maxAssignmentPageSize {
		pageSize = maxAssignmentPageSize
	}

	assignments, total, err := s.repos.Assignments.ListByLesson(ctx, repository.AssignmentFilter{
		LessonID:      lessonID,
		PublishedOnly: publishedOnly,
		Search:        query.Search,
		Sort:          query.Sort,
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, dto.NewAssignmentResponse(assignment, !publishedOnly))
	}

	return dto.AssignmentListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *assignmentService) GetForTeacher(ctx context.Context, id uint, teacher auth.Teacher) (dto.AssignmentResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceAssignment, id, teacher); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repos.Assignments.GetWithContent(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, s.mapAssignmentErr(err)
	}

	return dto.NewAssignmentResponse(assignment, true), nil
}

// GetPublished is the student view: unpublished assignments do not exist and answers stay hidden.
func (s *assignmentService) GetPublished(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repos.Assignments.GetWithContent(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, s.mapAssignmentErr(err)
	}
	if !assignment.IsPublished() {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	return dto.NewAssignmentResponse(assignment, false), nil
}

func (s *assignmentService) CreateQuestion(ctx context.Context, assignmentID uint, teacher auth.Teacher, payload dto.QuizQuestionRequest) (dto.QuizQuestionResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceAssignment, assignmentID, teacher); err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	options, err := buildQuizOptions(payload.Options)
	if err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	question := models.QuizQuestion{
		AssignmentID: assignmentID,
		Prompt:       strings.TrimSpace(payload.Prompt),
		ImageURL:     payload.ImageURL,
		Options:      options,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireKind(ctx, assignmentID, models.AssignmentKindQuiz); err != nil {
			return err
		}

		if payload.Order != nil {
			question.Order = *payload.Order
		} else {
			highest, err := s.repos.Questions.MaxOrder(ctx, assignmentID)
			if err != nil {
				return err
			}
			question.Order = highest + 1
		}

		return s.repos.Questions.Create(ctx, &question)
	})
	if err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	s.audit(ctx, teacher, "question.created", "quiz_question", question.ID, map[string]interface{}{
		"assignment_id": assignmentID,
		"order":         question.Order,
	})

	return dto.NewQuizQuestionResponse(question, true), nil
}

func (s *assignmentService) UpdateQuestion(ctx context.Context, questionID uint, teacher auth.Teacher, payload dto.QuizQuestionRequest) (dto.QuizQuestionResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceQuestion, questionID, teacher); err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	options, err := buildQuizOptions(payload.Options)
	if err != nil {
		return dto.QuizQuestionResponse{}, err
	}

	var question models.QuizQuestion
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repos.Questions.GetByID(ctx, questionID)
		if err != nil {
			return err
		}

		current.Prompt = strings.TrimSpace(payload.Prompt)
		current.ImageURL = payload.ImageURL
		if payload.Order != nil {
			current.Order = *payload.Order
		}
		current.UpdatedAt = s.now().UTC()
		current.Options = options

		if err := s.repos.Questions.Replace(ctx, &current); err != nil {
			return err
		}

		question, err = s.repos.Questions.GetByID(ctx, questionID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizQuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuizQuestionResponse{}, fmt.Errorf("replace question %d: %w", questionID, err)
	}

	s.audit(ctx, teacher, "question.updated", "quiz_question", questionID, map[string]interface{}{
		"assignment_id": question.AssignmentID,
		"options":       len(question.Options),
	})

	return dto.NewQuizQuestionResponse(question, true), nil
}

func (s *assignmentService) DeleteQuestion(ctx context.Context, questionID uint, teacher auth.Teacher) error {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceQuestion, questionID, teacher); err != nil {
		return err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.repos.Questions.Delete(ctx, questionID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question %d: %w", questionID, err)
	}

	s.audit(ctx, teacher, "question.deleted", "quiz_question", questionID, nil)
	return nil
}

func (s *assignmentService) CreateStep(ctx context.Context, assignmentID uint, teacher auth.Teacher, payload dto.TaskStepRequest) (dto.TaskStepResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceAssignment, assignmentID, teacher); err != nil {
		return dto.TaskStepResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskStepResponse{}, err
	}

	step := models.TaskStep{
		AssignmentID: assignmentID,
		Instruction:  strings.TrimSpace(payload.Instruction),
		ImageURL:     payload.ImageURL,
		IsMandatory:  true,
	}
	if payload.IsMandatory != nil {
		step.IsMandatory = *payload.IsMandatory
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireKind(ctx, assignmentID, models.AssignmentKindTaskAnalysis); err != nil {
			return err
		}

		if payload.StepNumber != nil {
			step.StepNumber = *payload.StepNumber
		} else {
			highest, err := s.repos.Steps.MaxStepNumber(ctx, assignmentID)
			if err != nil {
				return err
			}
			step.StepNumber = highest + 1
		}

		return s.repos.Steps.Create(ctx, &step)
	})
	if err != nil {
		return dto.TaskStepResponse{}, err
	}

	s.audit(ctx, teacher, "step.created", "task_step", step.ID, map[string]interface{}{
		"assignment_id": assignmentID,
		"step_number":   step.StepNumber,
		"is_mandatory":  step.IsMandatory,
	})

	return dto.NewTaskStepResponse(step), nil
}

func (s *assignmentService) UpdateStep(ctx context.Context, stepID uint, teacher auth.Teacher, payload dto.TaskStepUpdateRequest) (dto.TaskStepResponse, error) {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceStep, stepID, teacher); err != nil {
		return dto.TaskStepResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskStepResponse{}, err
	}

	updates := map[string]interface{}{}
	if payload.StepNumber != nil {
		updates["step_number"] = *payload.StepNumber
	}
	if payload.Instruction != nil {
		updates["instruction"] = strings.TrimSpace(*payload.Instruction)
	}
	if payload.ImageURL != nil {
		updates["image_url"] = *payload.ImageURL
	}
	if payload.IsMandatory != nil {
		updates["is_mandatory"] = *payload.IsMandatory
	}

	if err := s.repos.Steps.Update(ctx, stepID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskStepResponse{}, ErrStepNotFound
		}
		return dto.TaskStepResponse{}, fmt.Errorf("update step %d: %w", stepID, err)
	}

	step, err := s.repos.Steps.GetByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskStepResponse{}, ErrStepNotFound
		}
		return dto.TaskStepResponse{}, err
	}

	s.audit(ctx, teacher, "step.updated", "task_step", stepID, map[string]interface{}{
		"assignment_id": step.AssignmentID,
	})

	return dto.NewTaskStepResponse(step), nil
}

func (s *assignmentService) DeleteStep(ctx context.Context, stepID uint, teacher auth.Teacher) error {
	if err := s.ownership.VerifyTeacherOwns(ctx, repository.ResourceStep, stepID, teacher); err != nil {
		return err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.repos.Steps.Delete(ctx, stepID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStepNotFound
		}
		return fmt.Errorf("delete step %d: %w", stepID, err)
	}

	s.audit(ctx, teacher, "step.deleted", "task_step", stepID, nil)
	return nil
}

func (s *assignmentService) requireKind(ctx context.Context, assignmentID uint, kind models.AssignmentKind) error {
	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return s.mapAssignmentErr(err)
	}
	if assignment.Kind != kind {
		return ErrAssignmentKindMismatch
	}
	return nil
}

func (s *assignmentService) mapAssignmentErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAssignmentNotFound
	}
	return err
}

func (s *assignmentService) audit(ctx context.Context, teacher auth.Teacher, action, entityType string, entityID uint, metadata map[string]interface{}) {
	s.effects.record(ctx, TeacherAction(teacher, action, entityType, entityID, metadata))
}

// buildQuizOptions requires unique non-empty keys and exactly one correct answer.
func buildQuizOptions(payload []dto.QuizOptionRequest) ([]models.QuizOption, error) {
	seen := make(map[string]struct{}, len(payload))
	correct := 0
	options := make([]models.QuizOption, 0, len(payload))

	for _, item := range payload {
		key := strings.ToUpper(strings.TrimSpace(item.Key))
		if key == "" {
			return nil, newError(ErrBadRequest, "option key is required")
		}
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateOptionKey
		}
		seen[key] = struct{}{}

		if item.IsCorrect {
			correct++
		}

		options = append(options, models.QuizOption{
			Key:       key,
			Text:      strings.TrimSpace(item.Text),
			ImageURL:  item.ImageURL,
			IsCorrect: item.IsCorrect,
		})
	}

	if correct != 1 {
		return nil, ErrCorrectOptionCount
	}

	return options, nil
}
