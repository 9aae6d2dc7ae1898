package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// AssignmentCreateRequest captures the payload for creating an assignment under a lesson.
type AssignmentCreateRequest struct {
	Kind        string     `json:"kind" validate:"required,oneof=quiz task_analysis"`
	Title       string     `json:"title" validate:"required,min=3,max=255"`
	Description string     `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"due_date"`
	XPReward    *int       `json:"xp_reward" validate:"omitempty,gte=0,lte=10000"`
	IsDraft     *bool      `json:"is_draft"`
}

// AssignmentUpdateRequest captures partial updates. Kind cannot be changed.
type AssignmentUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	XPReward    *int       `json:"xp_reward" validate:"omitempty,gte=0,lte=10000"`
	IsDraft     *bool      `json:"is_draft"`
	IsActive    *bool      `json:"is_active"`
}

// AssignmentListQuery holds query string options for lesson listings.
type AssignmentListQuery struct {
	Search   string `query:"search"`
	Sort     string `query:"sort"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// QuizOptionRequest is one option of a question payload.
type QuizOptionRequest struct {
	Key       string `json:"key" validate:"required,max=16"`
	Text      string `json:"text" validate:"omitempty,max=2000"`
	ImageURL  string `json:"image_url" validate:"omitempty,url,max=512"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizQuestionRequest creates or fully replaces a quiz question.
type QuizQuestionRequest struct {
	Prompt   string              `json:"prompt" validate:"required,min=1,max=5000"`
	ImageURL string              `json:"image_url" validate:"omitempty,url,max=512"`
	Order    *int                `json:"order" validate:"omitempty,gte=0"`
	Options  []QuizOptionRequest `json:"options" validate:"required,min=2,dive"`
}

// TaskStepRequest creates a task step.
type TaskStepRequest struct {
	StepNumber  *int   `json:"step_number" validate:"omitempty,gte=1"`
	Instruction string `json:"instruction" validate:"required,min=1,max=5000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=512"`
	IsMandatory *bool  `json:"is_mandatory"`
}

// TaskStepUpdateRequest updates a task step partially.
type TaskStepUpdateRequest struct {
	StepNumber  *int    `json:"step_number" validate:"omitempty,gte=1"`
	Instruction *string `json:"instruction" validate:"omitempty,min=1,max=5000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,max=512"`
	IsMandatory *bool   `json:"is_mandatory"`
}

// QuizOptionResponse serializes an option. IsCorrect is omitted from student views.
type QuizOptionResponse struct {
	ID        uint   `json:"id"`
	Key       string `json:"key"`
	Text      string `json:"text"`
	ImageURL  string `json:"image_url,omitempty"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuizQuestionResponse serializes a question with its options.
type QuizQuestionResponse struct {
	ID           uint                 `json:"id"`
	AssignmentID uint                 `json:"assignment_id"`
	Order        int                  `json:"order"`
	Prompt       string               `json:"prompt"`
	ImageURL     string               `json:"image_url,omitempty"`
	Options      []QuizOptionResponse `json:"options"`
}

// TaskStepResponse serializes a task step.
type TaskStepResponse struct {
	ID           uint   `json:"id"`
	AssignmentID uint   `json:"assignment_id"`
	StepNumber   int    `json:"step_number"`
	Instruction  string `json:"instruction"`
	ImageURL     string `json:"image_url,omitempty"`
	IsMandatory  bool   `json:"is_mandatory"`
}

// AssignmentResponse is returned to API clients.
type AssignmentResponse struct {
	ID          uint                   `json:"id"`
	LessonID    uint                   `json:"lesson_id"`
	CreatedBy   uint                   `json:"created_by"`
	Kind        string                 `json:"kind"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	DueDate     *time.Time             `json:"due_date"`
	XPReward    int                    `json:"xp_reward"`
	IsDraft     bool                   `json:"is_draft"`
	IsActive    bool                   `json:"is_active"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Questions   []QuizQuestionResponse `json:"questions,omitempty"`
	Steps       []TaskStepResponse     `json:"steps,omitempty"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model. revealAnswers controls whether option correctness is exposed.
func NewAssignmentResponse(model models.Assignment, revealAnswers bool) AssignmentResponse {
	response := AssignmentResponse{
		ID:          model.ID,
		LessonID:    model.LessonID,
		CreatedBy:   model.CreatedBy,
		Kind:        string(model.Kind),
		Title:       model.Title,
		Description: model.Description,
		DueDate:     model.DueDate,
		XPReward:    model.XPReward,
		IsDraft:     model.IsDraft,
		IsActive:    model.IsActive,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	for _, question := range model.Questions {
		response.Questions = append(response.Questions, NewQuizQuestionResponse(question, revealAnswers))
	}
	for _, step := range model.Steps {
		response.Steps = append(response.Steps, NewTaskStepResponse(step))
	}

	return response
}

// NewQuizQuestionResponse converts a question model.
func NewQuizQuestionResponse(model models.QuizQuestion, revealAnswers bool) QuizQuestionResponse {
	options := make([]QuizOptionResponse, 0, len(model.Options))
	for _, option := range model.Options {
		item := QuizOptionResponse{
			ID:       option.ID,
			Key:      option.Key,
			Text:     option.Text,
			ImageURL: option.ImageURL,
		}
		if revealAnswers {
			correct := option.IsCorrect
			item.IsCorrect = &correct
		}
		options = append(options, item)
	}

	return QuizQuestionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Order:        model.Order,
		Prompt:       model.Prompt,
		ImageURL:     model.ImageURL,
		Options:      options,
	}
}

// NewTaskStepResponse converts a step model.
func NewTaskStepResponse(model models.TaskStep) TaskStepResponse {
	return TaskStepResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StepNumber:   model.StepNumber,
		Instruction:  model.Instruction,
		ImageURL:     model.ImageURL,
		IsMandatory:  model.IsMandatory,
	}
}
