package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// QuizAnswerRequest records the option a student picks for one question.
type QuizAnswerRequest struct {
	QuestionID     uint   `json:"question_id" validate:"required,gt=0"`
	SelectedOption string `json:"selected_option" validate:"required,max=16"`
}

// StepEvidenceRequest attaches evidence URLs to a task step. At least one URL is required.
type StepEvidenceRequest struct {
	PhotoURL string `json:"photo_url" validate:"required_without=VideoURL,omitempty,url,max=512"`
	VideoURL string `json:"video_url" validate:"required_without=PhotoURL,omitempty,url,max=512"`
}

// GradeRequest is the teacher grading payload.
type GradeRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0,lte=100"`
	Feedback string   `json:"feedback" validate:"omitempty,max=5000"`
}

// StepReviewRequest is the teacher verdict on one step of evidence.
type StepReviewRequest struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID       uint       `json:"id"`
	LessonID uint       `json:"lesson_id"`
	Kind     string     `json:"kind"`
	Title    string     `json:"title"`
	DueDate  *time.Time `json:"due_date"`
	XPReward int        `json:"xp_reward"`
}

// StudentLite summarizes the submitting student.
type StudentLite struct {
	ID     uint   `json:"id"`
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint            `json:"id"`
	AssignmentID uint            `json:"assignment_id"`
	StudentID    uint            `json:"student_id"`
	Status       string          `json:"status"`
	Score        *float64        `json:"score"`
	SubmittedAt  *time.Time      `json:"submitted_at"`
	GradedAt     *time.Time      `json:"graded_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Assignment   *AssignmentLite `json:"assignment,omitempty"`
	Student      *StudentLite    `json:"student,omitempty"`
}

// QuizAnswerResponse serializes a stored answer.
type QuizAnswerResponse struct {
	ID             uint      `json:"id"`
	SubmissionID   uint      `json:"submission_id"`
	QuestionID     uint      `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	IsCorrect      bool      `json:"is_correct"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// StepSubmissionResponse serializes step evidence and its review state.
type StepSubmissionResponse struct {
	ID           uint       `json:"id"`
	SubmissionID uint       `json:"submission_id"`
	StepID       uint       `json:"step_id"`
	StepNumber   int        `json:"step_number,omitempty"`
	PhotoURL     string     `json:"photo_url"`
	VideoURL     string     `json:"video_url"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment"`
	ReviewedBy   *uint      `json:"reviewed_by"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
}

// GradingResponse serializes the current grade of a submission.
type GradingResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	Score        float64   `json:"score"`
	Feedback     string    `json:"feedback"`
	GradedBy     uint      `json:"graded_by"`
	GradedAt     time.Time `json:"graded_at"`
	XPAwarded    int       `json:"xp_awarded"`
}

// GradeHistoryResponse serializes one historic grade.
type GradeHistoryResponse struct {
	Score     float64   `json:"score"`
	Feedback  string    `json:"feedback"`
	GradedBy  uint      `json:"graded_by"`
	Source    string    `json:"source"`
	XPAwarded int       `json:"xp_awarded"`
	GradedAt  time.Time `json:"graded_at"`
}

// SubmissionDetailResponse is the full view of a submission.
type SubmissionDetailResponse struct {
	SubmissionResponse
	Answers []QuizAnswerResponse     `json:"answers"`
	Steps   []StepSubmissionResponse `json:"steps"`
	Grading *GradingResponse         `json:"grading"`
	History []GradeHistoryResponse   `json:"history"`
}

// QuizCompletionResponse reports the auto-grade of a completed quiz.
type QuizCompletionResponse struct {
	SubmissionID   uint    `json:"submission_id"`
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	XPEarned       int     `json:"xp_earned"`
	LevelsGained   int     `json:"levels_gained"`
}

// RecentGradeResponse is one entry of a student's recent grades.
type RecentGradeResponse struct {
	SubmissionID    uint      `json:"submission_id"`
	AssignmentID    uint      `json:"assignment_id"`
	AssignmentTitle string    `json:"assignment_title"`
	Kind            string    `json:"kind"`
	Score           float64   `json:"score"`
	Feedback        string    `json:"feedback"`
	GradedAt        time.Time `json:"graded_at"`
}

// NewSubmissionResponse converts a submission model.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Status:       string(model.Status),
		Score:        model.Score,
		SubmittedAt:  model.SubmittedAt,
		GradedAt:     model.GradedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = &AssignmentLite{
			ID:       model.Assignment.ID,
			LessonID: model.Assignment.LessonID,
			Kind:     string(model.Assignment.Kind),
			Title:    model.Assignment.Title,
			DueDate:  model.Assignment.DueDate,
			XPReward: model.Assignment.XPReward,
		}
	}

	if model.Student.ID != 0 {
		response.Student = &StudentLite{
			ID:     model.Student.ID,
			UserID: model.Student.UserID,
			Name:   model.Student.User.Name,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of submissions.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewSubmissionResponse(item))
	}
	return out
}

// NewQuizAnswerResponse converts an answer model.
func NewQuizAnswerResponse(model models.QuizAnswer) QuizAnswerResponse {
	return QuizAnswerResponse{
		ID:             model.ID,
		SubmissionID:   model.SubmissionID,
		QuestionID:     model.QuestionID,
		SelectedOption: model.SelectedOption,
		IsCorrect:      model.IsCorrect,
		AnsweredAt:     model.AnsweredAt,
	}
}

// NewStepSubmissionResponse converts step evidence.
func NewStepSubmissionResponse(model models.StepSubmission) StepSubmissionResponse {
	return StepSubmissionResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		StepID:       model.StepID,
		StepNumber:   model.Step.StepNumber,
		PhotoURL:     model.PhotoURL,
		VideoURL:     model.VideoURL,
		Status:       string(model.Status),
		Comment:      model.Comment,
		ReviewedBy:   model.ReviewedBy,
		SubmittedAt:  model.SubmittedAt,
		ReviewedAt:   model.ReviewedAt,
	}
}

// NewGradingResponse converts a grading model.
func NewGradingResponse(model models.Grading, xpAwarded int) GradingResponse {
	return GradingResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		Score:        model.Score,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
		XPAwarded:    xpAwarded,
	}
}

// NewSubmissionDetailResponse converts a fully loaded submission and its grade history.
func NewSubmissionDetailResponse(model models.Submission, history []models.GradeHistory) SubmissionDetailResponse {
	response := SubmissionDetailResponse{
		SubmissionResponse: NewSubmissionResponse(model),
		Answers:            make([]QuizAnswerResponse, 0, len(model.Answers)),
		Steps:              make([]StepSubmissionResponse, 0, len(model.Steps)),
		History:            make([]GradeHistoryResponse, 0, len(history)),
	}

	for _, answer := range model.Answers {
		response.Answers = append(response.Answers, NewQuizAnswerResponse(answer))
	}
	for _, step := range model.Steps {
		response.Steps = append(response.Steps, NewStepSubmissionResponse(step))
	}
	if model.Grading != nil {
		grading := NewGradingResponse(*model.Grading, 0)
		response.Grading = &grading
	}
	for _, entry := range history {
		response.History = append(response.History, GradeHistoryResponse{
			Score:     entry.Score,
			Feedback:  entry.Feedback,
			GradedBy:  entry.GradedBy,
			Source:    entry.Source,
			XPAwarded: entry.XPAwarded,
			GradedAt:  entry.GradedAt,
		})
	}

	return response
}

// NewRecentGradeResponse converts a graded submission with its grading preloaded.
func NewRecentGradeResponse(model models.Submission) RecentGradeResponse {
	response := RecentGradeResponse{
		SubmissionID:    model.ID,
		AssignmentID:    model.AssignmentID,
		AssignmentTitle: model.Assignment.Title,
		Kind:            string(model.Assignment.Kind),
	}
	if model.Score != nil {
		response.Score = *model.Score
	}
	if model.GradedAt != nil {
		response.GradedAt = *model.GradedAt
	}
	if model.Grading != nil {
		response.Feedback = model.Grading.Feedback
	}
	return response
}
