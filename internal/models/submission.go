package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the lifecycle state of a student's attempt.
type SubmissionStatus string

const (
	// SubmissionStatusDraft is an attempt the student is still working on.
	SubmissionStatusDraft SubmissionStatus = "draft"
	// SubmissionStatusSubmitted is a finished task attempt awaiting a teacher grade.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusGraded is an attempt with a final score.
	SubmissionStatusGraded SubmissionStatus = "graded"
)

// Submission is one student's single attempt at one assignment.
type Submission struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	AssignmentID uint             `gorm:"not null;uniqueIndex:idx_submission_pair" json:"assignment_id"`
	StudentID    uint             `gorm:"not null;uniqueIndex:idx_submission_pair;index" json:"student_id"`
	Status       SubmissionStatus `gorm:"size:32;not null;index" json:"status"`
	Score        *float64         `json:"score"`
	SubmittedAt  *time.Time       `json:"submitted_at"`
	GradedAt     *time.Time       `json:"graded_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Assignment   Assignment       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student      Student          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Answers      []QuizAnswer     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers,omitempty"`
	Steps        []StepSubmission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"steps,omitempty"`
	Grading      *Grading         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grading,omitempty"`
}

// IsDraft reports whether the student may still change quiz answers.
func (s Submission) IsDraft() bool {
	return s.Status == SubmissionStatusDraft
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// QuizAnswer is the option a student currently selects for one question.
type QuizAnswer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubmissionID   uint      `gorm:"not null;uniqueIndex:idx_quiz_answer_pair" json:"submission_id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_quiz_answer_pair" json:"question_id"`
	SelectedOption string    `gorm:"size:16;not null" json:"selected_option"`
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	AnsweredAt     time.Time `gorm:"not null" json:"answered_at"`
}

// StepReviewStatus is the teacher verdict on one step of evidence.
type StepReviewStatus string

const (
	StepReviewPending  StepReviewStatus = "pending"
	StepReviewApproved StepReviewStatus = "approved"
	StepReviewRejected StepReviewStatus = "rejected"
)

// StepSubmission holds the evidence a student attached to one task step.
type StepSubmission struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	SubmissionID uint             `gorm:"not null;uniqueIndex:idx_step_submission_pair" json:"submission_id"`
	StepID       uint             `gorm:"not null;uniqueIndex:idx_step_submission_pair" json:"step_id"`
	PhotoURL     string           `gorm:"size:512" json:"photo_url"`
	VideoURL     string           `gorm:"size:512" json:"video_url"`
	Status       StepReviewStatus `gorm:"size:32;not null" json:"status"`
	Comment      string           `gorm:"type:text" json:"comment"`
	ReviewedBy   *uint            `json:"reviewed_by"`
	SubmittedAt  time.Time        `gorm:"not null" json:"submitted_at"`
	ReviewedAt   *time.Time       `json:"reviewed_at"`
	Step         TaskStep         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"step"`
}

// Grading is the final grade of a submission, written by the quiz auto-grader or a teacher.
type Grading struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex" json:"submission_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}

// Grade sources recorded in the history.
const (
	GradeSourceAuto   = "auto"
	GradeSourceManual = "manual"
)

// GradeHistory keeps every grade ever applied to a submission, including regrades.
type GradeHistory struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;index" json:"submission_id"`
	Score        float64        `gorm:"not null" json:"score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	GradedBy     uint           `gorm:"not null" json:"graded_by"`
	Source       string         `gorm:"size:16;not null" json:"source"`
	XPAwarded    int            `gorm:"not null" json:"xp_awarded"`
	Breakdown    datatypes.JSON `json:"breakdown,omitempty"`
	GradedAt     time.Time      `gorm:"not null" json:"graded_at"`
}
