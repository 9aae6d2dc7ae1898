package models

import "time"

// AssignmentKind distinguishes quizzes from multi-step practical tasks.
type AssignmentKind string

const (
	// AssignmentKindQuiz is auto-graded from multiple-choice answers.
	AssignmentKindQuiz AssignmentKind = "quiz"
	// AssignmentKindTaskAnalysis collects photo/video evidence per step and is graded by a teacher.
	AssignmentKindTaskAnalysis AssignmentKind = "task_analysis"
)

// Valid reports whether the kind is one of the supported assignment kinds.
func (k AssignmentKind) Valid() bool {
	return k == AssignmentKindQuiz || k == AssignmentKindTaskAnalysis
}

// Assignment represents a unit of work attached to a lesson.
type Assignment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	LessonID    uint           `gorm:"not null;index" json:"lesson_id"`
	CreatedBy   uint           `gorm:"not null" json:"created_by"`
	Kind        AssignmentKind `gorm:"size:32;not null" json:"kind"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	DueDate     *time.Time     `json:"due_date"`
	XPReward    int            `gorm:"not null" json:"xp_reward"`
	IsDraft     bool           `gorm:"not null" json:"is_draft"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Questions   []QuizQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
	Steps       []TaskStep     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"steps,omitempty"`
}

// IsPublished reports whether students can see and start the assignment.
func (a Assignment) IsPublished() bool {
	return !a.IsDraft && a.IsActive
}

// IsPastDue returns true when the assignment has a deadline that already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// QuizQuestion is a single multiple-choice question of a quiz assignment.
type QuizQuestion struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	AssignmentID uint         `gorm:"not null;index" json:"assignment_id"`
	Order        int          `gorm:"column:sort_order;not null" json:"order"`
	Prompt       string       `gorm:"type:text;not null" json:"prompt"`
	ImageURL     string       `gorm:"size:512" json:"image_url"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Options      []QuizOption `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options"`
}

// CorrectKey returns the key of the option flagged correct, if any.
func (q QuizQuestion) CorrectKey() (string, bool) {
	for _, option := range q.Options {
		if option.IsCorrect {
			return option.Key, true
		}
	}
	return "", false
}

// HasOption reports whether the question offers an option with the key.
func (q QuizQuestion) HasOption(key string) bool {
	for _, option := range q.Options {
		if option.Key == key {
			return true
		}
	}
	return false
}

// QuizOption is one selectable answer of a question.
type QuizOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Key        string `gorm:"size:16;not null" json:"key"`
	Text       string `gorm:"type:text" json:"text"`
	ImageURL   string `gorm:"size:512" json:"image_url"`
	IsCorrect  bool   `gorm:"not null" json:"is_correct"`
}

// TaskStep is one instruction of a task-analysis assignment.
type TaskStep struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;index" json:"assignment_id"`
	StepNumber   int       `gorm:"not null" json:"step_number"`
	Instruction  string    `gorm:"type:text;not null" json:"instruction"`
	ImageURL     string    `gorm:"size:512" json:"image_url"`
	IsMandatory  bool      `gorm:"not null" json:"is_mandatory"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
