package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// AssignmentFilter describes the lesson listing options.
type AssignmentFilter struct {
	LessonID      uint
	PublishedOnly bool
	Search        string
	Sort          string
	Page          int
	PageSize      int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	ListByLesson(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	GetWithContent(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) ListByLesson(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := conn(ctx, r.db).Model(&models.Assignment{}).Where("lesson_id = ?", filter.LessonID)

	if filter.PublishedOnly {
		query = query.Where("is_draft = ? AND is_active = ?", false, true)
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeAssignmentSort(filter.Sort)).Order("id ASC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := conn(ctx, r.db).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

// GetWithContent loads the assignment with ordered questions, options and steps.
func (r *assignmentRepository) GetWithContent(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	err := conn(ctx, r.db).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC").Order("id ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("key ASC")
		}).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_number ASC").Order("id ASC")
		}).
		First(&assignment, id).Error
	if err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return conn(ctx, r.db).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := conn(ctx, r.db).Model(&models.Assignment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the assignment and everything it owns. Call it inside a transaction.
func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	db := conn(ctx, r.db)

	submissionIDs := db.Session(&gorm.Session{NewDB: true}).Model(&models.Submission{}).Select("id").Where("assignment_id = ?", id)
	questionIDs := db.Session(&gorm.Session{NewDB: true}).Model(&models.QuizQuestion{}).Select("id").Where("assignment_id = ?", id)

	for _, child := range []interface{}{&models.GradeHistory{}, &models.Grading{}, &models.QuizAnswer{}, &models.StepSubmission{}} {
		if err := db.Where("submission_id IN (?)", submissionIDs).Delete(child).Error; err != nil {
			return err
		}
	}
	if err := db.Where("assignment_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
		return err
	}
	if err := db.Where("question_id IN (?)", questionIDs).Delete(&models.QuizOption{}).Error; err != nil {
		return err
	}
	for _, child := range []interface{}{&models.QuizQuestion{}, &models.TaskStep{}} {
		if err := db.Where("assignment_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}

	result := db.Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeAssignmentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-due_date", "due_date:desc", "due_date.desc":
		return "due_date DESC"
	case "updated_at", "updated_at:asc", "updated_at.asc":
		return "updated_at ASC"
	case "-updated_at", "updated_at:desc", "updated_at.desc":
		return "updated_at DESC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	default:
		return "due_date ASC"
	}
}
