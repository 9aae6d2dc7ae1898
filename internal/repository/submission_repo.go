package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	Status       *models.SubmissionStatus
	Limit        int
}

// SubmissionTransition is a status change applied only when the current status matches From.
type SubmissionTransition struct {
	From        []models.SubmissionStatus
	To          models.SubmissionStatus
	Score       *float64
	SubmittedAt *time.Time
	GradedAt    *time.Time
}

// StatusCount is the number of submissions a student has in one status.
type StatusCount struct {
	Status models.SubmissionStatus
	Total  int64
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetDetail(ctx context.Context, id uint) (models.Submission, error)
	GetForUpdate(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	CreateIfAbsent(ctx context.Context, submission *models.Submission) (models.Submission, bool, error)
	Transition(ctx context.Context, id uint, transition SubmissionTransition) error
	ListPendingForTeacher(ctx context.Context, teacherUserID uint) ([]models.Submission, error)
	ListRecentGraded(ctx context.Context, studentID uint, limit int) ([]models.Submission, error)
	CountByStatus(ctx context.Context, studentID uint) ([]StatusCount, error)
	AverageGradedScore(ctx context.Context, studentID uint) (float64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student").
		Preload("Student.User")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// GetDetail loads the submission with answers, step evidence and the grade.
func (r *submissionRepository) GetDetail(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.baseQuery(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_id ASC") }).
		Preload("Steps.Step").
		Preload("Grading").
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// GetForUpdate locks the submission row until the surrounding transaction ends.
func (r *submissionRepository) GetForUpdate(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := conn(ctx, r.db).Clauses(forUpdate()).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := conn(ctx, r.db).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// CreateIfAbsent inserts the submission unless the (assignment, student) pair exists,
// then returns the stored row and whether this call created it.
func (r *submissionRepository) CreateIfAbsent(ctx context.Context, submission *models.Submission) (models.Submission, bool, error) {
	result := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(submission)
	if result.Error != nil {
		return models.Submission{}, false, result.Error
	}

	stored, err := r.GetByAssignmentAndStudent(ctx, submission.AssignmentID, submission.StudentID)
	if err != nil {
		return models.Submission{}, false, err
	}

	return stored, result.RowsAffected > 0, nil
}

// Transition performs a compare-and-swap on status. It returns ErrStaleStatus when the
// row is no longer in one of the From states.
func (r *submissionRepository) Transition(ctx context.Context, id uint, transition SubmissionTransition) error {
	updates := map[string]interface{}{
		"status":     transition.To,
		"updated_at": time.Now().UTC(),
	}
	if transition.Score != nil {
		updates["score"] = *transition.Score
	}
	if transition.SubmittedAt != nil {
		updates["submitted_at"] = *transition.SubmittedAt
	}
	if transition.GradedAt != nil {
		updates["graded_at"] = *transition.GradedAt
	}

	result := conn(ctx, r.db).Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, transition.From).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}

	return nil
}

// ListPendingForTeacher returns submitted work in every classroom the teacher belongs to, oldest first.
func (r *submissionRepository) ListPendingForTeacher(ctx context.Context, teacherUserID uint) ([]models.Submission, error) {
	classrooms := conn(ctx, r.db).Session(&gorm.Session{NewDB: true}).
		Model(&models.ClassroomTeacher{}).
		Select("classroom_id").
		Where("teacher_id = ?", teacherUserID)

	var submissions []models.Submission
	err := r.baseQuery(ctx).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Joins("JOIN lessons ON lessons.id = assignments.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Joins("JOIN subjects ON subjects.id = modules.subject_id").
		Where("submissions.status = ?", models.SubmissionStatusSubmitted).
		Where("subjects.classroom_id IN (?)", classrooms).
		Order("submissions.submitted_at ASC").
		Order("submissions.id ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListRecentGraded(ctx context.Context, studentID uint, limit int) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.baseQuery(ctx).
		Preload("Grading").
		Where("student_id = ? AND status = ?", studentID, models.SubmissionStatusGraded).
		Order("graded_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CountByStatus(ctx context.Context, studentID uint) ([]StatusCount, error) {
	var counts []StatusCount
	err := conn(ctx, r.db).Model(&models.Submission{}).
		Select("status, COUNT(*) AS total").
		Where("student_id = ?", studentID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *submissionRepository) AverageGradedScore(ctx context.Context, studentID uint) (float64, error) {
	var average float64
	err := conn(ctx, r.db).Model(&models.Submission{}).
		Select("COALESCE(AVG(score), 0)").
		Where("student_id = ? AND status = ?", studentID, models.SubmissionStatusGraded).
		Scan(&average).Error
	if err != nil {
		return 0, err
	}

	return average, nil
}
