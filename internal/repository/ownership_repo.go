package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// ResourceKind names a record that sits below a lesson in the ownership chain.
type ResourceKind string

const (
	ResourceLesson         ResourceKind = "lesson"
	ResourceAssignment     ResourceKind = "assignment"
	ResourceQuestion       ResourceKind = "question"
	ResourceStep           ResourceKind = "step"
	ResourceSubmission     ResourceKind = "submission"
	ResourceStepSubmission ResourceKind = "step_submission"
)

const lessonToClassroomJoins = "JOIN modules ON modules.id = lessons.module_id " +
	"JOIN subjects ON subjects.id = modules.subject_id"

// ownershipChains lists, per kind, the root table and the joins that lead to lessons.
var ownershipChains = map[ResourceKind]struct {
	table string
	joins []string
}{
	ResourceLesson: {table: "lessons"},
	ResourceAssignment: {table: "assignments", joins: []string{
		"JOIN lessons ON lessons.id = assignments.lesson_id",
	}},
	ResourceQuestion: {table: "quiz_questions", joins: []string{
		"JOIN assignments ON assignments.id = quiz_questions.assignment_id",
		"JOIN lessons ON lessons.id = assignments.lesson_id",
	}},
	ResourceStep: {table: "task_steps", joins: []string{
		"JOIN assignments ON assignments.id = task_steps.assignment_id",
		"JOIN lessons ON lessons.id = assignments.lesson_id",
	}},
	ResourceSubmission: {table: "submissions", joins: []string{
		"JOIN assignments ON assignments.id = submissions.assignment_id",
		"JOIN lessons ON lessons.id = assignments.lesson_id",
	}},
	ResourceStepSubmission: {table: "step_submissions", joins: []string{
		"JOIN submissions ON submissions.id = step_submissions.submission_id",
		"JOIN assignments ON assignments.id = submissions.assignment_id",
		"JOIN lessons ON lessons.id = assignments.lesson_id",
	}},
}

// OwnershipRepository walks resource → lesson → module → subject → classroom.
type OwnershipRepository interface {
	ClassroomOf(ctx context.Context, kind ResourceKind, id uint) (uint, error)
	IsTeacherOfClassroom(ctx context.Context, classroomID, teacherUserID uint) (bool, error)
	TeacherClassroomIDs(ctx context.Context, teacherUserID uint) ([]uint, error)
}

type ownershipRepository struct {
	db *gorm.DB
}

// NewOwnershipRepository constructs the ownership repository.
func NewOwnershipRepository(db *gorm.DB) OwnershipRepository {
	return &ownershipRepository{db: db}
}

// ClassroomOf returns gorm.ErrRecordNotFound when any link of the chain is missing.
func (r *ownershipRepository) ClassroomOf(ctx context.Context, kind ResourceKind, id uint) (uint, error) {
	chain, ok := ownershipChains[kind]
	if !ok {
		return 0, fmt.Errorf("unknown resource kind %q", kind)
	}

	query := conn(ctx, r.db).Table(chain.table).Select("subjects.classroom_id AS classroom_id")
	for _, join := range chain.joins {
		query = query.Joins(join)
	}
	query = query.Joins(lessonToClassroomJoins).Where(chain.table+".id = ?", id).Limit(1)

	var rows []struct {
		ClassroomID uint
	}
	if err := query.Scan(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	return rows[0].ClassroomID, nil
}

func (r *ownershipRepository) IsTeacherOfClassroom(ctx context.Context, classroomID, teacherUserID uint) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.ClassroomTeacher{}).
		Where("classroom_id = ? AND teacher_id = ?", classroomID, teacherUserID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *ownershipRepository) TeacherClassroomIDs(ctx context.Context, teacherUserID uint) ([]uint, error) {
	var ids []uint
	if err := conn(ctx, r.db).Model(&models.ClassroomTeacher{}).
		Where("teacher_id = ?", teacherUserID).
		Order("classroom_id ASC").
		Pluck("classroom_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
