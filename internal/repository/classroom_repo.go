package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// ClassroomFixtures is a batch of records forming complete ownership chains.
type ClassroomFixtures struct {
	Users       []models.User
	Classrooms  []models.Classroom
	Memberships []models.ClassroomTeacher
	Subjects    []models.Subject
	Modules     []models.Module
	Lessons     []models.Lesson
	Students    []models.Student
}

// ClassroomRepository writes the classroom hierarchy the grading workflow depends on.
type ClassroomRepository interface {
	UpsertFixtures(ctx context.Context, fixtures ClassroomFixtures) (int64, error)
}

type classroomRepository struct {
	db *gorm.DB
}

// NewClassroomRepository constructs the classroom fixture repository.
func NewClassroomRepository(db *gorm.DB) ClassroomRepository {
	return &classroomRepository{db: db}
}

// UpsertFixtures upserts every batch by primary key, memberships by their pair. Call it inside a transaction.
func (r *classroomRepository) UpsertFixtures(ctx context.Context, fixtures ClassroomFixtures) (int64, error) {
	db := conn(ctx, r.db)
	var affected int64

	upsert := func(columns []clause.Column, assign []string, value interface{}, size int) error {
		if size == 0 {
			return nil
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   columns,
			DoUpdates: clause.AssignmentColumns(assign),
		}).Omit(clause.Associations).Create(value)
		affected += result.RowsAffected
		return result.Error
	}

	byID := []clause.Column{{Name: "id"}}
	batches := []struct {
		columns []clause.Column
		assign  []string
		value   interface{}
		size    int
	}{
		{byID, []string{"name", "email", "role", "updated_at"}, &fixtures.Users, len(fixtures.Users)},
		{byID, []string{"name", "updated_at"}, &fixtures.Classrooms, len(fixtures.Classrooms)},
		{
			[]clause.Column{{Name: "classroom_id"}, {Name: "teacher_id"}},
			[]string{"classroom_id"},
			&fixtures.Memberships,
			len(fixtures.Memberships),
		},
		{byID, []string{"classroom_id", "name", "updated_at"}, &fixtures.Subjects, len(fixtures.Subjects)},
		{byID, []string{"subject_id", "title", "updated_at"}, &fixtures.Modules, len(fixtures.Modules)},
		{byID, []string{"module_id", "title", "updated_at"}, &fixtures.Lessons, len(fixtures.Lessons)},
		{[]clause.Column{{Name: "user_id"}}, []string{"updated_at"}, &fixtures.Students, len(fixtures.Students)},
	}

	for _, batch := range batches {
		if err := upsert(batch.columns, batch.assign, batch.value, batch.size); err != nil {
			return affected, err
		}
	}

	return affected, nil
}
