package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

func seedPayload() dto.SeedClassroomsRequest {
	return dto.SeedClassroomsRequest{
		Users: []dto.SeedUser{
			{ID: 1, Name: "Ibu Sari", Email: " Sari@School.test ", Role: "teacher"},
			{ID: 2, Name: "Rina", Email: "rina@school.test", Role: "student"},
		},
		Classrooms: []dto.SeedClassroom{{ID: 1, Name: "Kelas 4B", TeacherIDs: []uint{1}}},
		Subjects:   []dto.SeedSubject{{ID: 1, ClassroomID: 1, Name: "Life Skills"}},
		Modules:    []dto.SeedModule{{ID: 1, SubjectID: 1, Title: "Kitchen"}},
		Lessons:    []dto.SeedLesson{{ID: 1, ModuleID: 1, Title: "Making tea"}},
	}
}

func TestSeedClassroomsGuards(t *testing.T) {
	db := setupTestDB(t)
	validate := validator.New()
	repo := repository.NewClassroomRepository(db)
	tx := repository.NewTransactor(db)

	disabled := NewSeedService(repo, tx, validate, false, "secret", testLogger())
	_, err := disabled.SeedClassrooms(context.Background(), "secret", seedPayload())
	require.ErrorIs(t, err, ErrSeedDisabled)

	svc := NewSeedService(repo, tx, validate, true, "secret", testLogger())
	_, err = svc.SeedClassrooms(context.Background(), "wrong", seedPayload())
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	blank := NewSeedService(repo, tx, validate, true, "  ", testLogger())
	_, err = blank.SeedClassrooms(context.Background(), "", seedPayload())
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	invalid := seedPayload()
	invalid.Users[0].Email = "not-an-email"
	_, err = svc.SeedClassrooms(context.Background(), "secret", invalid)
	require.Error(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.Zero(t, users)
}

func TestSeedClassroomsBuildsOwnershipChain(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSeedService(repository.NewClassroomRepository(db), repository.NewTransactor(db), validator.New(), true, "secret", testLogger())

	affected, err := svc.SeedClassrooms(context.Background(), " secret ", seedPayload())
	require.NoError(t, err)
	require.Positive(t, affected)

	// Seeding twice converges on the same rows.
	_, err = svc.SeedClassrooms(context.Background(), "secret", seedPayload())
	require.NoError(t, err)

	var teacher models.User
	require.NoError(t, db.First(&teacher, 1).Error)
	require.Equal(t, "sari@school.test", teacher.Email)
	require.Equal(t, models.RoleTeacher, teacher.Role)

	var students []models.Student
	require.NoError(t, db.Find(&students).Error)
	require.Len(t, students, 1)
	require.Equal(t, uint(2), students[0].UserID)
	require.Equal(t, 1, students[0].Level)

	var memberships int64
	require.NoError(t, db.Model(&models.ClassroomTeacher{}).Count(&memberships).Error)
	require.EqualValues(t, 1, memberships)

	ownership := repository.NewOwnershipRepository(db)
	classroomID, err := ownership.ClassroomOf(context.Background(), repository.ResourceLesson, 1)
	require.NoError(t, err)
	require.Equal(t, uint(1), classroomID)
	owned, err := ownership.IsTeacherOfClassroom(context.Background(), classroomID, 1)
	require.NoError(t, err)
	require.True(t, owned)
}

func TestSeedPayloadIsNormalisedBeforeValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSeedService(repository.NewClassroomRepository(db), repository.NewTransactor(db), validator.New(), true, "secret", testLogger())

	payload := seedPayload()
	payload.Users[1].Email = "  RINA@School.Test"
	payload.Users[1].Role = " Student "
	payload.Lessons[0].Title = "  Making tea  "

	_, err := svc.SeedClassrooms(context.Background(), "secret", payload)
	require.NoError(t, err)
	require.Equal(t, "  RINA@School.Test", payload.Users[1].Email, "the caller's payload is left untouched")

	var student models.User
	require.NoError(t, db.First(&student, 2).Error)
	require.Equal(t, "rina@school.test", student.Email)
	require.Equal(t, models.RoleStudent, student.Role)

	var lesson models.Lesson
	require.NoError(t, db.First(&lesson, 1).Error)
	require.Equal(t, "Making tea", lesson.Title)
}
