package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

type chainFixture struct {
	classroom  models.Classroom
	teacher    models.User
	outsider   models.User
	student    models.Student
	lesson     models.Lesson
	quiz       models.Assignment
	task       models.Assignment
	question   models.QuizQuestion
	stepOne    models.TaskStep
	stepTwo    models.TaskStep
	submission models.Submission
}

func seedChain(t *testing.T, db *gorm.DB) chainFixture {
	t.Helper()

	var f chainFixture
	f.teacher = models.User{Name: "Teacher", Email: uuid.NewString() + "@school.test", Role: models.RoleTeacher}
	f.outsider = models.User{Name: "Other", Email: uuid.NewString() + "@school.test", Role: models.RoleTeacher}
	studentUser := models.User{Name: "Student", Email: uuid.NewString() + "@school.test", Role: models.RoleStudent}
	require.NoError(t, db.Create(&f.teacher).Error)
	require.NoError(t, db.Create(&f.outsider).Error)
	require.NoError(t, db.Create(&studentUser).Error)

	f.classroom = models.Classroom{Name: "7A"}
	require.NoError(t, db.Create(&f.classroom).Error)
	require.NoError(t, db.Create(&models.ClassroomTeacher{ClassroomID: f.classroom.ID, TeacherID: f.teacher.ID}).Error)

	subject := models.Subject{ClassroomID: f.classroom.ID, Name: "Science"}
	require.NoError(t, db.Create(&subject).Error)
	module := models.Module{SubjectID: subject.ID, Title: "Plants"}
	require.NoError(t, db.Create(&module).Error)
	f.lesson = models.Lesson{ModuleID: module.ID, Title: "Photosynthesis"}
	require.NoError(t, db.Create(&f.lesson).Error)

	f.student = models.Student{UserID: studentUser.ID, Level: 1}
	require.NoError(t, db.Create(&f.student).Error)

	f.quiz = models.Assignment{LessonID: f.lesson.ID, CreatedBy: f.teacher.ID, Kind: models.AssignmentKindQuiz, Title: "Quiz", XPReward: 10, IsActive: true}
	f.task = models.Assignment{LessonID: f.lesson.ID, CreatedBy: f.teacher.ID, Kind: models.AssignmentKindTaskAnalysis, Title: "Task", XPReward: 10, IsActive: true}
	require.NoError(t, db.Create(&f.quiz).Error)
	require.NoError(t, db.Create(&f.task).Error)

	f.question = models.QuizQuestion{AssignmentID: f.quiz.ID, Order: 1, Prompt: "Colour of leaves?", Options: []models.QuizOption{
		{Key: "A", Text: "Green", IsCorrect: true},
		{Key: "B", Text: "Blue"},
	}}
	require.NoError(t, db.Create(&f.question).Error)

	f.stepOne = models.TaskStep{AssignmentID: f.task.ID, StepNumber: 1, Instruction: "Fill the pot", IsMandatory: true}
	f.stepTwo = models.TaskStep{AssignmentID: f.task.ID, StepNumber: 2, Instruction: "Water it", IsMandatory: true}
	require.NoError(t, db.Create(&f.stepOne).Error)
	require.NoError(t, db.Create(&f.stepTwo).Error)

	f.submission = models.Submission{AssignmentID: f.task.ID, StudentID: f.student.ID, Status: models.SubmissionStatusDraft}
	require.NoError(t, db.Create(&f.submission).Error)

	return f
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
