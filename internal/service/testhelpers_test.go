package service

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/leveling"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

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

// classroomFixture is one classroom with a quiz (two questions) and a task (three steps, two mandatory).
type classroomFixture struct {
	teacher      auth.Teacher
	outsider     auth.Teacher
	student      auth.Student
	otherStudent auth.Student
	profile      models.Student
	lesson       models.Lesson
	quiz         models.Assignment
	task         models.Assignment
	questions    []models.QuizQuestion
	steps        []models.TaskStep
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	redis *miniredis.Miniredis
	f     classroomFixture

	xp            XPService
	notifications NotificationService
	activity      ActivityService
	dashboard     StudentDashboardService
	assignments   AssignmentService
	submissions   SubmissionService
	quizzes       QuizService
	tasks         TaskService
	grading       GradingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := testLogger()
	tx := repository.NewTransactor(db)
	rules := leveling.Rules{XPPerLevel: 100}
	policy := DefaultGradingPolicy()

	students := repository.NewStudentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	ownership := NewOwnershipService(repository.NewOwnershipRepository(db), logger)
	xp := NewXPService(students, tx, rules, logger)
	notifications := NewNotificationService(repository.NewNotificationRepository(db), validate, logger)
	activity := NewActivityService(repository.NewActivityLogRepository(db), validate, logger)
	dashboard := NewStudentDashboardService(students, submissions, rules, cache, 0, logger)

	repos := WorkflowRepositories{
		Assignments:     repository.NewAssignmentRepository(db),
		Questions:       repository.NewQuestionRepository(db),
		Steps:           repository.NewStepRepository(db),
		Students:        students,
		Submissions:     submissions,
		Answers:         repository.NewAnswerRepository(db),
		StepSubmissions: repository.NewStepSubmissionRepository(db),
		Gradings:        repository.NewGradingRepository(db),
	}
	deps := WorkflowDeps{
		Repos:     repos,
		Ownership: ownership,
		Tx:        tx,
		Validator: validate,
		XP:        xp,
		Policy:    policy,
		Notifier:  notifications,
		Dashboard: dashboard,
		Activity:  activity,
		Logger:    logger,
	}

	env := &testEnv{
		t:             t,
		ctx:           context.Background(),
		db:            db,
		redis:         mini,
		xp:            xp,
		notifications: notifications,
		activity:      activity,
		dashboard:     dashboard,
		assignments: NewAssignmentService(AssignmentRepositories{
			Assignments: repos.Assignments,
			Questions:   repos.Questions,
			Steps:       repos.Steps,
		}, ownership, tx, validate, policy, activity, logger),
		submissions: NewSubmissionService(deps),
		quizzes:     NewQuizService(deps),
		tasks:       NewTaskService(deps),
		grading:     NewGradingService(deps),
	}
	env.f = env.seed()
	return env
}

func (e *testEnv) seed() classroomFixture {
	t := e.t
	db := e.db

	newUser := func(name, role string) models.User {
		user := models.User{Name: name, Email: uuid.NewString() + "@school.test", Role: role}
		require.NoError(t, db.Create(&user).Error)
		return user
	}

	teacher := newUser("Ibu Sari", models.RoleTeacher)
	outsider := newUser("Pak Budi", models.RoleTeacher)
	studentUser := newUser("Rina", models.RoleStudent)
	otherUser := newUser("Dodi", models.RoleStudent)

	classroom := models.Classroom{Name: "Kelas 4B"}
	require.NoError(t, db.Create(&classroom).Error)
	require.NoError(t, db.Create(&models.ClassroomTeacher{ClassroomID: classroom.ID, TeacherID: teacher.ID}).Error)

	other := models.Classroom{Name: "Kelas 5A"}
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&models.ClassroomTeacher{ClassroomID: other.ID, TeacherID: outsider.ID}).Error)

	subject := models.Subject{ClassroomID: classroom.ID, Name: "Life Skills"}
	require.NoError(t, db.Create(&subject).Error)
	module := models.Module{SubjectID: subject.ID, Title: "Kitchen"}
	require.NoError(t, db.Create(&module).Error)
	lesson := models.Lesson{ModuleID: module.ID, Title: "Making tea"}
	require.NoError(t, db.Create(&lesson).Error)

	profile := models.Student{UserID: studentUser.ID, Level: 1}
	require.NoError(t, db.Create(&profile).Error)
	require.NoError(t, db.Create(&models.Student{UserID: otherUser.ID, Level: 1}).Error)

	quiz := models.Assignment{LessonID: lesson.ID, CreatedBy: teacher.ID, Kind: models.AssignmentKindQuiz, Title: "Quiz A", XPReward: 10, IsActive: true}
	task := models.Assignment{LessonID: lesson.ID, CreatedBy: teacher.ID, Kind: models.AssignmentKindTaskAnalysis, Title: "Make tea", XPReward: 10, IsActive: true}
	require.NoError(t, db.Create(&quiz).Error)
	require.NoError(t, db.Create(&task).Error)

	questions := []models.QuizQuestion{
		{AssignmentID: quiz.ID, Order: 1, Prompt: "Which cup is hot?", Options: []models.QuizOption{
			{Key: "A", Text: "Steaming cup", IsCorrect: true},
			{Key: "B", Text: "Cup with ice"},
		}},
		{AssignmentID: quiz.ID, Order: 2, Prompt: "What goes in first?", Options: []models.QuizOption{
			{Key: "A", Text: "Sugar"},
			{Key: "B", Text: "Tea bag", IsCorrect: true},
		}},
	}
	for i := range questions {
		require.NoError(t, db.Create(&questions[i]).Error)
	}

	steps := []models.TaskStep{
		{AssignmentID: task.ID, StepNumber: 1, Instruction: "Boil water", IsMandatory: true},
		{AssignmentID: task.ID, StepNumber: 2, Instruction: "Pour into cup", IsMandatory: true},
		{AssignmentID: task.ID, StepNumber: 3, Instruction: "Add lemon", IsMandatory: false},
	}
	for i := range steps {
		require.NoError(t, db.Create(&steps[i]).Error)
	}

	return classroomFixture{
		teacher:      auth.Teacher{UserID: teacher.ID},
		outsider:     auth.Teacher{UserID: outsider.ID},
		student:      auth.Student{UserID: studentUser.ID},
		otherStudent: auth.Student{UserID: otherUser.ID},
		profile:      profile,
		lesson:       lesson,
		quiz:         quiz,
		task:         task,
		questions:    questions,
		steps:        steps,
	}
}

func (e *testEnv) reloadStudent() models.Student {
	var student models.Student
	require.NoError(e.t, e.db.First(&student, e.f.profile.ID).Error)
	return student
}

func (e *testEnv) countRows(model interface{}, query string, args ...interface{}) int64 {
	var count int64
	require.NoError(e.t, e.db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}

// submittedTask starts the task, attaches evidence to both mandatory steps and completes it.
func (e *testEnv) submittedTask() uint {
	started, err := e.submissions.Start(e.ctx, e.f.task.ID, e.f.student)
	require.NoError(e.t, err)

	for _, step := range e.f.steps[:2] {
		_, err := e.tasks.SubmitStep(e.ctx, started.ID, step.ID, e.f.student, evidence("https://cdn.test/photo.jpg"))
		require.NoError(e.t, err)
	}

	_, err = e.submissions.CompleteTask(e.ctx, started.ID, e.f.student)
	require.NoError(e.t, err)
	return started.ID
}
