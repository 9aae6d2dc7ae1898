package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func TestAnswerRepositoryUpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	f := seedChain(t, db)
	repo := NewAnswerRepository(db)
	ctx := context.Background()

	quizSubmission := models.Submission{AssignmentID: f.quiz.ID, StudentID: f.student.ID, Status: models.SubmissionStatusDraft}
	require.NoError(t, db.Create(&quizSubmission).Error)

	first, err := repo.Upsert(ctx, &models.QuizAnswer{SubmissionID: quizSubmission.ID, QuestionID: f.question.ID, SelectedOption: "B", AnsweredAt: time.Now().UTC()})
	require.NoError(t, err)
	require.False(t, first.IsCorrect)

	second, err := repo.Upsert(ctx, &models.QuizAnswer{SubmissionID: quizSubmission.ID, QuestionID: f.question.ID, SelectedOption: "A", IsCorrect: true, AnsweredAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "A", second.SelectedOption)
	require.True(t, second.IsCorrect)

	answers, err := repo.ListBySubmission(ctx, quizSubmission.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)

	correct, err := repo.CountCorrect(ctx, quizSubmission.ID, f.quiz.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), correct)
}

func TestStepSubmissionRepositoryUpsertResetsVerdict(t *testing.T) {
	db := setupTestDB(t)
	f := seedChain(t, db)
	repo := NewStepSubmissionRepository(db)
	ctx := context.Background()

	stored, err := repo.Upsert(ctx, &models.StepSubmission{SubmissionID: f.submission.ID, StepID: f.stepOne.ID, PhotoURL: "https://cdn.test/one.jpg", Status: models.StepReviewPending, SubmittedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Equal(t, f.stepOne.StepNumber, stored.Step.StepNumber)

	require.NoError(t, repo.Review(ctx, stored.ID, StepReview{Status: models.StepReviewRejected, Comment: "blurry", ReviewerID: f.teacher.ID, ReviewedAt: time.Now().UTC()}))
	reviewed, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	require.Equal(t, models.StepReviewRejected, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedAt)

	resubmitted, err := repo.Upsert(ctx, &models.StepSubmission{SubmissionID: f.submission.ID, StepID: f.stepOne.ID, VideoURL: "https://cdn.test/one.mp4", Status: models.StepReviewPending, SubmittedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Equal(t, stored.ID, resubmitted.ID)
	require.Equal(t, models.StepReviewPending, resubmitted.Status)
	require.Empty(t, resubmitted.Comment)
	require.Nil(t, resubmitted.ReviewedAt)
	require.Nil(t, resubmitted.ReviewedBy)
	require.Equal(t, "https://cdn.test/one.jpg", resubmitted.PhotoURL)
	require.Equal(t, "https://cdn.test/one.mp4", resubmitted.VideoURL)

	ids, err := repo.ListStepIDs(ctx, f.submission.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{f.stepOne.ID}, ids)

	require.ErrorIs(t, repo.Review(ctx, 9999, StepReview{Status: models.StepReviewApproved}), gorm.ErrRecordNotFound)
}

func TestGradingRepositoryUpsertAndHistory(t *testing.T) {
	db := setupTestDB(t)
	f := seedChain(t, db)
	repo := NewGradingRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &models.Grading{SubmissionID: f.submission.ID, Score: 55, Feedback: "almost", GradedBy: f.teacher.ID, GradedAt: time.Now().UTC()})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, &models.Grading{SubmissionID: f.submission.ID, Score: 90, Feedback: "great", GradedBy: f.outsider.ID, GradedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 90.0, second.Score)
	require.Equal(t, f.outsider.ID, second.GradedBy)

	require.NoError(t, repo.AppendHistory(ctx, &models.GradeHistory{SubmissionID: f.submission.ID, Score: 55, GradedBy: f.teacher.ID, Source: models.GradeSourceManual, GradedAt: time.Now().UTC()}))
	require.NoError(t, repo.AppendHistory(ctx, &models.GradeHistory{SubmissionID: f.submission.ID, Score: 90, GradedBy: f.teacher.ID, Source: models.GradeSourceManual, XPAwarded: 10, GradedAt: time.Now().UTC().Add(time.Second)}))

	history, err := repo.ListHistory(ctx, f.submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 10, history[1].XPAwarded)
}

func TestAssignmentRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	f := seedChain(t, db)
	assignments := NewAssignmentRepository(db)
	tx := NewTransactor(db)
	ctx := context.Background()

	quizSubmission := models.Submission{AssignmentID: f.quiz.ID, StudentID: f.student.ID, Status: models.SubmissionStatusGraded}
	require.NoError(t, db.Create(&quizSubmission).Error)
	require.NoError(t, db.Create(&models.QuizAnswer{SubmissionID: quizSubmission.ID, QuestionID: f.question.ID, SelectedOption: "A", IsCorrect: true, AnsweredAt: time.Now()}).Error)
	require.NoError(t, db.Create(&models.Grading{SubmissionID: quizSubmission.ID, Score: 100, GradedBy: f.teacher.ID, GradedAt: time.Now()}).Error)

	require.NoError(t, tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return assignments.Delete(ctx, f.quiz.ID)
	}))

	for _, model := range []interface{}{&models.QuizOption{}, &models.QuizQuestion{}, &models.QuizAnswer{}, &models.Grading{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count)
	}

	var remaining int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining, "task submission must survive")

	_, err := assignments.GetByID(ctx, f.quiz.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.ErrorIs(t, assignments.Delete(ctx, f.quiz.ID), gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryListByLessonPublishedOnly(t *testing.T) {
	db := setupTestDB(t)
	f := seedChain(t, db)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	draft := models.Assignment{LessonID: f.lesson.ID, CreatedBy: f.teacher.ID, Kind: models.AssignmentKindQuiz, Title: "Draft", IsDraft: true, IsActive: true}
	require.NoError(t, db.Create(&draft).Error)

	all, total, err := repo.ListByLesson(ctx, AssignmentFilter{LessonID: f.lesson.ID})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 3)

	published, total, err := repo.ListByLesson(ctx, AssignmentFilter{LessonID: f.lesson.ID, PublishedOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, published, 2)

	loaded, err := repo.GetWithContent(ctx, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Questions, 1)
	require.Len(t, loaded.Questions[0].Options, 2)

	questions := NewQuestionRepository(db)
	highest, err := questions.MaxOrder(ctx, f.quiz.ID)
	require.NoError(t, err)
	require.Equal(t, 1, highest)

	steps := NewStepRepository(db)
	mandatory, err := steps.ListMandatory(ctx, f.task.ID)
	require.NoError(t, err)
	require.Len(t, mandatory, 2)
	number, err := steps.MaxStepNumber(ctx, f.quiz.ID)
	require.NoError(t, err)
	require.Zero(t, number)
}

func TestQuestionReplaceRescoresDraftAnswers(t *testing.T) {
	db := setupTestDB(t)
	f := seedChain(t, db)
	answers := NewAnswerRepository(db)
	questions := NewQuestionRepository(db)
	ctx := context.Background()

	otherUser := models.User{Name: "Finished", Email: "finished@school.test", Role: models.RoleStudent}
	require.NoError(t, db.Create(&otherUser).Error)
	other := models.Student{UserID: otherUser.ID, Level: 1}
	require.NoError(t, db.Create(&other).Error)

	draft := models.Submission{AssignmentID: f.quiz.ID, StudentID: f.student.ID, Status: models.SubmissionStatusDraft}
	graded := models.Submission{AssignmentID: f.quiz.ID, StudentID: other.ID, Status: models.SubmissionStatusGraded}
	require.NoError(t, db.Create(&draft).Error)
	require.NoError(t, db.Create(&graded).Error)

	for _, id := range []uint{draft.ID, graded.ID} {
		_, err := answers.Upsert(ctx, &models.QuizAnswer{SubmissionID: id, QuestionID: f.question.ID, SelectedOption: "A", IsCorrect: true, AnsweredAt: time.Now().UTC()})
		require.NoError(t, err)
	}

	replacement := models.QuizQuestion{ID: f.question.ID, Prompt: "Colour of the sky?", Order: 1, UpdatedAt: time.Now().UTC(), Options: []models.QuizOption{
		{Key: "A", Text: "Green"},
		{Key: "B", Text: "Blue", IsCorrect: true},
	}}
	require.NoError(t, questions.Replace(ctx, &replacement))

	correct, err := answers.CountCorrect(ctx, draft.ID, f.quiz.ID)
	require.NoError(t, err)
	require.Zero(t, correct, "draft answers follow the new key")

	correct, err = answers.CountCorrect(ctx, graded.ID, f.quiz.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), correct, "graded attempts keep their recorded result")

	_, err = answers.Upsert(ctx, &models.QuizAnswer{SubmissionID: draft.ID, QuestionID: f.question.ID, SelectedOption: "B", IsCorrect: true, AnsweredAt: time.Now().UTC()})
	require.NoError(t, err)
	correct, err = answers.CountCorrect(ctx, draft.ID, f.quiz.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), correct)
}
