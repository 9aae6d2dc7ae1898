package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/leveling"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

const dashboardRecentGrades = 5

// StudentDashboardService produces aggregated dashboard metrics.
type StudentDashboardService interface {
	DashboardInvalidator
	GetDashboard(ctx context.Context, student auth.Student) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	rules       leveling.Rules
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewStudentDashboardService builds the dashboard aggregator. cache may be nil.
func NewStudentDashboardService(students repository.StudentRepository, submissions repository.SubmissionRepository, rules leveling.Rules, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		students:    students,
		submissions: submissions,
		rules:       rules,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, student auth.Student) (dto.StudentDashboardResponse, error) {
	profile, err := s.students.GetByUserID(ctx, student.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, ErrStudentProfileMissing
		}
		return dto.StudentDashboardResponse{}, err
	}

	cacheKey := dashboardCacheKey(profile.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", profile.ID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response, err := s.build(ctx, profile)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// Invalidate removes the cached dashboard. Failures are logged and otherwise ignored.
func (s *studentDashboardService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *studentDashboardService) build(ctx context.Context, profile models.Student) (dto.StudentDashboardResponse, error) {
	counts, err := s.submissions.CountByStatus(ctx, profile.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	average, err := s.submissions.AverageGradedScore(ctx, profile.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	recent, err := s.submissions.ListRecentGraded(ctx, profile.ID, dashboardRecentGrades)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	summary := dto.SubmissionCounts{}
	for _, count := range counts {
		switch count.Status {
		case models.SubmissionStatusDraft:
			summary.Draft = count.Total
		case models.SubmissionStatusSubmitted:
			summary.Submitted = count.Total
		case models.SubmissionStatusGraded:
			summary.Graded = count.Total
		}
	}

	grades := make([]dto.RecentGradeResponse, 0, len(recent))
	for _, submission := range recent {
		grades = append(grades, dto.NewRecentGradeResponse(submission))
	}

	return dto.StudentDashboardResponse{
		Progress:     progressResponse(s.rules, profile),
		Submissions:  summary,
		AverageScore: average,
		RecentGrades: grades,
	}, nil
}
