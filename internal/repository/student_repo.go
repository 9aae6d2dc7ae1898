package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// StudentRepository provides access to student profiles and their XP counters.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByUserID(ctx context.Context, userID uint) (models.Student, error)
	GetForUpdate(ctx context.Context, id uint) (models.Student, error)
	UpdateProgress(ctx context.Context, id uint, level, totalXP, currentXP int) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := conn(ctx, r.db).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID uint) (models.Student, error) {
	var student models.Student
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetForUpdate(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := conn(ctx, r.db).Clauses(forUpdate()).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) UpdateProgress(ctx context.Context, id uint, level, totalXP, currentXP int) error {
	result := conn(ctx, r.db).Model(&models.Student{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"level":      level,
			"total_xp":   totalXP,
			"current_xp": currentXP,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
