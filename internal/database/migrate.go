package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// Migrate creates or updates the schema for every persisted model.
// Parents are listed before the tables that reference them.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database handle must not be nil")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Classroom{},
		&models.ClassroomTeacher{},
		&models.Subject{},
		&models.Module{},
		&models.Lesson{},
		&models.Student{},
		&models.Assignment{},
		&models.QuizQuestion{},
		&models.QuizOption{},
		&models.TaskStep{},
		&models.Submission{},
		&models.QuizAnswer{},
		&models.StepSubmission{},
		&models.Grading{},
		&models.GradeHistory{},
		&models.ActivityLog{},
		&models.Notification{},
		&models.UploadRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}
