package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// AutoMigrate creates or updates every table the API relies on.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Institution{},
		&models.User{},
		&models.Student{},
		&models.Group{},
		&models.GroupMember{},
		&models.Subject{},
		&models.StudyResource{},
		&models.Exam{},
		&models.Question{},
		&models.QuestionOption{},
		&models.ExamAttempt{},
		&models.StudentAnswer{},
		&models.StudentAnswerOption{},
		&models.StudentProgress{},
		&models.AiRecommendation{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
