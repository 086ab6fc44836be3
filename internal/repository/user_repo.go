package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// UserRepository reads user accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	return user, err
}

func (r *userRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND id = ?", tenantID, id).
		First(&user).Error
	return user, err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// StudentRepository reads and maintains student profiles.
type StudentRepository interface {
	GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateCounters(ctx context.Context, tenantID, userID uuid.UUID, completed int, average float64, lastActivity time.Time) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND user_id = ?", tenantID, userID).
		First(&student).Error
	return student, err
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) UpdateCounters(ctx context.Context, tenantID, userID uuid.UUID, completed int, average float64, lastActivity time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Student{}).
		Where("institution_id = ? AND user_id = ?", tenantID, userID).
		Updates(map[string]interface{}{
			"exams_completed_count": completed,
			"overall_average":       average,
			"last_activity_at":      lastActivity,
		}).Error
}

// SubjectRepository reads subjects.
type SubjectRepository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.Subject, error)
}

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository instantiates the repository.
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (models.Subject, error) {
	var subject models.Subject
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND id = ?", tenantID, id).
		First(&subject).Error
	return subject, err
}

// GroupRepository reads class groups.
type GroupRepository interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Group, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository instantiates the repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND id IN ?", tenantID, ids).
		Find(&groups).Error
	return groups, err
}
