package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Institution is the root of tenancy. Every other record belongs to exactly one institution.
type Institution struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeSave normalises the institution code.
func (i *Institution) BeforeSave(*gorm.DB) error {
	i.Code = strings.ToUpper(strings.TrimSpace(i.Code))
	return nil
}

// UserRole enumerates the roles a user can hold.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
	RoleParent  UserRole = "parent"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// IsStaff reports whether the role manages exams for an institution.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// UserStatus enumerates account states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User is an authenticated account inside an institution.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID uuid.UUID  `gorm:"type:uuid;index;not null" json:"institution_id"`
	Email         string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	FullName      string     `gorm:"size:255;not null" json:"full_name"`
	Role          UserRole   `gorm:"size:16;not null" json:"role"`
	Status        UserStatus `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StudentStatus enumerates enrolment states of a student profile.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusSuspended StudentStatus = "suspended"
)

// Student extends a student-role user. It shares the user's primary key.
type Student struct {
	UserID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"user_id"`
	InstitutionID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"institution_id"`
	StudentCode         string        `gorm:"size:32;uniqueIndex;not null" json:"student_code"`
	Grade               int           `gorm:"not null" json:"grade"`
	Section             string        `gorm:"size:8" json:"section"`
	Status              StudentStatus `gorm:"size:16;not null;default:active" json:"status"`
	EnrolledAt          time.Time     `json:"enrolled_at"`
	LastActivityAt      *time.Time    `json:"last_activity_at"`
	ExamsCompletedCount int           `gorm:"not null;default:0" json:"exams_completed_count"`
	OverallAverage      float64       `gorm:"type:decimal(5,2);not null;default:0" json:"overall_average"`
	User                *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Group is a class section inside an institution.
type Group struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID uuid.UUID `gorm:"type:uuid;index;not null" json:"institution_id"`
	Grade         int       `gorm:"not null" json:"grade"`
	Section       string    `gorm:"size:8;not null" json:"section"`
	Year          int       `gorm:"not null" json:"year"`
	StudentCount  int       `gorm:"not null;default:0" json:"student_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GroupMember links a student to a group. A nil LeftAt marks an active membership.
type GroupMember struct {
	GroupID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"group_id"`
	StudentUserID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"student_user_id"`
	JoinedAt      time.Time  `json:"joined_at"`
	LeftAt        *time.Time `json:"left_at"`
}

// Subject groups exams of the same discipline.
type Subject struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID uuid.UUID `gorm:"type:uuid;index;not null" json:"institution_id"`
	Name          string    `gorm:"size:150;not null" json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResourceType enumerates study resource formats.
type ResourceType string

const (
	ResourcePDF   ResourceType = "pdf"
	ResourceImage ResourceType = "image"
	ResourceVideo ResourceType = "video"
	ResourceLink  ResourceType = "link"
	ResourceOther ResourceType = "other"
)

// StudyResource is a catalog entry that recommendations can point to.
type StudyResource struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID     uuid.UUID    `gorm:"type:uuid;index;not null" json:"institution_id"`
	Title             string       `gorm:"size:255;not null" json:"title"`
	Description       string       `gorm:"type:text" json:"description"`
	ResourceType      ResourceType `gorm:"size:16;not null" json:"resource_type"`
	URL               string       `gorm:"size:512" json:"url"`
	Difficulty        string       `gorm:"size:32" json:"difficulty"`
	EstimatedDuration int          `json:"estimated_duration"`
	CreatedBy         *uuid.UUID   `gorm:"type:uuid" json:"created_by"`
	CreatedAt         time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
