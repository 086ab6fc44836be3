package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func assignUUID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate assigns a primary key when the caller did not provide one.
func (i *Institution) BeforeCreate(*gorm.DB) error { assignUUID(&i.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (u *User) BeforeCreate(*gorm.DB) error { assignUUID(&u.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (g *Group) BeforeCreate(*gorm.DB) error { assignUUID(&g.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (s *Subject) BeforeCreate(*gorm.DB) error { assignUUID(&s.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (e *Exam) BeforeCreate(*gorm.DB) error { assignUUID(&e.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (q *Question) BeforeCreate(*gorm.DB) error { assignUUID(&q.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (a *ExamAttempt) BeforeCreate(*gorm.DB) error { assignUUID(&a.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (a *StudentAnswer) BeforeCreate(*gorm.DB) error { assignUUID(&a.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (r *AiRecommendation) BeforeCreate(*gorm.DB) error { assignUUID(&r.ID); return nil }

// BeforeCreate assigns a primary key when the caller did not provide one.
func (r *StudyResource) BeforeCreate(*gorm.DB) error { assignUUID(&r.ID); return nil }
