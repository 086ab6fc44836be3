package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups every repository bound to the same database handle. A Store created
// inside Transaction binds all of its repositories to that transaction.
type Store struct {
	db *gorm.DB

	Users           UserRepository
	Students        StudentRepository
	Subjects        SubjectRepository
	Groups          GroupRepository
	Exams           ExamRepository
	Questions       QuestionRepository
	Attempts        AttemptRepository
	Answers         AnswerRepository
	Progress        ProgressRepository
	Recommendations RecommendationRepository
	Resources       StudyResourceRepository
}

// NewStore wires every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:              db,
		Users:           NewUserRepository(db),
		Students:        NewStudentRepository(db),
		Subjects:        NewSubjectRepository(db),
		Groups:          NewGroupRepository(db),
		Exams:           NewExamRepository(db),
		Questions:       NewQuestionRepository(db),
		Attempts:        NewAttemptRepository(db),
		Answers:         NewAnswerRepository(db),
		Progress:        NewProgressRepository(db),
		Recommendations: NewRecommendationRepository(db),
		Resources:       NewStudyResourceRepository(db),
	}
}

// Transaction runs fn inside a database transaction. Returning an error from fn rolls back
// every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Pagination bounds list queries. A zero PageSize disables paging.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) apply(query *gorm.DB) *gorm.DB {
	if p.PageSize <= 0 {
		return query
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return query.Limit(p.PageSize).Offset((page - 1) * p.PageSize)
}
