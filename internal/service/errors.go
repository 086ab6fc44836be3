package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrExamNotActive indicates the exam is not in the active state.
	ErrExamNotActive = errors.New("exam is not active")
	// ErrExamNotYetAvailable indicates the availability window has not opened.
	ErrExamNotYetAvailable = errors.New("exam is not available yet")
	// ErrExamNoLongerAvailable indicates the availability window has closed.
	ErrExamNoLongerAvailable = errors.New("exam is no longer available")
	// ErrAttemptsExhausted indicates the student used every allowed attempt.
	ErrAttemptsExhausted = errors.New("maximum number of attempts reached")
	// ErrAttemptMismatch indicates the attempt belongs to a different exam.
	ErrAttemptMismatch = errors.New("attempt does not belong to this exam")
	// ErrAttemptAlreadySubmitted indicates the attempt was finalised before.
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	// ErrAttemptStartConflict indicates concurrent starts kept colliding on the attempt number.
	ErrAttemptStartConflict = errors.New("attempt start conflicted with a concurrent request")
	// ErrAttemptNotSubmitted indicates the attempt has not been graded yet.
	ErrAttemptNotSubmitted = errors.New("attempt has not been submitted")
	// ErrInvalidTransition indicates the requested exam status change is not allowed.
	ErrInvalidTransition = errors.New("invalid exam status transition")
	// ErrNoQuestions indicates an exam without questions cannot be published or graded.
	ErrNoQuestions = errors.New("exam has no questions")

	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("student answer not found")

	// ErrNotAStudent indicates the caller has no student profile.
	ErrNotAStudent = errors.New("only students can take exams")
	// ErrForbidden indicates the caller may not access the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrExamNotEditable indicates the exam left the editable states.
	ErrExamNotEditable = errors.New("exam can only be edited while draft or published")
	// ErrExamNotDeletable indicates only draft exams can be removed.
	ErrExamNotDeletable = errors.New("only draft exams can be deleted")
	// ErrLastQuestion indicates the exam would be left without questions.
	ErrLastQuestion = errors.New("cannot delete the only question of an exam")
	// ErrInvalidQuestion wraps question shape violations.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrNotShortAnswer indicates manual review targeted a choice answer.
	ErrNotShortAnswer = errors.New("only short answer responses can be reviewed")
	// ErrPointsExceedMaximum indicates an override above the question points.
	ErrPointsExceedMaximum = errors.New("points awarded exceed the question maximum")

	// ErrInvalidCredentials indicates login failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account cannot sign in.
	ErrAccountInactive = errors.New("account is not active")
)

// AnswerShapeError lists every malformed answer of a submission keyed by field path.
type AnswerShapeError struct {
	Fields map[string]string
}

func (e *AnswerShapeError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return fmt.Sprintf("invalid answer shape: %s", strings.Join(keys, ", "))
}

func (e *AnswerShapeError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// FieldError reports a single invalid request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationFields flattens validator and shape errors to a field map. It returns nil for other errors.
func ValidationFields(err error) map[string]string {
	var shape *AnswerShapeError
	if errors.As(err, &shape) {
		return shape.Fields
	}

	var field *FieldError
	if errors.As(err, &field) {
		return map[string]string{field.Field: field.Message}
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			fields[fieldPath(fe.Namespace())] = validationMessage(fe)
		}
		return fields
	}

	return nil
}

// IsValidationError reports whether err should be answered with 422.
func IsValidationError(err error) bool {
	return ValidationFields(err) != nil
}

func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		namespace = namespace[idx+1:]
	}
	return namespace
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email"
	case "uuid4", "uuid":
		return "must be a valid identifier"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
