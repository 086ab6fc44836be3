package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
)

// SubmittedAnswer is a validated answer. Its concrete type matches the question type:
// ChoiceAnswer for multiple choice and true/false, TextAnswer for short answer.
type SubmittedAnswer interface {
	submittedAnswer()
}

// ChoiceAnswer selects exactly one option.
type ChoiceAnswer struct {
	OptionID uint
}

// TextAnswer carries the free text of a short answer.
type TextAnswer struct {
	Text string
}

func (ChoiceAnswer) submittedAnswer() {}
func (TextAnswer) submittedAnswer() {}

// ParseAnswers validates every item against the exam's questions and returns the answers keyed
// by question id. Questions with no item are absent from the map and graded as blank. All
// violations are collected into one *AnswerShapeError so nothing is graded partially.
func ParseAnswers(questions []models.Question, items []dto.SubmitAnswerItem) (map[uuid.UUID]SubmittedAnswer, error) {
	byID := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	shape := &AnswerShapeError{}
	answers := make(map[uuid.UUID]SubmittedAnswer, len(items))
	seen := make(map[uuid.UUID]bool, len(items))

	for _, item := range items {
		raw := strings.TrimSpace(item.QuestionID)
		qid, err := uuid.Parse(raw)
		if err != nil {
			shape.add(fmt.Sprintf("answers.%s.question_id", raw), "must be a valid question identifier")
			continue
		}

		prefix := "answers." + qid.String()
		question, ok := byID[qid]
		if !ok {
			shape.add(prefix+".question_id", "question does not belong to this exam")
			continue
		}
		if seen[qid] {
			shape.add(prefix+".question_id", "question answered more than once")
			continue
		}
		seen[qid] = true

		text := ""
		if item.AnswerText != nil {
			text = strings.TrimSpace(*item.AnswerText)
		}

		if question.Type.IsChoice() {
			switch {
			case len(item.SelectedOptionIDs) != 1:
				shape.add(prefix+".selected_option_ids", "exactly one option must be selected")
			case text != "":
				shape.add(prefix+".answer_text", "must be empty for choice questions")
			case !question.HasOption(item.SelectedOptionIDs[0]):
				shape.add(prefix+".selected_option_ids", "selected option does not belong to the question")
			default:
				answers[qid] = ChoiceAnswer{OptionID: item.SelectedOptionIDs[0]}
			}
			continue
		}

		switch {
		case len(item.SelectedOptionIDs) > 0:
			shape.add(prefix+".selected_option_ids", "must be empty for short answer questions")
		case text == "":
			shape.add(prefix+".answer_text", "answer text is required")
		default:
			answers[qid] = TextAnswer{Text: text}
		}
	}

	if len(shape.Fields) > 0 {
		return nil, shape
	}
	return answers, nil
}
