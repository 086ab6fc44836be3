package dto

// ReviewAnswerRequest overrides the grading of a short answer.
type ReviewAnswerRequest struct {
	IsCorrect     *bool    `json:"is_correct" validate:"required"`
	PointsAwarded *float64 `json:"points_awarded" validate:"required,gte=0"`
	Explanation   *string  `json:"explanation" validate:"omitempty,max=2000"`
}

// ReviewAnswerResponse returns the updated aggregates after a review.
type ReviewAnswerResponse struct {
	StudentAnswer  AnswerResponse          `json:"student_answer"`
	Attempt        AttemptResponse         `json:"attempt"`
	Progress       *ProgressResponse       `json:"progress"`
	Recommendation *RecommendationResponse `json:"recommendation"`
}
