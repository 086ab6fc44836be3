package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edutrack-api/internal/models"
)

const (
	EventAttemptGraded   = "attempt.graded"
	EventAttemptReviewed = "attempt.reviewed"
)

// AttemptEvent is broadcast after an attempt score changes.
type AttemptEvent struct {
	Type          string    `json:"type"`
	AttemptID     uuid.UUID `json:"attempt_id"`
	ExamID        uuid.UUID `json:"exam_id"`
	StudentUserID uuid.UUID `json:"student_user_id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	Score         float64   `json:"score"`
	MaxScore      float64   `json:"max_score"`
	Percentage    float64   `json:"percentage"`
	OccurredAt    time.Time `json:"occurred_at"`
	Source        string    `json:"source"`
}

// NewAttemptEvent snapshots an attempt for broadcasting.
func NewAttemptEvent(eventType string, attempt models.ExamAttempt, occurredAt time.Time) AttemptEvent {
	return AttemptEvent{
		Type:          eventType,
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentUserID: attempt.StudentUserID,
		InstitutionID: attempt.InstitutionID,
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
		Percentage:    attempt.Percentage(),
		OccurredAt:    occurredAt.UTC(),
	}
}

// AttemptEventPublisher fans attempt events out to subscribers. Publishing is best effort.
type AttemptEventPublisher interface {
	Publish(ctx context.Context, event AttemptEvent)
}

type attemptEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewAttemptEventPublisher publishes to the Redis channel and to NATS subjects derived from it, one
// per event type. Nil clients are skipped.
func NewAttemptEventPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) AttemptEventPublisher {
	subject := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".")
	}

	nodeID, _ := os.Hostname()
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	return &attemptEventPublisher{
		redis:        redisClient,
		redisChannel: channelBase,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       nodeID,
		logger:       logger.With().Str("component", "attempt_events").Logger(),
	}
}

func (p *attemptEventPublisher) Publish(ctx context.Context, event AttemptEvent) {
	if event.Source == "" {
		event.Source = p.nodeID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode attempt event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("attempt_id", event.AttemptID.String()).Msg("failed to publish attempt event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(natsSubjectFor(p.natsSubject, event.Type), payload); err != nil {
			p.logger.Warn().Err(err).Str("attempt_id", event.AttemptID.String()).Msg("failed to publish attempt event to nats")
		}
	}
}

// natsSubjectFor maps "edutrack.attempts" and "attempt.reviewed" to "edutrack.attempts.reviewed".
func natsSubjectFor(base, eventType string) string {
	kind := strings.TrimPrefix(eventType, "attempt.")
	if kind == "" {
		kind = "unknown"
	}
	return base + "." + kind
}
