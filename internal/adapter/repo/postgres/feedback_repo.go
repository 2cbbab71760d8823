package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/hiresim/interview-evaluator/internal/domain"
)

// FeedbackRepo persists one feedback record per conversation.
type FeedbackRepo struct{ Pool PgxPool }

// NewFeedbackRepo constructs a FeedbackRepo with the given pool.
func NewFeedbackRepo(p PgxPool) *FeedbackRepo { return &FeedbackRepo{Pool: p} }

// Upsert inserts or replaces the feedback row keyed by conversation_id.
func (r *FeedbackRepo) Upsert(ctx domain.Context, rec domain.FeedbackRecord) error {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.Upsert")
	defer span.End()
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return fmt.Errorf("op=feedback.upsert: encode scores: %w", err)
	}
	q := `INSERT INTO feedback (conversation_id, raw_text, scores, created_at)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (conversation_id)
	DO UPDATE SET raw_text=EXCLUDED.raw_text, scores=EXCLUDED.scores, created_at=EXCLUDED.created_at`
	_, err = r.Pool.Exec(ctx, q, rec.ConversationID, rec.RawText, scores, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=feedback.upsert: %w", err)
	}
	return nil
}

// GetByConversation loads the feedback row for a conversation.
func (r *FeedbackRepo) GetByConversation(ctx domain.Context, conversationID string) (domain.FeedbackRecord, error) {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.GetByConversation")
	defer span.End()
	q := `SELECT conversation_id, raw_text, scores, created_at FROM feedback WHERE conversation_id=$1`
	row := r.Pool.QueryRow(ctx, q, conversationID)
	var rec domain.FeedbackRecord
	var scores []byte
	if err := row.Scan(&rec.ConversationID, &rec.RawText, &scores, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FeedbackRecord{}, fmt.Errorf("op=feedback.get: %w", domain.ErrNotFound)
		}
		return domain.FeedbackRecord{}, fmt.Errorf("op=feedback.get: %w", err)
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &rec.Scores); err != nil {
			return domain.FeedbackRecord{}, fmt.Errorf("op=feedback.get: decode scores: %w", err)
		}
	}
	return rec, nil
}

// DeleteByConversation removes the feedback row for a conversation.
func (r *FeedbackRepo) DeleteByConversation(ctx domain.Context, conversationID string) error {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.DeleteByConversation")
	defer span.End()
	q := `DELETE FROM feedback WHERE conversation_id=$1`
	if _, err := r.Pool.Exec(ctx, q, conversationID); err != nil {
		return fmt.Errorf("op=feedback.delete: %w", err)
	}
	return nil
}
