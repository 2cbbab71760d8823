package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService removes conversations past the retention window.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays}
}

// CleanupOldData removes feedback and messages whose conversation saw no
// activity since the retention cutoff.
func (s *CleanupService) CleanupOldData(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.RetentionDays)

	// Feedback first so a crash between the two sweeps never leaves
	// feedback without its conversation.
	tagF, err := s.Pool.Exec(ctx, `
		DELETE FROM feedback
		WHERE conversation_id IN (
			SELECT conversation_id FROM messages
			GROUP BY conversation_id
			HAVING MAX(created_at) < $1
		)
	`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.feedback: %w", err)
	}

	tagM, err := s.Pool.Exec(ctx, `
		DELETE FROM messages
		WHERE conversation_id IN (
			SELECT conversation_id FROM messages
			GROUP BY conversation_id
			HAVING MAX(created_at) < $1
		)
	`, cutoff)
	if err != nil {
		return fmt.Errorf("op=cleanup.messages: %w", err)
	}

	slog.Info("data cleanup completed",
		slog.Int64("deleted_feedback", tagF.RowsAffected()),
		slog.Int64("deleted_messages", tagM.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// RunPeriodic runs the cleanup on a ticker until the context is cancelled.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
