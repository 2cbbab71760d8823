package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hiresim/interview-evaluator/internal/domain"
)

// MessageRepo persists and loads chat messages using a minimal pgx pool.
type MessageRepo struct{ Pool PgxPool }

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewMessageRepo constructs a MessageRepo with the given pool.
func NewMessageRepo(p PgxPool) *MessageRepo { return &MessageRepo{Pool: p} }

// Create stores a new message and returns its id (generates one if empty).
func (r *MessageRepo) Create(ctx domain.Context, m domain.Message) (string, error) {
	tracer := otel.Tracer("repo.messages")
	ctx, span := tracer.Start(ctx, "messages.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "messages"),
	)
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO messages (id, conversation_id, text, sender, category, owner_id, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, id, m.ConversationID, m.Text, m.Sender, m.Category, m.Owner, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=message.create: %w", err)
	}
	return id, nil
}

// ListByConversation returns all messages of a conversation in send order.
func (r *MessageRepo) ListByConversation(ctx domain.Context, conversationID string) ([]domain.Message, error) {
	tracer := otel.Tracer("repo.messages")
	ctx, span := tracer.Start(ctx, "messages.ListByConversation")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "messages"),
	)
	q := `SELECT id, conversation_id, text, sender, category, owner_id, created_at FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC`
	rows, err := r.Pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("op=message.list: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Message, 0, 16)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Text, &m.Sender, &m.Category, &m.Owner, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=message.list: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=message.list: rows: %w", err)
	}
	return out, nil
}

// ListConversations returns one summary per conversation owned by the user,
// titled with the opening message and ordered newest conversation first.
func (r *MessageRepo) ListConversations(ctx domain.Context, ownerID string) ([]domain.ConversationSummary, error) {
	tracer := otel.Tracer("repo.messages")
	ctx, span := tracer.Start(ctx, "messages.ListConversations")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "messages"),
	)
	q := `SELECT id, title, created_at FROM (
		SELECT DISTINCT ON (conversation_id) conversation_id AS id, text AS title, created_at
		FROM messages WHERE owner_id=$1
		ORDER BY conversation_id, created_at ASC
	) c ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("op=message.list_conversations: %w", err)
	}
	defer rows.Close()
	out := make([]domain.ConversationSummary, 0, 8)
	for rows.Next() {
		var c domain.ConversationSummary
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=message.list_conversations: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=message.list_conversations: rows: %w", err)
	}
	return out, nil
}

// DeleteByConversation removes every message of a conversation.
func (r *MessageRepo) DeleteByConversation(ctx domain.Context, conversationID string) error {
	tracer := otel.Tracer("repo.messages")
	ctx, span := tracer.Start(ctx, "messages.DeleteByConversation")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "messages"),
	)
	q := `DELETE FROM messages WHERE conversation_id=$1`
	if _, err := r.Pool.Exec(ctx, q, conversationID); err != nil {
		return fmt.Errorf("op=message.delete: %w", err)
	}
	return nil
}
