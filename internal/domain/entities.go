// Package domain holds the core entities and ports of the interview
// evaluation service.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Message senders
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one turn in an interview conversation. Messages are append-only:
// once written they are never mutated. The first assistant message of a
// conversation is the interview question and carries the role in Category.
type Message struct {
	ID             string
	ConversationID string
	Text           string
	Sender         string
	Category       string
	Owner          string
	CreatedAt      time.Time
}

// ConversationSummary is a row of the owner's conversation list. Title is the
// text of the conversation's first message (the interview question).
type ConversationSummary struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// FeedbackRecord is the persisted LLM evaluation for one conversation, at
// most one per conversation id. Upserts fully replace the previous record;
// scores from an earlier submission never survive a later one.
type FeedbackRecord struct {
	ConversationID string
	RawText        string
	Scores         map[string]float64
	CreatedAt      time.Time
}

// User is the authenticated principal resolved by the external session
// provider.
type User struct {
	ID    string
	Email string
}

// Repositories (ports)

type MessageRepository interface {
	Create(ctx Context, m Message) (string, error)
	ListByConversation(ctx Context, conversationID string) ([]Message, error)
	ListConversations(ctx Context, ownerID string) ([]ConversationSummary, error)
	DeleteByConversation(ctx Context, conversationID string) error
}

type FeedbackRepository interface {
	Upsert(ctx Context, rec FeedbackRecord) error
	GetByConversation(ctx Context, conversationID string) (FeedbackRecord, error)
	DeleteByConversation(ctx Context, conversationID string) error
}

// ChatOptions carry per-call completion parameters.
type ChatOptions struct {
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
}

// AIClient (port)
//
// Chat issues a single non-streaming completion and returns the message body.
// ChatStream issues a streaming completion and invokes onDelta for every text
// delta in arrival order; it returns only after the stream is fully drained.
type AIClient interface {
	Chat(ctx Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error)
	ChatStream(ctx Context, systemPrompt, userPrompt string, opts ChatOptions, onDelta func(delta string) error) error
}

// Transcriber (port)
// Transcribe converts an audio payload to its best transcript.
type Transcriber interface {
	Transcribe(ctx Context, audio []byte, contentType string) (string, error)
}

// IdentityProvider (port)
// CurrentUser resolves the session token to a user via the external identity
// provider. Absent or invalid tokens yield ErrUnauthenticated.
type IdentityProvider interface {
	CurrentUser(ctx Context, token string) (User, error)
}

// ConversationLocker (port)
//
// Acquire takes the per-conversation mutual exclusion token guarding the
// evaluate-then-upsert sequence. It returns ErrConflict when another
// submission holds the token. The returned func releases the token.
type ConversationLocker interface {
	Acquire(ctx Context, conversationID string) (func(), error)
}

// Context is an alias so the domain package does not import std context in
// every signature; adapters and usecases pass context.Context through.
type Context = context.Context
