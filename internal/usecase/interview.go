package usecase

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hiresim/interview-evaluator/internal/domain"
	"github.com/hiresim/interview-evaluator/internal/feedback"
	"github.com/hiresim/interview-evaluator/internal/questions"
)

// InterviewService manages conversation lifecycle and reads.
type InterviewService struct {
	Messages domain.MessageRepository
	Feedback domain.FeedbackRepository
	Bank     *questions.Bank
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(m domain.MessageRepository, f domain.FeedbackRepository, b *questions.Bank) InterviewService {
	return InterviewService{Messages: m, Feedback: f, Bank: b}
}

// StartedInterview is returned by Start: the new conversation and the
// question that opens it.
type StartedInterview struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
	Role           string `json:"role"`
}

// Start creates a conversation opened by an interviewer question. When the
// question is empty one is drawn from the bank for the role.
func (s InterviewService) Start(ctx domain.Context, user domain.User, role, question string) (StartedInterview, error) {
	if user.ID == "" {
		return StartedInterview{}, fmt.Errorf("%w: user required", domain.ErrInvalidArgument)
	}
	if question == "" {
		q := s.Bank.Random(role)
		question = q.Question
		if role == "" {
			role = q.Role
		}
	}
	if question == "" {
		return StartedInterview{}, fmt.Errorf("%w: no question available", domain.ErrInvalidArgument)
	}
	conversationID := uuid.New().String()
	if _, err := s.Messages.Create(ctx, domain.Message{
		ConversationID: conversationID,
		Text:           question,
		Sender:         domain.SenderAssistant,
		Category:       role,
		Owner:          user.ID,
	}); err != nil {
		return StartedInterview{}, fmt.Errorf("op=interview.start: %w", err)
	}
	return StartedInterview{ConversationID: conversationID, Question: question, Role: role}, nil
}

// History returns the ordered messages of a conversation owned by the user.
// Conversations of other users are indistinguishable from missing ones.
func (s InterviewService) History(ctx domain.Context, user domain.User, conversationID string) ([]domain.Message, error) {
	return s.ownedMessages(ctx, user, conversationID)
}

// List returns the user's conversations, newest first.
func (s InterviewService) List(ctx domain.Context, user domain.User) ([]domain.ConversationSummary, error) {
	out, err := s.Messages.ListConversations(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	return out, nil
}

// Delete removes a conversation. The message purge must succeed; a failed
// feedback purge is logged and tolerated.
func (s InterviewService) Delete(ctx domain.Context, user domain.User, conversationID string) error {
	if _, err := s.ownedMessages(ctx, user, conversationID); err != nil {
		return err
	}
	if err := s.Messages.DeleteByConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("op=interview.delete: %w", err)
	}
	if err := s.Feedback.DeleteByConversation(ctx, conversationID); err != nil {
		slog.Warn("feedback purge failed", slog.String("conversation_id", conversationID), slog.Any("error", err))
	}
	return nil
}

// Report is the parsed feedback for a conversation.
type Report struct {
	ConversationID string             `json:"conversation_id"`
	Sections       []feedback.Section `json:"sections"`
	Scores         map[string]float64 `json:"scores"`
}

// FeedbackReport loads the stored feedback record and re-parses its raw text.
func (s InterviewService) FeedbackReport(ctx domain.Context, user domain.User, conversationID string) (Report, error) {
	if _, err := s.ownedMessages(ctx, user, conversationID); err != nil {
		return Report{}, err
	}
	rec, err := s.Feedback.GetByConversation(ctx, conversationID)
	if err != nil {
		return Report{}, fmt.Errorf("op=interview.report: %w", err)
	}
	return Report{
		ConversationID: conversationID,
		Sections:       feedback.Parse(rec.RawText),
		Scores:         rec.Scores,
	}, nil
}

// ownedMessages loads a conversation's messages and enforces ownership.
func (s InterviewService) ownedMessages(ctx domain.Context, user domain.User, conversationID string) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id required", domain.ErrInvalidArgument)
	}
	msgs, err := s.Messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("op=interview.messages: %w", domain.ErrNotFound)
	}
	if msgs[0].Owner != user.ID {
		return nil, fmt.Errorf("op=interview.messages: %w", domain.ErrNotFound)
	}
	return msgs, nil
}
