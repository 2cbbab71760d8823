// Package usecase contains application business logic services.
package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hiresim/interview-evaluator/internal/adapter/ai/tokencount"
	"github.com/hiresim/interview-evaluator/internal/adapter/observability"
	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
	"github.com/hiresim/interview-evaluator/internal/rubric"
	"github.com/hiresim/interview-evaluator/pkg/textx"
)

// scoreSystemPrompt drives the second, non-streaming extraction call. The
// model must answer with a bare JSON object or the whole map is discarded.
const scoreSystemPrompt = `You are a scoring extraction assistant. You will receive interview feedback text. Return ONLY a single JSON object mapping each evaluated criterion name to its numeric score from 1 to 10. No markdown, no code fences, no prose.`

// EvaluationService runs the answer evaluation pipeline: persist the answer,
// stream the structured feedback, extract scores, store the feedback record.
type EvaluationService struct {
	Messages domain.MessageRepository
	Feedback domain.FeedbackRepository
	AI       domain.AIClient
	Lock     domain.ConversationLocker
	Tokens   *tokencount.Counter
	Cfg      config.Config
}

// NewEvaluationService constructs an EvaluationService with its dependencies.
func NewEvaluationService(m domain.MessageRepository, f domain.FeedbackRepository, ai domain.AIClient, l domain.ConversationLocker, cfg config.Config) EvaluationService {
	return EvaluationService{Messages: m, Feedback: f, AI: ai, Lock: l, Tokens: tokencount.DefaultCounter, Cfg: cfg}
}

// SubmitAnswer evaluates one candidate answer within a conversation and
// returns the raw feedback text. A concurrent submission for the same
// conversation fails with domain.ErrConflict.
func (s EvaluationService) SubmitAnswer(ctx domain.Context, user domain.User, conversationID, role, question, answer string) (string, error) {
	answer = textx.SanitizeText(answer)
	if conversationID == "" || answer == "" {
		observability.EvaluationsTotal.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: conversation id and answer required", domain.ErrInvalidArgument)
	}

	release, err := s.Lock.Acquire(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.EvaluationsTotal.WithLabelValues("conflict").Inc()
		}
		return "", err
	}
	defer release()

	if _, err := s.Messages.Create(ctx, domain.Message{
		ConversationID: conversationID,
		Text:           answer,
		Sender:         domain.SenderUser,
		Category:       role,
		Owner:          user.ID,
	}); err != nil {
		observability.EvaluationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=evaluate.persist_answer: %w", err)
	}

	system := rubric.ForRole(role) + "\n" + rubric.FormatDirective
	prompt := "### INTERVIEW QUESTION\n" + question + "\n\n### CANDIDATE RESPONSE FOR EVALUATION\n" + answer

	var sb strings.Builder
	err = s.AI.ChatStream(ctx, system, prompt, domain.ChatOptions{
		Temperature:     1.0,
		MaxTokens:       s.Cfg.EvalMaxTokens,
		ReasoningEffort: "medium",
	}, func(delta string) error {
		sb.WriteString(delta)
		return nil
	})
	if err != nil {
		observability.EvaluationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=evaluate.completion: %w", err)
	}
	feedbackText := strings.TrimSpace(sb.String())
	if feedbackText == "" {
		observability.EvaluationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=evaluate.completion: empty feedback: %w", domain.ErrSchemaInvalid)
	}

	// The feedback record below is the source of truth; losing the
	// transcript copy must not abort a finished evaluation.
	if _, err := s.Messages.Create(ctx, domain.Message{
		ConversationID: conversationID,
		Text:           feedbackText,
		Sender:         domain.SenderAssistant,
		Category:       role,
		Owner:          user.ID,
	}); err != nil {
		slog.Warn("op=evaluate.persist_feedback",
			slog.String("conversation_id", conversationID),
			slog.Any("error", err))
	}

	scores := s.extractScores(ctx, role, feedbackText)

	if err := s.Feedback.Upsert(ctx, domain.FeedbackRecord{
		ConversationID: conversationID,
		RawText:        feedbackText,
		Scores:         scores,
	}); err != nil {
		observability.EvaluationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=evaluate.upsert: %w", err)
	}

	observability.EvaluationsTotal.WithLabelValues("ok").Inc()
	return feedbackText, nil
}

// extractScores asks for a strict-JSON criterion→score map, naming the
// role's criteria so the model scores the same rubric the feedback was
// written against. It never fails the evaluation: any upstream error,
// malformed payload, or out-of-range value degrades to an empty map.
func (s EvaluationService) extractScores(ctx domain.Context, role, feedbackText string) map[string]float64 {
	budgeted := s.Tokens.Truncate(feedbackText, s.Cfg.GroqModel, s.Cfg.ScoreTokenBudget)

	system := scoreSystemPrompt
	if instr := rubric.ForRole(role); instr != "" {
		system = instr + "\n\n" + scoreSystemPrompt
	}

	raw, err := s.AI.Chat(ctx, system, budgeted, domain.ChatOptions{
		Temperature:     0.3,
		MaxTokens:       s.Cfg.ScoreMaxTokens,
		ReasoningEffort: "low",
	})
	if err != nil {
		slog.Warn("score extraction call failed", slog.Any("error", err))
		observability.ScoreExtractionFailures.Inc()
		return map[string]float64{}
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &scores); err != nil {
		slog.Warn("score extraction returned non-JSON payload", slog.String("snippet", textx.Snippet(raw, 160)))
		observability.ScoreExtractionFailures.Inc()
		return map[string]float64{}
	}
	for k, v := range scores {
		if v < 1 || v > 10 {
			slog.Warn("score out of range, discarding map", slog.String("criterion", k), slog.Float64("value", v))
			observability.ScoreExtractionFailures.Inc()
			return map[string]float64{}
		}
	}
	for _, v := range scores {
		observability.CriterionScoreHistogram.Observe(v)
	}
	return scores
}
