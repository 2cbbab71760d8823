package usecase_test

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hiresim/interview-evaluator/internal/domain"
)

// memMessages is an in-memory domain.MessageRepository.
type memMessages struct {
	mu                 sync.Mutex
	msgs               []domain.Message
	createErr          error
	assistantCreateErr error
	listErr            error
	deleteErr          error
}

func (m *memMessages) Create(_ domain.Context, msg domain.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	if m.assistantCreateErr != nil && msg.Sender == domain.SenderAssistant {
		return "", m.assistantCreateErr
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	m.msgs = append(m.msgs, msg)
	return msg.ID, nil
}

func (m *memMessages) ListByConversation(_ domain.Context, conversationID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.Message{}
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) ListConversations(_ domain.Context, ownerID string) ([]domain.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]domain.ConversationSummary{}
	order := []string{}
	for _, msg := range m.msgs {
		if msg.Owner != ownerID {
			continue
		}
		if _, ok := seen[msg.ConversationID]; !ok {
			seen[msg.ConversationID] = domain.ConversationSummary{ID: msg.ConversationID, Title: msg.Text, CreatedAt: msg.CreatedAt}
			order = append(order, msg.ConversationID)
		}
	}
	out := make([]domain.ConversationSummary, 0, len(order))
	for _, id := range order {
		out = append(out, seen[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memMessages) DeleteByConversation(_ domain.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	kept := m.msgs[:0]
	for _, msg := range m.msgs {
		if msg.ConversationID != conversationID {
			kept = append(kept, msg)
		}
	}
	m.msgs = kept
	return nil
}

// memFeedback is an in-memory domain.FeedbackRepository.
type memFeedback struct {
	mu        sync.Mutex
	recs      map[string]domain.FeedbackRecord
	upsertErr error
	deleteErr error
}

func newMemFeedback() *memFeedback {
	return &memFeedback{recs: map[string]domain.FeedbackRecord{}}
}

func (f *memFeedback) Upsert(_ domain.Context, rec domain.FeedbackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.recs[rec.ConversationID] = rec
	return nil
}

func (f *memFeedback) GetByConversation(_ domain.Context, conversationID string) (domain.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[conversationID]
	if !ok {
		return domain.FeedbackRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *memFeedback) DeleteByConversation(_ domain.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.recs, conversationID)
	return nil
}

// stubAI returns canned payloads: feedback for the streamed call, scoreJSON
// for the non-streaming call.
type stubAI struct {
	feedback  string
	scoreJSON string
	chatErr   error
	streamErr error

	lastChatOpts   domain.ChatOptions
	lastChatSystem string
	lastChatPrompt string
	lastStreamOpts domain.ChatOptions
	lastSystem     string
	lastPrompt     string
}

func (a *stubAI) Chat(_ domain.Context, system, prompt string, opts domain.ChatOptions) (string, error) {
	a.lastChatOpts = opts
	a.lastChatSystem = system
	a.lastChatPrompt = prompt
	if a.chatErr != nil {
		return "", a.chatErr
	}
	return a.scoreJSON, nil
}

func (a *stubAI) ChatStream(_ domain.Context, system, prompt string, opts domain.ChatOptions, onDelta func(string) error) error {
	a.lastStreamOpts = opts
	a.lastSystem = system
	a.lastPrompt = prompt
	if a.streamErr != nil {
		return a.streamErr
	}
	// Deliver in two chunks to exercise accumulation.
	half := len(a.feedback) / 2
	if err := onDelta(a.feedback[:half]); err != nil {
		return err
	}
	return onDelta(a.feedback[half:])
}

// stubLock grants or refuses the conversation lock.
type stubLock struct {
	conflict bool
	acquired []string
	released int
}

func (l *stubLock) Acquire(_ domain.Context, conversationID string) (func(), error) {
	if l.conflict {
		return nil, domain.ErrConflict
	}
	l.acquired = append(l.acquired, conversationID)
	return func() { l.released++ }, nil
}
