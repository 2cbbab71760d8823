// Package tokencount provides token counting for LLM API calls.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken library, to bound the
// amount of feedback text fed back into the scoring prompt.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting with cached encodings.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	normalized := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalized]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[normalized]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalized)
	if err != nil {
		// cl100k_base covers GPT-4-family and most open models closely enough
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[normalized] = enc
	return enc, nil
}

// normalizeModelName converts provider model IDs to tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	// Groq model IDs carry provider prefixes, e.g. "openai/gpt-oss-120b"
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the tokens of text for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Truncate returns text cut to at most maxTokens tokens for the model. On
// encoding failure it falls back to a rough 4-chars-per-token estimate so the
// caller always gets a bounded string.
func (c *Counter) Truncate(text, model string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	enc, err := c.encodingFor(model)
	if err != nil {
		slog.Warn("token truncation falling back to byte estimate",
			slog.String("model", model), slog.Any("error", err))
		limit := maxTokens * 4
		if len(text) <= limit {
			return text
		}
		return text[:limit]
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
