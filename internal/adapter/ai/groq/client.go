// Package groq implements the AI client against the Groq OpenAI-compatible
// chat completions API.
package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hiresim/interview-evaluator/internal/adapter/observability"
	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
	"github.com/hiresim/interview-evaluator/pkg/textx"
)

// Client implements domain.AIClient against Groq's chat completions endpoint.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a Groq client. Outbound requests go through an otelhttp
// transport so LLM calls show up in traces.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout: cfg.AIChatTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "groq " + r.Method + " " + r.URL.Path
				})),
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	TopP                float64       `json:"top_p"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string        `json:"reasoning_effort,omitempty"`
	Stream              bool          `json:"stream"`
}

func (c *Client) buildRequest(system, user string, opts domain.ChatOptions, stream bool) chatRequest {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})
	return chatRequest{
		Model:               c.cfg.GroqModel,
		Messages:            msgs,
		Temperature:         opts.Temperature,
		TopP:                1,
		MaxCompletionTokens: opts.MaxTokens,
		ReasoningEffort:     opts.ReasoningEffort,
		Stream:              stream,
	}
}

func (c *Client) post(ctx context.Context, req chatRequest) (*http.Response, error) {
	if c.cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("%w: GROQ_API_KEY missing", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("op=groq.marshal: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GroqBaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("op=groq.request: %w", err)
	}
	r.Header.Set("Authorization", "Bearer "+c.cfg.GroqAPIKey)
	r.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(r)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("op=groq.chat: %w", domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("op=groq.chat: %w", err)
	}
	return resp, nil
}

// classifyStatus maps a non-2xx response to an error; the body is consumed
// for the log excerpt.
func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	snippet := textx.Snippet(string(body), 512)
	slog.Warn("ai provider non-2xx",
		slog.String("provider", "groq"),
		slog.Int("status", resp.StatusCode),
		slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
		slog.String("body", snippet))
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("op=groq.chat: %w", domain.ErrUpstreamRateLimit)
	}
	return fmt.Errorf("op=groq.chat: status %d: %s", resp.StatusCode, snippet)
}

// Chat issues a non-streaming completion and returns the message content.
func (c *Client) Chat(ctx domain.Context, systemPrompt, userPrompt string, opts domain.ChatOptions) (string, error) {
	start := time.Now()
	resp, err := c.post(ctx, c.buildRequest(systemPrompt, userPrompt, opts, false))
	observability.AIRequestsTotal.WithLabelValues("groq", "chat").Inc()
	observability.AIRequestDuration.WithLabelValues("groq", "chat").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("op=groq.chat decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("op=groq.chat: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

// ChatStream issues a streaming completion and feeds every SSE text delta to
// onDelta in arrival order. It returns after the stream is fully drained or
// on the first error, including one returned by onDelta.
func (c *Client) ChatStream(ctx domain.Context, systemPrompt, userPrompt string, opts domain.ChatOptions, onDelta func(string) error) error {
	start := time.Now()
	resp, err := c.post(ctx, c.buildRequest(systemPrompt, userPrompt, opts, true))
	observability.AIRequestsTotal.WithLabelValues("groq", "chat_stream").Inc()
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
		observability.AIRequestDuration.WithLabelValues("groq", "chat_stream").Observe(time.Since(start).Seconds())
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	// individual SSE events can exceed the default scanner buffer
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Debug("skipping undecodable stream chunk",
				slog.String("provider", "groq"), slog.Any("error", err))
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return fmt.Errorf("op=groq.stream consume: %w", err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("op=groq.stream: %w", domain.ErrUpstreamTimeout)
		}
		return fmt.Errorf("op=groq.stream: %w", err)
	}
	return nil
}
