package groq_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiresim/interview-evaluator/internal/adapter/ai/groq"
	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
)

func newClient(t *testing.T, h http.HandlerFunc) *groq.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Config{GroqAPIKey: "test-key", GroqBaseURL: srv.URL, GroqModel: "openai/gpt-oss-120b"}
	return groq.New(cfg)
}

func TestChat_Success(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-oss-120b", req["model"])
		assert.Equal(t, false, req["stream"])
		assert.InDelta(t, 0.3, req["temperature"], 1e-9)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `{"Depth of Analysis": 7}`}}},
		})
	})

	got, err := c.Chat(t.Context(), "", "score this", domain.ChatOptions{Temperature: 0.3, MaxTokens: 1024, ReasoningEffort: "low"})
	require.NoError(t, err)
	assert.Equal(t, `{"Depth of Analysis": 7}`, got)
}

func TestChat_OmitsEmptySystemMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0]["role"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	})
	_, err := c.Chat(t.Context(), "", "hi", domain.ChatOptions{})
	require.NoError(t, err)
}

func TestChat_RateLimited(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Chat(t.Context(), "s", "u", domain.ChatOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)
}

func TestChat_ServerError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	})
	_, err := c.Chat(t.Context(), "s", "u", domain.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestChat_MissingAPIKey(t *testing.T) {
	c := groq.New(config.Config{GroqBaseURL: "http://localhost:0"})
	_, err := c.Chat(t.Context(), "s", "u", domain.ChatOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestChatStream_AccumulatesDeltasInOrder(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"# Structure", " and Clarity\n", "### Positive Aspects\n", "- good\n"} {
			chunk := map[string]any{"choices": []map[string]any{{"delta": map[string]string{"content": delta}}}}
			b, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var b strings.Builder
	err := c.ChatStream(t.Context(), "sys", "user", domain.ChatOptions{Temperature: 1, MaxTokens: 8192, ReasoningEffort: "medium"}, func(d string) error {
		b.WriteString(d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "# Structure and Clarity\n### Positive Aspects\n- good\n", b.String())
}

func TestChatStream_UpstreamError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := c.ChatStream(t.Context(), "s", "u", domain.ChatOptions{}, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestChatStream_ConsumerErrorStops(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		for range 10 {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
	})
	calls := 0
	err := c.ChatStream(t.Context(), "s", "u", domain.ChatOptions{}, func(string) error {
		calls++
		return fmt.Errorf("stop")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestChatStream_SkipsMalformedChunks(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	var b strings.Builder
	err := c.ChatStream(t.Context(), "s", "u", domain.ChatOptions{}, func(d string) error {
		b.WriteString(d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", b.String())
}
