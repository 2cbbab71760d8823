// Package deepgram implements the transcriber port against the Deepgram
// pre-recorded listen API.
package deepgram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"encoding/json"
	"log/slog"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hiresim/interview-evaluator/internal/adapter/observability"
	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
	"github.com/hiresim/interview-evaluator/pkg/textx"
)

// Client implements domain.Transcriber.
type Client struct {
	cfg config.Config
	hc  *http.Client
	// bo builds a fresh backoff per call; swapped in tests for speed
	bo func() backoff.BackOff
}

// New constructs a Deepgram client with sane timeouts.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		bo: func() backoff.BackOff {
			expo := backoff.NewExponentialBackOff()
			expo.InitialInterval = 500 * time.Millisecond
			expo.MaxInterval = 5 * time.Second
			expo.MaxElapsedTime = 30 * time.Second
			return expo
		},
	}
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts the audio payload and returns the best transcript.
// Transient upstream failures (network, 5xx) are retried with exponential
// backoff; 4xx responses are permanent.
func (c *Client) Transcribe(ctx domain.Context, audio []byte, contentType string) (string, error) {
	if c.cfg.DeepgramAPIKey == "" {
		return "", fmt.Errorf("%w: DEEPGRAM_API_KEY missing", domain.ErrInvalidArgument)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", domain.ErrInvalidArgument)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q := url.Values{}
	q.Set("model", "general")
	q.Set("language", "en")
	q.Set("punctuate", "true")
	endpoint := c.cfg.DeepgramBaseURL + "/v1/listen?" + q.Encode()

	var out listenResponse
	op := func() error {
		start := time.Now()
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Token "+c.cfg.DeepgramAPIKey)
		r.Header.Set("Content-Type", contentType)

		resp, err := c.hc.Do(r)
		observability.AIRequestDuration.WithLabelValues("deepgram", "listen").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			slog.Warn("deepgram 4xx",
				slog.Int("status", resp.StatusCode),
				slog.String("body", textx.Snippet(string(body), 512)))
			return backoff.Permanent(fmt.Errorf("listen status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Warn("deepgram non-2xx", slog.Int("status", resp.StatusCode))
			return fmt.Errorf("listen status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(c.bo(), ctx)); err != nil {
		observability.TranscriptionsTotal.WithLabelValues("error").Inc()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("op=deepgram.transcribe: %w", domain.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("op=deepgram.transcribe: %w", err)
	}

	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		observability.TranscriptionsTotal.WithLabelValues("empty").Inc()
		return "", nil
	}
	observability.TranscriptionsTotal.WithLabelValues("ok").Inc()
	return out.Results.Channels[0].Alternatives[0].Transcript, nil
}

// WithBackoff overrides the retry policy; used by tests.
func (c *Client) WithBackoff(f func() backoff.BackOff) *Client { c.bo = f; return c }
