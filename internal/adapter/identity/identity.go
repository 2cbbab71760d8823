// Package identity resolves bearer tokens against an external session
// provider. The service itself never issues or stores credentials.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
)

// Client introspects sessions over HTTP.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type sessionResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// CurrentUser resolves the session token to a user. A missing or rejected
// token maps to domain.ErrUnauthenticated.
func (c *Client) CurrentUser(ctx domain.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, fmt.Errorf("op=identity.current_user: empty token: %w", domain.ErrUnauthenticated)
	}
	if c.cfg.SessionProviderURL == "" {
		return domain.User{}, fmt.Errorf("op=identity.current_user: session provider url not configured: %w", domain.ErrInternal)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SessionProviderURL, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=identity.current_user: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.User{}, fmt.Errorf("op=identity.current_user: %w", domain.ErrUpstreamTimeout)
		}
		return domain.User{}, fmt.Errorf("op=identity.current_user: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.User{}, fmt.Errorf("op=identity.current_user: session rejected: %w", domain.ErrUnauthenticated)
	case resp.StatusCode != http.StatusOK:
		return domain.User{}, fmt.Errorf("op=identity.current_user: provider status %d: %w", resp.StatusCode, domain.ErrInternal)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return domain.User{}, fmt.Errorf("op=identity.current_user: decode response: %w", err)
	}
	if sr.User.ID == "" {
		return domain.User{}, fmt.Errorf("op=identity.current_user: session has no user: %w", domain.ErrUnauthenticated)
	}
	return domain.User{ID: sr.User.ID, Email: sr.User.Email}, nil
}
