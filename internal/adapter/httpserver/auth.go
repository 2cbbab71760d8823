package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hiresim/interview-evaluator/internal/domain"
)

type userKey struct{}

// UserFrom returns the authenticated user stored by RequireUser.
func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(domain.User)
	return u, ok
}

// RequireUser resolves the bearer token through the identity provider and
// stores the user in the request context. Requests without a valid session
// get 401.
func RequireUser(idp domain.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, r, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated), nil)
				return
			}
			user, err := idp.CurrentUser(r.Context(), token)
			if err != nil {
				LoggerFrom(r).Warn("session resolution failed", "error", err)
				writeError(w, r, err, nil)
				return
			}
			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
