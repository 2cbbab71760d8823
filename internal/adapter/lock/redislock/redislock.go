// Package redislock serializes evaluation runs per conversation using a
// Redis SET NX PX lock with a token-checked release.
package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hiresim/interview-evaluator/internal/domain"
)

// releaseScript deletes the lock only when the stored token still matches,
// so an expired lock re-acquired by another holder is never released here.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

type Locker struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func New(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl}
}

func key(conversationID string) string {
	return "lock:conversation:" + conversationID
}

// Acquire takes the per-conversation lock. It returns domain.ErrConflict
// when another evaluation holds it, and otherwise a release func that is
// safe to defer.
func (l *Locker) Acquire(ctx domain.Context, conversationID string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key(conversationID), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("op=redislock.acquire: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("op=redislock.acquire: conversation busy: %w", domain.ErrConflict)
	}
	release := func() {
		// Release runs in a fresh context so a cancelled request still
		// frees the lock instead of waiting for the TTL.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key(conversationID)}, token).Err(); err != nil {
			slog.Default().Warn("lock release failed", slog.String("conversation_id", conversationID), slog.Any("error", err))
		}
	}
	return release, nil
}
