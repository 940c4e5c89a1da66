package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper2/server/internal/store"
)

func challengeKey(id string) string { return "whisper2:challenge:" + id }

func (s *Store) PutChallenge(ctx context.Context, c store.Challenge) error {
	raw, err := encode(c)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ttl := time.Until(c.ExpiresAt)
	if err := s.rdb.Set(ctx, challengeKey(c.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put challenge: %w", err)
	}
	return nil
}

// consumeScript atomically fetches and deletes a key, returning the old
// value (or nil if absent/expired) -- the single-use-challenge CAS.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v then redis.call("DEL", KEYS[1]) end
return v
`)

func (s *Store) ConsumeChallenge(ctx context.Context, id string) (*store.Challenge, error) {
	res, err := consumeScript.Run(ctx, s.rdb, []string{challengeKey(id)}).Result()
	if err == redis.Nil || res == nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, store.ErrNotFound
	}
	return decode[store.Challenge]([]byte(raw))
}
