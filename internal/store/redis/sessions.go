package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper2/server/internal/store"
)

const sessionKeyPrefix = "whisper2:session:"

func sessionKey(token string) string    { return sessionKeyPrefix + token }
func byIdentityKey(whisperID string) string { return "whisper2:session:by-identity:" + whisperID }

// swapSessionScript atomically replaces the identity's active session
// pointer, returning the previous session's JSON (or nil) so the caller
// can force_logout its owning connection (spec §4.3, §8: single-active-
// device).
var swapSessionScript = redis.NewScript(`
local oldToken = redis.call("GET", KEYS[1])
local oldVal = nil
if oldToken then
	oldVal = redis.call("GET", ARGV[4] .. oldToken)
	redis.call("DEL", ARGV[4] .. oldToken)
end
redis.call("SET", ARGV[4] .. ARGV[1], ARGV[2], "EX", ARGV[3])
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[3])
return oldVal
`)

func (s *Store) SwapSession(ctx context.Context, sess store.Session) (*store.Session, error) {
	raw, err := encode(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	ttl := int64(time.Until(sess.ExpiresAt).Seconds())
	if ttl <= 0 {
		ttl = 1
	}

	res, err := swapSessionScript.Run(ctx, s.rdb, []string{byIdentityKey(sess.WhisperID)},
		sess.Token, raw, ttl, sessionKeyPrefix).Result()
	if err != nil {
		return nil, fmt.Errorf("swap session: %w", err)
	}
	if res == nil {
		return nil, nil
	}
	oldRaw, ok := res.(string)
	if !ok {
		return nil, nil
	}
	return decode[store.Session]([]byte(oldRaw))
}

func (s *Store) GetSession(ctx context.Context, token string) (*store.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decode[store.Session](raw)
}

func (s *Store) GetSessionByIdentity(ctx context.Context, whisperID string) (*store.Session, error) {
	token, err := s.rdb.Get(ctx, byIdentityKey(whisperID)).Result()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session pointer: %w", err)
	}
	return s.GetSession(ctx, token)
}

func (s *Store) RefreshSession(ctx context.Context, token string, newExpiry time.Time) error {
	sess, err := s.GetSession(ctx, token)
	if err != nil {
		return err
	}
	sess.ExpiresAt = newExpiry
	raw, err := encode(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(newExpiry)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(token), raw, ttl)
	pipe.Expire(ctx, byIdentityKey(sess.WhisperID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

// revokeSessionScript deletes the session and, only if the identity
// pointer still references this exact token, deletes the pointer too --
// avoiding clobbering a session that has since been swapped in by a
// newer device registration.
var revokeSessionScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
redis.call("DEL", KEYS[1])
if raw then
	local ok, sess = pcall(cjson.decode, raw)
	if ok and sess.WhisperID then
		local ptrKey = ARGV[1] .. sess.WhisperID
		local cur = redis.call("GET", ptrKey)
		if cur == ARGV[2] then
			redis.call("DEL", ptrKey)
		end
	end
end
return raw
`)

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	_, err := revokeSessionScript.Run(ctx, s.rdb, []string{sessionKey(token)},
		"whisper2:session:by-identity:", token).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
