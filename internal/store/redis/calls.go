package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper2/server/internal/store"
)

func callKey(callID string) string { return "whisper2:call:" + callID }

// putCallIfAbsentScript sets the call record only if callId isn't already
// taken, returning 1 if it created the record and 0 if a record already
// existed -- the idempotent call_initiate of spec §4.8.
var putCallIfAbsentScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

func (s *Store) PutCallIfAbsent(ctx context.Context, c store.Call, ttl time.Duration) (bool, error) {
	raw, err := encode(c)
	if err != nil {
		return false, fmt.Errorf("encode call: %w", err)
	}
	res, err := putCallIfAbsentScript.Run(ctx, s.rdb, []string{callKey(c.CallID)}, raw, ttl.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("put call if absent: %w", err)
	}
	n, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected reply type %T", res)
	}
	return n == 1, nil
}

func (s *Store) GetCall(ctx context.Context, callID string) (*store.Call, error) {
	raw, err := s.rdb.Get(ctx, callKey(callID)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call: %w", err)
	}
	return decode[store.Call](raw)
}

func (s *Store) UpdateCallState(ctx context.Context, callID string, state store.CallState) error {
	ttl := s.rdb.TTL(ctx, callKey(callID))
	if ttl.Err() != nil {
		return fmt.Errorf("get call ttl: %w", ttl.Err())
	}
	remaining := ttl.Val()
	if remaining <= 0 {
		return store.ErrNotFound
	}

	call, err := s.GetCall(ctx, callID)
	if err != nil {
		return err
	}
	call.State = state
	raw, err := encode(*call)
	if err != nil {
		return fmt.Errorf("encode call: %w", err)
	}
	if err := s.rdb.Set(ctx, callKey(callID), raw, remaining).Err(); err != nil {
		return fmt.Errorf("update call state: %w", err)
	}
	return nil
}
