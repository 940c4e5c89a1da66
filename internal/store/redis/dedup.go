package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func msgIDKey(recipient, messageID string) string {
	return "whisper2:msgid:" + recipient + ":" + messageID
}

// ReserveMessageID is a single SETNX with a TTL: the (recipient,
// messageID) idempotency reservation from spec §4.5 and §8.
func (s *Store) ReserveMessageID(ctx context.Context, recipient, messageID string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, msgIDKey(recipient, messageID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve message id: %w", err)
	}
	return ok, nil
}

func rateKey(key string) string { return "whisper2:rate:" + key }

// incrWithTTLScript increments a counter, setting its TTL only on the
// first increment so the sliding window doesn't get extended by every
// subsequent hit within it.
var incrWithTTLScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (s *Store) IncrRateCounter(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	res, err := incrWithTTLScript.Run(ctx, s.rdb, []string{rateKey(key)}, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("incr rate counter: %w", err)
	}
	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected rate counter reply type %T", res)
	}
	return n, nil
}
