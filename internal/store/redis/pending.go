package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper2/server/internal/store"
)

func pendingKey(recipient string) string    { return "whisper2:pending:" + recipient }
func pendingSeqKey(recipient string) string { return "whisper2:pending:seq:" + recipient }

// AppendPending appends to the recipient's sorted-set FIFO (scored by a
// monotonic per-recipient sequence), then trims anything beyond maxLen --
// oldest first, per spec's "bounded" pending list.
func (s *Store) AppendPending(ctx context.Context, recipient string, env store.PendingEnvelope, ttl time.Duration, maxLen int) error {
	seq, err := s.rdb.Incr(ctx, pendingSeqKey(recipient)).Result()
	if err != nil {
		return fmt.Errorf("increment pending sequence: %w", err)
	}
	env.Sequence = seq

	raw, err := encode(env)
	if err != nil {
		return fmt.Errorf("encode pending envelope: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, pendingKey(recipient), redis.Z{Score: float64(seq), Member: raw})
	pipe.Expire(ctx, pendingKey(recipient), ttl)
	pipe.Expire(ctx, pendingSeqKey(recipient), ttl)
	if maxLen > 0 {
		pipe.ZRemRangeByRank(ctx, pendingKey(recipient), 0, int64(-maxLen-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append pending envelope: %w", err)
	}
	return nil
}

func (s *Store) ListPending(ctx context.Context, recipient, cursor string, limit int) ([]store.PendingEnvelope, string, error) {
	min := "-inf"
	if cursor != "" {
		afterSeq, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		min = strconv.FormatInt(afterSeq+1, 10)
	}

	// Fetch one extra to know whether another page follows.
	raws, err := s.rdb.ZRangeByScore(ctx, pendingKey(recipient), &redis.ZRangeBy{
		Min: min, Max: "+inf", Offset: 0, Count: int64(limit + 1),
	}).Result()
	if err != nil {
		return nil, "", fmt.Errorf("list pending: %w", err)
	}

	hasMore := len(raws) > limit
	if hasMore {
		raws = raws[:limit]
	}

	envs := make([]store.PendingEnvelope, 0, len(raws))
	for _, raw := range raws {
		env, err := decode[store.PendingEnvelope]([]byte(raw))
		if err != nil {
			return nil, "", err
		}
		envs = append(envs, *env)
	}

	nextCursor := ""
	if hasMore && len(envs) > 0 {
		nextCursor = strconv.FormatInt(envs[len(envs)-1].Sequence, 10)
	}
	return envs, nextCursor, nil
}

func (s *Store) DeletePending(ctx context.Context, recipient string, throughSequence int64) error {
	if err := s.rdb.ZRemRangeByScore(ctx, pendingKey(recipient), "-inf", strconv.FormatInt(throughSequence, 10)).Err(); err != nil {
		return fmt.Errorf("delete pending through %d: %w", throughSequence, err)
	}
	return nil
}
