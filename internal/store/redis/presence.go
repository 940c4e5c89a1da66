package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper2/server/internal/store"
)

func presenceKey(whisperID string) string { return "whisper2:presence:" + whisperID }

func (s *Store) PutPresence(ctx context.Context, p store.Presence, ttl time.Duration) error {
	raw, err := encode(p)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}
	if err := s.rdb.Set(ctx, presenceKey(p.WhisperID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put presence: %w", err)
	}
	return nil
}

func (s *Store) GetPresence(ctx context.Context, whisperID string) (*store.Presence, error) {
	raw, err := s.rdb.Get(ctx, presenceKey(whisperID)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	return decode[store.Presence](raw)
}

func (s *Store) DeletePresence(ctx context.Context, whisperID string) error {
	if err := s.rdb.Del(ctx, presenceKey(whisperID)).Err(); err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}
	return nil
}
