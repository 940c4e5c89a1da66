package health

import (
	"context"
	"fmt"

	"github.com/whisper2/server/internal/store"
)

// RegisterStoreChecks registers the "durable" and "volatile" checks that
// back the process's /healthz endpoint.
func RegisterStoreChecks(c *Checker, durable store.Durable, volatile store.Volatile) {
	c.Register("durable", func(ctx context.Context) error {
		if err := durable.Ping(ctx); err != nil {
			return fmt.Errorf("durable store: %w", err)
		}
		return nil
	})
	c.Register("volatile", func(ctx context.Context) error {
		if err := volatile.Ping(ctx); err != nil {
			return fmt.Errorf("volatile store: %w", err)
		}
		return nil
	})
}
