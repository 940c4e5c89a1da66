package ratelimit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/ratelimit"
	"github.com/whisper2/server/internal/store/memory"
)

func TestLimiter_AllowsWithinBudget(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.New(memory.NewVolatile())

	for i := 0; i < ratelimit.Budget["register"]; i++ {
		ok, _ := l.Allow(ctx, "WSP-AAAA-AAAA-AAAA", "register")
		require.True(t, ok)
	}
}

func TestLimiter_RejectsOverBudget(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.New(memory.NewVolatile())
	budget := ratelimit.Budget["register"]

	for i := 0; i < budget; i++ {
		ok, _ := l.Allow(ctx, "WSP-AAAA-AAAA-AAAA", "register")
		require.True(t, ok)
	}
	ok, retryAfter := l.Allow(ctx, "WSP-AAAA-AAAA-AAAA", "register")
	assert.False(t, ok)
	assert.Equal(t, ratelimit.Window, retryAfter)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.New(memory.NewVolatile())
	budget := ratelimit.Budget["register"]

	for i := 0; i < budget; i++ {
		ok, _ := l.Allow(ctx, "WSP-AAAA-AAAA-AAAA", "register")
		require.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "WSP-BBBB-BBBB-BBBB", "register")
	assert.True(t, ok)
}

func TestLimiter_UnlistedActionUsesDefaultBudget(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.New(memory.NewVolatile())
	ok, _ := l.Allow(ctx, "WSP-AAAA-AAAA-AAAA", "presign_upload")
	assert.True(t, ok)
}
