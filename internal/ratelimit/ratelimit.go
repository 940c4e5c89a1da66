// Package ratelimit enforces the per-identity, per-action rate budgets
// named in spec §3's Rate counter: a hard cap over a sliding window,
// backed by the volatile store so the cap holds across every process in
// the fleet, plus a local go.uber.org/ratelimit.Limiter per key that
// paces calls already inside budget so a burst doesn't land all at once.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/ratelimit"

	"github.com/whisper2/server/internal/store"
)

// Window is the sliding-window duration the volatile counter is keyed on.
const Window = 60 * time.Second

// Budget is the maximum count allowed per action within Window.
var Budget = map[string]int{
	"register":        5,
	"send_message":    120,
	"fetch_pending":    30,
	"call_initiate":    10,
	"delivery_receipt": 120,
}

// defaultBudget applies to any action not listed explicitly.
const defaultBudget = 60

// defaultRPS bounds the local smoothing limiter's pace, independent of
// the window budget above.
const defaultRPS = 20

// Limiter gates actions per (key, action) pair.
type Limiter struct {
	volatile store.Volatile

	mu    sync.Mutex
	paced map[string]ratelimit.Limiter
}

func New(volatile store.Volatile) *Limiter {
	return &Limiter{volatile: volatile, paced: make(map[string]ratelimit.Limiter)}
}

func counterKey(action, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", action, key)
}

func budgetFor(action string) int {
	if b, ok := Budget[action]; ok {
		return b
	}
	return defaultBudget
}

// Allow reports whether key may perform action now. When it returns
// false, retryAfter is the caller's suggested backoff.
func (l *Limiter) Allow(ctx context.Context, key, action string) (ok bool, retryAfter time.Duration) {
	count, err := l.volatile.IncrRateCounter(ctx, counterKey(action, key), Window)
	if err != nil {
		// Fail open on a counter-store outage: a transient infrastructure
		// failure should not itself become a denial-of-service on every
		// client.
		return true, 0
	}
	if int(count) > budgetFor(action) {
		return false, Window
	}
	l.pace(ctx, key)
	return true, 0
}

// pace applies local, in-process smoothing on top of the distributed
// budget above, so a client that dumps its whole window's budget in one
// instant is still spread out call-by-call. rl.Take() itself has no
// context support, so the wait runs on its own goroutine and pace
// returns as soon as either it finishes or ctx is done, keeping the
// caller's dispatch loop bounded by ctx even though the spawned
// goroutine may still be winding down a pending tick.
func (l *Limiter) pace(ctx context.Context, key string) {
	l.mu.Lock()
	rl, ok := l.paced[key]
	if !ok {
		rl = ratelimit.New(defaultRPS)
		l.paced[key] = rl
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		rl.Take()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
