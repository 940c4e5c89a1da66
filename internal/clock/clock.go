// Package clock re-exports an injectable clock so auth/router/presence
// tests can advance time deterministically instead of sleeping real
// wall-clock durations (challenge TTLs, session expiry, pending-queue
// TTLs all depend on it).
package clock

import "github.com/andres-erbsen/clock"

// Clock is the subset of time.Time-producing behavior the server core
// depends on.
type Clock = clock.Clock

// New returns the real wall clock.
func New() Clock { return clock.New() }

// NewMock returns a clock.Mock usable in tests via its Add/Set methods.
func NewMock() *clock.Mock { return clock.NewMock() }
