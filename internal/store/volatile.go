package store

import (
	"context"
	"time"
)

// Volatile is the TTL-bearing state that is safe to lose on restart:
// sessions, challenges, presence, pending queues, call state, rate
// counters (spec §3, §5). Every operation that must be atomic per spec
// (session swap, challenge consume, message-id reservation) is exposed as
// a single method here -- never a check-then-act pair.
type Volatile interface {
	// PutChallenge stores a single-use challenge that expires at c.ExpiresAt.
	PutChallenge(ctx context.Context, c Challenge) error
	// ConsumeChallenge atomically gets-and-deletes a challenge. Returns
	// ErrNotFound if missing or expired.
	ConsumeChallenge(ctx context.Context, id string) (*Challenge, error)

	// SwapSession atomically installs a new session as the identity's
	// only live session, returning the previous session (if any) so its
	// connection can be sent force_logout before close.
	SwapSession(ctx context.Context, sess Session) (previous *Session, err error)
	GetSession(ctx context.Context, token string) (*Session, error)
	// GetSessionByIdentity looks up the identity's current live session.
	GetSessionByIdentity(ctx context.Context, whisperID string) (*Session, error)
	RefreshSession(ctx context.Context, token string, newExpiry time.Time) error
	RevokeSession(ctx context.Context, token string) error

	// ReserveMessageID atomically reserves (recipient, messageID) for ttl.
	// Returns false if it was already reserved (duplicate accept).
	ReserveMessageID(ctx context.Context, recipient, messageID string, ttl time.Duration) (reserved bool, err error)

	// AppendPending appends an envelope to recipient's FIFO pending list,
	// bounded to maxLen (oldest dropped beyond the cap).
	AppendPending(ctx context.Context, recipient string, env PendingEnvelope, ttl time.Duration, maxLen int) error
	// ListPending returns up to limit envelopes starting after cursor, plus
	// the next cursor (empty when exhausted). It does not delete anything.
	ListPending(ctx context.Context, recipient, cursor string, limit int) (envs []PendingEnvelope, nextCursor string, err error)
	// DeletePending removes envelopes up to and including the given
	// sequence number, called only after a successful write to the
	// requester's connection (two-phase drain, spec §4.5).
	DeletePending(ctx context.Context, recipient string, throughSequence int64) error

	// PutPresence upserts a presence record with the given TTL.
	PutPresence(ctx context.Context, p Presence, ttl time.Duration) error
	GetPresence(ctx context.Context, whisperID string) (*Presence, error)
	DeletePresence(ctx context.Context, whisperID string) error

	// PutCallIfAbsent stores call-signalling state only if no call with
	// that callId exists yet, reporting whether it created one.
	PutCallIfAbsent(ctx context.Context, c Call, ttl time.Duration) (created bool, err error)
	GetCall(ctx context.Context, callID string) (*Call, error)
	UpdateCallState(ctx context.Context, callID string, state CallState) error

	// IncrRateCounter atomically increments the sliding-window counter for
	// key, creating it with ttl on first use, and returns the new count.
	IncrRateCounter(ctx context.Context, key string, ttl time.Duration) (count int64, err error)

	Close() error
	Ping(ctx context.Context) error
}
