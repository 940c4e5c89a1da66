package memory

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"context"

	"github.com/whisper2/server/internal/store"
)

type ttlEntry[T any] struct {
	val T
	exp time.Time
}

func expired(exp time.Time) bool { return !exp.IsZero() && time.Now().After(exp) }

// Volatile is a mutex-guarded, in-process implementation of store.Volatile.
// TTLs are honored on read (lazily), not via a background sweeper.
type Volatile struct {
	mu sync.Mutex

	challenges map[string]ttlEntry[store.Challenge]
	sessions   map[string]ttlEntry[store.Session]
	byIdentity map[string]string // whisperID -> token

	msgIDs map[string]time.Time // "recipient:messageID" -> expiry

	pending   map[string][]store.PendingEnvelope // recipient -> FIFO (ascending sequence)
	pendSeq   map[string]int64

	presence map[string]ttlEntry[store.Presence]
	calls    map[string]ttlEntry[store.Call]

	rateCounters map[string]ttlEntry[int64]
}

func NewVolatile() *Volatile {
	return &Volatile{
		challenges:   make(map[string]ttlEntry[store.Challenge]),
		sessions:     make(map[string]ttlEntry[store.Session]),
		byIdentity:   make(map[string]string),
		msgIDs:       make(map[string]time.Time),
		pending:      make(map[string][]store.PendingEnvelope),
		pendSeq:      make(map[string]int64),
		presence:     make(map[string]ttlEntry[store.Presence]),
		calls:        make(map[string]ttlEntry[store.Call]),
		rateCounters: make(map[string]ttlEntry[int64]),
	}
}

func (v *Volatile) PutChallenge(ctx context.Context, c store.Challenge) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.challenges[c.ID] = ttlEntry[store.Challenge]{val: c, exp: c.ExpiresAt}
	return nil
}

func (v *Volatile) ConsumeChallenge(ctx context.Context, id string) (*store.Challenge, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.challenges[id]
	delete(v.challenges, id)
	if !ok || expired(e.exp) {
		return nil, store.ErrNotFound
	}
	c := e.val
	return &c, nil
}

func (v *Volatile) SwapSession(ctx context.Context, sess store.Session) (*store.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var previous *store.Session
	if oldToken, ok := v.byIdentity[sess.WhisperID]; ok {
		if e, ok := v.sessions[oldToken]; ok && !expired(e.exp) {
			old := e.val
			previous = &old
		}
		delete(v.sessions, oldToken)
	}
	v.sessions[sess.Token] = ttlEntry[store.Session]{val: sess, exp: sess.ExpiresAt}
	v.byIdentity[sess.WhisperID] = sess.Token
	return previous, nil
}

func (v *Volatile) GetSession(ctx context.Context, token string) (*store.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.sessions[token]
	if !ok || expired(e.exp) {
		return nil, store.ErrNotFound
	}
	s := e.val
	return &s, nil
}

func (v *Volatile) GetSessionByIdentity(ctx context.Context, whisperID string) (*store.Session, error) {
	v.mu.Lock()
	token, ok := v.byIdentity[whisperID]
	v.mu.Unlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.GetSession(ctx, token)
}

func (v *Volatile) RefreshSession(ctx context.Context, token string, newExpiry time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.sessions[token]
	if !ok || expired(e.exp) {
		return store.ErrNotFound
	}
	e.val.ExpiresAt = newExpiry
	e.exp = newExpiry
	v.sessions[token] = e
	return nil
}

func (v *Volatile) RevokeSession(ctx context.Context, token string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.sessions[token]
	delete(v.sessions, token)
	if ok {
		if cur, ok := v.byIdentity[e.val.WhisperID]; ok && cur == token {
			delete(v.byIdentity, e.val.WhisperID)
		}
	}
	return nil
}

func (v *Volatile) ReserveMessageID(ctx context.Context, recipient, messageID string, ttl time.Duration) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := recipient + ":" + messageID
	if exp, ok := v.msgIDs[key]; ok && !expired(exp) {
		return false, nil
	}
	v.msgIDs[key] = time.Now().Add(ttl)
	return true, nil
}

func (v *Volatile) AppendPending(ctx context.Context, recipient string, env store.PendingEnvelope, ttl time.Duration, maxLen int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendSeq[recipient]++
	env.Sequence = v.pendSeq[recipient]
	env.ExpiresAt = time.Now().Add(ttl)
	list := append(v.pending[recipient], env)
	if maxLen > 0 && len(list) > maxLen {
		list = list[len(list)-maxLen:]
	}
	v.pending[recipient] = list
	return nil
}

func (v *Volatile) ListPending(ctx context.Context, recipient, cursor string, limit int) ([]store.PendingEnvelope, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	after := int64(0)
	if cursor != "" {
		n, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", err
		}
		after = n
	}

	all := v.pending[recipient]
	sort.Slice(all, func(i, j int) bool { return all[i].Sequence < all[j].Sequence })

	var out []store.PendingEnvelope
	for _, e := range all {
		if expired(e.ExpiresAt) {
			continue
		}
		if e.Sequence > after {
			out = append(out, e)
		}
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	nextCursor := ""
	if hasMore && len(out) > 0 {
		nextCursor = strconv.FormatInt(out[len(out)-1].Sequence, 10)
	}
	return out, nextCursor, nil
}

func (v *Volatile) DeletePending(ctx context.Context, recipient string, throughSequence int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	list := v.pending[recipient]
	kept := list[:0:0]
	for _, e := range list {
		if e.Sequence > throughSequence {
			kept = append(kept, e)
		}
	}
	v.pending[recipient] = kept
	return nil
}

func (v *Volatile) PutPresence(ctx context.Context, p store.Presence, ttl time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.presence[p.WhisperID] = ttlEntry[store.Presence]{val: p, exp: time.Now().Add(ttl)}
	return nil
}

func (v *Volatile) GetPresence(ctx context.Context, whisperID string) (*store.Presence, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.presence[whisperID]
	if !ok || expired(e.exp) {
		return nil, store.ErrNotFound
	}
	p := e.val
	return &p, nil
}

func (v *Volatile) DeletePresence(ctx context.Context, whisperID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.presence, whisperID)
	return nil
}

func (v *Volatile) PutCallIfAbsent(ctx context.Context, c store.Call, ttl time.Duration) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.calls[c.CallID]; ok && !expired(e.exp) {
		return false, nil
	}
	v.calls[c.CallID] = ttlEntry[store.Call]{val: c, exp: time.Now().Add(ttl)}
	return true, nil
}

func (v *Volatile) GetCall(ctx context.Context, callID string) (*store.Call, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.calls[callID]
	if !ok || expired(e.exp) {
		return nil, store.ErrNotFound
	}
	c := e.val
	return &c, nil
}

func (v *Volatile) UpdateCallState(ctx context.Context, callID string, state store.CallState) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.calls[callID]
	if !ok || expired(e.exp) {
		return store.ErrNotFound
	}
	e.val.State = state
	v.calls[callID] = e
	return nil
}

func (v *Volatile) IncrRateCounter(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.rateCounters[key]
	if !ok || expired(e.exp) {
		e = ttlEntry[int64]{val: 0, exp: time.Now().Add(ttl)}
	}
	e.val++
	v.rateCounters[key] = e
	return e.val, nil
}

func (v *Volatile) Close() error            { return nil }
func (v *Volatile) Ping(ctx context.Context) error { return nil }
