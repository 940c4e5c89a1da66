// Package presence tracks online/offline state and decides who gets
// told. The broadcast policy (spec's Open Question, decided in
// DESIGN.md) is: tell a currently-connected peer about a presence change
// only if they have exchanged at least one pending-queue entry with the
// identity, and only if the identity's shareFlag allows it.
package presence

import (
	"context"
	"time"

	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

// PresenceTTL bounds how long a presence record survives an ungraceful
// disconnect (crash, network partition) before it is treated as stale.
const PresenceTTL = 5 * time.Minute

// relationScanLimit bounds how many pending entries are scanned per side
// when deciding whether two identities have exchanged traffic. It is a
// heuristic, not an exhaustive relationship index.
const relationScanLimit = 500

// Tracker updates presence on connect/disconnect and broadcasts
// presence_update to the peers the policy above says should hear it.
type Tracker struct {
	volatile store.Volatile
	conns    *mux.Registry
	clock    clock.Clock
	log      logger.Logger
}

func New(volatile store.Volatile, conns *mux.Registry, clk clock.Clock, log logger.Logger) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{volatile: volatile, conns: conns, clock: clk, log: log}
}

// Online records whisperID as present on connID and broadcasts to
// related online peers, honoring shareFlag.
func (t *Tracker) Online(ctx context.Context, whisperID, connID, platform string, shareFlag bool) error {
	p := store.Presence{
		WhisperID:    whisperID,
		ConnectionID: connID,
		LastSeen:     t.clock.Now(),
		Platform:     platform,
		ShareFlag:    shareFlag,
	}
	if err := t.volatile.PutPresence(ctx, p, PresenceTTL); err != nil {
		return err
	}
	if !shareFlag {
		return nil
	}
	t.broadcast(ctx, whisperID, wire.PresenceUpdate{WhisperID: whisperID, Status: "online"})
	return nil
}

// Offline clears whisperID's presence record and broadcasts the
// last-seen timestamp to related online peers.
func (t *Tracker) Offline(ctx context.Context, whisperID string) error {
	p, err := t.volatile.GetPresence(ctx, whisperID)
	shareFlag := true
	lastSeen := t.clock.Now()
	if err == nil && p != nil {
		shareFlag = p.ShareFlag
		lastSeen = p.LastSeen
	}
	if delErr := t.volatile.DeletePresence(ctx, whisperID); delErr != nil {
		return delErr
	}
	if !shareFlag {
		return nil
	}
	t.broadcast(ctx, whisperID, wire.PresenceUpdate{
		WhisperID: whisperID, Status: "offline", LastSeen: lastSeen.UnixMilli(),
	})
	return nil
}

// broadcast sends update to every currently-connected peer that has
// exchanged pending-queue traffic with whisperID.
func (t *Tracker) broadcast(ctx context.Context, whisperID string, update wire.PresenceUpdate) {
	t.conns.Range(func(c *mux.Conn) {
		peer := c.WhisperID()
		if peer == "" || peer == whisperID {
			return
		}
		related, err := t.related(ctx, whisperID, peer)
		if err != nil {
			if t.log != nil {
				t.log.Warn("presence relation check failed", logger.Error(err), logger.String("whisperId", whisperID), logger.String("peer", peer))
			}
			return
		}
		if related {
			c.EnqueueTyped(wire.TypePresenceUpdate, "", update)
		}
	})
}

// related reports whether a and b have exchanged at least one
// pending-queue entry in either direction.
func (t *Tracker) related(ctx context.Context, a, b string) (bool, error) {
	if hasSender, err := t.pendingFrom(ctx, a, b); err != nil {
		return false, err
	} else if hasSender {
		return true, nil
	}
	return t.pendingFrom(ctx, b, a)
}

// pendingFrom reports whether recipient's pending queue contains any
// envelope sent by from.
func (t *Tracker) pendingFrom(ctx context.Context, recipient, from string) (bool, error) {
	envs, _, err := t.volatile.ListPending(ctx, recipient, "", relationScanLimit)
	if err != nil {
		return false, err
	}
	for _, e := range envs {
		if e.From == from {
			return true, nil
		}
	}
	return false, nil
}
