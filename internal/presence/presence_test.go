package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/presence"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/store/memory"
	"github.com/whisper2/server/internal/wire"
)

func connectOnline(registry *mux.Registry, whisperID string) *mux.Conn {
	c := mux.NewLoopbackConn()
	registry.Track(c)
	registry.Bind(whisperID, c)
	return c
}

func TestTracker_Online_BroadcastsToRelatedPeer(t *testing.T) {
	ctx := context.Background()
	volatile := memory.NewVolatile()
	registry := mux.NewRegistry()
	tracker := presence.New(volatile, registry, clock.New(), nil)

	bobConn := connectOnline(registry, "WSP-BBBB-BBBB-BBBB")

	require.NoError(t, volatile.AppendPending(ctx, "WSP-BBBB-BBBB-BBBB", store.PendingEnvelope{
		Sequence: 1, MessageID: "m-1", From: "WSP-AAAA-AAAA-AAAA", Timestamp: time.Now().UnixMilli(),
	}, time.Hour, 100))

	require.NoError(t, tracker.Online(ctx, "WSP-AAAA-AAAA-AAAA", "conn-a", "ios", true))

	frames := bobConn.Sent()
	require.Len(t, frames, 1)
	assert.Equal(t, wire.TypePresenceUpdate, frames[0].Type)
}

func TestTracker_Online_UnrelatedPeerNotNotified(t *testing.T) {
	ctx := context.Background()
	volatile := memory.NewVolatile()
	registry := mux.NewRegistry()
	tracker := presence.New(volatile, registry, clock.New(), nil)

	carolConn := connectOnline(registry, "WSP-CCCC-CCCC-CCCC")

	require.NoError(t, tracker.Online(ctx, "WSP-AAAA-AAAA-AAAA", "conn-a", "ios", true))

	assert.Empty(t, carolConn.Sent())
}

func TestTracker_Online_HonorsShareFlag(t *testing.T) {
	ctx := context.Background()
	volatile := memory.NewVolatile()
	registry := mux.NewRegistry()
	tracker := presence.New(volatile, registry, clock.New(), nil)

	bobConn := connectOnline(registry, "WSP-BBBB-BBBB-BBBB")
	require.NoError(t, volatile.AppendPending(ctx, "WSP-BBBB-BBBB-BBBB", store.PendingEnvelope{
		Sequence: 1, MessageID: "m-1", From: "WSP-AAAA-AAAA-AAAA", Timestamp: time.Now().UnixMilli(),
	}, time.Hour, 100))

	require.NoError(t, tracker.Online(ctx, "WSP-AAAA-AAAA-AAAA", "conn-a", "ios", false))

	assert.Empty(t, bobConn.Sent())
}

func TestTracker_Offline_BroadcastsLastSeen(t *testing.T) {
	ctx := context.Background()
	volatile := memory.NewVolatile()
	registry := mux.NewRegistry()
	tracker := presence.New(volatile, registry, clock.New(), nil)

	bobConn := connectOnline(registry, "WSP-BBBB-BBBB-BBBB")
	require.NoError(t, volatile.AppendPending(ctx, "WSP-BBBB-BBBB-BBBB", store.PendingEnvelope{
		Sequence: 1, MessageID: "m-1", From: "WSP-AAAA-AAAA-AAAA", Timestamp: time.Now().UnixMilli(),
	}, time.Hour, 100))
	require.NoError(t, tracker.Online(ctx, "WSP-AAAA-AAAA-AAAA", "conn-a", "ios", true))
	bobConn.Sent()

	require.NoError(t, tracker.Offline(ctx, "WSP-AAAA-AAAA-AAAA"))

	frames := bobConn.Sent()
	require.Len(t, frames, 1)
	assert.Equal(t, wire.TypePresenceUpdate, frames[0].Type)
}
