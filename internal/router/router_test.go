package router_test

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/cryptoverify"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/router"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/store/memory"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

type fixture struct {
	durable  *memory.Durable
	volatile *memory.Volatile
	registry *mux.Registry
	router   *router.Router
	alicePriv ed25519.PrivateKey
	alicePub  ed25519.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	durable := memory.NewDurable()
	volatile := memory.NewVolatile()
	registry := mux.NewRegistry()
	r := router.New(durable, volatile, registry, nil, clock.New(), nil)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = durable.UpsertIdentityAndDevice(context.Background(), "WSP-AAAA-AAAA-AAAA", store.Device{
		DeviceID: "alice-device", Platform: "android",
		EncPublicKey: make([]byte, 32), SignPublicKey: pub,
	})
	require.NoError(t, err)

	return &fixture{durable: durable, volatile: volatile, registry: registry, router: r, alicePriv: priv, alicePub: pub}
}

func (f *fixture) connectOnline(whisperID string) *mux.Conn {
	c := mux.NewLoopbackConn()
	f.registry.Track(c)
	f.registry.Bind(whisperID, c)
	return c
}

func signedMessage(t *testing.T, priv ed25519.PrivateKey, messageID, from, to string, ts int64) wire.SendMessage {
	t.Helper()
	nonce := base64.StdEncoding.EncodeToString(make([]byte, 24))
	ciphertext := base64.StdEncoding.EncodeToString([]byte("hello"))
	canonical := cryptoverify.CanonicalMessage("text", messageID, from, to, ts, nonce, ciphertext)
	digest := sha256.Sum256(canonical)
	sig := ed25519.Sign(priv, digest[:])
	return wire.SendMessage{
		MessageID: messageID, From: from, To: to, MsgType: "text", Timestamp: ts,
		Nonce: nonce, Ciphertext: ciphertext, Signature: base64.StdEncoding.EncodeToString(sig),
	}
}

func TestSendMessage_OnlineDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.durable.UpsertIdentityAndDevice(ctx, "WSP-BBBB-BBBB-BBBB", store.Device{
		DeviceID: "bob-device", Platform: "ios", EncPublicKey: make([]byte, 32), SignPublicKey: make([]byte, 32),
	})
	require.NoError(t, err)

	aliceConn := f.connectOnline("WSP-AAAA-AAAA-AAAA")
	f.connectOnline("WSP-BBBB-BBBB-BBBB")

	sess := &store.Session{WhisperID: "WSP-AAAA-AAAA-AAAA"}
	msg := signedMessage(t, f.alicePriv, "m-1", "WSP-AAAA-AAAA-AAAA", "WSP-BBBB-BBBB-BBBB", time.Now().UnixMilli())

	accepted, err := f.router.SendMessage(ctx, sess, msg)
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status)

	frames := aliceConn.Sent()
	require.Len(t, frames, 1)
	assert.Equal(t, wire.TypeMessageDelivered, frames[0].Type)
}

func TestSendMessage_OfflineQueueing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.durable.UpsertIdentityAndDevice(ctx, "WSP-BBBB-BBBB-BBBB", store.Device{
		DeviceID: "bob-device", Platform: "ios", EncPublicKey: make([]byte, 32), SignPublicKey: make([]byte, 32),
	})
	require.NoError(t, err)

	aliceConn := f.connectOnline("WSP-AAAA-AAAA-AAAA")

	sess := &store.Session{WhisperID: "WSP-AAAA-AAAA-AAAA"}
	msg := signedMessage(t, f.alicePriv, "m-2", "WSP-AAAA-AAAA-AAAA", "WSP-BBBB-BBBB-BBBB", time.Now().UnixMilli())

	_, err = f.router.SendMessage(ctx, sess, msg)
	require.NoError(t, err)
	assert.Empty(t, aliceConn.Sent())

	bobSess := &store.Session{WhisperID: "WSP-BBBB-BBBB-BBBB"}
	bobConn := mux.NewLoopbackConn()
	require.NoError(t, f.router.FetchPending(ctx, bobConn, bobSess, wire.FetchPending{Limit: 100}))

	frames := bobConn.Sent()
	require.Len(t, frames, 1)
	assert.Equal(t, wire.TypePendingMessages, frames[0].Type)

	frames2 := bobConn.Sent()
	assert.Empty(t, frames2)

	again, _, err := f.volatile.ListPending(ctx, "WSP-BBBB-BBBB-BBBB", "", 100)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSendMessage_DuplicateAcceptIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.durable.UpsertIdentityAndDevice(ctx, "WSP-BBBB-BBBB-BBBB", store.Device{
		DeviceID: "bob-device", Platform: "ios", EncPublicKey: make([]byte, 32), SignPublicKey: make([]byte, 32),
	})
	require.NoError(t, err)

	bobConn := f.connectOnline("WSP-BBBB-BBBB-BBBB")
	sess := &store.Session{WhisperID: "WSP-AAAA-AAAA-AAAA"}
	msg := signedMessage(t, f.alicePriv, "m-1", "WSP-AAAA-AAAA-AAAA", "WSP-BBBB-BBBB-BBBB", time.Now().UnixMilli())

	_, err = f.router.SendMessage(ctx, sess, msg)
	require.NoError(t, err)
	_, err = f.router.SendMessage(ctx, sess, msg)
	require.NoError(t, err)

	assert.Len(t, bobConn.Sent(), 1)
}

func TestSendMessage_RejectsTimestampSkew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := &store.Session{WhisperID: "WSP-AAAA-AAAA-AAAA"}
	old := time.Now().Add(-20 * time.Minute).UnixMilli()
	msg := signedMessage(t, f.alicePriv, "m-3", "WSP-AAAA-AAAA-AAAA", "WSP-BBBB-BBBB-BBBB", old)

	_, err := f.router.SendMessage(ctx, sess, msg)
	require.Error(t, err)
	werr, ok := whisperr.As(err)
	require.True(t, ok)
	assert.Equal(t, wire.CodeInvalidTimestamp, werr.Code)
}

func TestSendMessage_UnknownRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := &store.Session{WhisperID: "WSP-AAAA-AAAA-AAAA"}
	msg := signedMessage(t, f.alicePriv, "m-4", "WSP-AAAA-AAAA-AAAA", "WSP-ZZZZ-ZZZZ-ZZZZ", time.Now().UnixMilli())

	_, err := f.router.SendMessage(ctx, sess, msg)
	require.Error(t, err)
	werr, ok := whisperr.As(err)
	require.True(t, ok)
	assert.Equal(t, wire.CodeNotFound, werr.Code)
}
