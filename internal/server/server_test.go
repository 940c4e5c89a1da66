package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/config"
	"github.com/whisper2/server/internal/cryptoverify"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/store/memory"
	"github.com/whisper2/server/internal/wire"
)

func newTestServer() *Server {
	cfg := &config.Config{}
	return New(cfg, memory.NewDurable(), memory.NewVolatile(),
		adapters.NoopPusher{}, adapters.LocalPresigner{}, adapters.StaticTURNMinter{}, nil)
}

func dispatchFrame(t *testing.T, srv *Server, ctx context.Context, c *mux.Conn, frameType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	srv.dispatcher.Dispatch(ctx, c, wire.Frame{Type: frameType, Payload: raw})
}

func decodePayload(t *testing.T, f wire.Frame, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Payload, v))
}

func randomB64(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	return base64.StdEncoding.EncodeToString(buf)
}

func TestDispatch_RegisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := mux.NewLoopbackConn()
	srv := newTestServer()
	srv.conns.Track(c)

	encPubB64 := randomB64(32)
	signPub, signPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signPubB64 := base64.StdEncoding.EncodeToString(signPub)

	deviceID := "11111111-1111-4111-8111-111111111111"
	begin := wire.RegisterBegin{ProtocolVersion: wire.ProtocolVersion, CryptoVersion: wire.CryptoVersion, DeviceID: deviceID, Platform: "ios"}
	dispatchFrame(t, srv, ctx, c, wire.TypeRegisterBegin, begin)

	sent := c.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, wire.TypeRegisterChlg, sent[0].Type)

	var challenge wire.RegisterChallenge
	decodePayload(t, sent[0], &challenge)

	canonical := cryptoverify.CanonicalRegisterProof(challenge.ChallengeID, deviceID, "ios", encPubB64, signPubB64)
	digest := sha256.Sum256(canonical)
	sig := ed25519.Sign(signPriv, digest[:])

	proof := wire.RegisterProof{
		ChallengeID: challenge.ChallengeID, DeviceID: deviceID, Platform: "ios",
		EncPublicKey: encPubB64, SignPublicKey: signPubB64,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}
	dispatchFrame(t, srv, ctx, c, wire.TypeRegisterProof, proof)

	sent = c.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, wire.TypeRegisterAck, sent[0].Type)

	var ack wire.RegisterAck
	decodePayload(t, sent[0], &ack)
	require.True(t, ack.Success)
	require.NotEmpty(t, ack.SessionToken)
	require.NotNil(t, c.Session())

	conn, ok := srv.conns.Lookup(ack.WhisperID)
	require.True(t, ok)
	require.Equal(t, c, conn)
}

func TestDispatch_UnauthenticatedSendMessageRejected(t *testing.T) {
	ctx := context.Background()
	c := mux.NewLoopbackConn()
	srv := newTestServer()
	srv.conns.Track(c)

	dispatchFrame(t, srv, ctx, c, wire.TypeSendMessage, wire.SendMessage{
		MessageID: "m1", From: "WSP-AAAA-AAAA-AAAA",
		To:      "WSP-BBBB-BBBB-BBBB",
		MsgType: "text", Timestamp: time.Now().UnixMilli(), Nonce: randomB64(24), Ciphertext: randomB64(8), Signature: randomB64(64),
	})

	sent := c.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, wire.TypeError, sent[0].Type)
	var payload wire.ErrorPayload
	decodePayload(t, sent[0], &payload)
	require.Equal(t, wire.CodeNotRegistered, payload.Code)
}

func TestDispatch_PingReturnsPong(t *testing.T) {
	ctx := context.Background()
	c := mux.NewLoopbackConn()
	srv := newTestServer()
	srv.conns.Track(c)

	dispatchFrame(t, srv, ctx, c, wire.TypePing, wire.Ping{Timestamp: 123})

	sent := c.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, wire.TypePong, sent[0].Type)
}

func TestDispatch_MalformedPayloadRejected(t *testing.T) {
	ctx := context.Background()
	c := mux.NewLoopbackConn()
	srv := newTestServer()
	srv.conns.Track(c)

	srv.dispatcher.Dispatch(ctx, c, wire.Frame{Type: wire.TypeRegisterBegin, Payload: []byte("not json")})

	sent := c.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, wire.TypeError, sent[0].Type)
	var payload wire.ErrorPayload
	decodePayload(t, sent[0], &payload)
	require.Equal(t, wire.CodeInvalidPayload, payload.Code)
}

func TestShutdown_BroadcastsForceLogoutToLiveConnections(t *testing.T) {
	c := mux.NewLoopbackConn()
	srv := newTestServer()
	srv.conns.Track(c)

	// The loopback conn is never removed from the registry (nothing
	// drives its read pump in this test), so bound the parent context
	// tightly: Shutdown's internal drain timeout is the min of its own
	// constant and the context deadline, so this keeps the test from
	// running the full GracefulDrainTimeout.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	sent := c.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, wire.TypeForceLogout, sent[0].Type)
}

func randomHex(n int) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, n)
	rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = hexDigits[int(b)%len(hexDigits)]
	}
	return string(out)
}
