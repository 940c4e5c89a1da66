package auth_test

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/auth"
	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/cryptoverify"
	"github.com/whisper2/server/internal/store/memory"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

type fakeConns struct {
	loggedOut map[string]string
}

func (f *fakeConns) ForceLogout(whisperID, reason string) bool {
	if f.loggedOut == nil {
		f.loggedOut = make(map[string]string)
	}
	f.loggedOut[whisperID] = reason
	return true
}

func newEngine(t *testing.T) (*auth.Engine, *fakeConns) {
	t.Helper()
	durable := memory.NewDurable()
	volatile := memory.NewVolatile()
	conns := &fakeConns{}
	e := auth.New(durable, volatile, conns, clock.NewMock(), nil)
	return e, conns
}

func signProof(t *testing.T, pub ed25519.PublicKey, priv ed25519.PrivateKey, challengeID, deviceID, platform, encPub string) wire.RegisterProof {
	t.Helper()
	signPubB64 := base64.StdEncoding.EncodeToString(pub)
	canonical := cryptoverify.CanonicalRegisterProof(challengeID, deviceID, platform, encPub, signPubB64)
	digest := sha256.Sum256(canonical)
	sig := ed25519.Sign(priv, digest[:])
	return wire.RegisterProof{
		ChallengeID:   challengeID,
		DeviceID:      deviceID,
		Platform:      platform,
		EncPublicKey:  encPub,
		SignPublicKey: signPubB64,
		Signature:     base64.StdEncoding.EncodeToString(sig),
	}
}

func TestEngine_RegistrationRoundTrip(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	chal, err := e.Begin(ctx, wire.RegisterBegin{DeviceID: "device-1", Platform: "android"})
	require.NoError(t, err)
	assert.NotEmpty(t, chal.ChallengeID)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encPub := base64.StdEncoding.EncodeToString(make([]byte, 32))

	proof := signProof(t, pub, priv, chal.ChallengeID, "device-1", "android", encPub)
	ack, err := e.Proof(ctx, proof)
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.NotEmpty(t, ack.WhisperID)
	assert.NotEmpty(t, ack.SessionToken)

	sess, err := e.Authenticate(ctx, ack.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, ack.WhisperID, sess.WhisperID)
}

func TestEngine_Proof_RejectsReplayedChallenge(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	chal, err := e.Begin(ctx, wire.RegisterBegin{DeviceID: "device-1", Platform: "android"})
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encPub := base64.StdEncoding.EncodeToString(make([]byte, 32))
	proof := signProof(t, pub, priv, chal.ChallengeID, "device-1", "android", encPub)

	_, err = e.Proof(ctx, proof)
	require.NoError(t, err)

	_, err = e.Proof(ctx, proof)
	require.Error(t, err)
	werr, ok := whisperr.As(err)
	require.True(t, ok)
	assert.Equal(t, wire.CodeAuthFailed, werr.Code)
}

func TestEngine_Proof_RejectsBadSignature(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	chal, err := e.Begin(ctx, wire.RegisterBegin{DeviceID: "device-1", Platform: "android"})
	require.NoError(t, err)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encPub := base64.StdEncoding.EncodeToString(make([]byte, 32))
	proof := signProof(t, pub, otherPriv, chal.ChallengeID, "device-1", "android", encPub)

	_, err = e.Proof(ctx, proof)
	require.Error(t, err)
}

func TestEngine_SecondDeviceForcesOutFirst(t *testing.T) {
	e, conns := newEngine(t)
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encPub := base64.StdEncoding.EncodeToString(make([]byte, 32))

	chal1, err := e.Begin(ctx, wire.RegisterBegin{DeviceID: "device-1", Platform: "android"})
	require.NoError(t, err)
	proof1 := signProof(t, pub, priv, chal1.ChallengeID, "device-1", "android", encPub)
	ack1, err := e.Proof(ctx, proof1)
	require.NoError(t, err)

	chal2, err := e.Begin(ctx, wire.RegisterBegin{DeviceID: "device-2", Platform: "ios", WhisperID: ack1.WhisperID})
	require.NoError(t, err)
	proof2 := signProof(t, pub, priv, chal2.ChallengeID, "device-2", "ios", encPub)
	proof2.WhisperID = ack1.WhisperID
	ack2, err := e.Proof(ctx, proof2)
	require.NoError(t, err)
	assert.Equal(t, ack1.WhisperID, ack2.WhisperID)

	assert.Equal(t, "another_device_registered", conns.loggedOut[ack1.WhisperID])

	_, err = e.Authenticate(ctx, ack1.SessionToken)
	require.Error(t, err)
	werr, ok := whisperr.As(err)
	require.True(t, ok)
	assert.Equal(t, wire.CodeNotRegistered, werr.Code)
}

func TestEngine_RefreshAndLogout(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encPub := base64.StdEncoding.EncodeToString(make([]byte, 32))

	chal, err := e.Begin(ctx, wire.RegisterBegin{DeviceID: "device-1", Platform: "android"})
	require.NoError(t, err)
	proof := signProof(t, pub, priv, chal.ChallengeID, "device-1", "android", encPub)
	ack, err := e.Proof(ctx, proof)
	require.NoError(t, err)

	sess, err := e.Refresh(ctx, ack.SessionToken)
	require.NoError(t, err)
	assert.False(t, sess.ExpiresAt.IsZero())

	require.NoError(t, e.Logout(ctx, ack.SessionToken))
	_, err = e.Authenticate(ctx, ack.SessionToken)
	require.Error(t, err)
}
