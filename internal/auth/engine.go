// Package auth implements the registration and session state machine of
// spec §4.3: register_begin/register_challenge/register_proof/register_ack,
// session_refresh, and logout/force_logout.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/cryptoverify"
	"github.com/whisper2/server/internal/idkeygen"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

const (
	ChallengeTTL = 60 * time.Second
	SessionTTL   = 7 * 24 * time.Hour
)

// ConnNotifier lets the auth engine reach into the connection multiplexer
// without importing it; *mux.Registry satisfies this interface, and
// neither package imports the other.
type ConnNotifier interface {
	// ForceLogout sends a force_logout frame to whichever connection is
	// currently bound to whisperID and closes it. Returns false if none
	// was bound.
	ForceLogout(whisperID, reason string) bool
}

// Engine holds the dependencies needed to run the registration and
// session lifecycle. All methods are safe for concurrent use; the
// underlying stores provide the required atomicity.
type Engine struct {
	durable  store.Durable
	volatile store.Volatile
	conns    ConnNotifier
	clock    clock.Clock
	log      logger.Logger
}

func New(durable store.Durable, volatile store.Volatile, conns ConnNotifier, clk clock.Clock, log logger.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Engine{durable: durable, volatile: volatile, conns: conns, clock: clk, log: log}
}

// Begin handles register_begin: mints a single-use challenge.
func (e *Engine) Begin(ctx context.Context, req wire.RegisterBegin) (*wire.RegisterChallenge, error) {
	if req.DeviceID == "" || req.Platform == "" {
		return nil, whisperr.New(wire.CodeInvalidPayload, "deviceId and platform are required")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, whisperr.Internal("generate challenge", err)
	}
	id := uuid.NewString()
	expiresAt := e.clock.Now().Add(ChallengeTTL)

	if err := e.volatile.PutChallenge(ctx, store.Challenge{
		ID:        id,
		Bytes:     raw,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, whisperr.Internal("store challenge", err)
	}

	return &wire.RegisterChallenge{
		ChallengeID: id,
		Challenge:   encodeB64(raw),
		ExpiresAt:   expiresAt.UnixMilli(),
	}, nil
}

// Proof handles register_proof: consumes the challenge, verifies the
// signature, mints or recovers the identity, and swaps in a fresh session,
// forcing out any previously connected device for the same identity.
func (e *Engine) Proof(ctx context.Context, req wire.RegisterProof) (*wire.RegisterAck, error) {
	if req.ChallengeID == "" || req.DeviceID == "" || req.Platform == "" ||
		req.EncPublicKey == "" || req.SignPublicKey == "" || req.Signature == "" {
		return nil, whisperr.New(wire.CodeInvalidPayload, "missing required register_proof field")
	}

	if _, err := e.volatile.ConsumeChallenge(ctx, req.ChallengeID); err != nil {
		return nil, whisperr.New(wire.CodeAuthFailed, "unknown or expired challenge")
	}

	canonical := cryptoverify.CanonicalRegisterProof(req.ChallengeID, req.DeviceID, req.Platform, req.EncPublicKey, req.SignPublicKey)
	if err := cryptoverify.VerifySignatureB64Key(req.SignPublicKey, canonical, req.Signature); err != nil {
		return nil, whisperr.New(wire.CodeAuthFailed, "signature verification failed")
	}

	encKey, err := cryptoverify.DecodeStrictBase64(req.EncPublicKey)
	if err != nil || len(encKey) != 32 {
		return nil, whisperr.New(wire.CodeInvalidPayload, "encPublicKey must be 32 bytes")
	}
	signKey, err := cryptoverify.DecodeStrictBase64(req.SignPublicKey)
	if err != nil || len(signKey) != 32 {
		return nil, whisperr.New(wire.CodeInvalidPayload, "signPublicKey must be 32 bytes")
	}

	whisperID := idkeygen.Normalize(req.WhisperID)
	if whisperID == "" {
		whisperID, err = idkeygen.New(encKey, signKey)
		if err != nil {
			return nil, whisperr.Internal("mint whisper id", err)
		}
	} else if !idkeygen.Valid(whisperID) {
		return nil, whisperr.New(wire.CodeInvalidPayload, "malformed whisperId")
	}

	if identity, err := e.durable.GetIdentity(ctx, whisperID); err == nil && identity.Status == store.IdentityBanned {
		return nil, whisperr.New(wire.CodeUserBanned, "identity is banned")
	} else if err != nil && err != store.ErrNotFound {
		return nil, whisperr.Internal("look up identity", err)
	}

	now := e.clock.Now()
	_, err = e.durable.UpsertIdentityAndDevice(ctx, whisperID, store.Device{
		DeviceID:      req.DeviceID,
		Platform:      req.Platform,
		EncPublicKey:  encKey,
		SignPublicKey: signKey,
		PushToken:     req.PushToken,
		VoipToken:     req.VoipToken,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, whisperr.Internal("persist device", err)
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, whisperr.Internal("mint session token", err)
	}
	expiresAt := now.Add(SessionTTL)
	previous, err := e.volatile.SwapSession(ctx, store.Session{
		Token:     token,
		WhisperID: whisperID,
		DeviceID:  req.DeviceID,
		Platform:  req.Platform,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, whisperr.Internal("install session", err)
	}

	if previous != nil && e.conns != nil {
		if !e.conns.ForceLogout(whisperID, "another_device_registered") {
			e.log.Warn("no connection bound to previous session during force logout",
				logger.String("whisperId", whisperID))
		}
	}

	return &wire.RegisterAck{
		Success:          true,
		WhisperID:        whisperID,
		SessionToken:     token,
		SessionExpiresAt: expiresAt.UnixMilli(),
		ServerTime:       now.UnixMilli(),
	}, nil
}

// Refresh handles session_refresh: extends expiry by SessionTTL without
// re-challenging, provided the token is still live.
func (e *Engine) Refresh(ctx context.Context, token string) (*store.Session, error) {
	sess, err := e.volatile.GetSession(ctx, token)
	if err != nil {
		return nil, whisperr.New(wire.CodeAuthFailed, "session not found or expired")
	}
	newExpiry := e.clock.Now().Add(SessionTTL)
	if err := e.volatile.RefreshSession(ctx, token, newExpiry); err != nil {
		return nil, whisperr.Internal("refresh session", err)
	}
	sess.ExpiresAt = newExpiry
	return sess, nil
}

// Logout handles logout: revokes the session atomically.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if err := e.volatile.RevokeSession(ctx, token); err != nil {
		return whisperr.Internal("revoke session", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its live session, used by the
// HTTP API's bearer-token middleware.
func (e *Engine) Authenticate(ctx context.Context, token string) (*store.Session, error) {
	sess, err := e.volatile.GetSession(ctx, token)
	if err == store.ErrNotFound {
		return nil, whisperr.New(wire.CodeNotRegistered, "no live session for token")
	}
	if err != nil {
		return nil, whisperr.Internal("look up session", err)
	}
	return sess, nil
}

func newSessionToken() (string, error) {
	raw := make([]byte, 36)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random session bytes: %w", err)
	}
	return encodeB64URL(raw), nil
}
