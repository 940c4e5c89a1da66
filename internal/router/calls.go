package router

import (
	"context"
	"time"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/cryptoverify"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

// CallStateTTL is how long a CallData idempotency record survives --
// long enough to cover a ringing window, short enough not to block a
// retried callId after the call has genuinely ended.
const CallStateTTL = 5 * time.Minute

// signedCallFrame is the shared shape of every call frame that carries a
// signature, used to run it through the same canonical/signature check
// as send_message (spec §4.8: "routed identically to send_message").
type signedCallFrame struct {
	CallID     string
	From       string
	To         string
	Timestamp  int64
	Nonce      string
	Ciphertext string
	Signature  string
}

func (r *Router) verifyCallSignature(ctx context.Context, sess *store.Session, f signedCallFrame, msgType string) (*store.Device, error) {
	if f.From != sess.WhisperID {
		return nil, whisperr.New(wire.CodeAuthFailed, "from does not match authenticated session")
	}
	now := r.clock.Now().UnixMilli()
	if diff := now - f.Timestamp; diff > TimestampSkew.Milliseconds() || diff < -TimestampSkew.Milliseconds() {
		return nil, whisperr.New(wire.CodeInvalidTimestamp, "timestamp outside acceptable skew")
	}
	sender, err := r.durable.GetDevice(ctx, f.From)
	if err != nil {
		return nil, whisperr.Internal("look up sender device", err)
	}
	canonical := cryptoverify.CanonicalMessage(msgType, f.CallID, f.From, f.To, f.Timestamp, f.Nonce, f.Ciphertext)
	if err := cryptoverify.VerifySignature(sender.SignPublicKey, canonical, f.Signature); err != nil {
		return nil, whisperr.New(wire.CodeAuthFailed, "signature verification failed")
	}
	return sender, nil
}

// CallInitiate handles call_initiate: idempotent on callId, delivers
// call_incoming online or pushes a call-specific wake-up offline.
func (r *Router) CallInitiate(ctx context.Context, sess *store.Session, msg wire.CallInitiate) error {
	sender, err := r.verifyCallSignature(ctx, sess, signedCallFrame{
		CallID: msg.CallID, From: msg.From, To: msg.To, Timestamp: msg.Timestamp,
		Nonce: msg.Nonce, Ciphertext: msg.Ciphertext, Signature: msg.Signature,
	}, wire.TypeCallInitiate)
	if err != nil {
		return err
	}

	created, err := r.volatile.PutCallIfAbsent(ctx, store.Call{
		CallID:    msg.CallID,
		Initiator: msg.From,
		Recipient: msg.To,
		State:     store.CallInitiating,
		IsVideo:   msg.IsVideo,
		CreatedAt: r.clock.Now(),
	}, CallStateTTL)
	if err != nil {
		return whisperr.Internal("put call state", err)
	}
	if !created {
		return nil
	}

	incoming := wire.CallIncoming{
		CallID:              msg.CallID,
		CallerWhisperID:     msg.From,
		IsVideo:             msg.IsVideo,
		Timestamp:           msg.Timestamp,
		Ciphertext:          msg.Ciphertext,
		SenderEncPublicKey:  encodeB64(sender.EncPublicKey),
		SenderSignPublicKey: encodeB64(sender.SignPublicKey),
	}

	if conn, ok := r.conns.Lookup(msg.To); ok {
		conn.EnqueueTyped(wire.TypeCallIncoming, "", incoming)
		return nil
	}

	recipientDevice, err := r.durable.GetDevice(ctx, msg.To)
	if err != nil || recipientDevice.PushToken == "" {
		return nil
	}
	if err := r.pusher.Push(ctx, adapters.PushToken{Token: recipientDevice.PushToken, VoipPush: true}, adapters.PushPayload{
		WhisperID: msg.To, MsgType: wire.TypeCallInitiate,
	}); err != nil && r.log != nil {
		r.log.Warn("call push notification failed", logger.Error(err), logger.String("to", msg.To))
	}
	return nil
}

// forwardCallFrame is the common body of answer/ice-candidate/end: verify,
// update call state if applicable, forward to the other party if online.
func (r *Router) forwardCallFrame(ctx context.Context, sess *store.Session, f signedCallFrame, msgType, outType string, payload any, newState store.CallState) error {
	if _, err := r.verifyCallSignature(ctx, sess, f, msgType); err != nil {
		return err
	}
	if newState != "" {
		if err := r.volatile.UpdateCallState(ctx, f.CallID, newState); err != nil && err != store.ErrNotFound && r.log != nil {
			r.log.Warn("update call state", logger.Error(err), logger.String("callId", f.CallID))
		}
	}
	if conn, ok := r.conns.Lookup(f.To); ok {
		conn.EnqueueTyped(outType, "", payload)
	}
	return nil
}

func (r *Router) CallAnswer(ctx context.Context, sess *store.Session, msg wire.CallAnswer) error {
	return r.forwardCallFrame(ctx, sess, signedCallFrame{
		CallID: msg.CallID, From: msg.From, To: msg.To, Timestamp: msg.Timestamp,
		Nonce: msg.Nonce, Ciphertext: msg.Ciphertext, Signature: msg.Signature,
	}, wire.TypeCallAnswer, wire.TypeCallAnswer, msg, store.CallAnswered)
}

func (r *Router) CallICECandidate(ctx context.Context, sess *store.Session, msg wire.CallICECandidate) error {
	return r.forwardCallFrame(ctx, sess, signedCallFrame{
		CallID: msg.CallID, From: msg.From, To: msg.To, Timestamp: msg.Timestamp,
		Nonce: msg.Nonce, Ciphertext: msg.Ciphertext, Signature: msg.Signature,
	}, wire.TypeCallICECandiate, wire.TypeCallICECandiate, msg, "")
}

func (r *Router) CallEnd(ctx context.Context, sess *store.Session, msg wire.CallEnd) error {
	return r.forwardCallFrame(ctx, sess, signedCallFrame{
		CallID: msg.CallID, From: msg.From, To: msg.To, Timestamp: msg.Timestamp,
		Nonce: msg.Nonce, Ciphertext: msg.Ciphertext, Signature: msg.Signature,
	}, wire.TypeCallEnd, wire.TypeCallEnd, msg, store.CallEnded)
}
