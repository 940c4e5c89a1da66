// Package router implements the message routing pipeline of spec §4.5:
// the ordered integrity checks, exactly-once-per-accept delivery, the
// offline pending queue, and delivery-receipt forwarding.
package router

import (
	"context"
	"time"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/cryptoverify"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

const (
	TimestampSkew  = 10 * time.Minute
	MessageIDTTL   = 24 * time.Hour
	PendingTTL     = 72 * time.Hour
	PendingMaxLen  = 500
	FetchPendingMax = 100
)

// Router wires the stores, the connection registry, and the push
// adapter together to implement send_message, fetch_pending, and
// delivery_receipt.
type Router struct {
	durable  store.Durable
	volatile store.Volatile
	conns    *mux.Registry
	pusher   adapters.Pusher
	clock    clock.Clock
	log      logger.Logger
}

func New(durable store.Durable, volatile store.Volatile, conns *mux.Registry, pusher adapters.Pusher, clk clock.Clock, log logger.Logger) *Router {
	if clk == nil {
		clk = clock.New()
	}
	if pusher == nil {
		pusher = adapters.NoopPusher{Log: log}
	}
	return &Router{durable: durable, volatile: volatile, conns: conns, pusher: pusher, clock: clk, log: log}
}

// SendMessage runs the ordered checks of spec §4.5 and returns the
// message_accepted payload to send back to the sender. Delivery (online
// write or offline enqueue) happens as a side effect before returning.
func (r *Router) SendMessage(ctx context.Context, sess *store.Session, msg wire.SendMessage) (*wire.MessageAccepted, error) {
	if msg.MessageID == "" || msg.To == "" || msg.MsgType == "" || msg.Nonce == "" || msg.Ciphertext == "" || msg.Signature == "" {
		return nil, whisperr.New(wire.CodeInvalidPayload, "missing required send_message field")
	}
	if msg.From != sess.WhisperID {
		return nil, whisperr.New(wire.CodeAuthFailed, "from does not match authenticated session")
	}

	now := r.clock.Now().UnixMilli()
	if diff := now - msg.Timestamp; diff > TimestampSkew.Milliseconds() || diff < -TimestampSkew.Milliseconds() {
		return nil, whisperr.New(wire.CodeInvalidTimestamp, "timestamp outside acceptable skew")
	}

	recipient, err := r.durable.GetIdentity(ctx, msg.To)
	if err == store.ErrNotFound {
		return nil, whisperr.New(wire.CodeNotFound, "recipient does not exist")
	}
	if err != nil {
		return nil, whisperr.Internal("look up recipient", err)
	}
	if recipient.Status == store.IdentityBanned {
		return nil, whisperr.New(wire.CodeForbidden, "recipient is banned")
	}

	sender, err := r.durable.GetDevice(ctx, msg.From)
	if err != nil {
		return nil, whisperr.Internal("look up sender device", err)
	}
	canonical := cryptoverify.CanonicalMessage(msg.MsgType, msg.MessageID, msg.From, msg.To, msg.Timestamp, msg.Nonce, msg.Ciphertext)
	if err := cryptoverify.VerifySignature(sender.SignPublicKey, canonical, msg.Signature); err != nil {
		return nil, whisperr.New(wire.CodeAuthFailed, "signature verification failed")
	}

	reserved, err := r.volatile.ReserveMessageID(ctx, msg.To, msg.MessageID, MessageIDTTL)
	if err != nil {
		return nil, whisperr.Internal("reserve message id", err)
	}
	accepted := &wire.MessageAccepted{MessageID: msg.MessageID, Status: "accepted"}
	if !reserved {
		return accepted, nil
	}

	r.deliver(ctx, sender, msg)
	return accepted, nil
}

func (r *Router) deliver(ctx context.Context, sender *store.Device, msg wire.SendMessage) {
	if msg.Attachment != nil {
		if err := r.durable.SetAttachmentRecipient(ctx, msg.Attachment.ObjectKey, msg.To); err != nil && r.log != nil {
			r.log.Warn("record attachment recipient", logger.Error(err), logger.String("objectKey", msg.Attachment.ObjectKey))
		}
	}

	received := wire.MessageReceived{
		MessageID:           msg.MessageID,
		From:                msg.From,
		MsgType:             msg.MsgType,
		Timestamp:           msg.Timestamp,
		Nonce:               msg.Nonce,
		Ciphertext:          msg.Ciphertext,
		Signature:           msg.Signature,
		SenderEncPublicKey:  encodeB64(sender.EncPublicKey),
		SenderSignPublicKey: encodeB64(sender.SignPublicKey),
		Attachment:          msg.Attachment,
	}

	if conn, ok := r.conns.Lookup(msg.To); ok {
		conn.EnqueueTyped(wire.TypeMessageReceived, "", received)
		senderConn, senderOnline := r.conns.Lookup(msg.From)
		if senderOnline {
			senderConn.EnqueueTyped(wire.TypeMessageDelivered, "", wire.MessageDelivered{
				MessageID: msg.MessageID,
				Status:    "delivered",
				Timestamp: r.clock.Now().UnixMilli(),
			})
		}
		return
	}

	env := store.PendingEnvelope{
		MessageID:            msg.MessageID,
		From:                 msg.From,
		MsgType:              msg.MsgType,
		Timestamp:            msg.Timestamp,
		Nonce:                decodeB64(msg.Nonce),
		Ciphertext:           decodeB64(msg.Ciphertext),
		Signature:            decodeB64(msg.Signature),
		SenderEncPublicKey:   sender.EncPublicKey,
		SenderSignPublicKey:  sender.SignPublicKey,
	}
	if msg.Attachment != nil {
		env.AttachmentObjectKey = msg.Attachment.ObjectKey
		env.AttachmentFileKeyBox = msg.Attachment.FileKeyBox
	}
	if err := r.volatile.AppendPending(ctx, msg.To, env, PendingTTL, PendingMaxLen); err != nil {
		if r.log != nil {
			r.log.Error("append pending envelope", logger.Error(err), logger.String("to", msg.To))
		}
		return
	}

	recipientDevice, err := r.durable.GetDevice(ctx, msg.To)
	if err != nil || recipientDevice.PushToken == "" {
		return
	}
	if err := r.pusher.Push(ctx, adapters.PushToken{Token: recipientDevice.PushToken}, adapters.PushPayload{
		WhisperID: msg.To, MsgType: msg.MsgType,
	}); err != nil && r.log != nil {
		r.log.Warn("push notification failed", logger.Error(err), logger.String("to", msg.To))
	}
}

// FetchPending implements the offline two-phase drain: read, write to
// the requester's own connection (the one that sent fetch_pending),
// delete only after that write succeeds.
func (r *Router) FetchPending(ctx context.Context, c *mux.Conn, sess *store.Session, req wire.FetchPending) error {
	limit := req.Limit
	if limit <= 0 || limit > FetchPendingMax {
		limit = FetchPendingMax
	}
	envs, nextCursor, err := r.volatile.ListPending(ctx, sess.WhisperID, req.Cursor, limit)
	if err != nil {
		return whisperr.Internal("list pending", err)
	}
	if len(envs) == 0 {
		_ = c.EnqueueTypedSync(ctx, wire.TypePendingMessages, "", wire.PendingMessages{})
		return nil
	}

	messages := make([]wire.MessageReceived, 0, len(envs))
	var maxSeq int64
	for _, env := range envs {
		messages = append(messages, wire.MessageReceived{
			MessageID:           env.MessageID,
			From:                env.From,
			MsgType:             env.MsgType,
			Timestamp:           env.Timestamp,
			Nonce:               encodeB64(env.Nonce),
			Ciphertext:          encodeB64(env.Ciphertext),
			Signature:           encodeB64(env.Signature),
			SenderEncPublicKey:  encodeB64(env.SenderEncPublicKey),
			SenderSignPublicKey: encodeB64(env.SenderSignPublicKey),
			Attachment:          attachmentRef(env),
		})
		if env.Sequence > maxSeq {
			maxSeq = env.Sequence
		}
	}

	if err := c.EnqueueTypedSync(ctx, wire.TypePendingMessages, "", wire.PendingMessages{Messages: messages, NextCursor: nextCursor}); err != nil {
		if r.log != nil {
			r.log.Warn("write pending messages failed, leaving queue intact", logger.Error(err), logger.String("whisperId", sess.WhisperID))
		}
		return nil
	}

	if err := r.volatile.DeletePending(ctx, sess.WhisperID, maxSeq); err != nil && r.log != nil {
		r.log.Error("delete drained pending envelopes", logger.Error(err), logger.String("whisperId", sess.WhisperID))
	}
	return nil
}

func attachmentRef(env store.PendingEnvelope) *wire.AttachmentRef {
	if env.AttachmentObjectKey == "" {
		return nil
	}
	return &wire.AttachmentRef{ObjectKey: env.AttachmentObjectKey, FileKeyBox: env.AttachmentFileKeyBox}
}

// DeliveryReceipt forwards a receipt verbatim to the original sender, if
// online. The router never stores per-message delivery status.
func (r *Router) DeliveryReceipt(ctx context.Context, sess *store.Session, receipt wire.DeliveryReceipt) error {
	if receipt.From != sess.WhisperID {
		return whisperr.New(wire.CodeAuthFailed, "from does not match authenticated session")
	}
	if conn, ok := r.conns.Lookup(receipt.To); ok {
		conn.EnqueueTyped(wire.TypeDeliveryReceipt, "", receipt)
	}
	return nil
}
