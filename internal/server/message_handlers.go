package server

import (
	"context"

	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

func (d *Dispatcher) handleSendMessage(ctx context.Context, c *mux.Conn, frame wire.Frame, sess *store.Session, msg wire.SendMessage) {
	accepted, err := d.router.SendMessage(ctx, sess, msg)
	if err != nil {
		d.sendErr(c, frame.RequestID, err)
		return
	}
	c.EnqueueTyped(wire.TypeMessageAccepted, frame.RequestID, accepted)
}

func (d *Dispatcher) handleFetchPending(ctx context.Context, c *mux.Conn, frame wire.Frame, sess *store.Session, req wire.FetchPending) {
	if err := d.router.FetchPending(ctx, c, sess, req); err != nil {
		d.sendErr(c, frame.RequestID, err)
	}
}

func (d *Dispatcher) handleDeliveryReceipt(ctx context.Context, c *mux.Conn, frame wire.Frame, sess *store.Session, receipt wire.DeliveryReceipt) {
	if err := d.router.DeliveryReceipt(ctx, sess, receipt); err != nil {
		d.sendErr(c, frame.RequestID, err)
	}
}

// handleTyping is forwarded ephemerally: no receipts, no persistence,
// best-effort only to a currently-connected recipient.
func (d *Dispatcher) handleTyping(c *mux.Conn, sess *store.Session, msg wire.Typing) {
	if sess == nil {
		return
	}
	if peer, ok := d.conns.Lookup(msg.To); ok {
		peer.EnqueueTyped(wire.TypeTyping, "", wire.Typing{To: sess.WhisperID, IsTyping: msg.IsTyping})
	}
}

func (d *Dispatcher) handleTurnCredentials(ctx context.Context, c *mux.Conn, frame wire.Frame) {
	creds, err := d.turn.Credentials(ctx, "whisper2")
	if err != nil {
		d.sendErr(c, frame.RequestID, err)
		return
	}
	c.EnqueueTyped(wire.TypeTurnCredentials, frame.RequestID, wire.TurnCredentialsResponse{
		URLs: creds.URLs, Username: creds.Username, Credential: creds.Credential, TTL: int64(creds.TTL.Seconds()),
	})
}
