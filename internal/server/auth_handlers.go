package server

import (
	"context"

	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

func (d *Dispatcher) handleRegisterBegin(ctx context.Context, c *mux.Conn, frame wire.Frame, req wire.RegisterBegin) {
	challenge, err := d.auth.Begin(ctx, req)
	if err != nil {
		d.sendErr(c, frame.RequestID, err)
		return
	}
	c.EnqueueTyped(wire.TypeRegisterChlg, frame.RequestID, challenge)
}

func (d *Dispatcher) handleRegisterProof(ctx context.Context, c *mux.Conn, frame wire.Frame, req wire.RegisterProof) {
	ack, err := d.auth.Proof(ctx, req)
	if err != nil {
		d.sendErr(c, frame.RequestID, err)
		return
	}
	c.SetSession(&store.Session{
		Token:     ack.SessionToken,
		WhisperID: ack.WhisperID,
		DeviceID:  req.DeviceID,
		Platform:  req.Platform,
	})
	d.conns.Bind(ack.WhisperID, c)
	c.EnqueueTyped(wire.TypeRegisterAck, frame.RequestID, ack)

	if err := d.presence.Online(ctx, ack.WhisperID, c.ID, req.Platform, true); err != nil && d.log != nil {
		d.log.Warn("mark presence online", logger.Error(err), logger.String("whisperId", ack.WhisperID))
	}
}

func (d *Dispatcher) handleSessionRefresh(ctx context.Context, c *mux.Conn, frame wire.Frame, req wire.SessionRefresh) {
	sess, err := d.auth.Refresh(ctx, req.SessionToken)
	if err != nil {
		d.sendErr(c, frame.RequestID, err)
		return
	}
	c.SetSession(sess)
	d.conns.Bind(sess.WhisperID, c)
	c.EnqueueTyped(wire.TypeRegisterAck, frame.RequestID, wire.RegisterAck{
		Success: true, WhisperID: sess.WhisperID, SessionToken: sess.Token,
		SessionExpiresAt: sess.ExpiresAt.UnixMilli(),
	})

	if err := d.presence.Online(ctx, sess.WhisperID, c.ID, sess.Platform, true); err != nil && d.log != nil {
		d.log.Warn("mark presence online", logger.Error(err), logger.String("whisperId", sess.WhisperID))
	}
}

func (d *Dispatcher) handleLogout(ctx context.Context, c *mux.Conn, frame wire.Frame, sess *store.Session) {
	if sess == nil {
		c.SendError(frame.RequestID, wire.CodeNotRegistered, "no live session", 0)
		return
	}
	if err := d.auth.Logout(ctx, sess.Token); err != nil {
		d.sendErr(c, frame.RequestID, err)
		return
	}
	if err := d.presence.Offline(ctx, sess.WhisperID); err != nil && d.log != nil {
		d.log.Warn("mark presence offline", logger.Error(err), logger.String("whisperId", sess.WhisperID))
	}
	c.Close()
}
