// Package server wires every component -- schema gate, auth engine,
// router, presence tracker, rate limiter, connection registry -- into
// one mux.Dispatcher and runs the websocket and HTTP listeners, in the
// style of the teacher's cmd/test-server wiring (concrete dependencies
// built once at process start, no global singletons besides the logger).
package server

import (
	"context"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/auth"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/mux"
	"github.com/whisper2/server/internal/presence"
	"github.com/whisper2/server/internal/ratelimit"
	"github.com/whisper2/server/internal/router"
	"github.com/whisper2/server/internal/schema"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

// Dispatcher implements mux.Dispatcher: every inbound frame passes
// through the schema gate, a connection/session auth check, a rate
// limit, and is then handed to the component that owns its frame type.
type Dispatcher struct {
	auth     *auth.Engine
	router   *router.Router
	presence *presence.Tracker
	limiter  *ratelimit.Limiter
	turn     adapters.TURNMinter
	conns    *mux.Registry
	log      logger.Logger
}

func NewDispatcher(authEngine *auth.Engine, r *router.Router, pres *presence.Tracker, limiter *ratelimit.Limiter, turn adapters.TURNMinter, conns *mux.Registry, log logger.Logger) *Dispatcher {
	return &Dispatcher{auth: authEngine, router: r, presence: pres, limiter: limiter, turn: turn, conns: conns, log: log}
}

// Dispatch implements mux.Dispatcher. It never blocks for long: every
// branch either returns immediately or delegates to a component method
// bounded by ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, c *mux.Conn, frame wire.Frame) {
	val, fieldErrs, err := schema.Validate(frame.Type, frame.Payload)
	if err != nil {
		c.SendError(frame.RequestID, wire.CodeInvalidPayload, "malformed payload", 0)
		return
	}
	if len(fieldErrs) > 0 {
		c.SendError(frame.RequestID, wire.CodeInvalidPayload, fieldErrs[0].String(), 0)
		return
	}

	sess := c.Session()
	if !wire.PublicTypes[frame.Type] && sess == nil {
		c.SendError(frame.RequestID, wire.CodeNotRegistered, "no live session", 0)
		return
	}

	identity := c.WhisperID()
	if identity == "" {
		identity = c.ID
	}
	if ok, retryAfter := d.limiter.Allow(ctx, identity, rateKeyForType(frame.Type)); !ok {
		c.SendError(frame.RequestID, wire.CodeRateLimited, "rate limit exceeded", int(retryAfter.Seconds()))
		return
	}

	switch frame.Type {
	case wire.TypeRegisterBegin:
		d.handleRegisterBegin(ctx, c, frame, val.(wire.RegisterBegin))
	case wire.TypeRegisterProof:
		d.handleRegisterProof(ctx, c, frame, val.(wire.RegisterProof))
	case wire.TypeSessionRefresh:
		d.handleSessionRefresh(ctx, c, frame, val.(wire.SessionRefresh))
	case wire.TypeLogout:
		d.handleLogout(ctx, c, frame, sess)
	case wire.TypePing:
		c.EnqueueTyped(wire.TypePong, frame.RequestID, wire.Pong{Timestamp: val.(wire.Ping).Timestamp})

	case wire.TypeSendMessage:
		d.handleSendMessage(ctx, c, frame, sess, val.(wire.SendMessage))
	case wire.TypeFetchPending:
		d.handleFetchPending(ctx, c, frame, sess, val.(wire.FetchPending))
	case wire.TypeDeliveryReceipt:
		d.handleDeliveryReceipt(ctx, c, frame, sess, val.(wire.DeliveryReceipt))
	case wire.TypeTyping:
		d.handleTyping(c, sess, val.(wire.Typing))

	case wire.TypeCallInitiate:
		d.handleErr(c, frame, d.router.CallInitiate(ctx, sess, val.(wire.CallInitiate)))
	case wire.TypeCallAnswer:
		d.handleErr(c, frame, d.router.CallAnswer(ctx, sess, val.(wire.CallAnswer)))
	case wire.TypeCallICECandiate:
		d.handleErr(c, frame, d.router.CallICECandidate(ctx, sess, val.(wire.CallICECandidate)))
	case wire.TypeCallEnd:
		d.handleErr(c, frame, d.router.CallEnd(ctx, sess, val.(wire.CallEnd)))

	case wire.TypeTurnCredentials:
		d.handleTurnCredentials(ctx, c, frame)

	default:
		c.SendError(frame.RequestID, wire.CodeInvalidPayload, "unsupported frame type", 0)
	}
}

// rateKeyForType maps a wire frame type onto the ratelimit package's
// coarser action budgets (register_begin and register_proof share the
// "register" budget, call frames other than call_initiate are unmetered
// beyond the default).
func rateKeyForType(frameType string) string {
	switch frameType {
	case wire.TypeRegisterBegin, wire.TypeRegisterProof:
		return "register"
	case wire.TypeSendMessage, wire.TypeFetchPending, wire.TypeCallInitiate, wire.TypeDeliveryReceipt:
		return frameType
	default:
		return frameType
	}
}

func (d *Dispatcher) handleErr(c *mux.Conn, frame wire.Frame, err error) {
	if err == nil {
		return
	}
	d.sendErr(c, frame.RequestID, err)
}

func (d *Dispatcher) sendErr(c *mux.Conn, requestID string, err error) {
	if werr, ok := whisperr.As(err); ok {
		c.SendError(requestID, werr.Code, werr.Message, werr.RetryAfter)
		return
	}
	c.SendError(requestID, wire.CodeInternalError, "internal error", 0)
}
