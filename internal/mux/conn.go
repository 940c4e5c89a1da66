// Package mux implements the per-socket connection lifecycle of spec §4.4:
// frame size caps, heartbeat, a single serialised writer per connection,
// and the identity-to-connection reverse map the router depends on.
package mux

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

// errConnClosed is returned by EnqueueSync when the frame could not be
// confirmed written because the connection is closed or its write buffer
// is full.
var errConnClosed = errors.New("mux: connection closed")

const (
	// MaxOrdinaryFrameBytes bounds every websocket frame except a
	// contact-backup upload, which travels over the HTTP surface instead,
	// where httpapi.MaxBackupBytes (the same 256 KiB) bounds it.
	MaxOrdinaryFrameBytes = 64 * 1024
	MaxBackupFrameBytes   = 256 * 1024

	HeartbeatInterval = 30 * time.Second
	HeartbeatTimeout   = 30 * time.Second
	MaxMissedPongs     = 2

	writeBufferSize = 256
)

// Dispatcher handles one decoded inbound frame. Implementations (the
// router, the auth engine, wired together by internal/server) must not
// block for long since it runs on the connection's single reader
// goroutine.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Conn, frame wire.Frame)
}

// Conn wraps one accepted websocket connection. All writes go through
// send, drained by a single writer goroutine, so frame ordering on the
// wire is guaranteed even when the router, the auth engine, and the
// heartbeat all want to write concurrently.
type Conn struct {
	ID string

	ws         *websocket.Conn
	send       chan sendItem
	dispatcher Dispatcher
	log        logger.Logger

	whisperIDMu sync.RWMutex
	whisperID   string

	sessionMu sync.RWMutex
	session   *store.Session

	missedPongs int32
	lastPingTS  int64

	closeOnce sync.Once
	closed    chan struct{}
}

// sendItem is one queued outbound frame. done is non-nil only for
// EnqueueSync callers that need to know whether the write actually
// reached the socket; the writer goroutine signals it exactly once.
type sendItem struct {
	raw  []byte
	done chan error
}

func newConn(ws *websocket.Conn, dispatcher Dispatcher, log logger.Logger) *Conn {
	return &Conn{
		ID:         uuid.NewString(),
		ws:         ws,
		send:       make(chan sendItem, writeBufferSize),
		dispatcher: dispatcher,
		log:        log,
		closed:     make(chan struct{}),
	}
}

// NewLoopbackConn builds a Conn with no underlying socket: Enqueue still
// marshals onto its send channel, but nothing drains or writes it over
// the wire. Used by router/presence tests to assert on what would have
// been sent without standing up a real websocket.
func NewLoopbackConn() *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		send:   make(chan sendItem, writeBufferSize),
		closed: make(chan struct{}),
	}
}

// Sent drains and decodes every frame enqueued so far, for test assertions.
func (c *Conn) Sent() []wire.Frame {
	var frames []wire.Frame
	for {
		select {
		case item := <-c.send:
			var f wire.Frame
			if json.Unmarshal(item.raw, &f) == nil {
				frames = append(frames, f)
			}
			if item.done != nil {
				item.done <- nil
			}
		default:
			return frames
		}
	}
}

// Accept upgrades an already-established *websocket.Conn into a tracked
// Conn and starts its reader, writer, and heartbeat goroutines. It blocks
// until the connection closes. onDisconnect, if non-nil, runs after the
// connection is removed from registry, carrying whatever identity it had
// bound at that point -- internal/server uses it to mark presence offline.
func Accept(ctx context.Context, ws *websocket.Conn, registry *Registry, dispatcher Dispatcher, log logger.Logger, onDisconnect func(c *Conn)) {
	c := newConn(ws, dispatcher, log)
	registry.add(c)
	defer func() {
		registry.remove(c)
		if onDisconnect != nil {
			onDisconnect(c)
		}
	}()

	ws.SetReadLimit(MaxOrdinaryFrameBytes)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	go func() {
		defer wg.Done()
		c.heartbeatLoop(connCtx)
	}()

	c.readPump(connCtx)
	cancel()
	c.Close()
	wg.Wait()
}

func (c *Conn) WhisperID() string {
	c.whisperIDMu.RLock()
	defer c.whisperIDMu.RUnlock()
	return c.whisperID
}

func (c *Conn) setWhisperID(id string) {
	c.whisperIDMu.Lock()
	c.whisperID = id
	c.whisperIDMu.Unlock()
}

// Session returns the live session this connection authenticated with,
// or nil if it hasn't completed register_proof/session_refresh yet.
func (c *Conn) Session() *store.Session {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.session
}

// SetSession binds the authenticated session to this connection. The
// dispatcher calls this after a successful register_proof or
// session_refresh; it does not touch the identity-to-connection registry,
// which Registry.Bind owns separately.
func (c *Conn) SetSession(sess *store.Session) {
	c.sessionMu.Lock()
	c.session = sess
	c.sessionMu.Unlock()
}

// Enqueue queues a frame for the writer goroutine. It never blocks the
// caller on a slow client: a full send buffer closes the connection
// rather than apply backpressure to the router.
func (c *Conn) Enqueue(frame *wire.Frame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		if c.log != nil {
			c.log.Error("marshal outbound frame", logger.Error(err))
		}
		return
	}
	select {
	case c.send <- sendItem{raw: raw}:
	default:
		if c.log != nil {
			c.log.Warn("write buffer full, closing connection", logger.String("connId", c.ID))
		}
		c.Close()
	}
}

// EnqueueTyped is a convenience wrapper around Enqueue for typed payloads.
func (c *Conn) EnqueueTyped(typ, requestID string, payload any) {
	frame, err := wire.Encode(typ, requestID, payload)
	if err != nil {
		if c.log != nil {
			c.log.Error("encode outbound frame", logger.Error(err), logger.String("type", typ))
		}
		return
	}
	c.Enqueue(frame)
}

// EnqueueSync queues frame and blocks, bounded by ctx, until the writer
// goroutine has actually written it to the socket, returning the write's
// outcome. Callers that must not act (e.g. delete a drained queue entry)
// until delivery is confirmed use this instead of Enqueue. A loopback
// connection (no underlying socket, used in tests) has no writer goroutine
// to confirm delivery against, so a successful enqueue there is treated
// as the write having succeeded.
func (c *Conn) EnqueueSync(ctx context.Context, frame *wire.Frame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if c.ws == nil {
		select {
		case c.send <- sendItem{raw: raw}:
			return nil
		default:
			return errConnClosed
		}
	}

	done := make(chan error, 1)
	select {
	case c.send <- sendItem{raw: raw, done: done}:
	default:
		c.Close()
		return errConnClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return errConnClosed
	}
}

// EnqueueTypedSync is EnqueueSync for a typed payload.
func (c *Conn) EnqueueTypedSync(ctx context.Context, typ, requestID string, payload any) error {
	frame, err := wire.Encode(typ, requestID, payload)
	if err != nil {
		return err
	}
	return c.EnqueueSync(ctx, frame)
}

func (c *Conn) SendError(requestID, code, message string, retryAfter int) {
	c.EnqueueTyped(wire.TypeError, requestID, wire.ErrorPayload{
		Code: code, Message: message, RequestID: requestID, RetryAfter: retryAfter,
	})
}

func (c *Conn) SendForceLogout(reason string) {
	c.EnqueueTyped(wire.TypeForceLogout, "", wire.ForceLogout{Reason: reason})
}

// Close is idempotent and safe to call from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *Conn) readPump(ctx context.Context) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var frame wire.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.SendError("", wire.CodeInvalidPayload, "malformed frame envelope", 0)
			continue
		}
		if frame.Type == wire.TypePong {
			c.handlePong(frame)
			continue
		}
		c.dispatcher.Dispatch(ctx, c, frame)
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case item, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(HeartbeatTimeout))
			err := c.ws.WriteMessage(websocket.TextMessage, item.raw)
			if item.done != nil {
				item.done <- err
			}
			if err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt32(&c.missedPongs) >= MaxMissedPongs {
				_ = c.ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "pong timeout"),
					time.Now().Add(time.Second))
				c.Close()
				return
			}
			ts := time.Now().UnixMilli()
			atomic.StoreInt64(&c.lastPingTS, ts)
			atomic.AddInt32(&c.missedPongs, 1)
			c.EnqueueTyped(wire.TypePing, "", wire.Ping{Timestamp: ts})
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) handlePong(frame wire.Frame) {
	var pong wire.Pong
	if err := json.Unmarshal(frame.Payload, &pong); err != nil {
		return
	}
	if pong.Timestamp == atomic.LoadInt64(&c.lastPingTS) {
		atomic.StoreInt32(&c.missedPongs, 0)
	}
}
