package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ztrue/tracerr"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// WebSocketConn is the reliable channel over a WebSocket. Binary messages
// are chunks of the framed byte stream, so a frame may span messages and a
// message may hold several frames.
type WebSocketConn struct {
	conn   *websocket.Conn
	cfg    *Config
	ctx    context.Context
	cancel context.CancelFunc
	sendCh chan []byte
	mu     sync.RWMutex
	closed bool
}

// DialWebSocket connects to a ws:// or wss:// URL.
func DialWebSocket(ctx context.Context, url string, cfg *Config) (*WebSocketConn, error) {
	cfg = withDefaults(cfg)

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.DialTimeout,
		ReadBufferSize:   cfg.ReadBufferSize,
		WriteBufferSize:  cfg.ReadBufferSize,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return NewWebSocket(conn, cfg), nil
}

// NewWebSocket wraps an established WebSocket and starts its write pump.
func NewWebSocket(conn *websocket.Conn, cfg *Config) *WebSocketConn {
	cfg = withDefaults(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	c := &WebSocketConn{
		conn:   conn,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		sendCh: make(chan []byte, cfg.SendBuffer),
	}

	go c.writePump()

	return c
}

// Send queues an already length-prefixed packet for the write pump.
func (c *WebSocketConn) Send(ctx context.Context, payload []byte) error {
	data := make([]byte, len(payload))
	copy(data, payload)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	// Hold the read lock while sending so Close cannot close sendCh under us
	select {
	case c.sendCh <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Receive feeds every binary message into the frame reassembler and
// delivers complete payloads in order. The read deadline is pushed forward
// by each pong, so a silent peer ends the loop after ReadTimeout.
func (c *WebSocketConn) Receive(ctx context.Context, deliver func(payload []byte)) error {
	c.conn.SetReadLimit(int64(c.cfg.MaxFrameSize) + protocol.LengthPrefixSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	frames := protocol.NewReassembler(c.cfg.MaxFrameSize)
	defer frames.Reset()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case !c.IsAlive():
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				_ = c.Close()
				return tracerr.Wrap(fmt.Errorf("%s: %w", netsync.ErrConnectionClosed, err))
			default:
				_ = c.Close()
				return tracerr.Wrap(err)
			}
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		if ferr := frames.Feed(data, deliver); ferr != nil {
			_ = c.CloseWithCode(websocket.CloseProtocolError, netsync.ErrInvalidMessageFormat)
			return tracerr.Wrap(ferr)
		}
	}
}

// Close closes the connection with a normal closure code.
func (c *WebSocketConn) Close() error {
	return c.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the connection with a close code and optional reason
func (c *WebSocketConn) CloseWithCode(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.cancel()

	message := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))

	close(c.sendCh)
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return tracerr.Wrap(err)
	}
	return nil
}

// IsAlive returns true if the connection is still active
func (c *WebSocketConn) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// writePump pumps messages from the send channel to the websocket connection
func (c *WebSocketConn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				return
			}

			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
