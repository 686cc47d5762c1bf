package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ztrue/tracerr"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// StreamConn is the reliable channel over a byte stream such as TCP.
type StreamConn struct {
	conn   net.Conn
	cfg    *Config
	mu     sync.Mutex // serializes writes
	closed atomic.Bool
}

// DialStream opens a TCP connection to addr.
func DialStream(ctx context.Context, addr string, cfg *Config) (*StreamConn, error) {
	cfg = withDefaults(cfg)

	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return NewStream(conn, cfg), nil
}

// NewStream wraps an established connection.
func NewStream(conn net.Conn, cfg *Config) *StreamConn {
	return &StreamConn{conn: conn, cfg: withDefaults(cfg)}
}

// Send writes an already length-prefixed packet.
func (s *StreamConn) Send(ctx context.Context, payload []byte) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := ctx.Deadline()
	_ = s.conn.SetWriteDeadline(writeDeadline(deadline, ok, s.cfg.WriteTimeout))
	if _, err := s.conn.Write(payload); err != nil {
		return tracerr.Wrap(fmt.Errorf("%s: %w", netsync.ErrFailedToSend, err))
	}
	return nil
}

// Receive reassembles frames from the stream and delivers each complete
// payload in order. It returns nil after Close, ctx.Err() when ctx is done,
// and the read error when the peer goes away. A partial frame pending at
// that point is discarded.
func (s *StreamConn) Receive(ctx context.Context, deliver func(payload []byte)) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	frames := protocol.NewReassembler(s.cfg.MaxFrameSize)
	defer frames.Reset()

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if ferr := frames.Feed(buf[:n], deliver); ferr != nil {
				_ = s.Close()
				return tracerr.Wrap(ferr)
			}
		}
		if err != nil {
			switch {
			case s.closed.Load():
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				return tracerr.Wrap(err)
			}
		}
	}
}

// Close closes the connection, unblocking Receive.
func (s *StreamConn) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return tracerr.Wrap(err)
	}
	return nil
}
