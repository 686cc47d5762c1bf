package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ztrue/tracerr"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/netsync"
)

// ErrDatagramTooLarge is returned when a payload exceeds MaxDatagramSize.
var ErrDatagramTooLarge = errors.New("datagram too large")

// DatagramConn is the unreliable channel over a connected UDP socket. Each
// datagram is one payload; no framing is applied.
type DatagramConn struct {
	conn    net.Conn
	cfg     *Config
	limiter *rate.Limiter
	closed  atomic.Bool
	dropped atomic.Int64
}

// DialDatagram binds a local UDP socket connected to addr.
func DialDatagram(ctx context.Context, addr string, cfg *Config) (*DatagramConn, error) {
	cfg = withDefaults(cfg)

	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return NewDatagram(conn, cfg), nil
}

// NewDatagram wraps a connected packet socket.
func NewDatagram(conn net.Conn, cfg *Config) *DatagramConn {
	cfg = withDefaults(cfg)
	return &DatagramConn{
		conn:    conn,
		cfg:     cfg,
		limiter: newLimiter(cfg.RateLimit),
	}
}

// Send writes one datagram.
func (d *DatagramConn) Send(ctx context.Context, payload []byte) error {
	if d.closed.Load() {
		return ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(payload) > MaxDatagramSize {
		return fmt.Errorf("%w: %d bytes", ErrDatagramTooLarge, len(payload))
	}

	deadline, ok := ctx.Deadline()
	_ = d.conn.SetWriteDeadline(writeDeadline(deadline, ok, d.cfg.WriteTimeout))
	if _, err := d.conn.Write(payload); err != nil {
		return tracerr.Wrap(fmt.Errorf("%s: %w", netsync.ErrFailedToSend, err))
	}
	return nil
}

// Receive delivers each non-empty datagram that fits the rate budget.
// Datagrams over budget are counted in Dropped. ICMP port-unreachable
// errors are ignored since the server may bind its UDP port late.
func (d *DatagramConn) Receive(ctx context.Context, deliver func(payload []byte)) error {
	stop := context.AfterFunc(ctx, func() {
		_ = d.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			switch {
			case d.closed.Load():
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, syscall.ECONNREFUSED):
				continue
			default:
				return tracerr.Wrap(err)
			}
		}

		if n == 0 {
			continue
		}
		if !allow(d.limiter) {
			d.dropped.Add(1)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		deliver(payload)
	}
}

// Dropped returns the number of datagrams discarded by the rate limiter.
func (d *DatagramConn) Dropped() int64 {
	return d.dropped.Load()
}

// LocalAddr returns the bound local address.
func (d *DatagramConn) LocalAddr() net.Addr {
	return d.conn.LocalAddr()
}

// Close closes the socket, unblocking Receive.
func (d *DatagramConn) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := d.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return tracerr.Wrap(err)
	}
	return nil
}
