// Package client is the public entry point for building a netsync session.
package client

import (
	"context"
	"strings"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/session"
	"github.com/luciancaetano/netsync/internal/transport"
)

type Config = session.Config
type Dialer = session.Dialer
type TransportConfig = transport.Config
type RateLimitConfig = transport.RateLimitConfig

// New creates a session from cfg. Every server tag must have a handler;
// New fails otherwise.
//
// Example:
//
//	cfg := client.NewConfig("ws://127.0.0.1:8080/ws", "127.0.0.1:26950", "alice")
//	cfg.Logger = slog.Default()
//	sess, err := client.New(cfg)
func New(cfg Config) (netsync.Session, error) {
	return session.New(cfg)
}

// NewConfig returns a default configuration for the given endpoints.
//
// Parameters:
//   - reliableAddr: "host:port" for TCP, or a ws:// or wss:// URL for WebSocket
//   - unreliableAddr: UDP "host:port"; empty disables the datagram channel
//   - username: sent to the server after Welcome
func NewConfig(reliableAddr, unreliableAddr, username string) Config {
	return NewConfigWithTransport(reliableAddr, unreliableAddr, username, DefaultTransportConfig())
}

// NewConfigWithTransport is NewConfig with explicit transport settings
// shared by both channels.
func NewConfigWithTransport(reliableAddr, unreliableAddr, username string, tc *TransportConfig) Config {
	cfg := session.DefaultConfig()
	cfg.Username = username
	cfg.Reliable = Reliable(reliableAddr, tc)
	if unreliableAddr != "" {
		cfg.Unreliable = Datagram(unreliableAddr, tc)
	}
	return cfg
}

// Reliable picks WebSocket for ws:// and wss:// URLs and TCP otherwise.
func Reliable(addr string, tc *TransportConfig) Dialer {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return WebSocket(addr, tc)
	}
	return TCP(addr, tc)
}

// TCP dials the reliable channel over a TCP stream.
func TCP(addr string, tc *TransportConfig) Dialer {
	return func(ctx context.Context) (netsync.Conn, error) {
		conn, err := transport.DialStream(ctx, addr, tc)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// WebSocket dials the reliable channel over a WebSocket.
func WebSocket(url string, tc *TransportConfig) Dialer {
	return func(ctx context.Context) (netsync.Conn, error) {
		conn, err := transport.DialWebSocket(ctx, url, tc)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Datagram dials the unreliable channel over UDP.
func Datagram(addr string, tc *TransportConfig) Dialer {
	return func(ctx context.Context) (netsync.Conn, error) {
		conn, err := transport.DialDatagram(ctx, addr, tc)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// DefaultTransportConfig returns the default timeouts and buffer sizes
func DefaultTransportConfig() *TransportConfig {
	return transport.DefaultConfig()
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return transport.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return transport.NoRateLimit()
}
