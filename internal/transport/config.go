// Package transport implements the reliable (TCP, WebSocket) and
// unreliable (UDP) channels of a session.
package transport

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// ErrConnectionClosed is returned by Send after Close.
var ErrConnectionClosed = errors.New(netsync.ErrConnectionClosed)

// MaxDatagramSize bounds a single UDP payload.
const MaxDatagramSize = 64 * 1024

// RateLimitConfig defines rate limiting for incoming datagrams
type RateLimitConfig struct {
	// MessagesPerSecond defines how many datagrams are accepted per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 100 datagrams per second with burst of 200
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// newLimiter returns nil when rate limiting is disabled.
func newLimiter(cfg *RateLimitConfig) *rate.Limiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return rate.NewLimiter(cfg.MessagesPerSecond, cfg.Burst)
}

// allow reports whether one more message fits the budget.
func allow(l *rate.Limiter) bool {
	if l == nil {
		return true
	}
	return l.Allow()
}

// Config holds the timeouts and buffer sizes shared by every channel.
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// ReadTimeout is the WebSocket keepalive window, reset by every pong.
	ReadTimeout  time.Duration
	PingInterval time.Duration
	// SendBuffer is the WebSocket outbound queue length.
	SendBuffer     int
	ReadBufferSize int
	MaxFrameSize   int
	// RateLimit applies to incoming datagrams. The reliable stream is never
	// throttled, since dropping from it would break its ordering guarantee.
	RateLimit *RateLimitConfig
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   54 * time.Second,
		SendBuffer:     256,
		ReadBufferSize: 4096,
		MaxFrameSize:   protocol.MaxFrameSize,
		RateLimit:      DefaultRateLimitConfig(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func withDefaults(cfg *Config) *Config {
	def := DefaultConfig()
	if cfg == nil {
		return def
	}
	out := *cfg
	if out.DialTimeout <= 0 {
		out.DialTimeout = def.DialTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = def.ReadTimeout
	}
	if out.PingInterval <= 0 {
		out.PingInterval = def.PingInterval
	}
	if out.SendBuffer <= 0 {
		out.SendBuffer = def.SendBuffer
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = def.ReadBufferSize
	}
	if out.MaxFrameSize <= 0 {
		out.MaxFrameSize = def.MaxFrameSize
	}
	return &out
}

// writeDeadline is the earlier of the ctx deadline and now+timeout.
func writeDeadline(ctxDeadline time.Time, hasDeadline bool, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if hasDeadline && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
