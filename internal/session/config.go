package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/chat"
)

// Dialer opens one transport channel.
type Dialer func(ctx context.Context) (netsync.Conn, error)

// Config configures a Session.
type Config struct {
	// Username is sent to the server in the WelcomeReceived reply.
	Username string

	// TickRate is the interval between ticks when using Run.
	TickRate time.Duration

	// QueueSize bounds the inbound payload queue shared by both channels.
	QueueSize int

	// UnhealthyAfter is the number of consecutive decode failures on one
	// channel before a HealthEvent is published.
	UnhealthyAfter int

	Chat chat.Config

	// Reliable dials the ordered stream channel. Required.
	Reliable Dialer
	// Unreliable dials the datagram channel. Optional; without it
	// unreliable sends fail with ErrNotConnected.
	Unreliable Dialer

	Renderer netsync.Renderer
	ChatView netsync.ChatView

	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics is where the session registers its collectors. When nil a
	// private registry is used so several sessions can coexist.
	Metrics prometheus.Registerer
	// TracerProvider defaults to the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
	// TracerName selects the OpenTelemetry tracer (default "netsync").
	TracerName string

	// Now is the clock for chat timestamps and health events.
	Now func() time.Time
}

// DefaultConfig returns the default session configuration
// 30 ticks per second, 1024 queued payloads, unhealthy after 10 failures
func DefaultConfig() Config {
	return Config{
		TickRate:       time.Second / 30,
		QueueSize:      1024,
		UnhealthyAfter: 10,
		Chat:           chat.DefaultConfig(),
		TracerName:     defaultTracerName,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.UnhealthyAfter <= 0 {
		c.UnhealthyAfter = def.UnhealthyAfter
	}
	if c.TracerName == "" {
		c.TracerName = def.TracerName
	}
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = prometheus.NewRegistry()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
