// Package session glues the transports, the dispatch table, the entity
// registry and the chat log into a netsync.Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ztrue/tracerr"
	"go.opentelemetry.io/otel/trace"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/chat"
	"github.com/luciancaetano/netsync/internal/dispatch"
	"github.com/luciancaetano/netsync/internal/registry"
)

// Session errors.
var (
	ErrNotConnected     = errors.New(netsync.ErrNotConnected)
	ErrNotWelcomed      = errors.New(netsync.ErrNotWelcomed)
	ErrAlreadyConnected = errors.New(netsync.ErrAlreadyConnected)
	ErrConnectionClosed = errors.New(netsync.ErrConnectionClosed)
)

// inbound is one complete payload waiting for the next tick.
type inbound struct {
	channel netsync.Channel
	payload []byte
}

// Session implements netsync.Session.
type Session struct {
	id      string
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics

	table    *dispatch.Table
	registry *registry.Registry
	chat     *chat.Log
	health   *health
	inbound  chan inbound

	// tickMu serializes Tick with the teardown in Close.
	tickMu      sync.Mutex
	rateDropped int64

	mu         sync.RWMutex
	reliable   netsync.Conn
	unreliable netsync.Conn
	clientID   int32
	welcomed   bool
	connected  bool
	closed     bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

var _ netsync.Session = (*Session)(nil)

// New builds a session and validates that every server tag has a handler.
func New(cfg Config) (*Session, error) {
	if cfg.Reliable == nil {
		return nil, fmt.Errorf("%s: reliable dialer is required", netsync.ErrNotConnected)
	}
	cfg = cfg.withDefaults()

	id := uuid.New().String()
	s := &Session{
		id:       id,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "netsync.session", "session", id),
		tracer:   cfg.TracerProvider.Tracer(cfg.TracerName),
		metrics:  newMetrics(cfg.Metrics),
		table:    dispatch.NewTable(),
		registry: registry.New(cfg.Renderer),
		chat:     chat.NewLog(cfg.Chat, cfg.ChatView, cfg.Now),
		health:   newHealth(cfg.UnhealthyAfter, cfg.Now),
		inbound:  make(chan inbound, cfg.QueueSize),
	}

	if err := s.registerHandlers(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Connect dials both channels and starts their receive loops.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrConnectionClosed
	}
	if s.connected {
		return ErrAlreadyConnected
	}

	reliable, err := s.cfg.Reliable(ctx)
	if err != nil {
		return fmt.Errorf("%s: reliable: %w", netsync.ErrNotConnected, err)
	}

	var unreliable netsync.Conn
	if s.cfg.Unreliable != nil {
		unreliable, err = s.cfg.Unreliable(ctx)
		if err != nil {
			_ = reliable.Close()
			return fmt.Errorf("%s: unreliable: %w", netsync.ErrNotConnected, err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.reliable = reliable
	s.unreliable = unreliable
	s.cancel = cancel
	s.connected = true

	s.wg.Add(1)
	go s.receive(loopCtx, netsync.Reliable, reliable)
	if unreliable != nil {
		s.wg.Add(1)
		go s.receive(loopCtx, netsync.Unreliable, unreliable)
	}

	s.logger.Info("connected", "unreliable", unreliable != nil)
	return nil
}

// receive runs one channel's read loop. It only enqueues payloads.
func (s *Session) receive(ctx context.Context, ch netsync.Channel, conn netsync.Conn) {
	defer s.wg.Done()

	err := conn.Receive(ctx, func(payload []byte) {
		s.enqueue(ctx, inbound{channel: ch, payload: payload})
	})
	if ctx.Err() != nil {
		return
	}

	s.logger.Warn("channel closed", "channel", ch, "error", err, "stacktrace", tracerr.StackTrace(err))
	s.metrics.unhealthy.WithLabelValues(ch.String(), reasonConnectionLost).Inc()
	s.health.lost(ch, err)
}

// enqueue blocks for reliable payloads, which must not be lost, and drops
// unreliable ones when the queue is full.
func (s *Session) enqueue(ctx context.Context, in inbound) {
	if in.channel == netsync.Reliable {
		select {
		case s.inbound <- in:
		case <-ctx.Done():
		}
		return
	}

	select {
	case s.inbound <- in:
	default:
		s.metrics.packetsDropped.WithLabelValues(in.channel.String(), reasonQueueFull).Inc()
	}
}

// Tick dispatches the payloads queued when it started, then expires chat
// previews. Payloads arriving during the tick wait for the next one. A
// closed session ticks as a no-op.
func (s *Session) Tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if s.isClosed() {
		return
	}
	s.drain(ctx)
	s.countRateLimited()

	s.chat.Tick(s.cfg.Now())

	players, objects := s.registry.Counts()
	s.metrics.players.Set(float64(players))
	s.metrics.objects.Set(float64(objects))
}

func (s *Session) drain(ctx context.Context) {
	for n := len(s.inbound); n > 0; n-- {
		if s.isClosed() {
			return
		}
		select {
		case in := <-s.inbound:
			s.handle(ctx, in)
		default:
			return
		}
	}
}

// dropCounter is implemented by channels that discard payloads before
// delivering them, such as a rate-limited datagram socket.
type dropCounter interface {
	Dropped() int64
}

// countRateLimited moves the unreliable channel's discard count into the
// packets_dropped metric.
func (s *Session) countRateLimited() {
	s.mu.RLock()
	dc, ok := s.unreliable.(dropCounter)
	s.mu.RUnlock()
	if !ok {
		return
	}

	total := dc.Dropped()
	if delta := total - s.rateDropped; delta > 0 {
		s.metrics.packetsDropped.WithLabelValues(netsync.Unreliable.String(), reasonRateLimited).Add(float64(delta))
	}
	s.rateDropped = total
}

// Run ticks at the configured rate until ctx is done or the session closes.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.isClosed() {
				return ErrConnectionClosed
			}
			s.Tick(ctx)
		}
	}
}

// ClientID returns the id assigned by Welcome.
func (s *Session) ClientID() (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID, s.welcomed
}

func (s *Session) Player(id int32) (netsync.Player, error) {
	return s.registry.Player(id)
}

func (s *Session) Players() []netsync.Player {
	return s.registry.Players()
}

func (s *Session) TrackedObjects() []netsync.TrackedObject {
	return s.registry.TrackedObjects()
}

func (s *Session) ToggleChat() bool {
	return s.chat.Toggle()
}

func (s *Session) VisibleChat() []netsync.ChatMessage {
	return s.chat.Visible()
}

func (s *Session) ChatHistory() []netsync.ChatMessage {
	return s.chat.History()
}

func (s *Session) Health() <-chan netsync.HealthEvent {
	return s.health.events
}

func (s *Session) Healthy() bool {
	return s.health.healthy()
}

// Close stops the receive loops, drops queued payloads, destroys every
// entity and closes the chat view. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	conns := []netsync.Conn{s.reliable, s.unreliable}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs []error
	for _, c := range conns {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	for drained := false; !drained; {
		select {
		case <-s.inbound:
		default:
			drained = true
		}
	}

	s.registry.Clear()
	s.chat.Close()

	s.logger.Info("closed")
	return errors.Join(errs...)
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
