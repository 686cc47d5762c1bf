package session

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/dispatch"
	"github.com/luciancaetano/netsync/internal/message"
	"github.com/luciancaetano/netsync/internal/protocol"
	"github.com/luciancaetano/netsync/internal/registry"
)

const defaultTracerName = "netsync"

// Drop reasons, used as log fields and metric labels.
const (
	reasonMalformed      = "malformed"
	reasonUnknownTag     = "unknown_tag"
	reasonUnknownEntity  = "unknown_entity"
	reasonDuplicate      = "duplicate_entity"
	reasonHandler        = "handler_error"
	reasonQueueFull      = "queue_full"
	reasonRateLimited    = "rate_limited"
	reasonConnectionLost = "connection_lost"
)

func dropReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrBufferUnderrun):
		return reasonMalformed
	case errors.Is(err, dispatch.ErrUnknownTag):
		return reasonUnknownTag
	case errors.Is(err, registry.ErrUnknownEntity):
		return reasonUnknownEntity
	case errors.Is(err, registry.ErrDuplicateEntity):
		return reasonDuplicate
	default:
		return reasonHandler
	}
}

// isDecodeFailure reports whether the packet itself was unreadable, which
// is what the health signal counts. An update for an entity that is not
// spawned yet decodes fine.
func isDecodeFailure(reason string) bool {
	return reason == reasonMalformed || reason == reasonUnknownTag
}

func (s *Session) registerHandlers() error {
	handlers := map[netsync.Tag]dispatch.Handler{
		netsync.ServerWelcome:         decoded(netsync.ServerWelcome, s.handleWelcome),
		netsync.ServerSpawnPlayer:     decoded(netsync.ServerSpawnPlayer, s.handleSpawnPlayer),
		netsync.ServerPlayerPosition:  decoded(netsync.ServerPlayerPosition, s.handlePlayerPosition),
		netsync.ServerPlayerRotation:  decoded(netsync.ServerPlayerRotation, s.handlePlayerRotation),
		netsync.ServerObjectTransform: decoded(netsync.ServerObjectTransform, s.handleObjectTransform),
		netsync.ServerSpawnPrefab:     decoded(netsync.ServerSpawnPrefab, s.handleSpawnPrefab),
		netsync.ServerChatMessage:     decoded(netsync.ServerChatMessage, s.handleChatMessage),
	}
	for tag, h := range handlers {
		if err := s.table.Register(netsync.ServerToClient, tag, h); err != nil {
			return err
		}
	}
	return s.table.Validate(netsync.ServerToClient)
}

// decoded adapts a typed handler to the dispatch table: the message for tag
// is allocated, its fields decoded, then apply runs.
func decoded[M message.Message](tag netsync.Tag, apply func(context.Context, M) error) dispatch.Handler {
	return func(ctx context.Context, r *protocol.Reader) error {
		m, err := message.New(netsync.ServerToClient, tag)
		if err != nil {
			return err
		}
		if err := m.Decode(r); err != nil {
			return err
		}
		typed, ok := m.(M)
		if !ok {
			return fmt.Errorf("%s: %T for tag %d", netsync.ErrInvalidMessageFormat, m, tag)
		}
		return apply(ctx, typed)
	}
}

// handle dispatches one payload inside its own span. Failures drop the
// packet and never close the connection.
func (s *Session) handle(ctx context.Context, in inbound) {
	if s.isClosed() {
		return
	}
	channel := in.channel.String()

	ctx, span := s.tracer.Start(ctx, "netsync.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("netsync.channel", channel),
			attribute.Int("netsync.bytes", len(in.payload)),
		),
	)
	defer span.End()

	s.metrics.bytesReceived.WithLabelValues(channel).Add(float64(len(in.payload)))

	tag, err := s.table.Dispatch(ctx, netsync.ServerToClient, protocol.NewReader(in.payload))
	tagName := netsync.TagName(netsync.ServerToClient, tag)
	span.SetAttributes(attribute.String("netsync.tag", tagName))

	if err == nil {
		span.SetStatus(codes.Ok, "")
		s.metrics.packetsReceived.WithLabelValues(channel, tagName).Inc()
		s.health.success(in.channel)
		return
	}

	reason := dropReason(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	s.metrics.packetsDropped.WithLabelValues(channel, reason).Inc()
	s.logger.Warn("dropped packet", "channel", channel, "tag", tagName, "reason", reason, "error", err)

	if !isDecodeFailure(reason) {
		s.health.success(in.channel)
		return
	}
	if s.health.failure(in.channel, reason, err) {
		s.metrics.unhealthy.WithLabelValues(channel, reason).Inc()
		s.logger.Error("channel unhealthy, possible protocol mismatch", "channel", channel, "reason", reason)
	}
}

func (s *Session) handleWelcome(ctx context.Context, m *message.Welcome) error {
	s.mu.Lock()
	s.clientID = m.ClientID
	s.welcomed = true
	s.mu.Unlock()

	s.logger.Info("welcome", "client_id", m.ClientID, "message", m.Message)

	if err := s.send(ctx, &message.WelcomeReceived{ClientID: m.ClientID, Username: s.cfg.Username}); err != nil {
		return err
	}
	return s.handshake(ctx, m.ClientID)
}

func (s *Session) handleSpawnPlayer(_ context.Context, m *message.SpawnPlayer) error {
	localID, welcomed := s.ClientID()
	isLocal := welcomed && m.ID == localID

	if _, err := s.registry.CreatePlayer(m.ID, m.Username, m.Position, m.Rotation, isLocal); err != nil {
		return err
	}
	s.logger.Debug("spawned player", "id", m.ID, "username", m.Username, "local", isLocal)
	return nil
}

func (s *Session) handlePlayerPosition(_ context.Context, m *message.PlayerPosition) error {
	return s.registry.SetPlayerPosition(m.ID, m.Position)
}

func (s *Session) handlePlayerRotation(_ context.Context, m *message.PlayerRotation) error {
	return s.registry.SetPlayerRotation(m.ID, m.Rotation)
}

func (s *Session) handleObjectTransform(_ context.Context, m *message.ObjectTransform) error {
	return s.registry.ApplyTransform(m.NetworkID, m.Position, m.Rotation, m.Scale)
}

func (s *Session) handleSpawnPrefab(_ context.Context, m *message.SpawnPrefab) error {
	if _, err := s.registry.SpawnPrefab(m.PrefabID, m.NetworkID, m.Position, m.Rotation, m.Scale); err != nil {
		return err
	}
	s.logger.Debug("spawned prefab", "prefab", m.PrefabID, "network_id", m.NetworkID)
	return nil
}

func (s *Session) handleChatMessage(_ context.Context, m *message.ServerChat) error {
	s.chat.Append(m.Text)
	return nil
}
