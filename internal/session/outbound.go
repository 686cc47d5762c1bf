package session

import (
	"context"
	"fmt"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/message"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// SendMovement reports the local inputs and rotation over the unreliable
// channel.
func (s *Session) SendMovement(ctx context.Context, inputs []bool, rotation netsync.Quaternion) error {
	return s.send(ctx, &message.PlayerMovement{Inputs: inputs, Rotation: rotation})
}

// SendChat trims and caps text, then relays it over the reliable channel.
func (s *Session) SendChat(ctx context.Context, text string) error {
	text, err := s.chat.Compose(text)
	if err != nil {
		return err
	}
	return s.send(ctx, &message.ClientChat{Text: text})
}

// send encodes m and writes it on the channel its tag is bound to.
// Reliable packets get their length prefix; unreliable ones are stamped
// with the client id so the server can attribute them.
func (s *Session) send(ctx context.Context, m message.Message) error {
	w := message.Marshal(m)
	ch := netsync.ChannelFor(m.Direction(), m.Tag())

	s.mu.RLock()
	closed, connected := s.closed, s.connected
	reliable, unreliable := s.reliable, s.unreliable
	clientID, welcomed := s.clientID, s.welcomed
	s.mu.RUnlock()

	switch {
	case closed:
		return ErrConnectionClosed
	case !connected:
		return ErrNotConnected
	}

	var conn netsync.Conn
	switch ch {
	case netsync.Reliable:
		w.InsertLengthPrefix()
		conn = reliable
	case netsync.Unreliable:
		if unreliable == nil {
			return fmt.Errorf("%w: no %s channel", ErrNotConnected, ch)
		}
		if !welcomed {
			return ErrNotWelcomed
		}
		w.InsertInt32(clientID)
		conn = unreliable
	}

	if err := conn.Send(ctx, w.Bytes()); err != nil {
		return err
	}
	s.metrics.packetsSent.WithLabelValues(ch.String(), netsync.TagName(m.Direction(), m.Tag())).Inc()
	return nil
}

// handshake sends the bare client id over the unreliable channel so the
// server learns which address belongs to which client.
func (s *Session) handshake(ctx context.Context, clientID int32) error {
	s.mu.RLock()
	conn := s.unreliable
	s.mu.RUnlock()

	if conn == nil {
		return nil
	}

	w := protocol.NewWriter()
	w.WriteInt32(clientID)
	if err := conn.Send(ctx, w.Bytes()); err != nil {
		return err
	}
	s.logger.Debug("sent datagram handshake", "client_id", clientID)
	return nil
}
