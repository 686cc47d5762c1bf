// Package message defines the typed packets of both directions and their
// field order on the wire.
package message

import (
	"fmt"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// Message is one packet type. Encode writes the fields after the tag;
// Decode reads them back in the same order.
type Message interface {
	Direction() netsync.Direction
	Tag() netsync.Tag
	Encode(w *protocol.Writer)
	Decode(r *protocol.Reader) error
}

// Marshal writes the tag followed by the message fields.
func Marshal(m Message) *protocol.Writer {
	w := protocol.NewTagWriter(m.Tag())
	m.Encode(w)
	return w
}

// New returns an empty message for the tag, ready to Decode into.
func New(d netsync.Direction, tag netsync.Tag) (Message, error) {
	switch d {
	case netsync.ServerToClient:
		switch tag {
		case netsync.ServerWelcome:
			return &Welcome{}, nil
		case netsync.ServerSpawnPlayer:
			return &SpawnPlayer{}, nil
		case netsync.ServerPlayerPosition:
			return &PlayerPosition{}, nil
		case netsync.ServerPlayerRotation:
			return &PlayerRotation{}, nil
		case netsync.ServerObjectTransform:
			return &ObjectTransform{}, nil
		case netsync.ServerSpawnPrefab:
			return &SpawnPrefab{}, nil
		case netsync.ServerChatMessage:
			return &ServerChat{}, nil
		}
	case netsync.ClientToServer:
		switch tag {
		case netsync.ClientWelcomeReceived:
			return &WelcomeReceived{}, nil
		case netsync.ClientPlayerMovement:
			return &PlayerMovement{}, nil
		case netsync.ClientChatMessage:
			return &ClientChat{}, nil
		}
	}
	return nil, fmt.Errorf("%s: %s tag %d", netsync.ErrUnknownTag, d, tag)
}
