package message

import (
	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// WelcomeReceived acknowledges the handshake.
type WelcomeReceived struct {
	ClientID int32
	Username string
}

func (m *WelcomeReceived) Direction() netsync.Direction { return netsync.ClientToServer }
func (m *WelcomeReceived) Tag() netsync.Tag             { return netsync.ClientWelcomeReceived }

func (m *WelcomeReceived) Encode(w *protocol.Writer) {
	w.WriteInt32(m.ClientID)
	w.WriteString(m.Username)
}

func (m *WelcomeReceived) Decode(r *protocol.Reader) (err error) {
	if m.ClientID, err = r.ReadInt32(); err != nil {
		return err
	}
	m.Username, err = r.ReadString()
	return err
}

// PlayerMovement reports the local input state for one tick.
type PlayerMovement struct {
	Inputs   []bool
	Rotation netsync.Quaternion
}

func (m *PlayerMovement) Direction() netsync.Direction { return netsync.ClientToServer }
func (m *PlayerMovement) Tag() netsync.Tag             { return netsync.ClientPlayerMovement }

func (m *PlayerMovement) Encode(w *protocol.Writer) {
	w.WriteInt32(int32(len(m.Inputs)))
	for _, in := range m.Inputs {
		w.WriteBool(in)
	}
	w.WriteQuaternion(m.Rotation)
}

func (m *PlayerMovement) Decode(r *protocol.Reader) error {
	count, err := r.ReadInt32()
	if err != nil {
		return err
	}
	// One byte per input must still be there before allocating.
	if count < 0 || int(count) > r.Unread() {
		return &protocol.BufferUnderrunError{Type: "[]bool", Need: int(count), Have: r.Unread()}
	}
	m.Inputs = make([]bool, count)
	for i := range m.Inputs {
		if m.Inputs[i], err = r.ReadBool(); err != nil {
			return err
		}
	}
	m.Rotation, err = r.ReadQuaternion()
	return err
}

// ClientChat relays a locally composed chat line.
type ClientChat struct {
	Text string
}

func (m *ClientChat) Direction() netsync.Direction { return netsync.ClientToServer }
func (m *ClientChat) Tag() netsync.Tag             { return netsync.ClientChatMessage }

func (m *ClientChat) Encode(w *protocol.Writer) {
	w.WriteString(m.Text)
}

func (m *ClientChat) Decode(r *protocol.Reader) (err error) {
	m.Text, err = r.ReadString()
	return err
}
