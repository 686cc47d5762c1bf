package message

import (
	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// Welcome carries the greeting and the id the server assigned to this client.
type Welcome struct {
	Message  string
	ClientID int32
}

func (m *Welcome) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *Welcome) Tag() netsync.Tag             { return netsync.ServerWelcome }

func (m *Welcome) Encode(w *protocol.Writer) {
	w.WriteString(m.Message)
	w.WriteInt32(m.ClientID)
}

func (m *Welcome) Decode(r *protocol.Reader) (err error) {
	if m.Message, err = r.ReadString(); err != nil {
		return err
	}
	m.ClientID, err = r.ReadInt32()
	return err
}

// SpawnPlayer announces a player, possibly the local one.
type SpawnPlayer struct {
	ID       int32
	Username string
	Position netsync.Vector3
	Rotation netsync.Quaternion
}

func (m *SpawnPlayer) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *SpawnPlayer) Tag() netsync.Tag             { return netsync.ServerSpawnPlayer }

func (m *SpawnPlayer) Encode(w *protocol.Writer) {
	w.WriteInt32(m.ID)
	w.WriteString(m.Username)
	w.WriteVector3(m.Position)
	w.WriteQuaternion(m.Rotation)
}

func (m *SpawnPlayer) Decode(r *protocol.Reader) (err error) {
	if m.ID, err = r.ReadInt32(); err != nil {
		return err
	}
	if m.Username, err = r.ReadString(); err != nil {
		return err
	}
	if m.Position, err = r.ReadVector3(); err != nil {
		return err
	}
	m.Rotation, err = r.ReadQuaternion()
	return err
}

// PlayerPosition moves a spawned player.
type PlayerPosition struct {
	ID       int32
	Position netsync.Vector3
}

func (m *PlayerPosition) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *PlayerPosition) Tag() netsync.Tag             { return netsync.ServerPlayerPosition }

func (m *PlayerPosition) Encode(w *protocol.Writer) {
	w.WriteInt32(m.ID)
	w.WriteVector3(m.Position)
}

func (m *PlayerPosition) Decode(r *protocol.Reader) (err error) {
	if m.ID, err = r.ReadInt32(); err != nil {
		return err
	}
	m.Position, err = r.ReadVector3()
	return err
}

// PlayerRotation turns a spawned player.
type PlayerRotation struct {
	ID       int32
	Rotation netsync.Quaternion
}

func (m *PlayerRotation) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *PlayerRotation) Tag() netsync.Tag             { return netsync.ServerPlayerRotation }

func (m *PlayerRotation) Encode(w *protocol.Writer) {
	w.WriteInt32(m.ID)
	w.WriteQuaternion(m.Rotation)
}

func (m *PlayerRotation) Decode(r *protocol.Reader) (err error) {
	if m.ID, err = r.ReadInt32(); err != nil {
		return err
	}
	m.Rotation, err = r.ReadQuaternion()
	return err
}

// ObjectTransform is a full pose snapshot for a tracked object.
type ObjectTransform struct {
	NetworkID int32
	Position  netsync.Vector3
	Rotation  netsync.Quaternion
	Scale     netsync.Vector3
}

func (m *ObjectTransform) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *ObjectTransform) Tag() netsync.Tag             { return netsync.ServerObjectTransform }

func (m *ObjectTransform) Encode(w *protocol.Writer) {
	w.WriteInt32(m.NetworkID)
	w.WriteVector3(m.Position)
	w.WriteQuaternion(m.Rotation)
	w.WriteVector3(m.Scale)
}

func (m *ObjectTransform) Decode(r *protocol.Reader) (err error) {
	if m.NetworkID, err = r.ReadInt32(); err != nil {
		return err
	}
	if m.Position, err = r.ReadVector3(); err != nil {
		return err
	}
	if m.Rotation, err = r.ReadQuaternion(); err != nil {
		return err
	}
	m.Scale, err = r.ReadVector3()
	return err
}

// SpawnPrefab instantiates a prefab and registers it under NetworkID.
type SpawnPrefab struct {
	PrefabID  int32
	NetworkID int32
	Position  netsync.Vector3
	Rotation  netsync.Quaternion
	Scale     netsync.Vector3
}

func (m *SpawnPrefab) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *SpawnPrefab) Tag() netsync.Tag             { return netsync.ServerSpawnPrefab }

func (m *SpawnPrefab) Encode(w *protocol.Writer) {
	w.WriteInt32(m.PrefabID)
	w.WriteInt32(m.NetworkID)
	w.WriteVector3(m.Position)
	w.WriteQuaternion(m.Rotation)
	w.WriteVector3(m.Scale)
}

func (m *SpawnPrefab) Decode(r *protocol.Reader) (err error) {
	if m.PrefabID, err = r.ReadInt32(); err != nil {
		return err
	}
	if m.NetworkID, err = r.ReadInt32(); err != nil {
		return err
	}
	if m.Position, err = r.ReadVector3(); err != nil {
		return err
	}
	if m.Rotation, err = r.ReadQuaternion(); err != nil {
		return err
	}
	m.Scale, err = r.ReadVector3()
	return err
}

// ServerChat relays a chat line to every client.
type ServerChat struct {
	Text string
}

func (m *ServerChat) Direction() netsync.Direction { return netsync.ServerToClient }
func (m *ServerChat) Tag() netsync.Tag             { return netsync.ServerChatMessage }

func (m *ServerChat) Encode(w *protocol.Writer) {
	w.WriteString(m.Text)
}

func (m *ServerChat) Decode(r *protocol.Reader) (err error) {
	m.Text, err = r.ReadString()
	return err
}
