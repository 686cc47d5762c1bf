package netsync

import "time"

// Vector3 is a position or scale on the wire: three float32 (x, y, z).
type Vector3 struct {
	X, Y, Z float32
}

// One returns the unit scale.
func One() Vector3 {
	return Vector3{X: 1, Y: 1, Z: 1}
}

// Quaternion is a rotation on the wire: four float32 (x, y, z, w).
type Quaternion struct {
	X, Y, Z, W float32
}

// Identity returns the identity rotation.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// Handle is an opaque reference to an object owned by the Renderer.
type Handle uint64

// Player is a registry entry for a connected player.
type Player struct {
	ID       int32
	Username string
	IsLocal  bool
	Position Vector3
	Rotation Quaternion
	Handle   Handle
}

// TrackedObject is a registry entry for an object spawned from a prefab
// whose transform is driven by the server.
type TrackedObject struct {
	NetworkID int32
	PrefabID  int32
	Position  Vector3
	Rotation  Quaternion
	Scale     Vector3
	Handle    Handle
}

// ChatMessage is an immutable chat line stamped with its receipt time.
type ChatMessage struct {
	Text string
	Time time.Time
}

// HealthEvent is emitted when a channel keeps failing to decode packets
// or loses its connection.
type HealthEvent struct {
	Channel  Channel
	Failures int
	Reason   string
	Err      error
	At       time.Time
}
