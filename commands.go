package netsync

// Tag identifies the semantic type of a packet. Tags are scoped to a
// Direction: the same numeric value means different things server→client
// and client→server.
type Tag int32

// Direction selects which tag enumeration a packet belongs to.
type Direction uint8

const (
	ServerToClient Direction = iota + 1
	ClientToServer
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case ServerToClient:
		return "server->client"
	case ClientToServer:
		return "client->server"
	default:
		return "unknown"
	}
}

// Server→client tags.
const (
	ServerWelcome         Tag = 1
	ServerSpawnPlayer     Tag = 2
	ServerPlayerPosition  Tag = 3
	ServerPlayerRotation  Tag = 4
	ServerObjectTransform Tag = 5
	ServerSpawnPrefab     Tag = 6
	ServerChatMessage     Tag = 7
)

// Client→server tags.
const (
	ClientWelcomeReceived Tag = 1
	ClientPlayerMovement  Tag = 2
	ClientChatMessage     Tag = 3
)

// Channel is the transport a tag travels on.
type Channel uint8

const (
	// Reliable is the ordered, lossless, length-prefixed stream.
	Reliable Channel = iota + 1
	// Unreliable is the unordered, loss-tolerant datagram channel.
	Unreliable
)

// String returns the string representation of the channel.
func (c Channel) String() string {
	switch c {
	case Reliable:
		return "reliable"
	case Unreliable:
		return "unreliable"
	default:
		return "unknown"
	}
}

var serverTags = map[Tag]string{
	ServerWelcome:         "Welcome",
	ServerSpawnPlayer:     "SpawnPlayer",
	ServerPlayerPosition:  "PlayerPosition",
	ServerPlayerRotation:  "PlayerRotation",
	ServerObjectTransform: "ObjectTransform",
	ServerSpawnPrefab:     "SpawnPrefab",
	ServerChatMessage:     "ChatMessage",
}

var clientTags = map[Tag]string{
	ClientWelcomeReceived: "WelcomeReceived",
	ClientPlayerMovement:  "PlayerMovement",
	ClientChatMessage:     "ChatMessage",
}

func tagsFor(d Direction) map[Tag]string {
	switch d {
	case ServerToClient:
		return serverTags
	case ClientToServer:
		return clientTags
	default:
		return nil
	}
}

// Tags returns every tag declared for the direction, in ascending order.
func Tags(d Direction) []Tag {
	declared := tagsFor(d)
	out := make([]Tag, 0, len(declared))
	for tag := Tag(1); len(out) < len(declared); tag++ {
		if _, ok := declared[tag]; ok {
			out = append(out, tag)
		}
	}
	return out
}

// IsDeclared reports whether tag belongs to the direction's enumeration.
func IsDeclared(d Direction, tag Tag) bool {
	_, ok := tagsFor(d)[tag]
	return ok
}

// TagName returns a human readable name for the tag, or "Unknown".
func TagName(d Direction, tag Tag) string {
	if name, ok := tagsFor(d)[tag]; ok {
		return name
	}
	return "Unknown"
}

// ChannelFor returns the channel a tag is sent on. The mapping is fixed:
// per-frame movement and pose updates go unreliable, everything else reliable.
func ChannelFor(d Direction, tag Tag) Channel {
	switch {
	case d == ClientToServer && tag == ClientPlayerMovement:
		return Unreliable
	case d == ServerToClient && (tag == ServerPlayerPosition || tag == ServerPlayerRotation || tag == ServerObjectTransform):
		return Unreliable
	default:
		return Reliable
	}
}

// Standard error messages
const (
	// Protocol errors
	ErrInvalidMessageFormat = "invalid message format"
	ErrUnknownTag           = "unknown tag"
	ErrUnknownEntity        = "unknown entity"
	ErrDuplicateEntity      = "duplicate entity"
	ErrDuplicateHandler     = "duplicate handler"
	ErrMissingHandler       = "missing handler"

	// Session errors
	ErrNotConnected     = "session not connected"
	ErrNotWelcomed      = "client id not assigned yet"
	ErrConnectionClosed = "connection is closed"
	ErrFailedToSend     = "failed to send packet"
	ErrAlreadyConnected = "session already connected"
	ErrEmptyChatMessage = "chat message is empty"
)
