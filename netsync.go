package netsync

import "context"

// Session is the client side of one client-server session.
//
// A session owns the entity registry, the chat log and the dispatch table.
// Transports only enqueue complete payloads; every decode and state mutation
// happens inside Tick, on the caller's goroutine.
//
// Example usage:
//
//	import "github.com/luciancaetano/netsync/client"
//
//	cfg := client.NewConfig("127.0.0.1:26950", "127.0.0.1:26950", "alice")
//	sess, err := client.New(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := sess.Connect(ctx); err != nil {
//	    return err
//	}
//	defer sess.Close(ctx)
//
//	sess.Run(ctx)
type Session interface {
	// ID returns a unique identifier for the session, used for log correlation.
	ID() string

	// Connect dials the reliable and unreliable channels and starts the
	// receive loops. Payloads are queued until the next Tick.
	//
	// Returns an error if the session is already connected or if dialing fails.
	Connect(ctx context.Context) error

	// Tick drains every queued payload, dispatches it and expires chat entries.
	// It never blocks on network I/O.
	Tick(ctx context.Context)

	// Run calls Tick at the configured tick rate until ctx is done or the
	// session is closed.
	Run(ctx context.Context) error

	// ClientID returns the id assigned by the server's Welcome packet.
	ClientID() (int32, bool)

	// SendMovement reports the local input state over the unreliable channel.
	//
	// Returns an error if no client id has been assigned yet.
	SendMovement(ctx context.Context, inputs []bool, rotation Quaternion) error

	// SendChat relays a locally composed chat message over the reliable channel.
	SendChat(ctx context.Context, text string) error

	// Player returns a copy of the player entry with the given id.
	Player(id int32) (Player, error)

	// Players returns a copy of every player entry.
	Players() []Player

	// TrackedObjects returns a copy of every transform-synced object.
	TrackedObjects() []TrackedObject

	// ToggleChat flips the chat view between preview and history mode and
	// reports whether history mode is now open.
	ToggleChat() bool

	// VisibleChat returns the chat entries currently on screen, oldest first.
	VisibleChat() []ChatMessage

	// ChatHistory returns every chat message received this session.
	ChatHistory() []ChatMessage

	// Health delivers a HealthEvent whenever a channel turns unhealthy.
	Health() <-chan HealthEvent

	// Healthy reports whether every channel is currently decoding successfully.
	Healthy() bool

	// Close cancels pending reads, drops queued payloads and tears down the
	// registry and chat view.
	Close(ctx context.Context) error
}

// Conn is one transport channel. Send writes the payload as-is: reliable
// payloads already carry their length prefix. Receive blocks, delivering
// exactly one complete payload per call of deliver, until the connection
// closes or ctx is done.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context, deliver func(payload []byte)) error
	Close() error
}

// Renderer is the scene-graph collaborator. The core tells it what to
// spawn, move and destroy; it never renders anything itself.
type Renderer interface {
	// SpawnPlayer creates the object for a player. isLocal selects the
	// controllable variant.
	SpawnPlayer(id int32, username string, isLocal bool, position Vector3, rotation Quaternion) (Handle, error)

	// Instantiate creates an object from the prefab registered under prefabID.
	Instantiate(prefabID int32, position Vector3, rotation Quaternion, scale Vector3) (Handle, error)

	// ApplyPose moves an existing object.
	ApplyPose(h Handle, position Vector3, rotation Quaternion, scale Vector3)

	// Destroy releases an object.
	Destroy(h Handle)
}

// ChatView is the UI collaborator for chat. Show is called when a message
// enters the view queue and Hide when it leaves it.
type ChatView interface {
	Show(msg ChatMessage)
	Hide(msg ChatMessage)
}
