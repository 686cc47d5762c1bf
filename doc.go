// Package netsync provides the client-side wire protocol and entity synchronization core for
// real-time multiplayer games.
//
// A session talks to the server over two channels: a reliable, ordered stream (TCP or WebSocket)
// for spawns, chat and the handshake, and an unreliable datagram channel (UDP) for per-frame
// movement and transform updates. Decoded packets are routed through a dispatch table into an
// entity registry and a chat log.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/netsync/client"
//	)
//
//	cfg := client.NewConfig("127.0.0.1:26950", "127.0.0.1:26950", "alice")
//	cfg.Renderer = myRenderer // spawns and moves scene objects
//	cfg.ChatView = myChatView // shows and hides chat lines
//
//	sess, _ := client.New(cfg)
//	sess.Connect(ctx)
//	defer sess.Close(ctx)
//
//	// Either drive ticks yourself from the game loop...
//	sess.Tick(ctx)
//
//	// ...or let the session tick at cfg.TickRate.
//	sess.Run(ctx)
//
// # Wire Format
//
// Every packet starts with a 4-byte tag followed by its fields in a fixed order. All numeric
// fields are little-endian and fixed width:
//
//	int16/int32/int64  2/4/8 bytes
//	float32            4 bytes, IEEE 754
//	bool               1 byte
//	string             int32 byte length + bytes (not NUL-terminated)
//	Vector3            3 x float32 (x, y, z)
//	Quaternion         4 x float32 (x, y, z, w)
//
// On the reliable channel each packet is preceded by its int32 byte length:
//
//	[4 bytes: length][4 bytes: tag][fields...]
//
// On the unreliable channel datagram boundaries are message boundaries. Outgoing datagrams carry
// the assigned client id in front of the tag so the server can attribute them:
//
//	[4 bytes: client id][4 bytes: tag][fields...]
//
// # Threading
//
// Receive loops run in their own goroutines but only enqueue complete payloads. Tick drains the
// queue on the caller's goroutine; the registry and chat log are mutated only there. Readers such
// as Players and VisibleChat return copies and are safe to call from any goroutine.
//
// # Errors
//
// A malformed packet, an unknown tag or an update for an unknown entity drops that single packet
// and is logged. When a channel fails UnhealthyAfter times in a row the session publishes a
// HealthEvent, which usually means a protocol version mismatch.
package netsync
