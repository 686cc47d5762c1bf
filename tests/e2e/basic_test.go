package e2e_test

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/client"
	"github.com/luciancaetano/netsync/internal/message"
	"github.com/luciancaetano/netsync/internal/protocol"
)

func TestTCPAndUDPSession(t *testing.T) {
	t.Parallel()

	server := newGameServer(t)
	ctx := context.Background()

	cfg := client.NewConfig(server.tcpAddr(), server.udpAddr(), "alice")
	cfg.Logger = quietLogger()

	sess, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sess.Close(ctx)

	eventually(t, sess, "welcome", func() bool {
		_, ok := sess.ClientID()
		return ok
	})
	id, _ := sess.ClientID()
	if id != 1 {
		t.Fatalf("ClientID() = %d, want 1", id)
	}

	reply := server.expectPacket(t)
	welcome, ok := reply.msg.(*message.WelcomeReceived)
	if !ok || reply.channel != netsync.Reliable {
		t.Fatalf("first packet = %T on %s, want WelcomeReceived on reliable", reply.msg, reply.channel)
	}
	if welcome.ClientID != id || welcome.Username != "alice" {
		t.Errorf("WelcomeReceived = %+v", welcome)
	}
	if got := server.expectHandshake(t); got != id {
		t.Errorf("handshake id = %d, want %d", got, id)
	}

	server.sendReliable(t, id, &message.SpawnPlayer{ID: id, Username: "alice", Rotation: netsync.Identity()})
	server.sendReliable(t, id, &message.SpawnPlayer{ID: 2, Username: "bob", Rotation: netsync.Identity()})
	server.sendReliable(t, id, &message.SpawnPrefab{PrefabID: 3, NetworkID: 100, Rotation: netsync.Identity(), Scale: netsync.One()})
	server.sendReliable(t, id, &message.ServerChat{Text: "bob: hi"})

	eventually(t, sess, "spawns", func() bool {
		return len(sess.Players()) == 2 && len(sess.TrackedObjects()) == 1 && len(sess.ChatHistory()) == 1
	})

	local, err := sess.Player(id)
	if err != nil || !local.IsLocal {
		t.Errorf("Player(%d) = %+v, %v, want the local player", id, local, err)
	}
	if remote, _ := sess.Player(2); remote.IsLocal {
		t.Error("bob must not be local")
	}
	if v := sess.VisibleChat(); len(v) != 1 || v[0].Text != "bob: hi" {
		t.Errorf("VisibleChat() = %+v", v)
	}

	server.sendDatagram(t, id, &message.ObjectTransform{NetworkID: 999, Scale: netsync.One()})
	server.sendDatagram(t, id, &message.PlayerPosition{ID: 2, Position: netsync.Vector3{X: 4, Y: 5, Z: 6}})
	server.sendDatagram(t, id, &message.ObjectTransform{NetworkID: 100, Position: netsync.Vector3{Y: 1}, Rotation: netsync.Identity(), Scale: netsync.Vector3{X: 2, Y: 2, Z: 2}})

	eventually(t, sess, "datagram updates", func() bool {
		bob, _ := sess.Player(2)
		objs := sess.TrackedObjects()
		return bob.Position.Z == 6 && len(objs) == 1 && objs[0].Scale.X == 2
	})
	if n := len(sess.TrackedObjects()); n != 1 {
		t.Errorf("TrackedObjects() = %d entries, an unknown id must not create one", n)
	}
	if !sess.Healthy() {
		t.Error("session should be healthy")
	}

	if err := sess.SendMovement(ctx, []bool{true, false, true, false, false}, netsync.Identity()); err != nil {
		t.Fatalf("SendMovement() error = %v", err)
	}
	move := server.expectPacket(t)
	if m, ok := move.msg.(*message.PlayerMovement); !ok || move.channel != netsync.Unreliable || move.clientID != id || len(m.Inputs) != 5 {
		t.Errorf("movement packet = %+v on %s from %d", move.msg, move.channel, move.clientID)
	}

	if err := sess.SendChat(ctx, "  hello bob  "); err != nil {
		t.Fatalf("SendChat() error = %v", err)
	}
	chat := server.expectPacket(t)
	if m, ok := chat.msg.(*message.ClientChat); !ok || chat.channel != netsync.Reliable || m.Text != "hello bob" {
		t.Errorf("chat packet = %+v on %s", chat.msg, chat.channel)
	}

	if err := sess.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if len(sess.Players()) != 0 {
		t.Error("registry should be empty after Close")
	}
}

func TestWebSocketSession(t *testing.T) {
	t.Parallel()

	server := newGameServer(t)
	ctx := context.Background()

	cfg := client.NewConfig(server.wsURL(), "", "carol")
	cfg.Logger = quietLogger()

	sess, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sess.Close(ctx)

	eventually(t, sess, "welcome", func() bool {
		_, ok := sess.ClientID()
		return ok
	})
	id, _ := sess.ClientID()

	if p := server.expectPacket(t); p.msg.Tag() != netsync.ClientWelcomeReceived {
		t.Fatalf("first packet tag = %d, want WelcomeReceived", p.msg.Tag())
	}

	for i := int32(10); i < 20; i++ {
		server.sendReliable(t, id, &message.SpawnPlayer{ID: i, Username: "npc", Rotation: netsync.Identity()})
	}
	eventually(t, sess, "ten spawns", func() bool { return len(sess.Players()) == 10 })

	if err := sess.SendMovement(ctx, []bool{true}, netsync.Identity()); err == nil {
		t.Error("SendMovement() without a datagram channel should fail")
	}
	if err := sess.SendChat(ctx, "over websocket"); err != nil {
		t.Fatalf("SendChat() error = %v", err)
	}
	if p := server.expectPacket(t); p.msg.(*message.ClientChat).Text != "over websocket" {
		t.Errorf("chat = %+v", p.msg)
	}
}

func TestServerDisconnectIsReported(t *testing.T) {
	t.Parallel()

	server := newGameServer(t)
	ctx := context.Background()

	cfg := client.NewConfig(server.tcpAddr(), "", "dave")
	cfg.Logger = quietLogger()

	sess, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sess.Close(ctx)

	eventually(t, sess, "welcome", func() bool {
		_, ok := sess.ClientID()
		return ok
	})
	id, _ := sess.ClientID()
	_ = server.peer(id).close()

	select {
	case ev := <-sess.Health():
		if ev.Channel != netsync.Reliable {
			t.Errorf("HealthEvent channel = %s, want reliable", ev.Channel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected a HealthEvent after the server hung up")
	}
	if sess.Healthy() {
		t.Error("Healthy() should be false after losing the reliable channel")
	}
}

// TestRawWebSocketWelcome checks the bytes a plain WebSocket client sees.
func TestRawWebSocketWelcome(t *testing.T) {
	t.Parallel()

	server := newGameServer(t)

	conn, _, err := newDialer().Dial(server.wsURL(), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", messageType)
	}

	r := protocol.NewReader(data)
	length, _ := r.ReadInt32()
	if int(length) != len(data)-protocol.LengthPrefixSize {
		t.Fatalf("length prefix = %d, want %d", length, len(data)-protocol.LengthPrefixSize)
	}
	if tag, _ := r.ReadTag(); tag != netsync.ServerWelcome {
		t.Fatalf("tag = %d, want Welcome", tag)
	}

	var welcome message.Welcome
	if err := welcome.Decode(r); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if welcome.ClientID < 1 || welcome.Message == "" {
		t.Errorf("Welcome = %+v", welcome)
	}
}
