package e2e_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/message"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// clientPacket is one decoded packet received by the fake server.
type clientPacket struct {
	channel  netsync.Channel
	clientID int32
	msg      message.Message
}

// peer is one reliable connection on the server side.
type peer struct {
	id    int32
	mu    sync.Mutex
	write func([]byte) error
	close func() error
}

func (p *peer) send(m message.Message) error {
	w := message.Marshal(m)
	w.InsertLengthPrefix()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(w.Bytes())
}

// gameServer is a loopback game server speaking the wire protocol over
// TCP, WebSocket and UDP. Every reliable connection gets the next client
// id and an immediate Welcome.
type gameServer struct {
	t        *testing.T
	tcp      net.Listener
	udp      *net.UDPConn
	web      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	nextID   int32
	peers    map[int32]*peer
	udpAddrs map[int32]*net.UDPAddr

	received   chan clientPacket
	handshakes chan int32
}

func newGameServer(t *testing.T) *gameServer {
	t.Helper()

	tcp, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}

	s := &gameServer{
		t:   t,
		tcp: tcp,
		udp: udp,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers:      make(map[int32]*peer),
		udpAddrs:   make(map[int32]*net.UDPAddr),
		received:   make(chan clientPacket, 64),
		handshakes: make(chan int32, 8),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.web = httptest.NewServer(mux)

	go s.acceptTCP()
	go s.readUDP()

	t.Cleanup(s.close)
	return s
}

func (s *gameServer) tcpAddr() string { return s.tcp.Addr().String() }
func (s *gameServer) udpAddr() string { return s.udp.LocalAddr().String() }
func (s *gameServer) wsURL() string   { return "ws" + strings.TrimPrefix(s.web.URL, "http") + "/ws" }

func (s *gameServer) close() {
	_ = s.tcp.Close()
	_ = s.udp.Close()

	s.mu.Lock()
	for _, p := range s.peers {
		_ = p.close()
	}
	s.mu.Unlock()

	s.web.Close()
}

func (s *gameServer) register(write func([]byte) error, closeFn func() error) *peer {
	s.mu.Lock()
	s.nextID++
	p := &peer{id: s.nextID, write: write, close: closeFn}
	s.peers[p.id] = p
	s.mu.Unlock()

	if err := p.send(&message.Welcome{Message: "Welcome to the server!", ClientID: p.id}); err != nil {
		s.t.Logf("welcome: %v", err)
	}
	return p
}

func (s *gameServer) acceptTCP() {
	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			return
		}
		p := s.register(func(b []byte) error {
			_, err := conn.Write(b)
			return err
		}, conn.Close)
		go s.readStream(p, conn)
	}
}

func (s *gameServer) readStream(p *peer, r io.Reader) {
	frames := protocol.NewReassembler(0)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := frames.Feed(buf[:n], func(payload []byte) { s.decode(netsync.Reliable, p.id, payload) }); ferr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *gameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "Failed to upgrade connection", http.StatusBadRequest)
		return
	}

	p := s.register(func(b []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteMessage(websocket.BinaryMessage, b)
	}, conn.Close)

	frames := protocol.NewReassembler(0)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if ferr := frames.Feed(data, func(payload []byte) { s.decode(netsync.Reliable, p.id, payload) }); ferr != nil {
			_ = conn.Close()
			return
		}
	}
}

func (s *gameServer) readUDP() {
	buf := make([]byte, 2048)
	for {
		n, from, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			return
		}

		r := protocol.NewReader(buf[:n])
		id, err := r.ReadInt32()
		if err != nil {
			continue
		}

		s.mu.Lock()
		s.udpAddrs[id] = from
		s.mu.Unlock()

		if r.Unread() == 0 {
			s.handshakes <- id
			continue
		}
		s.decode(netsync.Unreliable, id, r.Bytes()[r.Position():])
	}
}

func (s *gameServer) decode(ch netsync.Channel, clientID int32, payload []byte) {
	r := protocol.NewReader(payload)
	tag, err := r.ReadTag()
	if err != nil {
		return
	}
	m, err := message.New(netsync.ClientToServer, tag)
	if err != nil {
		return
	}
	if err := m.Decode(r); err != nil {
		return
	}
	s.received <- clientPacket{channel: ch, clientID: clientID, msg: m}
}

func (s *gameServer) peer(id int32) *peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[id]
}

// sendReliable frames m and writes it to client id.
func (s *gameServer) sendReliable(t *testing.T, id int32, m message.Message) {
	t.Helper()

	p := s.peer(id)
	if p == nil {
		t.Fatalf("no peer %d", id)
	}
	if err := p.send(m); err != nil {
		t.Fatalf("send %T: %v", m, err)
	}
}

// sendDatagram writes m to the address client id handshook from.
func (s *gameServer) sendDatagram(t *testing.T, id int32, m message.Message) {
	t.Helper()

	s.mu.Lock()
	addr := s.udpAddrs[id]
	s.mu.Unlock()
	if addr == nil {
		t.Fatalf("no datagram address for client %d", id)
	}
	if _, err := s.udp.WriteToUDP(message.Marshal(m).Bytes(), addr); err != nil {
		t.Fatalf("WriteToUDP: %v", err)
	}
}

func (s *gameServer) expectPacket(t *testing.T) clientPacket {
	t.Helper()

	select {
	case p := <-s.received:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a client packet")
		return clientPacket{}
	}
}

func (s *gameServer) expectHandshake(t *testing.T) int32 {
	t.Helper()

	select {
	case id := <-s.handshakes:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the datagram handshake")
		return 0
	}
}

// eventually ticks sess until cond holds.
func eventually(t *testing.T, sess netsync.Session, what string, cond func() bool) {
	t.Helper()

	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess.Tick(ctx)
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper function to create a WebSocket dialer
func newDialer() *websocket.Dialer {
	return &websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
}

