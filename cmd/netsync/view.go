package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/luciancaetano/netsync"
)

// logRenderer stands in for a scene graph: it hands out handles and logs
// what a real renderer would draw.
type logRenderer struct {
	logger *slog.Logger
	next   atomic.Uint64
}

func newLogRenderer(logger *slog.Logger) *logRenderer {
	return &logRenderer{logger: logger.With("component", "renderer")}
}

func (r *logRenderer) SpawnPlayer(id int32, username string, isLocal bool, pos netsync.Vector3, _ netsync.Quaternion) (netsync.Handle, error) {
	h := netsync.Handle(r.next.Add(1))
	r.logger.Info("player joined", "id", id, "username", username, "local", isLocal, "position", pos, "handle", h)
	return h, nil
}

func (r *logRenderer) Instantiate(prefabID int32, pos netsync.Vector3, _ netsync.Quaternion, scale netsync.Vector3) (netsync.Handle, error) {
	h := netsync.Handle(r.next.Add(1))
	r.logger.Info("object spawned", "prefab", prefabID, "position", pos, "scale", scale, "handle", h)
	return h, nil
}

func (r *logRenderer) ApplyPose(h netsync.Handle, pos netsync.Vector3, _ netsync.Quaternion, _ netsync.Vector3) {
	r.logger.Debug("pose", "handle", h, "position", pos)
}

func (r *logRenderer) Destroy(h netsync.Handle) {
	r.logger.Debug("destroy", "handle", h)
}

// consoleView prints chat lines as they are shown.
type consoleView struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleView(out io.Writer) *consoleView {
	return &consoleView{out: out}
}

func (v *consoleView) Show(msg netsync.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "[%s] %s\n", msg.Time.Format("15:04:05"), msg.Text)
}

func (v *consoleView) Hide(netsync.ChatMessage) {}
