// Package chat keeps the session's chat history and the queue of lines
// currently on screen.
package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/luciancaetano/netsync"
)

// ErrEmptyMessage is returned when composing a blank message.
var ErrEmptyMessage = errors.New(netsync.ErrEmptyChatMessage)

// Config controls the chat view.
type Config struct {
	// MaxMessages caps how many lines the view shows.
	MaxMessages int
	// PreviewTime is how long a line stays in preview mode.
	PreviewTime time.Duration
	// MaxOutboundLength caps composed messages, in bytes.
	MaxOutboundLength int
}

// DefaultConfig returns the default chat configuration
// 25 lines, 2 second previews, 256 byte outbound messages
func DefaultConfig() Config {
	return Config{
		MaxMessages:       25,
		PreviewTime:       2 * time.Second,
		MaxOutboundLength: 256,
	}
}

// Log is the chat history plus the view queue.
//
// In preview mode (the default) every received line is shown and expires
// PreviewTime after it arrived. Open switches to history mode: the view
// shows the most recent MaxMessages lines and nothing expires until Close.
type Log struct {
	cfg  Config
	view netsync.ChatView
	now  func() time.Time

	mu      sync.RWMutex
	history []netsync.ChatMessage
	visible []netsync.ChatMessage
	open    bool
}

// NewLog creates an empty log. A nil view discards show/hide calls and a
// nil clock means time.Now.
func NewLog(cfg Config, view netsync.ChatView, now func() time.Time) *Log {
	def := DefaultConfig()
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.PreviewTime <= 0 {
		cfg.PreviewTime = def.PreviewTime
	}
	if cfg.MaxOutboundLength <= 0 {
		cfg.MaxOutboundLength = def.MaxOutboundLength
	}
	if view == nil {
		view = nopView{}
	}
	if now == nil {
		now = time.Now
	}
	return &Log{cfg: cfg, view: view, now: now}
}

// Append records a received line and shows it.
func (l *Log) Append(text string) netsync.ChatMessage {
	msg := netsync.ChatMessage{Text: text, Time: l.now()}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, msg)
	l.show(msg)
	if len(l.visible) > l.cfg.MaxMessages {
		l.hide(1)
	}
	return msg
}

// Open switches to history mode, replacing the view with the most recent
// MaxMessages lines, oldest first.
func (l *Log) Open() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hide(len(l.visible))
	l.open = true

	start := len(l.history) - l.cfg.MaxMessages
	if start < 0 {
		start = 0
	}
	for _, msg := range l.history[start:] {
		l.show(msg)
	}
}

// Close leaves history mode and releases every line on screen.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hide(len(l.visible))
	l.open = false
}

// Toggle flips between preview and history mode and reports whether
// history mode is now open.
func (l *Log) Toggle() bool {
	if l.IsOpen() {
		l.Close()
		return false
	}
	l.Open()
	return true
}

// IsOpen reports whether history mode is open.
func (l *Log) IsOpen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.open
}

// Tick removes, oldest first, every preview line whose age exceeds
// PreviewTime, and returns how many were removed. It does nothing in
// history mode.
func (l *Log) Tick(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open {
		return 0
	}

	expired := 0
	for expired < len(l.visible) && now.Sub(l.visible[expired].Time) > l.cfg.PreviewTime {
		expired++
	}
	l.hide(expired)
	return expired
}

// Visible returns the lines on screen, oldest first.
func (l *Log) Visible() []netsync.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]netsync.ChatMessage(nil), l.visible...)
}

// History returns every line received this session.
func (l *Log) History() []netsync.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]netsync.ChatMessage(nil), l.history...)
}

// Compose prepares a locally typed line for sending: invalid UTF-8 is
// removed, surrounding whitespace is trimmed and the text is cut to
// MaxOutboundLength bytes without splitting a UTF-8 sequence.
func (l *Log) Compose(text string) (string, error) {
	text = strings.TrimSpace(strings.ToValidUTF8(text, ""))
	if len(text) > l.cfg.MaxOutboundLength {
		text = strings.ToValidUTF8(text[:l.cfg.MaxOutboundLength], "")
	}
	if text == "" {
		return "", ErrEmptyMessage
	}
	return text, nil
}

func (l *Log) show(msg netsync.ChatMessage) {
	l.visible = append(l.visible, msg)
	l.view.Show(msg)
}

// hide releases the n oldest visible lines.
func (l *Log) hide(n int) {
	for _, msg := range l.visible[:n] {
		l.view.Hide(msg)
	}
	l.visible = append(l.visible[:0], l.visible[n:]...)
}

type nopView struct{}

func (nopView) Show(netsync.ChatMessage) {}
func (nopView) Hide(netsync.ChatMessage) {}
