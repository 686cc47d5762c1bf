package chat

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/luciancaetano/netsync"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Set(d time.Duration) time.Time {
	c.now = time.Unix(0, 0).Add(d)
	return c.now
}

func newClock() *clock {
	return &clock{now: time.Unix(0, 0)}
}

type recordingView struct {
	shown  []string
	hidden []string
}

func (v *recordingView) Show(m netsync.ChatMessage) { v.shown = append(v.shown, m.Text) }
func (v *recordingView) Hide(m netsync.ChatMessage) { v.hidden = append(v.hidden, m.Text) }

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// TestPreviewExpiry checks a line stays until its preview time has elapsed
func TestPreviewExpiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	view := &recordingView{}
	log := NewLog(Config{PreviewTime: seconds(2.0)}, view, clk.Now)

	msg := log.Append("hello")
	if !msg.Time.Equal(time.Unix(0, 0)) {
		t.Errorf("message time = %v", msg.Time)
	}

	if removed := log.Tick(clk.Set(seconds(1.9))); removed != 0 {
		t.Errorf("Tick(1.9) removed %d", removed)
	}
	if len(log.Visible()) != 1 {
		t.Fatalf("Visible() at 1.9s = %d entries, want 1", len(log.Visible()))
	}

	if removed := log.Tick(clk.Set(seconds(2.1))); removed != 1 {
		t.Errorf("Tick(2.1) removed %d, want 1", removed)
	}
	if len(log.Visible()) != 0 {
		t.Errorf("Visible() at 2.1s = %d entries, want 0", len(log.Visible()))
	}
	if len(view.hidden) != 1 || view.hidden[0] != "hello" {
		t.Errorf("hidden = %v", view.hidden)
	}
	if len(log.History()) != 1 {
		t.Error("expiry must not touch history")
	}
}

// TestPreviewExpiryOldestFirst checks staggered lines expire in arrival order
func TestPreviewExpiryOldestFirst(t *testing.T) {
	t.Parallel()

	clk := newClock()
	view := &recordingView{}
	log := NewLog(Config{PreviewTime: seconds(2)}, view, clk.Now)

	log.Append("a")
	clk.Set(seconds(1))
	log.Append("b")
	clk.Set(seconds(1.5))
	log.Append("c")

	log.Tick(clk.Set(seconds(3.2)))

	visible := log.Visible()
	if len(visible) != 1 || visible[0].Text != "c" {
		t.Errorf("Visible() = %v, want [c]", visible)
	}
	if strings.Join(view.hidden, "") != "ab" {
		t.Errorf("hidden = %v, want [a b]", view.hidden)
	}
}

// TestOpenCapsToMostRecent checks history mode shows the newest MaxMessages lines
func TestOpenCapsToMostRecent(t *testing.T) {
	t.Parallel()

	const max = 25
	log := NewLog(Config{MaxMessages: max}, nil, newClock().Now)

	for i := 0; i < max+5; i++ {
		log.Append(fmt.Sprintf("m%d", i))
	}
	log.Open()

	visible := log.Visible()
	if len(visible) != max {
		t.Fatalf("Visible() = %d entries, want %d", len(visible), max)
	}
	if visible[0].Text != "m5" || visible[max-1].Text != fmt.Sprintf("m%d", max+4) {
		t.Errorf("visible range = %s..%s, want m5..m%d", visible[0].Text, visible[max-1].Text, max+4)
	}
	if len(log.History()) != max+5 {
		t.Errorf("History() = %d entries", len(log.History()))
	}
}

// TestHistoryModeDoesNotExpire checks lines are pinned while history mode is open
func TestHistoryModeDoesNotExpire(t *testing.T) {
	t.Parallel()

	clk := newClock()
	log := NewLog(Config{PreviewTime: seconds(2)}, nil, clk.Now)
	log.Append("old")
	log.Open()

	if removed := log.Tick(clk.Set(time.Minute)); removed != 0 {
		t.Errorf("Tick() in history mode removed %d", removed)
	}
	if len(log.Visible()) != 1 {
		t.Errorf("Visible() = %d entries, want 1", len(log.Visible()))
	}
}

// TestToggle checks toggling releases every UI entry on close
func TestToggle(t *testing.T) {
	t.Parallel()

	view := &recordingView{}
	log := NewLog(DefaultConfig(), view, newClock().Now)
	log.Append("x")
	log.Append("y")

	if !log.Toggle() || !log.IsOpen() {
		t.Fatal("first Toggle() should open history mode")
	}
	// Preview entries are replaced by the history view.
	if len(view.hidden) != 2 || len(log.Visible()) != 2 {
		t.Errorf("after open: hidden=%v visible=%d", view.hidden, len(log.Visible()))
	}

	if log.Toggle() || log.IsOpen() {
		t.Fatal("second Toggle() should close history mode")
	}
	if len(log.Visible()) != 0 || len(view.hidden) != 4 {
		t.Errorf("after close: hidden=%v visible=%d", view.hidden, len(log.Visible()))
	}
	if len(view.shown) != 4 {
		t.Errorf("shown = %v", view.shown)
	}
}

// TestPreviewQueueBounded checks the preview queue never exceeds MaxMessages
func TestPreviewQueueBounded(t *testing.T) {
	t.Parallel()

	log := NewLog(Config{MaxMessages: 3}, nil, newClock().Now)
	for i := 0; i < 10; i++ {
		log.Append(fmt.Sprintf("%d", i))
	}

	visible := log.Visible()
	if len(visible) != 3 || visible[0].Text != "7" {
		t.Errorf("Visible() = %v", visible)
	}
}

// TestCompose tests outbound message preparation
func TestCompose(t *testing.T) {
	t.Parallel()

	log := NewLog(Config{MaxOutboundLength: 8}, nil, nil)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"trimmed", "  hi  ", "hi", nil},
		{"empty", "   ", "", ErrEmptyMessage},
		{"truncated", "0123456789", "01234567", nil},
		{"no split rune", "abcdef世界", "abcdef", nil},
		{"invalid utf8 under limit", "a\xffb", "ab", nil},
		{"only invalid utf8", "\xfe\xff", "", ErrEmptyMessage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := log.Compose(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compose() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want || !utf8.ValidString(got) {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDefaultConfig tests the default chat configuration
func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.MaxMessages != 25 || cfg.PreviewTime != 2*time.Second || cfg.MaxOutboundLength != 256 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
