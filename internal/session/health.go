package session

import (
	"sync"
	"time"

	"github.com/luciancaetano/netsync"
)

// health counts consecutive failures per channel. It is touched both by
// the tick goroutine (decode failures) and the receive loops (lost
// connections), hence the mutex.
type health struct {
	threshold int
	now       func() time.Time
	events    chan netsync.HealthEvent

	mu        sync.Mutex
	failures  map[netsync.Channel]int
	unhealthy map[netsync.Channel]bool
}

func newHealth(threshold int, now func() time.Time) *health {
	return &health{
		threshold: threshold,
		now:       now,
		events:    make(chan netsync.HealthEvent, 8),
		failures:  make(map[netsync.Channel]int),
		unhealthy: make(map[netsync.Channel]bool),
	}
}

// success resets the channel's failure streak.
func (h *health) success(ch netsync.Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[ch] = 0
	h.unhealthy[ch] = false
}

// failure records one failure and publishes an event when the streak
// reaches the threshold. It reports whether the channel turned unhealthy.
func (h *health) failure(ch netsync.Channel, reason string, err error) bool {
	h.mu.Lock()
	h.failures[ch]++
	n := h.failures[ch]
	turned := n == h.threshold
	if turned {
		h.unhealthy[ch] = true
	}
	h.mu.Unlock()

	if turned {
		h.publish(netsync.HealthEvent{Channel: ch, Failures: n, Reason: reason, Err: err, At: h.now()})
	}
	return turned
}

// lost marks the channel unhealthy at once.
func (h *health) lost(ch netsync.Channel, err error) {
	h.mu.Lock()
	h.unhealthy[ch] = true
	n := h.failures[ch]
	h.mu.Unlock()

	h.publish(netsync.HealthEvent{Channel: ch, Failures: n, Reason: reasonConnectionLost, Err: err, At: h.now()})
}

// publish never blocks; a full channel drops the event.
func (h *health) publish(ev netsync.HealthEvent) {
	select {
	case h.events <- ev:
	default:
	}
}

func (h *health) healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, bad := range h.unhealthy {
		if bad {
			return false
		}
	}
	return true
}
