package identity

import (
	"strings"
	"sync"
	"time"
)

// StrangerThrottle limits how often the hub tells an unrecognized sender how
// to register, so a noisy unknown correspondent cannot trigger a reply on
// every tick. Spec §9 fixes the window at once per 24h per sender.
type StrangerThrottle struct {
	window time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewStrangerThrottle builds a throttle with the given window (24h in
// production; injectable for tests).
func NewStrangerThrottle(window time.Duration) *StrangerThrottle {
	return &StrangerThrottle{window: window, lastSent: map[string]time.Time{}}
}

// ShouldNotify reports whether addr may receive another "how to register"
// reply at now, and records the attempt if so.
func (t *StrangerThrottle) ShouldNotify(addr string, now time.Time) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastSent[addr]; ok && now.Sub(last) < t.window {
		return false
	}
	t.lastSent[addr] = now
	return true
}
