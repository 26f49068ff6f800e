// Package health tracks process-level liveness signals for /healthz.
// Nothing in it participates in settlement decisions.
package health

import (
	"sync/atomic"
	"time"
)

// WebhookClock remembers when the last verified webhook arrived. The zero
// value reports "never".
type WebhookClock struct {
	last atomic.Int64 // unix nanos, 0 = never
}

func (c *WebhookClock) Observe(t time.Time) {
	n := t.UnixNano()
	for {
		cur := c.last.Load()
		if cur >= n || c.last.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Last returns the latest observation and false if none was made.
func (c *WebhookClock) Last() (time.Time, bool) {
	n := c.last.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n).UTC(), true
}
