package reconciler

import (
	"sync"
	"time"
)

// Coalescer rate-limits a callback to at most one run per interval while
// guaranteeing that the last trigger of a burst still causes a run. Triggers
// arriving while a run is already scheduled fold into it; they are covered
// because the scheduled run happens after them.
type Coalescer struct {
	interval time.Duration
	fn       func()

	mu        sync.Mutex
	lastRun   time.Time
	scheduled bool
}

func NewCoalescer(interval time.Duration, fn func()) *Coalescer {
	return &Coalescer{
		interval: interval,
		fn:       fn,
	}
}

// Trigger requests a run. The run happens immediately when the interval has
// elapsed since the previous one, otherwise it is deferred to the interval
// boundary. Never drops the trailing edge.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	if c.scheduled {
		c.mu.Unlock()
		return
	}

	elapsed := time.Since(c.lastRun)
	if elapsed >= c.interval {
		c.lastRun = time.Now()
		c.mu.Unlock()
		c.fn()
		return
	}

	c.scheduled = true
	delay := c.interval - elapsed
	c.mu.Unlock()

	time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.scheduled = false
		c.lastRun = time.Now()
		c.mu.Unlock()
		c.fn()
	})
}
