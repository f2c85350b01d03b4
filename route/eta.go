package route

import (
	"sync"
	"time"
)

// Countdown ticks a displayed ETA down one minute at a time between route
// refreshes. The provider's duration is authoritative: Refresh always
// overwrites whatever the local countdown has reached.
type Countdown struct {
	mu      sync.Mutex
	minutes int
	ticker  *time.Ticker
	stop    chan struct{}
	onTick  func(minutes int)
}

// NewCountdown starts a countdown from a route result. onTick fires with the
// remaining minutes after every local decrement and every refresh.
func NewCountdown(res *Result, onTick func(minutes int)) *Countdown {
	c := &Countdown{
		minutes: res.ETAMinutes(),
		ticker:  time.NewTicker(time.Minute),
		stop:    make(chan struct{}),
		onTick:  onTick,
	}
	go c.loop()
	return c
}

func (c *Countdown) loop() {
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.C:
			c.mu.Lock()
			if c.minutes > 0 {
				c.minutes--
			}
			m := c.minutes
			fn := c.onTick
			c.mu.Unlock()
			if fn != nil {
				fn(m)
			}
		}
	}
}

// Minutes returns the current displayed ETA.
func (c *Countdown) Minutes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minutes
}

// Refresh overwrites the countdown with a fresh authoritative result.
func (c *Countdown) Refresh(res *Result) {
	c.mu.Lock()
	c.minutes = res.ETAMinutes()
	m := c.minutes
	fn := c.onTick
	c.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

// Stop halts the local ticking. Safe to call more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.stop:
	default:
		close(c.stop)
		c.ticker.Stop()
	}
}
