package app

import (
	"sync"
	"time"
)

// countdownHandler receives the events of a Countdown. Both callbacks get the
// countdown that raised them so the receiver can discard events from a
// countdown it has already replaced.
type countdownHandler interface {
	onTick(c *Countdown)
	onExpire(c *Countdown)
}

// Countdown emits one tick per interval, then a single expiry event, until
// stopped. It runs on its own goroutine and never touches session state
// directly.
type Countdown struct {
	stop chan struct{}
	once sync.Once
}

func startCountdown(interval time.Duration, ticks int, h countdownHandler) *Countdown {
	c := &Countdown{stop: make(chan struct{})}
	go c.run(interval, ticks, h)
	return c
}

func (c *Countdown) run(interval time.Duration, ticks int, h countdownHandler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < ticks; i++ {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
		if c.Stopped() {
			return
		}
		h.onTick(c)
	}
	if !c.Stopped() {
		h.onExpire(c)
	}
}

// Stop cancels the countdown. It is safe to call more than once and never
// blocks, so it may be called while the handler's lock is held.
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Stopped reports whether Stop has been called.
func (c *Countdown) Stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
