package sched

import (
	"sync"
	"time"
)

// Clock is the executor's monotonic time source, as an offset from an
// arbitrary origin (boot).
type Clock interface {
	Now() time.Duration
}

// MonotonicClock measures time since it was created.
type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock { return &MonotonicClock{start: time.Now()} }

func (c *MonotonicClock) Now() time.Duration { return time.Since(c.start) }

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	if t > c.now {
		c.now = t
	}
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	if d > 0 {
		c.now += d
	}
	c.mu.Unlock()
}

// Drive runs x against c until the clock passes until. Between rounds the
// clock jumps to the earliest deadline; while some task is immediately
// ready it advances by quantum instead, modelling the time a round costs.
// It returns false if every task finished first.
func Drive(x *Executor, c *ManualClock, until, quantum time.Duration) bool {
	if quantum <= 0 {
		quantum = time.Millisecond
	}
	for c.Now() <= until {
		x.Step()
		next, ready, live := x.nextWake()
		switch {
		case !live:
			return false
		case ready:
			c.Advance(quantum)
		case next.ok:
			if next.at > until {
				c.Set(until + 1)
				return true
			}
			c.Set(next.at)
		default:
			// Only event waiters remain; nothing will move time for them.
			return true
		}
	}
	return true
}
