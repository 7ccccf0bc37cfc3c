// Package blink is the periodic status-LED task: drive high, wait D, drive
// low, wait D, forever.
package blink

import (
	"log/slog"
	"time"

	"spec-mtc-go/bus"
	"spec-mtc-go/sched"
	"spec-mtc-go/services/hal"
	"spec-mtc-go/types"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/timex"
)

const (
	// PoolSize is how many blink tasks may exist at once.
	PoolSize = 3
	// DefaultInterval is the time spent in each state.
	DefaultInterval = 2 * time.Second
)

// Output is the pin a blink task owns.
type Output interface {
	Set(on bool)
}

type state uint8

const (
	stateHigh state = iota
	stateLow
)

// Task toggles one output. The interval is fixed at creation. Deadlines are
// derived from the first poll, not from when each poll actually ran, so the
// period does not drift.
type Task struct {
	name string
	out  Output
	d    time.Duration
	log  *slog.Logger
	conn *bus.Connection

	st      state
	next    time.Duration
	started bool
}

// Config carries the optional collaborators of a Task.
type Config struct {
	Interval time.Duration // DefaultInterval if zero
	Log      *slog.Logger
	Conn     *bus.Connection // publishes hal/cap/io/led/<name>/value when set
}

func New(name string, out Output, cfg Config) *Task {
	d := cfg.Interval
	if d <= 0 {
		d = DefaultInterval
	}
	return &Task{
		name: name,
		out:  out,
		d:    d,
		log:  diag.Or(cfg.Log).With("led", name),
		conn: cfg.Conn,
	}
}

func (t *Task) Interval() time.Duration { return t.d }

func (t *Task) Poll(now time.Duration) sched.Wait {
	if !t.started {
		t.started = true
		t.next = now
	}
	switch t.st {
	case stateHigh:
		t.set(now, true)
		t.st = stateLow
	case stateLow:
		t.set(now, false)
		t.st = stateHigh
	}
	t.next += t.d
	return sched.At(t.next)
}

func (t *Task) set(now time.Duration, on bool) {
	t.out.Set(on)
	var lvl uint8
	if on {
		lvl = 1
		t.log.Info("Turning LED on")
	} else {
		t.log.Info("Turning LED off")
	}
	if t.conn != nil {
		t.conn.Publish(t.conn.NewMessage(hal.TopicLEDValue(t.name),
			types.LEDValue{Level: lvl, TS: timex.Ms(now)}, true))
	}
}

// pool bounds blink tasks across the whole program.
var pool = sched.NewPool("blink", PoolSize)

// Spawn starts a blink task for an LED taken from the board. At most
// PoolSize blink tasks exist per program; the next fails with pool_exhausted.
func Spawn(x *sched.Executor, led *hal.LED, cfg Config) error {
	return pool.Spawn(x, "blink."+led.Name, New(led.Name, led.Out, cfg))
}

// Spawned reports how many blink tasks have been started.
func Spawned() int { return pool.Used() }
