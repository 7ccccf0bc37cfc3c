// Package sched is a single-goroutine cooperative executor.
//
// A Task is a state machine: each Poll does a bounded amount of work and
// returns the Wait it should be resumed on. The executor never preempts a
// task and polls every ready task at most once per round, rotating the
// starting point so that no ready task is starved.
package sched

import (
	"sync/atomic"
	"time"
)

// Task is one cooperatively scheduled activity. now is the executor clock
// at the time of the poll.
type Task interface {
	Poll(now time.Duration) Wait
}

// TaskFunc adapts a function to Task.
type TaskFunc func(now time.Duration) Wait

func (f TaskFunc) Poll(now time.Duration) Wait { return f(now) }

type waitKind uint8

const (
	waitYield waitKind = iota
	waitAt
	waitOn
	waitOnOrAt
	waitDone
)

// Wait is the condition a suspended task resumes on.
type Wait struct {
	kind waitKind
	at   time.Duration
	ev   *Event
}

// Yield resumes the task in the next round.
func Yield() Wait { return Wait{kind: waitYield} }

// At resumes the task once the clock reaches t. It never fires early.
func At(t time.Duration) Wait { return Wait{kind: waitAt, at: t} }

// After resumes the task d after now. A negative d is treated as zero.
func After(now, d time.Duration) Wait {
	if d < 0 {
		d = 0
	}
	return At(now + d)
}

// On resumes the task once ev has been posted. A nil ev degrades to Yield.
func On(ev *Event) Wait {
	if ev == nil {
		return Yield()
	}
	return Wait{kind: waitOn, ev: ev}
}

// OnOrAt resumes the task on whichever comes first: ev posted or clock at t.
// A nil ev degrades to At(t).
func OnOrAt(ev *Event, t time.Duration) Wait {
	if ev == nil {
		return At(t)
	}
	return Wait{kind: waitOnOrAt, ev: ev, at: t}
}

// Done retires the task; it is never polled again.
func Done() Wait { return Wait{kind: waitDone} }

// Deadline returns the timer part of w, if any.
func (w Wait) Deadline() (time.Duration, bool) {
	return w.at, w.kind == waitAt || w.kind == waitOnOrAt
}

// Event is a latched, auto-reset wake-up flag. Post may be called from any
// goroutine or from an interrupt handler: it never blocks and never
// allocates. Several posts before the waiter runs coalesce into one.
type Event struct {
	pending atomic.Bool
	owner   atomic.Pointer[Executor]
}

func NewEvent() *Event { return &Event{} }

// Post latches the event and wakes the executor waiting on it.
func (e *Event) Post() {
	e.pending.Store(true)
	if x := e.owner.Load(); x != nil {
		x.Wake()
	}
}

// Pending reports whether a post has not yet been consumed.
func (e *Event) Pending() bool { return e.pending.Load() }

func (e *Event) take() bool { return e.pending.Swap(false) }

func (e *Event) bind(x *Executor) {
	if e.owner.Load() != x {
		e.owner.Store(x)
	}
}
