package sched

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"spec-mtc-go/errcode"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/mathx"
	"spec-mtc-go/x/strconvx"
)

// DefaultCapacity is the task table size used when none is given.
const DefaultCapacity = 8

// TaskStats is a per-task health snapshot.
type TaskStats struct {
	Name    string
	Polls   uint64
	MaxLate time.Duration // worst delay between a deadline and its poll
	Done    bool
}

type slot struct {
	name  string
	task  Task
	wait  Wait
	stats TaskStats
}

// Executor owns a fixed task table. All task code runs on the goroutine
// that calls Step or Run.
type Executor struct {
	clock Clock
	log   *slog.Logger

	tasks []*slot
	cap   int
	next  int

	running atomic.Bool
	wake    chan struct{}
}

func NewExecutor(clock Clock, capacity int, log *slog.Logger) *Executor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Executor{
		clock: clock,
		log:   diag.Or(log),
		tasks: make([]*slot, 0, capacity),
		cap:   capacity,
		wake:  make(chan struct{}, 1),
	}
}

// Spawn registers t. Tasks are registered before Run; the table never grows.
// A new task is first polled in the next round.
func (x *Executor) Spawn(name string, t Task) error {
	if x.running.Load() {
		return errcode.New(errcode.SchedulerRunning, "sched.spawn", name)
	}
	if len(x.tasks) >= x.cap {
		return errcode.New(errcode.TaskTableFull, "sched.spawn", name+" (capacity "+strconvx.Itoa(x.cap)+")")
	}
	x.tasks = append(x.tasks, &slot{name: name, task: t, wait: Yield(), stats: TaskStats{Name: name}})
	x.log.Debug("task spawned", "task", name)
	return nil
}

func (x *Executor) Len() int { return len(x.tasks) }

func (x *Executor) Now() time.Duration { return x.clock.Now() }

// Wake makes a sleeping Run re-evaluate its tasks. Non-blocking.
func (x *Executor) Wake() {
	select {
	case x.wake <- struct{}{}:
	default:
	}
}

// ready reports whether s may be polled at now, and how late it is.
func (s *slot) ready(now time.Duration) (ok bool, late time.Duration) {
	w := s.wait
	switch w.kind {
	case waitYield:
		return true, 0
	case waitAt:
		if now >= w.at {
			return true, now - w.at
		}
	case waitOn:
		return w.ev.Pending(), 0
	case waitOnOrAt:
		if w.ev.Pending() {
			return true, 0
		}
		if now >= w.at {
			return true, now - w.at
		}
	}
	return false, 0
}

// Step runs one scheduling round: every task that is ready is polled once,
// starting one slot further along than the previous round. It returns the
// number of polls made.
func (x *Executor) Step() int {
	n := len(x.tasks)
	if n == 0 {
		return 0
	}
	polled := 0
	start := x.next
	x.next = (x.next + 1) % n
	for i := 0; i < n; i++ {
		s := x.tasks[(start+i)%n]
		if s.stats.Done {
			continue
		}
		now := x.clock.Now()
		ok, late := s.ready(now)
		if !ok {
			continue
		}
		if ev := s.wait.ev; ev != nil {
			ev.take()
		}
		s.stats.Polls++
		s.stats.MaxLate = mathx.Max(s.stats.MaxLate, late)

		w := s.task.Poll(now)
		s.wait = w
		polled++

		if w.kind == waitDone {
			s.stats.Done = true
			x.log.Debug("task done", "task", s.name)
			continue
		}
		if w.ev != nil {
			w.ev.bind(x)
		}
	}
	return polled
}

type deadline struct {
	at time.Duration
	ok bool
}

// nextWake summarises the table: the earliest pending deadline, whether a
// task can run right now, and whether any task is still live.
func (x *Executor) nextWake() (next deadline, ready, live bool) {
	now := x.clock.Now()
	for _, s := range x.tasks {
		if s.stats.Done {
			continue
		}
		live = true
		if ok, _ := s.ready(now); ok {
			ready = true
		}
		if at, has := s.wait.Deadline(); has && (!next.ok || at < next.at) {
			next = deadline{at: at, ok: true}
		}
	}
	return next, ready, live
}

// NextDeadline returns the earliest timer any live task waits on.
func (x *Executor) NextDeadline() (time.Duration, bool) {
	d, _, _ := x.nextWake()
	return d.at, d.ok
}

// Run drives the tasks until all are done or ctx is cancelled. Between
// rounds it sleeps on a single timer armed for the earliest deadline, or
// until an Event is posted.
func (x *Executor) Run(ctx context.Context) error {
	if !x.running.CompareAndSwap(false, true) {
		return errcode.New(errcode.SchedulerRunning, "sched.run", "")
	}
	x.log.Info("scheduler running", "tasks", len(x.tasks))

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		x.Step()

		next, ready, live := x.nextWake()
		if !live {
			x.log.Info("all tasks done")
			return nil
		}
		if ready {
			continue
		}

		var tc <-chan time.Time
		if next.ok {
			resetTimer(timer, next.at-x.clock.Now())
			tc = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-x.wake:
		case <-tc:
		}
	}
}

// Stats returns a snapshot of every task's counters. Call it from task code
// or after Run has returned.
func (x *Executor) Stats() []TaskStats {
	out := make([]TaskStats, len(x.tasks))
	for i, s := range x.tasks {
		out[i] = s.stats
	}
	return out
}

// resetTimer safely stops, drains, and resets a timer.
func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
