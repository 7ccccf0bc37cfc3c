// Package console drains the diagnostic ring to the serial port from a
// cooperative task, so logging never waits on the UART.
package console

import (
	"io"
	"time"

	"spec-mtc-go/sched"
	"spec-mtc-go/x/shmring"
)

// ChunkSize is the most a single poll writes.
const ChunkSize = 64

type Task struct {
	ring  *shmring.Ring
	w     io.Writer
	ready *sched.Event

	buf     [ChunkSize]byte
	written uint64
	failed  uint64
}

// New attaches to ring; the ring's readable edge wakes the task.
func New(ring *shmring.Ring, w io.Writer) *Task {
	t := &Task{ring: ring, w: w, ready: sched.NewEvent()}
	ring.OnReadable(t.ready.Post)
	if ring.Available() > 0 {
		t.ready.Post()
	}
	return t
}

func (t *Task) Poll(time.Duration) sched.Wait {
	t.drainOnce()
	if t.ring.Available() > 0 {
		return sched.Yield()
	}
	return sched.On(t.ready)
}

func (t *Task) drainOnce() int {
	n := t.ring.TryReadInto(t.buf[:])
	if n == 0 {
		return 0
	}
	if _, err := t.w.Write(t.buf[:n]); err != nil {
		t.failed += uint64(n)
	} else {
		t.written += uint64(n)
	}
	return n
}

// Flush drains everything synchronously. Used on the halt path, where the
// scheduler will never run again.
func (t *Task) Flush() {
	for t.drainOnce() > 0 {
	}
}

// Stats reports bytes delivered and bytes lost to writer errors.
func (t *Task) Stats() (written, failed uint64) { return t.written, t.failed }
