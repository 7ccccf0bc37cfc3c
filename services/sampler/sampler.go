// Package sampler reads temperature channels on a fixed period and
// publishes the readings. It is the seam the control loop will read from.
package sampler

import (
	"log/slog"
	"math"
	"time"

	"tinygo.org/x/drivers"

	"spec-mtc-go/bus"
	"spec-mtc-go/errcode"
	"spec-mtc-go/sched"
	"spec-mtc-go/services/hal"
	"spec-mtc-go/types"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/mathx"
	"spec-mtc-go/x/timex"
)

// DefaultInterval between samples of one channel.
const DefaultInterval = time.Second

// Task samples one channel.
type Task struct {
	ch       hal.SensorChannel
	conn     *bus.Connection
	log      *slog.Logger
	interval time.Duration

	next    time.Duration
	started bool
	link    types.Link
	last    int16
	errs    uint32
}

func New(ch hal.SensorChannel, conn *bus.Connection, log *slog.Logger, interval time.Duration) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Task{
		ch:       ch,
		conn:     conn,
		log:      diag.Or(log).With("sensor", ch.Name),
		interval: interval,
		link:     types.LinkDown,
	}
}

func (t *Task) Poll(now time.Duration) sched.Wait {
	if !t.started {
		t.started = true
		t.next = now
	}
	t.sample(now)
	t.next += t.interval
	return sched.At(t.next)
}

func (t *Task) sample(now time.Duration) {
	ts := timex.Ms(now)
	if err := t.ch.Dev.Update(drivers.Temperature); err != nil {
		t.errs++
		if t.link != types.LinkDegraded {
			t.log.Warn("sensor read failed", "err", err)
		}
		t.setLink(types.LinkDegraded, ts, string(errcode.Of(err)))
		return
	}
	// milli-°C to tenths, rounded half away from zero.
	mc := int64(t.ch.Dev.Temperature())
	if mc >= 0 {
		mc += 50
	} else {
		mc -= 50
	}
	deci := int16(mathx.Clamp(mc/100, math.MinInt16, math.MaxInt16))
	t.last = deci
	t.setLink(types.LinkUp, ts, "")
	t.conn.Publish(t.conn.NewMessage(hal.TopicTempValue(t.ch.Name),
		types.TemperatureValue{DeciC: deci, TS: ts}, true))
}

func (t *Task) setLink(l types.Link, ts int64, code string) {
	if l == t.link {
		return
	}
	t.link = l
	t.conn.Publish(t.conn.NewMessage(hal.TopicTempStatus(t.ch.Name),
		types.CapabilityStatus{Link: l, TS: ts, Error: code}, true))
}

// Last returns the most recent reading in tenths of °C.
func (t *Task) Last() int16 { return t.last }

// Errors counts failed reads.
func (t *Task) Errors() uint32 { return t.errs }
