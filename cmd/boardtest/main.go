// cmd/boardtest/main.go
package main

import (
	"context"
	"log/slog"
	"time"

	"spec-mtc-go/bus"
	"spec-mtc-go/sched"
	"spec-mtc-go/services/blink"
	"spec-mtc-go/services/console"
	"spec-mtc-go/services/hal"
	"spec-mtc-go/services/hal/setups"
	"spec-mtc-go/types"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/shmring"
	"spec-mtc-go/x/timex"
)

// ---------- Configuration ----------

const (
	// Staggered blink intervals, one per LED in setup order.
	stepInterval = 200 * time.Millisecond

	// A LED that has not toggled within this window fails the check.
	freshMaxAge = 2 * time.Second
	checkEvery  = 3 * time.Second

	// Cycles: 0 = loop forever
	cyclesToRun = 0
)

// ---------- Checker task ----------

// checker watches every LED value topic and reports, each cycle, which LEDs
// toggled recently.
type checker struct {
	log   *slog.Logger
	sub   *bus.Subscription
	ev    *sched.Event
	names []string
	seen  map[string]int64 // led -> last ts_ms
	next  time.Duration
	cycle int
	stop  context.CancelFunc
}

func newChecker(conn *bus.Connection, names []string, log *slog.Logger, stop context.CancelFunc) *checker {
	c := &checker{log: log, ev: sched.NewEvent(), names: names, seen: map[string]int64{}, stop: stop}
	c.sub = conn.SubscribeNotify(bus.T("hal", "cap", "io", string(types.KindLED), "+", "value"), c.ev.Post)
	return c
}

func (c *checker) Poll(now time.Duration) sched.Wait {
	if c.next == 0 {
		c.next = now + checkEvery
	}
	for {
		m, ok := c.sub.TryRecv()
		if !ok {
			break
		}
		if v, ok := m.Payload.(types.LEDValue); ok {
			c.seen[m.Topic.At(4)] = v.TS
		}
	}
	if now < c.next {
		return sched.OnOrAt(c.ev, c.next)
	}

	c.cycle++
	pass := true
	for _, n := range c.names {
		ts, seen := c.seen[n]
		age := timex.Ms(now) - ts
		ok := seen && age <= timex.Ms(freshMaxAge)
		pass = pass && ok
		c.log.Info("led", "cycle", c.cycle, "led", n, "age_ms", age, "ok", ok)
	}
	c.log.Info("=== boardtest ===", "cycle", c.cycle, "pass", pass)

	if cyclesToRun > 0 && c.cycle >= cyclesToRun {
		c.stop()
		return sched.Done()
	}
	c.next += checkEvery
	return sched.OnOrAt(c.ev, c.next)
}

// ---------- Main ----------

func main() {
	println("[boardtest] boot")

	ring := shmring.New(2048)
	cons := console.New(ring, hal.Console())
	log := diag.New(diag.RingWriter{R: ring}, slog.LevelInfo)

	board, err := hal.BringUp(hal.Regs(), setups.NucleoH563ZI, log)
	if err != nil {
		hal.Halt(log, err, cons.Flush)
	}

	clk := sched.NewMonotonicClock()
	x := sched.NewExecutor(clk, sched.DefaultCapacity, log)
	b := bus.NewBus(8)
	board.Publish(b.NewConnection("hal"), clk.Now())
	ui := b.NewConnection("ui")

	_ = x.Spawn("console", cons)

	names := board.LEDNames()
	for i, name := range names {
		led, err := board.TakeLED(name)
		if err != nil {
			hal.Halt(log, err, cons.Flush)
		}
		cfg := blink.Config{
			Interval: time.Duration(i+1) * stepInterval,
			Log:      log,
			Conn:     b.NewConnection("blink." + name),
		}
		if err := blink.Spawn(x, led, cfg); err != nil {
			hal.Halt(log, err, cons.Flush)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := x.Spawn("checker", newChecker(ui, names, log, cancel)); err != nil {
		hal.Halt(log, err, cons.Flush)
	}

	if err := x.Run(ctx); err != nil && err != context.Canceled {
		log.Error("scheduler stopped", "err", err)
	}
	cons.Flush()
	println("[boardtest] done")
}
