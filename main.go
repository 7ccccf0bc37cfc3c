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
	"spec-mtc-go/services/heartbeat"
	"spec-mtc-go/services/sampler"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/shmring"
)

const (
	diagRingSize      = 1024
	executorCapacity  = 8
	busQueueLen       = 8
	blinkInterval     = 2 * time.Second
	heartbeatInterval = 10 * time.Second
	sampleInterval    = time.Second
)

func main() {
	println("SPEC Multichannel Temperature Controller Firmware")

	ring := shmring.New(diagRingSize)
	cons := console.New(ring, hal.Console())
	log := diag.New(diag.RingWriter{R: ring}, slog.LevelInfo)
	fatal := func(err error) {
		if err != nil {
			hal.Halt(log, err, cons.Flush)
		}
	}

	board, err := hal.BringUp(hal.Regs(), setups.NucleoH563ZI, log)
	fatal(err)

	clk := sched.NewMonotonicClock()
	x := sched.NewExecutor(clk, executorCapacity, log)
	b := bus.NewBus(busQueueLen)
	board.Publish(b.NewConnection("hal"), clk.Now())

	fatal(x.Spawn("console", cons))

	green, err := board.TakeLED("green")
	fatal(err)
	fatal(blink.Spawn(x, green, blink.Config{
		Interval: blinkInterval,
		Log:      log,
		Conn:     b.NewConnection("blink"),
	}))

	for _, ch := range board.Sensors {
		fatal(x.Spawn("sampler."+ch.Name, sampler.New(ch, b.NewConnection("sampler"), log, sampleInterval)))
	}
	fatal(x.Spawn("heartbeat", heartbeat.New(b.NewConnection("heartbeat"), x, log, heartbeatInterval)))

	// Never returns: no task finishes and nothing cancels the context.
	fatal(x.Run(context.Background()))
}
