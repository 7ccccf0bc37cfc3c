package blink

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"spec-mtc-go/bus"
	"spec-mtc-go/drivers/gpio"
	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/errcode"
	"spec-mtc-go/sched"
	"spec-mtc-go/services/hal"
	"spec-mtc-go/types"
	"spec-mtc-go/x/diag"
)

type edge struct {
	at time.Duration
	on bool
}

// recorder is an Output that timestamps every write.
type recorder struct {
	clk   sched.Clock
	edges []edge
}

func (r *recorder) Set(on bool) { r.edges = append(r.edges, edge{r.clk.Now(), on}) }

func TestTrace(t *testing.T) {
	s := mmio.NewSim()
	gpio.AttachSim(s)
	out := gpio.Configure(s, gpio.PB0, gpio.OutputConfig{})

	clk := &sched.ManualClock{}
	x := sched.NewExecutor(clk, 1, nil)
	if err := x.Spawn("blink", New("green", out, Config{Interval: 2 * time.Second})); err != nil {
		t.Fatal(err)
	}

	want := []struct {
		at time.Duration
		on bool
	}{
		{0, true},
		{2 * time.Second, false},
		{4 * time.Second, true},
		{6 * time.Second, false},
	}
	for _, w := range want {
		clk.Set(w.at)
		x.Step()
		if got := out.Get(); got != w.on {
			t.Fatalf("t=%v output=%v, want %v", w.at, got, w.on)
		}
		// Just before the next boundary nothing changes.
		clk.Set(w.at + 2*time.Second - time.Millisecond)
		if n := x.Step(); n != 0 || out.Get() != w.on {
			t.Fatalf("t=%v: task ran early", clk.Now())
		}
	}
}

func TestCycleBalance(t *testing.T) {
	const (
		d = 250 * time.Millisecond
		n = 20
	)
	clk := &sched.ManualClock{}
	rec := &recorder{clk: clk}
	x := sched.NewExecutor(clk, 1, nil)
	_ = x.Spawn("blink", New("red", rec, Config{Interval: d}))

	sched.Drive(x, clk, 2*n*d-1, time.Millisecond)

	if len(rec.edges) != 2*n {
		t.Fatalf("edges = %d, want %d", len(rec.edges), 2*n)
	}
	var high, low time.Duration
	for i, e := range rec.edges {
		if e.on != (i%2 == 0) {
			t.Fatalf("edge %d = %v, want strict alternation starting high", i, e.on)
		}
		if e.at != time.Duration(i)*d {
			t.Fatalf("edge %d at %v, want %v", i, e.at, time.Duration(i)*d)
		}
		end := time.Duration(2*n) * d
		if i+1 < len(rec.edges) {
			end = rec.edges[i+1].at
		}
		if e.on {
			high += end - e.at
		} else {
			low += end - e.at
		}
	}
	if high != n*d || low != n*d {
		t.Fatalf("high=%v low=%v, want %v each", high, low, n*d)
	}
}

// A late poll does not push later deadlines back.
func TestNoDrift(t *testing.T) {
	clk := &sched.ManualClock{}
	task := New("g", &recorder{clk: clk}, Config{Interval: time.Second})

	task.Poll(0)
	w := task.Poll(1300 * time.Millisecond) // ran 300ms late
	if at, _ := w.Deadline(); at != 2*time.Second {
		t.Fatalf("next deadline = %v, want 2s", at)
	}
}

func TestDefaultInterval(t *testing.T) {
	if New("g", &recorder{}, Config{}).Interval() != DefaultInterval {
		t.Fatal("zero interval should default to 2s")
	}
}

func TestLogsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	b := bus.NewBus(4)
	conn := b.NewConnection("blink")
	clk := &sched.ManualClock{}
	task := New("orange", &recorder{clk: clk}, Config{Log: diag.New(&buf, nil), Conn: conn})

	task.Poll(0)
	sub := conn.Subscribe(hal.TopicLEDValue("orange"))
	m, ok := sub.TryRecv()
	if !ok || m.Payload.(types.LEDValue).Level != 1 {
		t.Fatalf("retained value = %+v", m)
	}
	task.Poll(2 * time.Second)
	m, ok = sub.TryRecv()
	if !ok {
		t.Fatal("no value after second poll")
	}
	if v := m.Payload.(types.LEDValue); v.Level != 0 || v.TS != 2000 {
		t.Fatalf("value = %+v", v)
	}

	logs := buf.String()
	if !strings.Contains(logs, `msg="Turning LED on" led=orange`) ||
		!strings.Contains(logs, `msg="Turning LED off" led=orange`) {
		t.Fatalf("logs = %q", logs)
	}
}

func freshPool(t *testing.T) {
	t.Helper()
	pool = sched.NewPool("blink", PoolSize)
	t.Cleanup(func() { pool = sched.NewPool("blink", PoolSize) })
}

// The pool bounds blink tasks program-wide, not per executor.
func TestPoolIsProgramWide(t *testing.T) {
	freshPool(t)
	s := mmio.NewSim()
	gpio.AttachSim(s)
	x1 := sched.NewExecutor(&sched.ManualClock{}, 8, nil)
	x2 := sched.NewExecutor(&sched.ManualClock{}, 8, nil)

	pins := []gpio.Pin{gpio.PB0, gpio.PF4, gpio.PG4, {Port: gpio.PortA, Num: 5}}
	var err error
	for i, pin := range pins {
		x := x1
		if i%2 == 1 {
			x = x2
		}
		led := &hal.LED{Name: pin.String(), Out: gpio.Configure(s, pin, gpio.OutputConfig{})}
		err = Spawn(x, led, Config{})
		if i < PoolSize && err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}
	if errcode.Of(err) != errcode.PoolExhausted {
		t.Fatalf("fourth spawn = %v, want pool_exhausted", err)
	}
	if Spawned() != PoolSize || x1.Len()+x2.Len() != PoolSize {
		t.Fatalf("spawned=%d tasks=%d", Spawned(), x1.Len()+x2.Len())
	}
}
