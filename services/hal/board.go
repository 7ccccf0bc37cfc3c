// Package hal brings the board up: clock tree first, then pin claims, then
// a Board value whose handles are moved out to the tasks that own them.
package hal

import (
	"log/slog"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"spec-mtc-go/bus"
	"spec-mtc-go/drivers/gpio"
	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/drivers/rcc"
	"spec-mtc-go/errcode"
	"spec-mtc-go/services/hal/setups"
	"spec-mtc-go/types"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/timex"
)

// Thermometer is a temperature channel read through the drivers.Sensor
// contract: Update(drivers.Temperature) then Temperature in milli-°C.
type Thermometer interface {
	drivers.Sensor
	Temperature() int32
}

// SensorChannel names one thermometer.
type SensorChannel struct {
	Name string
	Dev  Thermometer
}

// LED is an owned status LED.
type LED struct {
	Name  string
	Out   *gpio.Output
	Speed gpio.Speed
}

// Board is the single brought-up board.
type Board struct {
	Name     string
	Clocks   rcc.Clocks
	Registry *Registry
	Sensors  []SensorChannel

	leds  map[string]*LED
	names []string
	taken map[string]bool
}

var bringUpTaken atomic.Bool

// BringUp programs the clock tree, claims every LED in s and returns the
// Board. It may run once per process; any failure leaves no Board behind.
func BringUp(regs mmio.Bus, s setups.Setup, log *slog.Logger) (*Board, error) {
	log = diag.Or(log)
	if bringUpTaken.Swap(true) {
		return nil, errcode.New(errcode.AlreadyTaken, "hal.bringup", "board already brought up")
	}

	clk, err := rcc.New(regs).Apply(s.Clock)
	if err != nil {
		return nil, err
	}
	log.Info("clocks applied",
		"sysclk_mhz", timex.MHz(clk.Sys),
		"hclk_mhz", timex.MHz(clk.HCLK),
		"pclk1_mhz", timex.MHz(clk.PCLK1),
		"flash_ws", clk.FlashLatency)

	reg, err := NewRegistry(regs, clk, s.Board)
	if err != nil {
		return nil, err
	}

	b := &Board{
		Name:     s.Board.Name,
		Clocks:   clk,
		Registry: reg,
		Sensors:  sensorChannels(),
		leds:     make(map[string]*LED, len(s.LEDs)),
		taken:    make(map[string]bool, len(s.LEDs)),
	}
	for _, l := range s.LEDs {
		out, err := reg.ClaimOutput("led."+l.Name, l.Pin, gpio.OutputConfig{
			Speed:     l.Speed,
			ActiveLow: l.ActiveLow,
			Initial:   l.Initial,
		})
		if err != nil {
			return nil, err
		}
		b.leds[l.Name] = &LED{Name: l.Name, Out: out, Speed: l.Speed}
		b.names = append(b.names, l.Name)
		log.Debug("led claimed", "led", l.Name, "pin", l.Pin.String())
	}
	log.Info("board up", "board", b.Name, "leds", len(b.names), "sensors", len(b.Sensors))
	return b, nil
}

// LEDNames lists the LEDs in setup order.
func (b *Board) LEDNames() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// TakeLED moves the named LED out of the board. Each LED can be taken once.
func (b *Board) TakeLED(name string) (*LED, error) {
	l, ok := b.leds[name]
	if !ok {
		return nil, errcode.New(errcode.InvalidParams, "hal.take_led", "no led "+name)
	}
	if b.taken[name] {
		return nil, errcode.New(errcode.AlreadyTaken, "hal.take_led", name)
	}
	b.taken[name] = true
	return l, nil
}

// ClockInfo summarises the frozen clock tree for publication.
func (b *Board) ClockInfo() types.ClockInfo {
	c := b.Clocks
	return types.ClockInfo{
		SysclkHz: c.Sys,
		HclkHz:   c.HCLK,
		Pclk1Hz:  c.PCLK1,
		Pclk2Hz:  c.PCLK2,
		Pclk3Hz:  c.PCLK3,
		VOS:      uint8(c.VoltageScale),
		FlashWS:  c.FlashLatency,
	}
}

// Publish announces the board on the bus: retained state, clock summary,
// LED info and initial sensor status.
func (b *Board) Publish(conn *bus.Connection, uptime time.Duration) {
	ts := timex.Ms(uptime)
	conn.Publish(conn.NewMessage(TopicClockInfo(), b.ClockInfo(), true))
	for _, name := range b.names {
		l := b.leds[name]
		conn.Publish(conn.NewMessage(TopicLEDInfo(name),
			types.LEDInfo{Pin: l.Out.Pin().String(), Speed: l.Speed.String()}, true))
	}
	for _, s := range b.Sensors {
		conn.Publish(conn.NewMessage(TopicTempStatus(s.Name),
			types.CapabilityStatus{Link: types.LinkDown, TS: ts}, true))
	}
	conn.Publish(conn.NewMessage(TopicState(),
		types.HALState{Level: "ready", Status: b.Name, TS: ts}, true))
}

// sleepForever parks the caller; replaced in tests.
var sleepForever = func() {
	for {
		time.Sleep(time.Hour)
	}
}

// Halt reports a fatal bring-up error and stops. No retry, no reset.
// flush, if given, pushes buffered diagnostics out before parking.
func Halt(log *slog.Logger, err error, flush func()) {
	diag.Or(log).Error("bring-up failed, halting", "code", string(errcode.Of(err)), "err", err)
	if flush != nil {
		flush()
	}
	sleepForever()
}
