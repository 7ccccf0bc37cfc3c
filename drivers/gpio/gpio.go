// Package gpio drives STM32H5 GPIO pins configured as outputs.
package gpio

import (
	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/x/strconvx"
)

// Port indexes GPIOA..GPIOI.
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG
	PortH
	PortI
)

// NumPorts is the number of GPIO ports on the package.
const NumPorts = 9

const (
	portBase   uintptr = 0x4202_0000
	portStride uintptr = 0x400

	offMODER   = 0x00
	offOTYPER  = 0x04
	offOSPEEDR = 0x08
	offODR     = 0x14
	offBSRR    = 0x18
)

// Base returns the register block address of port p.
func (p Port) Base() uintptr { return portBase + uintptr(p)*portStride }

func (p Port) String() string { return string(rune('A' + p)) }

// Pin names one GPIO line.
type Pin struct {
	Port Port
	Num  uint8 // 0..15
}

// Pins used on the Nucleo-H563ZI.
var (
	PB0 = Pin{PortB, 0}
	PF4 = Pin{PortF, 4}
	PG4 = Pin{PortG, 4}
)

func (p Pin) String() string { return "P" + p.Port.String() + strconvx.Itoa(int(p.Num)) }

// Valid reports whether the pin exists on the package.
func (p Pin) Valid() bool { return p.Port < NumPorts && p.Num < 16 }

// Speed is the output slew-rate setting (OSPEEDR encoding).
type Speed uint8

const (
	SpeedLow Speed = iota
	SpeedMedium
	SpeedHigh
	SpeedVeryHigh
)

func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "low"
	case SpeedMedium:
		return "medium"
	case SpeedHigh:
		return "high"
	case SpeedVeryHigh:
		return "very_high"
	}
	return "unknown"
}

// OutputConfig describes how a pin is driven.
type OutputConfig struct {
	Speed     Speed
	OpenDrain bool
	ActiveLow bool
	Initial   bool // logical level driven before the pin leaves input mode
}

const modeOutput = 0b01

// Output is a configured output pin. Levels are logical: ActiveLow pins
// invert at the register.
type Output struct {
	regs mmio.Bus
	pin  Pin
	inv  bool
}

// Configure programs pin as an output. The port clock must already be on.
// The initial level is latched in ODR before MODER switches the pin to
// output, so it never glitches.
func Configure(regs mmio.Bus, pin Pin, cfg OutputConfig) *Output {
	o := &Output{regs: regs, pin: pin, inv: cfg.ActiveLow}
	base := pin.Port.Base()
	n := uint(pin.Num)

	o.Set(cfg.Initial)

	mmio.Modify(regs, base+offOSPEEDR, 0b11<<(2*n), uint32(cfg.Speed)<<(2*n))
	if cfg.OpenDrain {
		mmio.SetBits(regs, base+offOTYPER, 1<<n)
	} else {
		mmio.ClearBits(regs, base+offOTYPER, 1<<n)
	}
	mmio.Modify(regs, base+offMODER, 0b11<<(2*n), modeOutput<<(2*n))
	return o
}

func (o *Output) Pin() Pin { return o.pin }

// Set drives the logical level.
func (o *Output) Set(on bool) {
	n := uint(o.pin.Num)
	if on != o.inv {
		o.regs.Store(o.pin.Port.Base()+offBSRR, 1<<n)
	} else {
		o.regs.Store(o.pin.Port.Base()+offBSRR, 1<<(n+16))
	}
}

func (o *Output) High() { o.Set(true) }
func (o *Output) Low()  { o.Set(false) }

// Get returns the logical level last driven.
func (o *Output) Get() bool {
	v := o.regs.Load(o.pin.Port.Base()+offODR)&(1<<o.pin.Num) != 0
	return v != o.inv
}

// Toggle inverts the level and returns the new logical level.
func (o *Output) Toggle() bool {
	on := !o.Get()
	o.Set(on)
	return on
}

// AttachSim makes BSRR writes on every port update ODR, as the hardware does.
func AttachSim(s *mmio.Sim) {
	for p := Port(0); p < NumPorts; p++ {
		odr := p.Base() + offODR
		s.OnStore(p.Base()+offBSRR, func(s *mmio.Sim, _, v uint32) uint32 {
			cur := s.Peek(odr)
			cur |= v & 0xFFFF
			cur &^= (v >> 16) &^ (v & 0xFFFF) // set wins over reset
			s.Poke(odr, cur)
			return 0 // write-only
		})
	}
}
