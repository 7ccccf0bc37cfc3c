//go:build !stm32h5

package hal

import (
	"io"
	"os"
	"sync"

	"tinygo.org/x/drivers"

	"spec-mtc-go/drivers/gpio"
	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/drivers/rcc"
	"spec-mtc-go/errcode"
)

var (
	simOnce sync.Once
	sim     *mmio.Sim
)

// Regs returns the simulated register file, with the RCC/PWR/FLASH and GPIO
// models attached.
func Regs() mmio.Bus { return SimRegs() }

// SimRegs returns the process-wide simulator, creating it on first use.
func SimRegs() *mmio.Sim {
	simOnce.Do(func() {
		sim = mmio.NewSim()
		rcc.AttachSim(sim, rcc.SimOptions{})
		gpio.AttachSim(sim)
	})
	return sim
}

func Console() io.Writer { return os.Stderr }

func sensorChannels() []SensorChannel {
	return []SensorChannel{{Name: "ch0", Dev: &SimThermometer{Base: 21_500, Swing: 1_500, Period: 20}}}
}

// SimThermometer produces a triangle wave around Base (milli-°C) that
// advances one step per Update.
type SimThermometer struct {
	Base   int32
	Swing  int32
	Period int // updates per full cycle
	Fail   bool

	step int
	milC int32
}

var _ drivers.Sensor = (*SimThermometer)(nil)

func (s *SimThermometer) Update(which drivers.Measurement) error {
	if which&drivers.Temperature == 0 {
		return nil
	}
	if s.Fail {
		return errcode.New(errcode.Error, "simtherm.update", "no response")
	}
	p := s.Period
	if p < 2 {
		p = 2
	}
	half := p / 2
	k := s.step % p
	if k > half {
		k = p - k
	}
	// k runs 0..half..0: map onto [-Swing, +Swing].
	s.milC = s.Base - s.Swing + int32(k)*2*s.Swing/int32(half)
	s.step++
	return nil
}

func (s *SimThermometer) Temperature() int32 { return s.milC }
