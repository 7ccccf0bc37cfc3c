//go:build stm32h5

package hal

import (
	"io"
	"machine"

	"spec-mtc-go/drivers/mmio"
)

// Regs returns the peripheral register bus.
func Regs() mmio.Bus { return mmio.Volatile{} }

// Console is the diagnostic serial port.
func Console() io.Writer { return machine.Serial }

// No temperature front-end is fitted yet.
func sensorChannels() []SensorChannel { return nil }
