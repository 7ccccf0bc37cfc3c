// Package setups holds compile-time board setups: the clock plan and the
// pin assignment a board is brought up with.
package setups

import (
	"spec-mtc-go/drivers/gpio"
	"spec-mtc-go/drivers/rcc"
)

// Descriptor says what the package bonds out. It carries no wiring choices.
type Descriptor struct {
	Name string
	// Pins holds one bit per bonded pin, indexed by port.
	Pins [gpio.NumPorts]uint16
}

// Has reports whether p is bonded out on this package.
func (d Descriptor) Has(p gpio.Pin) bool {
	return p.Valid() && d.Pins[p.Port]&(1<<p.Num) != 0
}

// LEDPlan assigns one status LED.
type LEDPlan struct {
	Name      string // "green", "orange", "red"
	Pin       gpio.Pin
	Speed     gpio.Speed
	ActiveLow bool
	Initial   bool
}

// Setup is everything bring-up needs for one board.
type Setup struct {
	Board Descriptor
	Clock rcc.Plan
	LEDs  []LEDPlan
}
