package setups

import (
	"spec-mtc-go/drivers/gpio"
	"spec-mtc-go/drivers/rcc"
)

// LQFP144: ports A..G fully bonded, PH0/PH1 only.
var lqfp144 = Descriptor{
	Name: "stm32h563zi",
	Pins: [gpio.NumPorts]uint16{
		gpio.PortA: 0xFFFF,
		gpio.PortB: 0xFFFF,
		gpio.PortC: 0xFFFF,
		gpio.PortD: 0xFFFF,
		gpio.PortE: 0xFFFF,
		gpio.PortF: 0xFFFF,
		gpio.PortG: 0xFFFF,
		gpio.PortH: 0x0003,
	},
}

// NucleoClock runs SYSCLK at 200 MHz from HSI through PLL1 at VOS1, with
// PLL2 R feeding the ADC/DAC kernel clock at 100 MHz.
var NucleoClock = rcc.Plan{
	HSI:    true,
	HSIDiv: rcc.HSIDiv1,
	CSI:    true,
	PLL: [3]rcc.PLL{
		{Source: rcc.PLLSrcHSI, PreDiv: 4, Mul: 25, DivP: 2, DivQ: 4},
		{Source: rcc.PLLSrcHSI, PreDiv: 4, Mul: 25, DivR: 4},
	},
	Sys:          rcc.SysPLL1P,
	AHB:          rcc.AHBDiv1,
	APB1:         rcc.APBDiv2,
	APB2:         rcc.APBDiv2,
	APB3:         rcc.APBDiv2,
	VoltageScale: rcc.Scale1,
	ADCDAC:       rcc.ADCDACPLL2R,
}

// NucleoH563ZI is the Nucleo-144 board with its three user LEDs.
var NucleoH563ZI = Setup{
	Board: lqfp144,
	Clock: NucleoClock,
	LEDs: []LEDPlan{
		{Name: "green", Pin: gpio.PB0, Speed: gpio.SpeedLow, Initial: true},
		{Name: "orange", Pin: gpio.PF4, Speed: gpio.SpeedLow, Initial: true},
		{Name: "red", Pin: gpio.PG4, Speed: gpio.SpeedLow, Initial: true},
	},
}
