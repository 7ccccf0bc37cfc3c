package rcc

import (
	"spec-mtc-go/errcode"
	"spec-mtc-go/x/mathx"
	"spec-mtc-go/x/strconvx"
)

// PLL input and VCO operating ranges (Hz).
const (
	pllRefMin = 1_000_000
	pllRefMax = 16_000_000

	vcoWideMin   = 192_000_000
	vcoWideMax   = 836_000_000
	vcoMediumMin = 150_000_000
	vcoMediumMax = 420_000_000
	vcoMediumRef = 2_000_000 // medium VCO only with ref <= 2 MHz
)

// PLLClocks are the derived frequencies of one PLL. Disabled outputs are 0.
type PLLClocks struct {
	Ref     uint32
	VCO     uint32
	P, Q, R uint32

	rge    uint32 // input range field
	medium bool   // VCOSEL
}

// Clocks is the frozen, validated result of a Plan. All values are Hz.
type Clocks struct {
	HSI, CSI, HSE uint32
	PLL           [3]PLLClocks

	Sys   uint32
	HCLK  uint32
	PCLK1 uint32
	PCLK2 uint32
	PCLK3 uint32

	ADCDAC uint32

	VoltageScale VoltageScale
	FlashLatency uint8
}

// Valid reports whether c came out of a successful Derive.
func (c Clocks) Valid() bool { return c.Sys != 0 }

const opDerive = "rcc.derive"

func invalid(msg string) error { return errcode.New(errcode.InvalidClockPlan, opDerive, msg) }

func outOfRange(what string, hz uint64, lo, hi uint32) error {
	msg := what + " " + strconvx.FormatUint(hz, 10) + " Hz not in [" +
		strconvx.FormatUint(uint64(lo), 10) + ", " + strconvx.FormatUint(uint64(hi), 10) + "]"
	return errcode.New(errcode.FreqOutOfRange, opDerive, msg)
}

// Derive computes every frequency a plan produces and checks each against the
// hardware envelope. It touches no registers.
func Derive(p Plan) (Clocks, error) {
	var c Clocks

	if p.VoltageScale > Scale3 {
		return Clocks{}, invalid("voltage scale")
	}
	c.VoltageScale = p.VoltageScale
	limit := p.VoltageScale.MaxFreq()

	// Oscillators.
	if p.HSI {
		if p.HSIDiv > HSIDiv8 {
			return Clocks{}, invalid("hsi divider")
		}
		c.HSI = HSIFreq / p.HSIDiv.divisor()
	}
	if p.CSI {
		c.CSI = CSIFreq
	}
	if p.HSE != 0 {
		if !mathx.Between(p.HSE, HSEMin, HSEMax) {
			return Clocks{}, outOfRange("hse", uint64(p.HSE), HSEMin, HSEMax)
		}
		c.HSE = p.HSE
	}

	// PLLs.
	for i := range p.PLL {
		pc, err := derivePLL(i, p.PLL[i], c, limit)
		if err != nil {
			return Clocks{}, err
		}
		c.PLL[i] = pc
	}

	// System and bus clocks.
	switch p.Sys {
	case SysHSI:
		c.Sys = c.HSI
	case SysCSI:
		c.Sys = c.CSI
	case SysHSE:
		c.Sys = c.HSE
	case SysPLL1P:
		c.Sys = c.PLL[0].P
	default:
		return Clocks{}, invalid("system clock source")
	}
	if c.Sys == 0 {
		return Clocks{}, invalid("system clock source not running")
	}
	if c.Sys > limit {
		return Clocks{}, outOfRange("sysclk", uint64(c.Sys), 0, limit)
	}

	if p.AHB > AHBDiv512 {
		return Clocks{}, invalid("ahb prescaler")
	}
	c.HCLK = c.Sys / ahbDivisors[p.AHB]
	if c.HCLK > limit {
		return Clocks{}, outOfRange("hclk", uint64(c.HCLK), 0, limit)
	}

	apb := [3]APBPre{p.APB1, p.APB2, p.APB3}
	var pclk [3]uint32
	for i, pre := range apb {
		if pre > APBDiv16 {
			return Clocks{}, invalid("apb" + strconvx.Itoa(i+1) + " prescaler")
		}
		pclk[i] = c.HCLK >> pre
		if pclk[i] > limit {
			return Clocks{}, outOfRange("pclk"+strconvx.Itoa(i+1), uint64(pclk[i]), 0, limit)
		}
	}
	c.PCLK1, c.PCLK2, c.PCLK3 = pclk[0], pclk[1], pclk[2]

	// Kernel clock mux.
	switch p.ADCDAC {
	case ADCDACHCLK:
		c.ADCDAC = c.HCLK
	case ADCDACSYSCLK:
		c.ADCDAC = c.Sys
	case ADCDACPLL2R:
		c.ADCDAC = c.PLL[1].R
	case ADCDACHSE:
		c.ADCDAC = c.HSE
	case ADCDACHSIKer:
		c.ADCDAC = c.HSI
	case ADCDACCSIKer:
		c.ADCDAC = c.CSI
	default:
		return Clocks{}, invalid("adcdac kernel source")
	}
	if c.ADCDAC == 0 {
		return Clocks{}, invalid("adcdac kernel source not running")
	}

	ws, ok := flashLatency(p.VoltageScale, c.HCLK)
	if !ok {
		return Clocks{}, outOfRange("hclk", uint64(c.HCLK), 0, limit)
	}
	c.FlashLatency = ws
	return c, nil
}

func derivePLL(i int, p PLL, c Clocks, limit uint32) (PLLClocks, error) {
	var pc PLLClocks
	if !p.enabled() {
		return pc, nil
	}
	name := "pll" + strconvx.Itoa(i+1)

	var in uint32
	switch p.Source {
	case PLLSrcHSI:
		in = c.HSI
	case PLLSrcCSI:
		in = c.CSI
	case PLLSrcHSE:
		in = c.HSE
	default:
		return pc, invalid(name + " source")
	}
	if in == 0 {
		return pc, invalid(name + " source oscillator not enabled")
	}
	if !mathx.Between(p.PreDiv, 1, 63) {
		return pc, invalid(name + " prediv")
	}
	if !mathx.Between(p.Mul, 4, 512) {
		return pc, invalid(name + " mul")
	}

	pc.Ref = in / uint32(p.PreDiv)
	if !mathx.Between(pc.Ref, pllRefMin, pllRefMax) {
		return pc, outOfRange(name+" input", uint64(pc.Ref), pllRefMin, pllRefMax)
	}
	pc.rge = refRange(pc.Ref)

	vco := uint64(pc.Ref) * uint64(p.Mul)
	switch {
	case mathx.Between(vco, vcoWideMin, vcoWideMax):
	case pc.Ref <= vcoMediumRef && mathx.Between(vco, vcoMediumMin, vcoMediumMax):
		pc.medium = true
	default:
		return pc, outOfRange(name+" vco", vco, vcoWideMin, vcoWideMax)
	}
	pc.VCO = uint32(vco)

	outs := [3]struct {
		div uint8
		dst *uint32
		tag string
	}{
		{p.DivP, &pc.P, "_p"},
		{p.DivQ, &pc.Q, "_q"},
		{p.DivR, &pc.R, "_r"},
	}
	for k, o := range outs {
		if o.div == 0 {
			continue
		}
		if o.div > 128 {
			return pc, invalid(name + o.tag + " divider")
		}
		if i == 0 && k == 0 && o.div%2 != 0 {
			return pc, invalid("pll1_p divider must be even")
		}
		*o.dst = pc.VCO / uint32(o.div)
		if *o.dst > limit {
			return pc, outOfRange(name+o.tag, uint64(*o.dst), 0, limit)
		}
	}
	return pc, nil
}

// refRange returns the PLLRGE field for a reference frequency.
func refRange(ref uint32) uint32 {
	switch {
	case ref < 2_000_000:
		return 0
	case ref < 4_000_000:
		return 1
	case ref < 8_000_000:
		return 2
	default:
		return 3
	}
}

// Upper HCLK bound (MHz) for each flash wait-state count, per voltage scale.
var flashWS = [4][]uint32{
	Scale0: {42, 84, 126, 168, 210, 250},
	Scale1: {34, 68, 102, 136, 170, 200},
	Scale2: {30, 60, 90, 120, 150},
	Scale3: {20, 40, 60, 80, 100},
}

func flashLatency(v VoltageScale, hclk uint32) (uint8, bool) {
	for ws, mhz := range flashWS[v] {
		if hclk <= mhz*1_000_000 {
			return uint8(ws), true
		}
	}
	return 0, false
}
