package rcc

// Fixed oscillator frequencies and HSE limits (Hz).
const (
	HSIFreq = 64_000_000
	CSIFreq = 4_000_000

	HSEMin = 4_000_000
	HSEMax = 50_000_000
)

// HSIDiv is the HSI output divider (register encoding).
type HSIDiv uint8

const (
	HSIDiv1 HSIDiv = iota
	HSIDiv2
	HSIDiv4
	HSIDiv8
)

func (d HSIDiv) divisor() uint32 { return 1 << d }

// PLLSource selects a PLL reference (register encoding, 0 = PLL unused).
type PLLSource uint8

const (
	PLLSrcNone PLLSource = iota
	PLLSrcHSI
	PLLSrcCSI
	PLLSrcHSE
)

// SysSource selects SYSCLK (register encoding of SW/SWS).
type SysSource uint8

const (
	SysHSI SysSource = iota
	SysCSI
	SysHSE
	SysPLL1P
)

// AHBPre divides SYSCLK into HCLK.
type AHBPre uint8

const (
	AHBDiv1 AHBPre = iota
	AHBDiv2
	AHBDiv4
	AHBDiv8
	AHBDiv16
	AHBDiv64
	AHBDiv128
	AHBDiv256
	AHBDiv512
)

var ahbDivisors = [...]uint32{1, 2, 4, 8, 16, 64, 128, 256, 512}

// hpre returns the CFGR2 HPRE field value.
func (p AHBPre) hpre() uint32 {
	if p == AHBDiv1 {
		return 0
	}
	return 0b0111 + uint32(p)
}

// APBPre divides HCLK into PCLKx.
type APBPre uint8

const (
	APBDiv1 APBPre = iota
	APBDiv2
	APBDiv4
	APBDiv8
	APBDiv16
)

// ppre returns the CFGR2 PPREx field value.
func (p APBPre) ppre() uint32 {
	if p == APBDiv1 {
		return 0
	}
	return 0b011 + uint32(p)
}

// VoltageScale is the core regulator output level. Scale0 allows the highest
// frequencies.
type VoltageScale uint8

const (
	Scale0 VoltageScale = iota
	Scale1
	Scale2
	Scale3
)

// vos returns the PWR_VOSCR VOS field value (VOS3 is 0b00).
func (v VoltageScale) vos() uint32 { return 3 - uint32(v) }

// MaxFreq is the highest SYSCLK/HCLK/PCLK and PLL output allowed at v.
func (v VoltageScale) MaxFreq() uint32 {
	switch v {
	case Scale0:
		return 250_000_000
	case Scale1:
		return 200_000_000
	case Scale2:
		return 150_000_000
	default:
		return 100_000_000
	}
}

// ADCDACSel is the ADC/DAC kernel clock source (register encoding).
type ADCDACSel uint8

const (
	ADCDACHCLK ADCDACSel = iota
	ADCDACSYSCLK
	ADCDACPLL2R
	ADCDACHSE
	ADCDACHSIKer
	ADCDACCSIKer
)

// PLL describes one PLL. A zero divider leaves that output disabled; a
// PLLSrcNone source leaves the PLL off.
type PLL struct {
	Source PLLSource
	PreDiv uint8  // M, 1..63
	Mul    uint16 // N, 4..512
	DivP   uint8  // 0 or 1..128 (even for PLL1)
	DivQ   uint8  // 0 or 1..128
	DivR   uint8  // 0 or 1..128
}

func (p PLL) enabled() bool { return p.Source != PLLSrcNone }

// Plan is the complete clock-tree request. It is a value: copy it, never
// share a pointer to a plan that is about to be applied.
type Plan struct {
	HSI       bool
	HSIDiv    HSIDiv
	CSI       bool
	HSE       uint32 // Hz; 0 leaves HSE off
	HSEBypass bool

	PLL [3]PLL

	Sys          SysSource
	AHB          AHBPre
	APB1         APBPre
	APB2         APBPre
	APB3         APBPre
	VoltageScale VoltageScale
	ADCDAC       ADCDACSel
}
