// Register addresses and bitfields for the STM32H5 reset and clock control,
// power control (voltage scaling) and flash access control blocks.
package rcc

const (
	rccBase   uintptr = 0x4402_0C00
	pwrBase   uintptr = 0x4402_0800
	flashBase uintptr = 0x4002_2000

	// --- RCC ---
	RegCR       = rccBase + 0x000
	RegCFGR1    = rccBase + 0x01C
	RegCFGR2    = rccBase + 0x020
	RegPLL1CFGR = rccBase + 0x028
	RegPLL2CFGR = rccBase + 0x02C
	RegPLL3CFGR = rccBase + 0x030
	RegPLL1DIVR = rccBase + 0x034
	RegPLL2DIVR = rccBase + 0x03C
	RegPLL3DIVR = rccBase + 0x044
	RegAHB2ENR  = rccBase + 0x08C
	RegCCIPR5   = rccBase + 0x0E0

	// --- PWR ---
	RegVOSCR = pwrBase + 0x10
	RegVOSSR = pwrBase + 0x14

	// --- FLASH ---
	RegACR = flashBase + 0x00
)

// RCC_CR
const (
	crHSION     = 1 << 0
	crHSIRDY    = 1 << 1
	crHSIDIVPos = 3 // [4:3]
	crHSIDIVF   = 1 << 5
	crCSION     = 1 << 8
	crCSIRDY    = 1 << 9
	crHSEON     = 1 << 16
	crHSERDY    = 1 << 17
	crHSEBYP    = 1 << 18
)

// PLLn ON/RDY bits sit in pairs from bit 24.
func crPLLON(n int) uint32  { return 1 << (24 + 2*uint(n)) }
func crPLLRDY(n int) uint32 { return 1 << (25 + 2*uint(n)) }

// RCC_CFGR1
const (
	cfgr1SWPos  = 0 // [1:0]
	cfgr1SWSPos = 3 // [4:3]
)

// RCC_CFGR2
const (
	cfgr2HPREPos  = 0  // [3:0]
	cfgr2PPRE1Pos = 4  // [6:4]
	cfgr2PPRE2Pos = 8  // [10:8]
	cfgr2PPRE3Pos = 12 // [14:12]
)

// RCC_PLLnCFGR
const (
	pllcfgrSRCPos = 0 // [1:0]
	pllcfgrRGEPos = 2 // [3:2]
	pllcfgrVCOSEL = 1 << 5
	pllcfgrMPos   = 8 // [13:8]
	pllcfgrPEN    = 1 << 16
	pllcfgrQEN    = 1 << 17
	pllcfgrREN    = 1 << 18
)

// RCC_PLLnDIVR (fields hold value-1)
const (
	plldivrNPos = 0  // [8:0]
	plldivrPPos = 9  // [15:9]
	plldivrQPos = 16 // [22:16]
	plldivrRPos = 24 // [30:24]
)

// RCC_CCIPR5
const ccipr5ADCDACSELPos = 0 // [2:0]

// PWR_VOSCR / PWR_VOSSR
const (
	voscrVOSPos    = 4 // [5:4]
	vossrVOSRDY    = 1 << 3
	vossrACTVOSRDY = 1 << 13
	vossrACTVOSPos = 14 // [15:14]
)

// FLASH_ACR
const acrLATENCYPos = 0 // [3:0]

var (
	pllCFGR = [3]uintptr{RegPLL1CFGR, RegPLL2CFGR, RegPLL3CFGR}
	pllDIVR = [3]uintptr{RegPLL1DIVR, RegPLL2DIVR, RegPLL3DIVR}
)
