package rcc

import "spec-mtc-go/drivers/mmio"

// SimOptions shapes the simulated clock hardware.
type SimOptions struct {
	// PLLNeverLocks keeps PLLnRDY low for the flagged PLLs.
	PLLNeverLocks [3]bool
	// HSEAbsent keeps HSERDY low.
	HSEAbsent bool
	// VOSStuck keeps VOSRDY low after a VOS change.
	VOSStuck bool
}

// Reset values of the modelled registers.
const (
	resetCR    = crHSION | crHSIRDY | uint32(HSIDiv2)<<crHSIDIVPos | crHSIDIVF
	resetACR   = 3
	resetVOSSR = vossrVOSRDY | vossrACTVOSRDY
)

// AttachSim loads reset state into s and installs hooks that make ready
// flags follow their enable bits, the way the RCC/PWR blocks do.
func AttachSim(s *mmio.Sim, opts SimOptions) {
	s.Poke(RegCR, resetCR)
	s.Poke(RegCFGR1, 0)
	s.Poke(RegCFGR2, 0)
	s.Poke(RegACR, resetACR)
	s.Poke(RegVOSCR, 0)
	s.Poke(RegVOSSR, resetVOSSR)

	s.OnStore(RegCR, func(_ *mmio.Sim, _, v uint32) uint32 {
		v = follow(v, crHSION, crHSIRDY, true)
		if v&crHSION != 0 {
			v |= crHSIDIVF
		}
		v = follow(v, crCSION, crCSIRDY, true)
		v = follow(v, crHSEON, crHSERDY, !opts.HSEAbsent)
		for i := 0; i < 3; i++ {
			v = follow(v, crPLLON(i), crPLLRDY(i), !opts.PLLNeverLocks[i])
		}
		return v
	})

	s.OnStore(RegCFGR1, func(_ *mmio.Sim, _, v uint32) uint32 {
		sw := mmio.Field(v, cfgr1SWPos, 2)
		return mmio.Put(v, cfgr1SWSPos, 2, sw)
	})

	s.OnStore(RegVOSCR, func(s *mmio.Sim, _, v uint32) uint32 {
		vos := mmio.Field(v, voscrVOSPos, 2)
		sr := mmio.Put(0, vossrACTVOSPos, 2, vos) | vossrACTVOSRDY
		if !opts.VOSStuck {
			sr |= vossrVOSRDY
		}
		s.Poke(RegVOSSR, sr)
		return v
	})
}

// follow mirrors an enable bit into its ready bit. Ready bits written by
// software are ignored.
func follow(v, on, rdy uint32, ok bool) uint32 {
	v &^= rdy
	if v&on != 0 && ok {
		v |= rdy
	}
	return v
}
