// Package rcc programs the STM32H5 clock tree: oscillators, PLLs, bus
// prescalers, core voltage scaling and flash wait states.
//
// Design notes (RM0481):
//   - A Plan is fully derived and range-checked before the first register
//     write, so a rejected plan leaves the reset clock state untouched.
//   - SYSCLK runs from HSI while PLLs are reprogrammed and is moved to the
//     target source only after every PLL reports lock.
//   - Wait states are raised before and lowered after a frequency change.
//   - Programming happens once per reset.
package rcc

import (
	"sync/atomic"

	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/errcode"
	"spec-mtc-go/x/mathx"
)

// DefaultPollBudget bounds every ready/lock wait.
const DefaultPollBudget = 1 << 16

const opApply = "rcc.apply"

// RCC is the single-use owner of the clock-control hardware.
type RCC struct {
	regs    mmio.Bus
	polls   int
	applied atomic.Bool
}

func New(regs mmio.Bus) *RCC {
	return &RCC{regs: regs, polls: DefaultPollBudget}
}

// SetPollBudget overrides the number of polls allowed per ready wait.
func (r *RCC) SetPollBudget(n int) { r.polls = mathx.Max(n, 1) }

// Apply derives p and programs it. Validation failures return before any
// register is touched; once programming starts the RCC is spent and a second
// Apply fails with AlreadyApplied.
func (r *RCC) Apply(p Plan) (Clocks, error) {
	c, err := Derive(p)
	if err != nil {
		return Clocks{}, err
	}
	if r.applied.Swap(true) {
		return Clocks{}, errcode.New(errcode.AlreadyApplied, opApply, "clock tree is programmed once per reset")
	}

	steps := []func(Plan, Clocks) error{
		r.startOscillators,
		r.switchToHSI,
		r.setVoltageScale,
		r.raiseFlashLatency,
		r.startPLLs,
		r.setPrescalers,
		r.switchSysclk,
		r.settleFlashLatency,
		r.setKernelMux,
	}
	for _, step := range steps {
		if err := step(p, c); err != nil {
			return Clocks{}, err
		}
	}
	return c, nil
}

func (r *RCC) wait(addr uintptr, mask, want uint32, code errcode.Code, what string) error {
	if mmio.WaitMask(r.regs, addr, mask, want, r.polls) {
		return nil
	}
	return errcode.New(code, opApply, what)
}

func (r *RCC) startOscillators(p Plan, _ Clocks) error {
	// HSI stays on: it clocks the core while the PLLs are reprogrammed.
	cr := r.regs.Load(RegCR)
	div := uint32(HSIDiv2) // reset divider
	if p.HSI {
		div = uint32(p.HSIDiv)
	}
	if mmio.Field(cr, crHSIDIVPos, 2) != div || cr&crHSION == 0 {
		r.regs.Store(RegCR, mmio.Put(cr, crHSIDIVPos, 2, div)|crHSION)
	}
	if err := r.wait(RegCR, crHSIRDY|crHSIDIVF, crHSIRDY|crHSIDIVF, errcode.OscillatorTimeout, "hsi"); err != nil {
		return err
	}

	if p.CSI {
		mmio.SetBits(r.regs, RegCR, crCSION)
		if err := r.wait(RegCR, crCSIRDY, crCSIRDY, errcode.OscillatorTimeout, "csi"); err != nil {
			return err
		}
	}

	if p.HSE != 0 {
		if p.HSEBypass {
			mmio.SetBits(r.regs, RegCR, crHSEBYP)
		}
		mmio.SetBits(r.regs, RegCR, crHSEON)
		if err := r.wait(RegCR, crHSERDY, crHSERDY, errcode.OscillatorTimeout, "hse"); err != nil {
			return err
		}
	}
	return nil
}

func (r *RCC) switchToHSI(Plan, Clocks) error {
	if mmio.Field(r.regs.Load(RegCFGR1), cfgr1SWSPos, 2) == uint32(SysHSI) {
		return nil
	}
	r.regs.Store(RegCFGR1, mmio.Put(r.regs.Load(RegCFGR1), cfgr1SWPos, 2, uint32(SysHSI)))
	return r.wait(RegCFGR1, 0b11<<cfgr1SWSPos, uint32(SysHSI)<<cfgr1SWSPos, errcode.ClockSwitchTimeout, "sysclk to hsi")
}

func (r *RCC) setVoltageScale(_ Plan, c Clocks) error {
	want := c.VoltageScale.vos()
	v := r.regs.Load(RegVOSCR)
	if mmio.Field(v, voscrVOSPos, 2) != want {
		r.regs.Store(RegVOSCR, mmio.Put(v, voscrVOSPos, 2, want))
	}
	return r.wait(RegVOSSR, vossrVOSRDY, vossrVOSRDY, errcode.VoltageScaleTimeout, "vos")
}

func (r *RCC) setFlashLatency(ws uint8) {
	acr := r.regs.Load(RegACR)
	if mmio.Field(acr, acrLATENCYPos, 4) != uint32(ws) {
		r.regs.Store(RegACR, mmio.Put(acr, acrLATENCYPos, 4, uint32(ws)))
	}
}

func (r *RCC) raiseFlashLatency(_ Plan, c Clocks) error {
	cur := uint8(mmio.Field(r.regs.Load(RegACR), acrLATENCYPos, 4))
	r.setFlashLatency(mathx.Max(cur, c.FlashLatency))
	return nil
}

func (r *RCC) startPLLs(p Plan, c Clocks) error {
	for i, pl := range p.PLL {
		// A running PLL cannot be reconfigured.
		if r.regs.Load(RegCR)&crPLLON(i) != 0 {
			mmio.ClearBits(r.regs, RegCR, crPLLON(i))
			if err := r.wait(RegCR, crPLLRDY(i), 0, errcode.PLLLockTimeout, "pll stop"); err != nil {
				return err
			}
		}
		if !pl.enabled() {
			continue
		}

		pc := c.PLL[i]
		cfg := uint32(pl.Source)<<pllcfgrSRCPos |
			pc.rge<<pllcfgrRGEPos |
			uint32(pl.PreDiv)<<pllcfgrMPos
		if pc.medium {
			cfg |= pllcfgrVCOSEL
		}
		var divr uint32 = uint32(pl.Mul-1) << plldivrNPos
		if pl.DivP != 0 {
			cfg |= pllcfgrPEN
			divr |= uint32(pl.DivP-1) << plldivrPPos
		}
		if pl.DivQ != 0 {
			cfg |= pllcfgrQEN
			divr |= uint32(pl.DivQ-1) << plldivrQPos
		}
		if pl.DivR != 0 {
			cfg |= pllcfgrREN
			divr |= uint32(pl.DivR-1) << plldivrRPos
		}
		r.regs.Store(pllCFGR[i], cfg)
		r.regs.Store(pllDIVR[i], divr)

		mmio.SetBits(r.regs, RegCR, crPLLON(i))
		if err := r.wait(RegCR, crPLLRDY(i), crPLLRDY(i), errcode.PLLLockTimeout, pllName(i)); err != nil {
			return err
		}
	}
	return nil
}

func pllName(i int) string { return [...]string{"pll1", "pll2", "pll3"}[i] }

func (r *RCC) setPrescalers(p Plan, _ Clocks) error {
	v := r.regs.Load(RegCFGR2)
	v = mmio.Put(v, cfgr2HPREPos, 4, p.AHB.hpre())
	v = mmio.Put(v, cfgr2PPRE1Pos, 3, p.APB1.ppre())
	v = mmio.Put(v, cfgr2PPRE2Pos, 3, p.APB2.ppre())
	v = mmio.Put(v, cfgr2PPRE3Pos, 3, p.APB3.ppre())
	r.regs.Store(RegCFGR2, v)
	return nil
}

func (r *RCC) switchSysclk(p Plan, _ Clocks) error {
	if p.Sys == SysPLL1P && r.regs.Load(RegCR)&crPLLRDY(0) == 0 {
		return errcode.New(errcode.PLLLockTimeout, opApply, "pll1 not locked at sysclk switch")
	}
	r.regs.Store(RegCFGR1, mmio.Put(r.regs.Load(RegCFGR1), cfgr1SWPos, 2, uint32(p.Sys)))
	return r.wait(RegCFGR1, 0b11<<cfgr1SWSPos, uint32(p.Sys)<<cfgr1SWSPos, errcode.ClockSwitchTimeout, "sysclk switch")
}

func (r *RCC) settleFlashLatency(_ Plan, c Clocks) error {
	r.setFlashLatency(c.FlashLatency)
	return nil
}

func (r *RCC) setKernelMux(p Plan, _ Clocks) error {
	mmio.Modify(r.regs, RegCCIPR5, 0b111<<ccipr5ADCDACSELPos, uint32(p.ADCDAC)<<ccipr5ADCDACSELPos)
	return nil
}

// EnableGPIOPort turns on the AHB2 clock of GPIO port n (0 = A).
func EnableGPIOPort(regs mmio.Bus, n uint8) {
	mmio.SetBits(regs, RegAHB2ENR, 1<<n)
}
