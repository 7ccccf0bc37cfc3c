package rcc

import (
	"errors"
	"testing"

	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/errcode"
)

// nucleoPlan is the 200 MHz tree the board boots with.
func nucleoPlan() Plan {
	return Plan{
		HSI:    true,
		HSIDiv: HSIDiv1,
		CSI:    true,
		PLL: [3]PLL{
			{Source: PLLSrcHSI, PreDiv: 4, Mul: 25, DivP: 2, DivQ: 4},
			{Source: PLLSrcHSI, PreDiv: 4, Mul: 25, DivR: 4},
		},
		Sys:          SysPLL1P,
		AHB:          AHBDiv1,
		APB1:         APBDiv2,
		APB2:         APBDiv2,
		APB3:         APBDiv2,
		VoltageScale: Scale1,
		ADCDAC:       ADCDACPLL2R,
	}
}

func newSim(opts SimOptions) *mmio.Sim {
	s := mmio.NewSim()
	AttachSim(s, opts)
	return s
}

func TestDeriveNucleoPlan(t *testing.T) {
	c, err := Derive(nucleoPlan())
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	checks := []struct {
		name      string
		got, want uint32
	}{
		{"hsi", c.HSI, 64_000_000},
		{"pll1 ref", c.PLL[0].Ref, 16_000_000},
		{"pll1 vco", c.PLL[0].VCO, 400_000_000},
		{"pll1 p", c.PLL[0].P, 200_000_000},
		{"pll1 q", c.PLL[0].Q, 100_000_000},
		{"pll1 r", c.PLL[0].R, 0},
		{"pll2 r", c.PLL[1].R, 100_000_000},
		{"sys", c.Sys, 200_000_000},
		{"hclk", c.HCLK, 200_000_000},
		{"pclk1", c.PCLK1, 100_000_000},
		{"pclk2", c.PCLK2, 100_000_000},
		{"pclk3", c.PCLK3, 100_000_000},
		{"adcdac", c.ADCDAC, 100_000_000},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %d, want %d", ck.name, ck.got, ck.want)
		}
	}
	if c.FlashLatency != 5 {
		t.Errorf("flash latency = %d, want 5", c.FlashLatency)
	}
	if !c.Valid() {
		t.Error("derived clocks should be valid")
	}
}

func TestDeriveRejects(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Plan)
		want errcode.Code
	}{
		{"sysclk 400MHz", func(p *Plan) { p.PLL[0].Mul = 50 }, errcode.FreqOutOfRange},
		{"vco 1GHz", func(p *Plan) { p.PLL[0].Mul = 62 }, errcode.FreqOutOfRange},
		{"sysclk 500MHz at scale0", func(p *Plan) {
			p.VoltageScale = Scale0
			p.PLL[0].PreDiv = 8
			p.PLL[0].Mul = 125
		}, errcode.FreqOutOfRange},
		{"pll1 q 500MHz at scale0", func(p *Plan) {
			p.VoltageScale = Scale0
			p.PLL[0].PreDiv = 16
			p.PLL[0].Mul = 125
			p.PLL[0].DivQ = 1
		}, errcode.FreqOutOfRange},
		{"pll ref too high", func(p *Plan) { p.PLL[0].PreDiv = 2 }, errcode.FreqOutOfRange},
		{"odd pll1 p", func(p *Plan) { p.PLL[0].DivP = 3 }, errcode.InvalidClockPlan},
		{"mul too small", func(p *Plan) { p.PLL[0].Mul = 3 }, errcode.InvalidClockPlan},
		{"prediv zero", func(p *Plan) { p.PLL[0].PreDiv = 0 }, errcode.InvalidClockPlan},
		{"pll source off", func(p *Plan) { p.PLL[1].Source = PLLSrcCSI; p.CSI = false }, errcode.InvalidClockPlan},
		{"sys from disabled pll", func(p *Plan) { p.PLL[0] = PLL{} }, errcode.InvalidClockPlan},
		{"kernel mux from disabled output", func(p *Plan) { p.PLL[1].DivR = 0 }, errcode.InvalidClockPlan},
		{"hse out of range", func(p *Plan) { p.HSE = 60_000_000 }, errcode.FreqOutOfRange},
		{"scale too low for 200MHz", func(p *Plan) { p.VoltageScale = Scale2 }, errcode.FreqOutOfRange},
		{"bad voltage scale", func(p *Plan) { p.VoltageScale = 9 }, errcode.InvalidClockPlan},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := nucleoPlan()
			tc.mod(&p)
			_, err := Derive(p)
			if got := errcode.Of(err); got != tc.want {
				t.Fatalf("code = %q (%v), want %q", got, err, tc.want)
			}
		})
	}
}

func TestApplyRejectedPlanTouchesNothing(t *testing.T) {
	s := newSim(SimOptions{})
	r := New(s)

	p := nucleoPlan()
	p.PLL[0].Mul = 50
	if _, err := r.Apply(p); !errors.Is(err, errcode.FreqOutOfRange) {
		t.Fatalf("Apply = %v, want frequency_out_of_range", err)
	}
	if j := s.Journal(); len(j) != 0 {
		t.Fatalf("rejected plan wrote %d registers: %+v", len(j), j)
	}
	if s.Peek(RegCR) != resetCR {
		t.Fatalf("CR changed: %#x", s.Peek(RegCR))
	}

	// A rejected plan does not spend the RCC.
	if _, err := r.Apply(nucleoPlan()); err != nil {
		t.Fatalf("Apply after rejection: %v", err)
	}
}

func TestApplyProgramsRegisters(t *testing.T) {
	s := newSim(SimOptions{})
	c, err := New(s).Apply(nucleoPlan())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Sys != 200_000_000 {
		t.Fatalf("sys = %d", c.Sys)
	}

	regs := []struct {
		name string
		addr uintptr
		want uint32
	}{
		{"PLL1CFGR", RegPLL1CFGR, 0x0003_040D},
		{"PLL1DIVR", RegPLL1DIVR, 0x0003_0218},
		{"PLL2CFGR", RegPLL2CFGR, 0x0004_040D},
		{"PLL2DIVR", RegPLL2DIVR, 0x0300_0018},
		{"CFGR2", RegCFGR2, 0x4440},
		{"CCIPR5", RegCCIPR5, uint32(ADCDACPLL2R)},
	}
	for _, rg := range regs {
		if got := s.Peek(rg.addr); got != rg.want {
			t.Errorf("%s = %#x, want %#x", rg.name, got, rg.want)
		}
	}

	if sws := mmio.Field(s.Peek(RegCFGR1), cfgr1SWSPos, 2); sws != uint32(SysPLL1P) {
		t.Errorf("SWS = %d, want PLL1_P", sws)
	}
	if lat := mmio.Field(s.Peek(RegACR), acrLATENCYPos, 4); lat != 5 {
		t.Errorf("flash latency = %d, want 5", lat)
	}
	if vos := mmio.Field(s.Peek(RegVOSCR), voscrVOSPos, 2); vos != Scale1.vos() {
		t.Errorf("VOS = %d, want %d", vos, Scale1.vos())
	}
	cr := s.Peek(RegCR)
	for _, bit := range []uint32{crHSIRDY, crCSIRDY, crPLLRDY(0), crPLLRDY(1)} {
		if cr&bit == 0 {
			t.Errorf("CR %#x missing ready bit %#x", cr, bit)
		}
	}
	if cr&crPLLON(2) != 0 {
		t.Error("PLL3 should stay off")
	}
	if mmio.Field(cr, crHSIDIVPos, 2) != uint32(HSIDiv1) {
		t.Error("HSI divider not programmed")
	}
}

func TestApplyOrdering(t *testing.T) {
	s := newSim(SimOptions{})
	if _, err := New(s).Apply(nucleoPlan()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	idx := func(match func(mmio.Write) bool) int {
		for i, w := range s.Journal() {
			if match(w) {
				return i
			}
		}
		return -1
	}
	vos := idx(func(w mmio.Write) bool { return w.Addr == RegVOSCR })
	latency := idx(func(w mmio.Write) bool {
		return w.Addr == RegACR && mmio.Field(w.Stored, acrLATENCYPos, 4) == 5
	})
	pll1Lock := idx(func(w mmio.Write) bool {
		return w.Addr == RegCR && w.Stored&crPLLRDY(0) != 0
	})
	pll1Cfg := idx(func(w mmio.Write) bool { return w.Addr == RegPLL1CFGR })
	sw := idx(func(w mmio.Write) bool {
		return w.Addr == RegCFGR1 && mmio.Field(w.Value, cfgr1SWPos, 2) == uint32(SysPLL1P)
	})
	mux := idx(func(w mmio.Write) bool { return w.Addr == RegCCIPR5 })

	for name, i := range map[string]int{"vos": vos, "latency": latency, "pll1 cfg": pll1Cfg, "pll1 on": pll1Lock, "sw": sw, "mux": mux} {
		if i < 0 {
			t.Fatalf("%s write not found in journal", name)
		}
	}
	if !(vos < latency && latency < sw) {
		t.Errorf("voltage scale (%d) and wait states (%d) must precede the switch (%d)", vos, latency, sw)
	}
	if !(pll1Cfg < pll1Lock && pll1Lock < sw) {
		t.Errorf("pll1 configured at %d, on at %d, sysclk switched at %d", pll1Cfg, pll1Lock, sw)
	}
	if mux < sw {
		t.Errorf("kernel mux (%d) written before sysclk switch (%d)", mux, sw)
	}
}

func TestApplyPLLLockTimeout(t *testing.T) {
	s := newSim(SimOptions{PLLNeverLocks: [3]bool{true}})
	r := New(s)
	r.SetPollBudget(8)

	_, err := r.Apply(nucleoPlan())
	if got := errcode.Of(err); got != errcode.PLLLockTimeout {
		t.Fatalf("code = %q (%v), want pll_lock_timeout", got, err)
	}
	for _, w := range s.Journal() {
		if w.Addr == RegCFGR1 && mmio.Field(w.Value, cfgr1SWPos, 2) == uint32(SysPLL1P) {
			t.Fatal("sysclk switched to an unlocked PLL")
		}
	}
	if sws := mmio.Field(s.Peek(RegCFGR1), cfgr1SWSPos, 2); sws != uint32(SysHSI) {
		t.Fatalf("SWS = %d, want HSI", sws)
	}
}

func TestApplyTimeouts(t *testing.T) {
	t.Run("hse", func(t *testing.T) {
		r := New(newSim(SimOptions{HSEAbsent: true}))
		r.SetPollBudget(4)
		p := nucleoPlan()
		p.HSE = 8_000_000
		if _, err := r.Apply(p); errcode.Of(err) != errcode.OscillatorTimeout {
			t.Fatalf("err = %v, want oscillator_timeout", err)
		}
	})
	t.Run("vos", func(t *testing.T) {
		r := New(newSim(SimOptions{VOSStuck: true}))
		r.SetPollBudget(4)
		if _, err := r.Apply(nucleoPlan()); errcode.Of(err) != errcode.VoltageScaleTimeout {
			t.Fatalf("err = %v, want voltage_scale_timeout", err)
		}
	})
}

func TestApplyOnce(t *testing.T) {
	r := New(newSim(SimOptions{}))
	if _, err := r.Apply(nucleoPlan()); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if _, err := r.Apply(nucleoPlan()); !errors.Is(err, errcode.AlreadyApplied) {
		t.Fatalf("second Apply = %v, want already_applied", err)
	}
}

func TestHSIOnlyPlan(t *testing.T) {
	p := Plan{
		HSI:          true,
		HSIDiv:       HSIDiv2,
		Sys:          SysHSI,
		VoltageScale: Scale3,
		ADCDAC:       ADCDACHCLK,
	}
	s := newSim(SimOptions{})
	c, err := New(s).Apply(p)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Sys != 32_000_000 || c.PCLK3 != 32_000_000 {
		t.Fatalf("clocks = %+v", c)
	}
	if c.FlashLatency != 1 {
		t.Fatalf("flash latency = %d, want 1", c.FlashLatency)
	}
	if lat := mmio.Field(s.Peek(RegACR), acrLATENCYPos, 4); lat != 1 {
		t.Fatalf("ACR latency = %d, want wait states lowered to 1", lat)
	}
}
