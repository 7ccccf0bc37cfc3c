package hal

import (
	"sync"

	"spec-mtc-go/drivers/gpio"
	"spec-mtc-go/drivers/mmio"
	"spec-mtc-go/drivers/rcc"
	"spec-mtc-go/errcode"
	"spec-mtc-go/services/hal/setups"
)

// Registry hands out pins exactly once. There is no release: a claimed pin
// belongs to its owner for the life of the program.
type Registry struct {
	mu sync.Mutex

	regs  mmio.Bus
	desc  setups.Descriptor
	clk   rcc.Clocks
	ports uint16 // port clocks already enabled

	pinOwners map[gpio.Pin]string // pin -> owner
}

// NewRegistry needs the frozen clock state: no peripheral is touched before
// the clock tree is programmed.
func NewRegistry(regs mmio.Bus, clk rcc.Clocks, desc setups.Descriptor) (*Registry, error) {
	if !clk.Valid() {
		return nil, errcode.New(errcode.ClocksNotReady, "hal.registry", "clock tree not applied")
	}
	return &Registry{
		regs:      regs,
		desc:      desc,
		clk:       clk,
		pinOwners: make(map[gpio.Pin]string),
	}, nil
}

// ClaimOutput configures p as an output owned by owner. A pin the package
// does not bond out fails with unknown_pin; a second claim fails with
// pin_in_use.
func (r *Registry) ClaimOutput(owner string, p gpio.Pin, cfg gpio.OutputConfig) (*gpio.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.desc.Has(p) {
		return nil, errcode.New(errcode.UnknownPin, "hal.claim", p.String())
	}
	if cur, inUse := r.pinOwners[p]; inUse {
		return nil, errcode.New(errcode.PinInUse, "hal.claim", p.String()+" owned by "+cur)
	}

	if r.ports&(1<<p.Port) == 0 {
		rcc.EnableGPIOPort(r.regs, uint8(p.Port))
		r.ports |= 1 << p.Port
	}
	out := gpio.Configure(r.regs, p, cfg)
	r.pinOwners[p] = owner
	return out, nil
}

// Owner reports who holds p.
func (r *Registry) Owner(p gpio.Pin) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.pinOwners[p]
	return o, ok
}

func (r *Registry) Clocks() rcc.Clocks { return r.clk }
