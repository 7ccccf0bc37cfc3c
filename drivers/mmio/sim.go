package mmio

import "sync"

// Write is one journaled store: the value the driver asked for and the value
// the simulated hardware kept.
type Write struct {
	Addr   uintptr
	Value  uint32
	Stored uint32
}

// Hook models hardware reaction to a store. It receives the previous and the
// requested value and returns the value the register holds afterwards. Hooks
// may Poke other registers (e.g. raise a ready flag elsewhere).
type Hook func(s *Sim, old, v uint32) uint32

// Sim is a simulated register file. Unknown addresses read as zero.
type Sim struct {
	mu      sync.Mutex
	mem     map[uintptr]uint32
	hooks   map[uintptr]Hook
	journal []Write
}

func NewSim() *Sim {
	return &Sim{
		mem:   map[uintptr]uint32{},
		hooks: map[uintptr]Hook{},
	}
}

// OnStore installs the behaviour hook for addr, replacing any previous one.
func (s *Sim) OnStore(addr uintptr, h Hook) {
	s.mu.Lock()
	s.hooks[addr] = h
	s.mu.Unlock()
}

// Poke sets a register as the hardware would: no hook, no journal entry.
func (s *Sim) Poke(addr uintptr, v uint32) {
	s.mu.Lock()
	s.mem[addr] = v
	s.mu.Unlock()
}

// Peek reads a register without side effects.
func (s *Sim) Peek(addr uintptr) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem[addr]
}

func (s *Sim) Load(addr uintptr) uint32 { return s.Peek(addr) }

func (s *Sim) Store(addr uintptr, v uint32) {
	s.mu.Lock()
	old := s.mem[addr]
	h := s.hooks[addr]
	s.mu.Unlock()

	stored := v
	if h != nil {
		stored = h(s, old, v)
	}

	s.mu.Lock()
	s.mem[addr] = stored
	s.journal = append(s.journal, Write{Addr: addr, Value: v, Stored: stored})
	s.mu.Unlock()
}

// Journal returns a copy of all stores so far, oldest first.
func (s *Sim) Journal() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.journal))
	copy(out, s.journal)
	return out
}

// ResetJournal forgets previous stores.
func (s *Sim) ResetJournal() {
	s.mu.Lock()
	s.journal = nil
	s.mu.Unlock()
}
