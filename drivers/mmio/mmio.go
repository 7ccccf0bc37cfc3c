// Package mmio is the 32-bit memory-mapped register seam shared by the chip
// drivers. On the board it is backed by volatile loads/stores; on a host it
// is backed by Sim, a register file with per-address behaviour hooks.
package mmio

// Bus performs single 32-bit register accesses.
type Bus interface {
	Load(addr uintptr) uint32
	Store(addr uintptr, v uint32)
}

// Modify is the read-modify-write pattern: clear bits in clr, then set bits in set.
func Modify(b Bus, addr uintptr, clr, set uint32) {
	b.Store(addr, (b.Load(addr)&^clr)|set)
}

// SetBits sets mask in the register at addr.
func SetBits(b Bus, addr uintptr, mask uint32) { Modify(b, addr, 0, mask) }

// ClearBits clears mask in the register at addr.
func ClearBits(b Bus, addr uintptr, mask uint32) { Modify(b, addr, mask, 0) }

// Field extracts width bits starting at shift.
func Field(v uint32, shift, width uint) uint32 {
	return (v >> shift) & (1<<width - 1)
}

// Put returns v with the width-bit field at shift replaced by f.
func Put(v uint32, shift, width uint, f uint32) uint32 {
	m := uint32(1<<width-1) << shift
	return (v &^ m) | ((f << shift) & m)
}

// WaitMask polls addr until (value & mask) == want or the poll budget runs
// out. It reports whether the condition was observed.
func WaitMask(b Bus, addr uintptr, mask, want uint32, polls int) bool {
	if polls <= 0 {
		polls = 1
	}
	for i := 0; i < polls; i++ {
		if b.Load(addr)&mask == want {
			return true
		}
	}
	return false
}
