//go:build stm32h5

package mmio

import (
	"runtime/volatile"
	"unsafe"
)

// Volatile accesses real peripheral registers.
type Volatile struct{}

func (Volatile) Load(addr uintptr) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(addr)).Get()
}

func (Volatile) Store(addr uintptr, v uint32) {
	(*volatile.Register32)(unsafe.Pointer(addr)).Set(v)
}
