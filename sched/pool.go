package sched

import (
	"spec-mtc-go/errcode"
	"spec-mtc-go/x/strconvx"
)

// Pool caps how many instances of one kind of task may be spawned.
// Exceeding it is a configuration error.
type Pool struct {
	kind string
	size int
	used int
}

func NewPool(kind string, size int) *Pool {
	return &Pool{kind: kind, size: size}
}

// Spawn registers t on x, consuming one pool slot on success.
func (p *Pool) Spawn(x *Executor, name string, t Task) error {
	if p.used >= p.size {
		return errcode.New(errcode.PoolExhausted, "sched.pool",
			p.kind+" pool of "+strconvx.Itoa(p.size)+" exhausted by "+name)
	}
	if err := x.Spawn(name, t); err != nil {
		return err
	}
	p.used++
	return nil
}

func (p *Pool) Kind() string { return p.kind }
func (p *Pool) Used() int    { return p.used }
func (p *Pool) Size() int    { return p.size }
