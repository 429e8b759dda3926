package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tacvm/program"
)

// HookPosInstRetired marks the point right after an instruction retires.
var HookPosInstRetired = &sim.HookPos{Name: "InstRetired"}

// RetiredInst is the hook item for HookPosInstRetired.
type RetiredInst struct {
	PC    int
	Inst  program.Inst
	Depth int
}

// Tracer records every retired instruction.
type Tracer struct {
	Entries []RetiredInst
}

// NewTracer creates an empty tracer.
func NewTracer() *Tracer {
	return &Tracer{}
}

// Func implements sim.Hook.
func (t *Tracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosInstRetired {
		return
	}

	t.Entries = append(t.Entries, ctx.Item.(RetiredInst))
}

// PCs returns the retired program counters in order.
func (t *Tracer) PCs() []int {
	pcs := make([]int, len(t.Entries))
	for n, e := range t.Entries {
		pcs[n] = e.PC
	}

	return pcs
}
