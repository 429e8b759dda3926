// Package opt rewrites IR into an equivalent, smaller IR.
//
// The pipeline is fixed: constant folding, copy propagation, dead-store
// elimination and dead-code-after-return elimination, in that order. The
// pipeline repeats until a full round changes nothing, so optimizing an
// already optimized program returns it unchanged.
package opt

import (
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/ir"
)

// DefaultMaxPasses bounds the number of pipeline rounds.
const DefaultMaxPasses = 16

// A Pass rewrites a sequence of instructions and reports how many
// rewrites it made.
type Pass interface {
	Name() string
	Run(prog *ir.Program, in []ir.Instruction) ([]ir.Instruction, int, error)
}

// Optimizer runs the pass pipeline.
type Optimizer struct {
	MaxPasses int
	passes    []Pass
}

// New creates an optimizer with the standard pipeline.
func New() *Optimizer {
	return &Optimizer{
		MaxPasses: DefaultMaxPasses,
		passes: []Pass{
			constantFolding{},
			copyPropagation{},
			deadStoreElimination{},
			deadCodeElimination{},
		},
	}
}

// WithMaxPasses sets the round limit. Non-positive values keep the
// default.
func (o *Optimizer) WithMaxPasses(n int) *Optimizer {
	if n > 0 {
		o.MaxPasses = n
	}

	return o
}

// Optimize runs the standard pipeline over a copy of p.
func Optimize(p *ir.Program) (*ir.Program, error) {
	return New().Optimize(p)
}

// Optimize returns an optimized copy of p. The input is not modified.
func (o *Optimizer) Optimize(p *ir.Program) (*ir.Program, error) {
	out := p.Clone()

	for round := 1; round <= o.MaxPasses; round++ {
		total := 0

		for _, pass := range o.passes {
			instrs, changes, err := pass.Run(out, out.Instrs)
			if err != nil {
				return nil, err
			}

			out.Instrs = instrs
			total += changes

			diag.Trace("Optimize", "round", round, "pass", pass.Name(),
				"changes", changes)
		}

		if total == 0 {
			break
		}
	}

	return out, nil
}
