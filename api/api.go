// Package api exposes the compiler pipeline and the virtual machine to the
// layers around them.
package api

import (
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/codegen"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/irgen"
	"github.com/sarchlab/tacvm/opt"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

// CompileOptions controls the pipeline.
type CompileOptions struct {
	// Optimize runs the optimizer between generation and code generation.
	Optimize bool

	// MaxPasses bounds the optimizer rounds.
	MaxPasses int
}

// DefaultCompileOptions optimizes with the default round limit.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{Optimize: true, MaxPasses: opt.DefaultMaxPasses}
}

// Compilation keeps every stage of one compilation so that each can be
// inspected as structured instructions.
type Compilation struct {
	IR          *ir.Program
	OptimizedIR *ir.Program
	Program     *program.Program
}

// Compile runs generation, optimization and code generation in that order
// with the default options.
func Compile(p *ast.Program) (*Compilation, error) {
	return CompileWith(p, DefaultCompileOptions())
}

// CompileWith runs the pipeline with the given options. Every compilation
// gets its own generator context and optimizer state.
func CompileWith(p *ast.Program, o CompileOptions) (*Compilation, error) {
	c := &Compilation{}

	var err error

	c.IR, err = irgen.Generate(p)
	if err != nil {
		return nil, err
	}

	c.OptimizedIR = c.IR.Clone()
	if o.Optimize {
		c.OptimizedIR, err = opt.New().WithMaxPasses(o.MaxPasses).Optimize(c.IR)
		if err != nil {
			return nil, err
		}
	}

	c.Program, err = codegen.Generate(c.OptimizedIR)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Execute runs a program on a fresh VM and returns the final top-level
// store.
func Execute(
	p *program.Program,
	in core.InputSource,
	out core.OutputSink,
) (map[string]value.Value, error) {
	res, err := MakeBuilder().Build("Driver").Execute(p, in, out)
	if err != nil {
		return nil, err
	}

	return res.Store, nil
}
