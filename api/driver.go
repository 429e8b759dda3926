package api

import (
	"fmt"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/program"
)

// Driver compiles and runs programs.
type Driver interface {
	// Compile runs the compiler pipeline over a syntax tree.
	Compile(p *ast.Program) (*Compilation, error)

	// Execute runs a compiled program on a new VM. Nothing is shared
	// between executions.
	Execute(
		p *program.Program,
		in core.InputSource,
		out core.OutputSink,
	) (*Execution, error)

	// Run compiles and then executes a syntax tree.
	Run(p *ast.Program, in core.InputSource, out core.OutputSink) (*Execution, error)
}

// Execution is the outcome of one run.
type Execution struct {
	core.Result

	Compilation *Compilation

	// Trace lists the retired instructions when tracing is enabled.
	Trace []core.RetiredInst
}

type driverImpl struct {
	name string

	freq         sim.Freq
	compile      CompileOptions
	maxSteps     int
	maxCallDepth int
	trace        bool
	traceLog     bool
	monitor      *monitoring.Monitor

	runs int
}

func (d *driverImpl) Compile(p *ast.Program) (*Compilation, error) {
	return CompileWith(p, d.compile)
}

func (d *driverImpl) Execute(
	p *program.Program,
	in core.InputSource,
	out core.OutputSink,
) (*Execution, error) {
	d.runs++

	engine := sim.NewSerialEngine()
	vm := core.NewBuilder().
		WithEngine(engine).
		WithFreq(d.freq).
		WithInput(in).
		WithOutput(out).
		WithMaxSteps(d.maxSteps).
		WithMaxCallDepth(d.maxCallDepth).
		WithTraceLog(d.traceLog).
		Build(fmt.Sprintf("%s.VM[%d]", d.name, d.runs))

	if d.monitor != nil {
		d.monitor.RegisterEngine(engine)
		d.monitor.RegisterComponent(vm)
	}

	var tracer *core.Tracer
	if d.trace {
		tracer = core.NewTracer()
		vm.AcceptHook(tracer)
	}

	if err := vm.Load(p); err != nil {
		return nil, err
	}

	res, err := vm.Run()
	if err != nil {
		return nil, err
	}

	e := &Execution{Result: *res}
	if tracer != nil {
		e.Trace = tracer.Entries
	}

	return e, nil
}

func (d *driverImpl) Run(
	p *ast.Program,
	in core.InputSource,
	out core.OutputSink,
) (*Execution, error) {
	c, err := d.Compile(p)
	if err != nil {
		return nil, err
	}

	e, err := d.Execute(c.Program, in, out)
	if err != nil {
		return nil, err
	}

	e.Compilation = c

	return e, nil
}
