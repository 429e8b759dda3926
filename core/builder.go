package core

import (
	"github.com/sarchlab/akita/v4/sim"
)

// DefaultMaxCallDepth bounds recursion unless configured otherwise.
const DefaultMaxCallDepth = 10000

// Builder can create new VMs.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	in           InputSource
	out          OutputSink
	maxSteps     int
	maxCallDepth int
	traceLog     bool
}

// NewBuilder creates a builder with default settings.
func NewBuilder() Builder {
	return Builder{
		freq:         1 * sim.GHz,
		maxCallDepth: DefaultMaxCallDepth,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the VM.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithInput sets the source INPUT reads from.
func (b Builder) WithInput(in InputSource) Builder {
	b.in = in
	return b
}

// WithOutput sets the sink PRINT writes to.
func (b Builder) WithOutput(out OutputSink) Builder {
	b.out = out
	return b
}

// WithMaxSteps bounds the number of retired instructions. Zero means
// unbounded.
func (b Builder) WithMaxSteps(n int) Builder {
	b.maxSteps = n
	return b
}

// WithMaxCallDepth bounds the call-frame stack. Zero means unbounded.
func (b Builder) WithMaxCallDepth(n int) Builder {
	b.maxCallDepth = n
	return b
}

// WithTraceLog logs every retired instruction at debug level.
func (b Builder) WithTraceLog(on bool) Builder {
	b.traceLog = on
	return b
}

// Build creates a VM.
func (b Builder) Build(name string) *VM {
	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	c := &VM{
		engine:   engine,
		emu:      newInstEmulator(),
		maxSteps: b.maxSteps,
		traceLog: b.traceLog,
	}

	c.TickingComponent = sim.NewTickingComponent(name, engine, b.freq, c)

	c.state = coreState{
		in:           b.in,
		out:          b.out,
		maxCallDepth: b.maxCallDepth,
	}

	if c.state.in == nil {
		c.state.in = NewLinesInput()
	}

	if c.state.out == nil {
		c.state.out = &BufferOutput{}
	}

	return c
}
