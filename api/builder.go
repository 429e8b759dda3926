package api

import (
	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tacvm/config"
	"github.com/sarchlab/tacvm/core"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	freq         sim.Freq
	compile      CompileOptions
	maxSteps     int
	maxCallDepth int
	trace        bool
	traceLog     bool
	monitor      *monitoring.Monitor
}

// MakeBuilder creates a builder with default settings.
func MakeBuilder() DriverBuilder {
	return DriverBuilder{
		freq:         1 * sim.GHz,
		compile:      DefaultCompileOptions(),
		maxCallDepth: core.DefaultMaxCallDepth,
	}
}

// WithFreq sets the frequency of the VMs the driver creates.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// WithCompileOptions sets the pipeline options.
func (b DriverBuilder) WithCompileOptions(o CompileOptions) DriverBuilder {
	b.compile = o
	return b
}

// WithMaxSteps bounds every execution. Zero means unbounded.
func (b DriverBuilder) WithMaxSteps(n int) DriverBuilder {
	b.maxSteps = n
	return b
}

// WithMaxCallDepth bounds the call-frame stack of every execution.
func (b DriverBuilder) WithMaxCallDepth(n int) DriverBuilder {
	b.maxCallDepth = n
	return b
}

// WithTrace records the retired instructions of every execution.
func (b DriverBuilder) WithTrace(on bool) DriverBuilder {
	b.trace = on
	return b
}

// WithMonitor registers the engine and the VM of every execution with a
// monitor.
func (b DriverBuilder) WithMonitor(monitor *monitoring.Monitor) DriverBuilder {
	b.monitor = monitor
	return b
}

// WithConfig applies the compiler and VM sections of a configuration.
func (b DriverBuilder) WithConfig(c config.Config) DriverBuilder {
	b.compile = CompileOptions{
		Optimize:  c.Compiler.Optimize,
		MaxPasses: c.Compiler.MaxPasses,
	}
	b.freq = sim.Freq(c.VM.FreqGHz) * sim.GHz
	b.maxSteps = c.VM.MaxSteps
	b.maxCallDepth = c.VM.MaxCallDepth
	b.trace = c.VM.Trace
	b.traceLog = c.VM.Trace

	return b
}

// Build creates a driver.
func (b DriverBuilder) Build(name string) Driver {
	return &driverImpl{
		name:         name,
		freq:         b.freq,
		compile:      b.compile,
		maxSteps:     b.maxSteps,
		maxCallDepth: b.maxCallDepth,
		trace:        b.trace,
		traceLog:     b.traceLog,
		monitor:      b.monitor,
	}
}
