// Package core implements the virtual machine that executes target
// programs.
//
// The VM is an akita ticking component. Every tick retires exactly one
// instruction, so an execution is a sequence of tick events on a serial
// engine and ends when the VM stops making progress.
package core

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

// VM executes one target program.
type VM struct {
	*sim.TickingComponent

	engine sim.Engine
	state  coreState
	emu    instEmulator

	maxSteps int
	traceLog bool
	err      error
}

// Result is the outcome of a completed execution.
type Result struct {
	// Store is the top-level variable store at halt.
	Store map[string]value.Value

	// Steps is the number of retired instructions.
	Steps int

	// MaxDepth is the deepest call-frame stack seen.
	MaxDepth int

	// Depth is the call-frame stack depth at halt.
	Depth int
}

// Load installs a program and builds its label table. It must be called
// before Run.
func (c *VM) Load(p *program.Program) error {
	c.state.Code = p
	c.state.PC = 0
	c.state.Labels = make(map[string]int)
	c.state.Root = newFrame(program.Func{}, -1)
	c.state.Frames = nil
	c.state.Stack = nil
	c.state.Flags = nil
	c.state.cond = nil
	c.state.Steps = 0
	c.state.MaxDepth = 0
	c.state.Halted = false
	c.err = nil

	for pc, inst := range p.Insts {
		c.state.PC = pc

		spec, ok := program.DefaultISA.Lookup(inst.Mnemonic)
		if !ok {
			return c.state.fail(diag.MalformedProgram, nil,
				"unknown instruction %q", string(inst.Mnemonic))
		}

		if n := len(inst.Operands); n < spec.MinArgs || n > spec.MaxArgs {
			return c.state.fail(diag.MalformedProgram, nil,
				"%s takes %d to %d operands, got %d",
				string(inst.Mnemonic), spec.MinArgs, spec.MaxArgs, n)
		}

		if inst.Mnemonic != program.LABEL {
			continue
		}

		name := inst.Operands[0].Name
		if _, dup := c.state.Labels[name]; dup {
			return c.state.fail(diag.MalformedProgram, nil,
				"label %q defined twice", name)
		}
		c.state.Labels[name] = pc
	}

	if p.MainEnd < 0 || p.MainEnd > len(p.Insts) {
		return diag.New(diag.MalformedProgram, "",
			"main region end %d outside the program", p.MainEnd)
	}

	c.state.PC = 0

	return nil
}

// Tick retires one instruction.
func (c *VM) Tick() (madeProgress bool) {
	if c.state.Halted || c.state.Code == nil {
		return false
	}

	if err := c.step(); err != nil {
		c.err = err
		c.state.Halted = true

		return false
	}

	return !c.state.Halted
}

func (c *VM) finished() bool {
	return len(c.state.Frames) == 0 && c.state.PC >= c.state.Code.MainEnd
}

func (c *VM) step() error {
	s := &c.state

	if c.finished() {
		s.Halted = true
		return nil
	}

	if s.PC < 0 || s.PC >= len(s.Code.Insts) {
		return s.fail(diag.MalformedProgram, nil,
			"pc %d outside the program", s.PC)
	}

	if c.maxSteps > 0 && s.Steps >= c.maxSteps {
		return s.fail(diag.ExecutionLimit, nil,
			"step limit %d reached", c.maxSteps)
	}

	pc := s.PC
	inst := s.Code.Insts[pc]

	if err := c.emu.RunInst(s); err != nil {
		return err
	}

	s.Steps++

	if c.traceLog {
		slog.Debug("Inst", "pc", pc, "inst", inst.String(),
			"depth", len(s.Frames))
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosInstRetired,
			Item:   RetiredInst{PC: pc, Inst: inst, Depth: len(s.Frames)},
		})
	}

	if c.finished() {
		s.Halted = true
	}

	return nil
}

// Run executes the loaded program to completion.
func (c *VM) Run() (*Result, error) {
	if c.state.Code == nil {
		return nil, fmt.Errorf("%s: no program loaded", c.Name())
	}

	c.TickNow()

	if err := c.engine.Run(); err != nil {
		return nil, err
	}

	if c.err != nil {
		return nil, c.err
	}

	diag.Trace("Execute", "vm", c.Name(), "steps", c.state.Steps,
		"maxDepth", c.state.MaxDepth)

	return c.result(), nil
}

// Halted tells if the VM reached the end of the program or failed.
func (c *VM) Halted() bool {
	return c.state.Halted
}

// PC returns the current program counter.
func (c *VM) PC() int {
	return c.state.PC
}

// Depth returns the current call-frame stack depth.
func (c *VM) Depth() int {
	return len(c.state.Frames)
}

func (c *VM) result() *Result {
	store := make(map[string]value.Value, len(c.state.Root.vars))
	for k, v := range c.state.Root.vars {
		store[k] = v
	}

	return &Result{
		Store:    store,
		Steps:    c.state.Steps,
		MaxDepth: c.state.MaxDepth,
		Depth:    len(c.state.Frames),
	}
}
