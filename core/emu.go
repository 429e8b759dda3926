package core

import (
	"errors"

	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

// frame is one active function invocation.
type frame struct {
	fn         program.Func
	returnAddr int
	vars       map[string]value.Value
	temps      map[string]value.Value

	// retSlot receives the value returned by the most recent call made
	// from this frame.
	retSlot value.Value
}

func newFrame(fn program.Func, returnAddr int) *frame {
	return &frame{
		fn:         fn,
		returnAddr: returnAddr,
		vars:       make(map[string]value.Value),
		temps:      make(map[string]value.Value),
	}
}

// snapshot merges variables and temporaries into one store.
func (f *frame) snapshot() map[string]value.Value {
	s := make(map[string]value.Value, len(f.vars)+len(f.temps))
	for k, v := range f.temps {
		s[k] = v
	}
	for k, v := range f.vars {
		s[k] = v
	}

	return s
}

type coreState struct {
	PC     int
	Code   *program.Program
	Labels map[string]int

	Root   *frame
	Frames []*frame

	// Stack holds the arguments pushed since the last CALL or RETURN.
	Stack []value.Value

	// Flags is the ordering recorded by CMP. It only survives until the
	// next instruction, which sees it as cond.
	Flags *value.Ordering
	cond  *value.Ordering

	Steps    int
	MaxDepth int
	Halted   bool

	in  InputSource
	out OutputSink

	maxCallDepth int
}

func (s *coreState) current() *frame {
	if n := len(s.Frames); n > 0 {
		return s.Frames[n-1]
	}

	return s.Root
}

func (s *coreState) caller() *frame {
	if n := len(s.Frames); n > 1 {
		return s.Frames[n-2]
	}

	return s.Root
}

func (s *coreState) fail(
	kind diag.Kind,
	cause error,
	format string,
	args ...any,
) error {
	inst := ""
	if s.PC >= 0 && s.PC < len(s.Code.Insts) {
		inst = s.Code.Insts[s.PC].String()
	}

	return diag.NewRuntime(kind, s.PC, inst, s.current().snapshot(), cause,
		format, args...)
}

func (s *coreState) read(o program.Operand) (value.Value, error) {
	switch o.Kind {
	case program.Imm:
		return o.Imm, nil
	case program.Var:
		f := s.current()
		if o.Global {
			f = s.Root
		}
		return lookup(f.vars, o), nil
	case program.Temp:
		return lookup(s.current().temps, o), nil
	case program.RetSlot:
		v := s.current().retSlot
		if !v.IsValid() {
			return value.Zero(o.Type), nil
		}
		return v, nil
	default:
		return value.Value{}, s.fail(diag.MalformedProgram, nil,
			"operand %q cannot be read", o.String())
	}
}

func lookup(store map[string]value.Value, o program.Operand) value.Value {
	if v, ok := store[o.Name]; ok {
		return v
	}

	return value.Zero(o.Type)
}

func (s *coreState) write(o program.Operand, v value.Value) error {
	if o.Type != value.Invalid {
		v = value.Coerce(v, o.Type)
	}

	switch o.Kind {
	case program.Var:
		f := s.current()
		if o.Global {
			f = s.Root
		}
		f.vars[o.Name] = v
	case program.Temp:
		s.current().temps[o.Name] = v
	default:
		return s.fail(diag.MalformedProgram, nil,
			"operand %q cannot be written", o.String())
	}

	return nil
}

func (s *coreState) target(o program.Operand) (int, error) {
	pc, ok := s.Labels[o.Name]
	if o.Kind != program.Label || !ok {
		return 0, s.fail(diag.MalformedProgram, nil,
			"jump to undefined label %q", o.Name)
	}

	return pc, nil
}

type instFunc func(inst program.Inst, state *coreState) error

type instEmulator struct {
	instFuncs map[program.Mnemonic]instFunc
}

func newInstEmulator() instEmulator {
	i := instEmulator{}
	i.instFuncs = map[program.Mnemonic]instFunc{
		program.MOV:    i.runMov,
		program.ADD:    i.runArith(value.Add),
		program.SUB:    i.runArith(value.Sub),
		program.MUL:    i.runArith(value.Mul),
		program.DIV:    i.runDiv,
		program.CMP:    i.runCmp,
		program.JMP:    i.runJmp,
		program.JE:     i.runJcc(func(o value.Ordering) bool { return o == value.Equal }),
		program.JNE:    i.runJcc(func(o value.Ordering) bool { return o != value.Equal }),
		program.JL:     i.runJcc(func(o value.Ordering) bool { return o == value.Less }),
		program.JLE:    i.runJcc(func(o value.Ordering) bool { return o != value.Greater }),
		program.JG:     i.runJcc(func(o value.Ordering) bool { return o == value.Greater }),
		program.JGE:    i.runJcc(func(o value.Ordering) bool { return o != value.Less }),
		program.PUSH:   i.runPush,
		program.CALL:   i.runCall,
		program.RETURN: i.runReturn,
		program.PRINT:  i.runPrint,
		program.INPUT:  i.runInput,
		program.LABEL:  func(_ program.Inst, state *coreState) error { state.PC++; return nil },
	}

	return i
}

// RunInst executes the instruction at the state's pc.
func (i instEmulator) RunInst(state *coreState) error {
	inst := state.Code.Insts[state.PC]

	state.cond, state.Flags = state.Flags, nil

	if fn, ok := i.instFuncs[inst.Mnemonic]; ok {
		return fn(inst, state)
	}

	return state.fail(diag.MalformedProgram, nil,
		"unknown instruction %q", string(inst.Mnemonic))
}

func (i instEmulator) runMov(inst program.Inst, state *coreState) error {
	v, err := state.read(inst.Operands[1])
	if err != nil {
		return err
	}

	if err := state.write(inst.Operands[0], v); err != nil {
		return err
	}

	state.PC++

	return nil
}

func (i instEmulator) runArith(
	op func(a, b value.Value) (value.Value, error),
) instFunc {
	return func(inst program.Inst, state *coreState) error {
		a, b, err := i.readPair(inst, state)
		if err != nil {
			return err
		}

		v, err := op(a, b)
		if err != nil {
			return state.fail(diag.RuntimeTypeMismatch, err, "%v", err)
		}

		if err := state.write(inst.Operands[0], v); err != nil {
			return err
		}

		state.PC++

		return nil
	}
}

// runDiv divides in integers only when both operands are statically int.
func (i instEmulator) runDiv(inst program.Inst, state *coreState) error {
	a, b, err := i.readPair(inst, state)
	if err != nil {
		return err
	}

	intDiv := inst.Operands[1].Type == value.Int &&
		inst.Operands[2].Type == value.Int

	v, err := value.Div(a, b, intDiv)

	switch {
	case errors.Is(err, value.ErrDivisionByZero):
		return state.fail(diag.RuntimeDivisionByZero, err, "division by zero")
	case err != nil:
		return state.fail(diag.RuntimeTypeMismatch, err, "%v", err)
	}

	if err := state.write(inst.Operands[0], v); err != nil {
		return err
	}

	state.PC++

	return nil
}

func (i instEmulator) readPair(
	inst program.Inst,
	state *coreState,
) (value.Value, value.Value, error) {
	ops := inst.Operands[len(inst.Operands)-2:]

	a, err := state.read(ops[0])
	if err != nil {
		return a, a, err
	}

	b, err := state.read(ops[1])
	if err != nil {
		return a, b, err
	}

	return a, b, nil
}

func (i instEmulator) runCmp(inst program.Inst, state *coreState) error {
	a, b, err := i.readPair(inst, state)
	if err != nil {
		return err
	}

	o, err := value.Compare(a, b)
	if err != nil {
		return state.fail(diag.RuntimeTypeMismatch, err, "%v", err)
	}

	state.Flags = &o
	state.PC++

	return nil
}

func (i instEmulator) runJmp(inst program.Inst, state *coreState) error {
	pc, err := state.target(inst.Operands[0])
	if err != nil {
		return err
	}

	state.PC = pc

	return nil
}

func (i instEmulator) runJcc(taken func(value.Ordering) bool) instFunc {
	return func(inst program.Inst, state *coreState) error {
		if state.cond == nil {
			return state.fail(diag.MalformedProgram, nil,
				"%s without a preceding CMP", string(inst.Mnemonic))
		}

		o := *state.cond
		if o == value.Unordered && inst.Mnemonic != program.JE &&
			inst.Mnemonic != program.JNE {
			return state.fail(diag.RuntimeTypeMismatch, value.ErrTypeMismatch,
				"%s on values without an order", string(inst.Mnemonic))
		}

		if !taken(o) {
			state.PC++
			return nil
		}

		return i.runJmp(inst, state)
	}
}

func (i instEmulator) runPush(inst program.Inst, state *coreState) error {
	v, err := state.read(inst.Operands[0])
	if err != nil {
		return err
	}

	state.Stack = append(state.Stack, v)
	state.PC++

	return nil
}

func (i instEmulator) runCall(inst program.Inst, state *coreState) error {
	entry, err := state.target(inst.Operands[0])
	if err != nil {
		return err
	}

	fn, ok := state.Code.Funcs[inst.Operands[0].Name]
	if !ok {
		fn = program.Func{Label: inst.Operands[0].Name}
	}

	if len(state.Stack) != len(fn.Params) {
		return state.fail(diag.MalformedProgram, nil,
			"%s expects %d arguments, got %d",
			fn.Label, len(fn.Params), len(state.Stack))
	}

	if state.maxCallDepth > 0 && len(state.Frames) >= state.maxCallDepth {
		return state.fail(diag.ExecutionLimit, nil,
			"call depth limit %d reached", state.maxCallDepth)
	}

	f := newFrame(fn, state.PC+1)
	for n, p := range fn.Params {
		f.vars[p.Name] = value.Coerce(state.Stack[n], p.Type)
	}

	state.Stack = state.Stack[:0]
	state.Frames = append(state.Frames, f)
	state.MaxDepth = max(state.MaxDepth, len(state.Frames))
	state.PC = entry

	return nil
}

func (i instEmulator) runReturn(inst program.Inst, state *coreState) error {
	if len(state.Frames) == 0 {
		return state.fail(diag.MalformedProgram, nil,
			"RETURN with an empty frame stack")
	}

	callee := state.current()

	v := value.Zero(callee.fn.ReturnType)
	if callee.fn.ReturnType == value.Invalid {
		v = value.Value{}
	}

	if len(inst.Operands) == 1 {
		r, err := state.read(inst.Operands[0])
		if err != nil {
			return err
		}
		v = r
	}

	if callee.fn.ReturnType != value.Invalid {
		v = value.Coerce(v, callee.fn.ReturnType)
	}

	state.caller().retSlot = v
	state.Frames = state.Frames[:len(state.Frames)-1]
	state.Stack = state.Stack[:0]
	state.PC = callee.returnAddr

	return nil
}

func (i instEmulator) runPrint(inst program.Inst, state *coreState) error {
	v, err := state.read(inst.Operands[0])
	if err != nil {
		return err
	}

	if err := state.out.WriteValue(v); err != nil {
		return state.fail(diag.OutputFailure, err, "write output: %v", err)
	}

	state.PC++

	return nil
}

func (i instEmulator) runInput(inst program.Inst, state *coreState) error {
	dst := inst.Operands[0]

	kind := dst.Type
	if kind == value.Invalid {
		kind = value.String
	}

	v, err := state.in.ReadValue(kind)
	if err != nil {
		return state.fail(diag.InputFailure, err, "read %s input: %v", kind, err)
	}

	if v = value.Coerce(v, kind); v.Kind != kind {
		return state.fail(diag.InputFailure, value.ErrTypeMismatch,
			"input source returned %s, want %s", v.Kind, kind)
	}

	if err := state.write(dst, v); err != nil {
		return err
	}

	state.PC++

	return nil
}
