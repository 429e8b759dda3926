// Package ir defines the three-address intermediate representation.
package ir

import (
	"fmt"
	"strings"

	"github.com/sarchlab/tacvm/value"
)

// Op is an IR opcode.
type Op string

// The closed opcode set.
const (
	OpAssign Op = "="
	OpAdd    Op = "+"
	OpSub    Op = "-"
	OpMul    Op = "*"
	OpDiv    Op = "/"
	OpLt     Op = "<"
	OpGt     Op = ">"
	OpLe     Op = "<="
	OpGe     Op = ">="
	OpEq     Op = "=="
	OpNe     Op = "!="
	OpIfGoto Op = "if-goto"
	OpGoto   Op = "goto"
	OpLabel  Op = "label"
	OpParam  Op = "param"
	OpCall   Op = "call"
	OpReturn Op = "return"
	OpPrint  Op = "print"
	OpInput  Op = "input"
)

// IsArithmetic tells if the opcode is one of + - * /.
func (o Op) IsArithmetic() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	default:
		return false
	}
}

// IsRelational tells if the opcode is a comparison.
func (o Op) IsRelational() bool {
	switch o {
	case OpLt, OpGt, OpLe, OpGe, OpEq, OpNe:
		return true
	default:
		return false
	}
}

// Negate returns the relation that holds exactly when o does not.
func (o Op) Negate() Op {
	switch o {
	case OpLt:
		return OpGe
	case OpGe:
		return OpLt
	case OpGt:
		return OpLe
	case OpLe:
		return OpGt
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	default:
		panic(fmt.Sprintf("cannot negate %q", string(o)))
	}
}

// OperandKind tells what an operand refers to.
type OperandKind int

const (
	Temp OperandKind = iota + 1
	Var
	Literal
	Label
	Func
	RetSlot
)

// Operand is one argument of an instruction. Temps and vars carry their
// static type; literals carry their value.
type Operand struct {
	Kind   OperandKind
	Name   string
	Type   value.Kind
	Global bool
	Value  value.Value
}

// NewTemp creates a temporary operand.
func NewTemp(name string, t value.Kind) Operand {
	return Operand{Kind: Temp, Name: name, Type: t}
}

// NewVar creates a source variable operand.
func NewVar(name string, t value.Kind) Operand {
	return Operand{Kind: Var, Name: name, Type: t}
}

// NewGlobal creates a variable operand that refers to the top-level store.
func NewGlobal(name string, t value.Kind) Operand {
	return Operand{Kind: Var, Name: name, Type: t, Global: true}
}

// NewLiteral creates a literal operand.
func NewLiteral(v value.Value) Operand {
	return Operand{Kind: Literal, Type: v.Kind, Value: v}
}

// NewLabel creates a label operand.
func NewLabel(name string) Operand {
	return Operand{Kind: Label, Name: name}
}

// NewFunc creates a function label operand.
func NewFunc(name string) Operand {
	return Operand{Kind: Func, Name: name}
}

// NewRetSlot creates the operand that reads the value left by the most
// recent call.
func NewRetSlot(t value.Kind) Operand {
	return Operand{Kind: RetSlot, Name: RetSlotName, Type: t}
}

// RetSlotName is how the return slot shows in listings.
const RetSlotName = "return_value"

// IsLiteral tells if the operand is a literal.
func (o Operand) IsLiteral() bool {
	return o.Kind == Literal
}

// IsTemp tells if the operand is a temporary.
func (o Operand) IsTemp() bool {
	return o.Kind == Temp
}

// SameLocation tells if two operands name the same storage.
func (o Operand) SameLocation(other Operand) bool {
	if o.Kind != other.Kind || o.Name != other.Name {
		return false
	}

	if o.Kind == Var {
		return o.Global == other.Global
	}

	return o.Kind == Temp || o.Kind == RetSlot
}

func (o Operand) String() string {
	if o.Kind == Literal {
		return o.Value.Literal()
	}

	return o.Name
}

// Instruction is a single three-address instruction.
//
// Argument layout per opcode:
//
//	=                 dst, src
//	+ - * /           dst, left, right
//	< > <= >= == !=   dst, left, right
//	if-goto           left, right, label (Rel holds the relation)
//	goto, label       label
//	param             arg
//	call              func
//	return            [value]
//	print             value
//	input             var
type Instruction struct {
	Op   Op
	Rel  Op
	Args []Operand
}

// Dst returns the operand an instruction defines, if any.
func (i Instruction) Dst() (Operand, bool) {
	switch {
	case i.Op == OpAssign, i.Op.IsArithmetic(), i.Op.IsRelational(),
		i.Op == OpInput:
		return i.Args[0], true
	default:
		return Operand{}, false
	}
}

// Uses returns the operands an instruction reads.
func (i Instruction) Uses() []Operand {
	switch {
	case i.Op == OpAssign:
		return i.Args[1:2]
	case i.Op.IsArithmetic(), i.Op.IsRelational():
		return i.Args[1:3]
	case i.Op == OpIfGoto:
		return i.Args[0:2]
	case i.Op == OpParam, i.Op == OpPrint, i.Op == OpReturn:
		return i.Args
	default:
		return nil
	}
}

// Clone returns a deep copy of the instruction.
func (i Instruction) Clone() Instruction {
	args := make([]Operand, len(i.Args))
	copy(args, i.Args)
	i.Args = args

	return i
}

func (i Instruction) String() string {
	a := i.Args

	switch {
	case i.Op == OpAssign:
		return fmt.Sprintf("%s = %s", a[0], a[1])
	case i.Op.IsArithmetic(), i.Op.IsRelational():
		return fmt.Sprintf("%s = %s %s %s", a[0], a[1], i.Op, a[2])
	case i.Op == OpIfGoto:
		return fmt.Sprintf("if %s %s %s goto %s", a[0], i.Rel, a[1], a[2])
	case i.Op == OpLabel:
		return fmt.Sprintf("label %s:", a[0])
	case i.Op == OpReturn && len(a) == 0:
		return "return"
	default:
		names := make([]string, len(a))
		for n, o := range a {
			names[n] = o.String()
		}
		return strings.TrimSpace(string(i.Op) + " " + strings.Join(names, " "))
	}
}

// Param is a declared function parameter.
type Param struct {
	Name string
	Type value.Kind
}

// FuncSig describes a lowered function.
type FuncSig struct {
	Name       string
	Label      string
	ExitLabel  string
	Params     []Param
	ReturnType value.Kind
}

// Program is a lowered program. Top-level instructions come first, then
// one region per function starting at its entry label.
type Program struct {
	Instrs []Instruction
	Funcs  []FuncSig
}

// Func looks up a function by its entry label.
func (p *Program) Func(label string) (FuncSig, bool) {
	for _, f := range p.Funcs {
		if f.Label == label {
			return f, true
		}
	}

	return FuncSig{}, false
}

// IsFuncEntry tells if a label instruction opens a function region.
func (p *Program) IsFuncEntry(inst Instruction) bool {
	if inst.Op != OpLabel {
		return false
	}

	_, ok := p.Func(inst.Args[0].Name)

	return ok
}

// Clone returns a deep copy of the program.
func (p *Program) Clone() *Program {
	c := &Program{
		Instrs: make([]Instruction, len(p.Instrs)),
		Funcs:  make([]FuncSig, len(p.Funcs)),
	}

	for n, inst := range p.Instrs {
		c.Instrs[n] = inst.Clone()
	}
	copy(c.Funcs, p.Funcs)

	return c
}

// Listing returns one line per instruction.
func (p *Program) Listing() []string {
	lines := make([]string, len(p.Instrs))
	for n, inst := range p.Instrs {
		lines[n] = inst.String()
	}

	return lines
}

func (p *Program) String() string {
	return strings.Join(p.Listing(), "\n")
}
