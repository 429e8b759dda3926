// Package program defines the target instruction set executed by the
// virtual machine.
package program

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/tacvm/value"
)

// Mnemonic names a target instruction.
type Mnemonic string

const (
	MOV    Mnemonic = "MOV"
	ADD    Mnemonic = "ADD"
	SUB    Mnemonic = "SUB"
	MUL    Mnemonic = "MUL"
	DIV    Mnemonic = "DIV"
	CMP    Mnemonic = "CMP"
	JMP    Mnemonic = "JMP"
	JE     Mnemonic = "JE"
	JNE    Mnemonic = "JNE"
	JL     Mnemonic = "JL"
	JLE    Mnemonic = "JLE"
	JG     Mnemonic = "JG"
	JGE    Mnemonic = "JGE"
	PUSH   Mnemonic = "PUSH"
	CALL   Mnemonic = "CALL"
	RETURN Mnemonic = "RETURN"
	PRINT  Mnemonic = "PRINT"
	INPUT  Mnemonic = "INPUT"
	LABEL  Mnemonic = "LABEL"
)

// OperandKind tells how an operand is read.
type OperandKind int

const (
	Var OperandKind = iota + 1
	Temp
	Imm
	Label
	RetSlot
)

// Operand is a typed instruction operand.
type Operand struct {
	Kind OperandKind
	Name string

	// Type is the static type of a variable, temporary or return slot.
	Type value.Kind

	// Global is set on variables that live in the top-level store.
	Global bool

	Imm value.Value
}

// NewImm creates an immediate operand.
func NewImm(v value.Value) Operand {
	return Operand{Kind: Imm, Type: v.Kind, Imm: v}
}

// NewLabel creates a label operand.
func NewLabel(name string) Operand {
	return Operand{Kind: Label, Name: name}
}

func (o Operand) String() string {
	if o.Kind == Imm {
		return o.Imm.Literal()
	}

	return o.Name
}

// Inst is one target instruction.
type Inst struct {
	Mnemonic Mnemonic
	Operands []Operand
}

// String formats the instruction as "MNEMONIC op, op".
func (i Inst) String() string {
	if len(i.Operands) == 0 {
		return string(i.Mnemonic)
	}

	ops := make([]string, len(i.Operands))
	for n, o := range i.Operands {
		ops[n] = o.String()
	}

	return string(i.Mnemonic) + " " + strings.Join(ops, ", ")
}

// Param is a declared function parameter.
type Param struct {
	Name string
	Type value.Kind
}

// Func describes a callable function region.
type Func struct {
	Name       string
	Label      string
	Params     []Param
	ReturnType value.Kind
}

// Program is a target program. Instructions before MainEnd form the
// top-level code; function regions follow.
type Program struct {
	Insts   []Inst
	Funcs   map[string]Func
	MainEnd int
}

// Listing returns one line per instruction.
func (p *Program) Listing() []string {
	lines := make([]string, len(p.Insts))
	for n, inst := range p.Insts {
		lines[n] = inst.String()
	}

	return lines
}

// Format writes the listing to w.
func (p *Program) Format(w io.Writer) error {
	for _, line := range p.Listing() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

func (p *Program) String() string {
	return strings.Join(p.Listing(), "\n")
}
