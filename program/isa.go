package program

import "sort"

// InstSpec describes the shape of one target instruction.
type InstSpec struct {
	Mnemonic Mnemonic

	// MinArgs and MaxArgs bound the operand count.
	MinArgs, MaxArgs int

	// Dst is set when the first operand is written.
	Dst bool

	// Branch is set when the last operand is a jump or call target.
	Branch bool

	// Conditional is set for jumps that consume the preceding CMP.
	Conditional bool
}

// ISA is a struct that represents an Instruction Set Architecture.
type ISA struct {
	// name of the ISA.
	isaName string
	// map from mnemonic to the shape of the instruction.
	nameToSpec map[Mnemonic]InstSpec
}

// NewISA creates an empty ISA.
func NewISA(name string) *ISA {
	return &ISA{
		isaName:    name,
		nameToSpec: make(map[Mnemonic]InstSpec),
	}
}

// Name returns the name of the ISA.
func (isa *ISA) Name() string {
	return isa.isaName
}

func (isa *ISA) registerNewInst(spec InstSpec) {
	isa.nameToSpec[spec.Mnemonic] = spec
}

// Lookup returns the shape of a mnemonic.
func (isa *ISA) Lookup(m Mnemonic) (InstSpec, bool) {
	spec, ok := isa.nameToSpec[m]
	return spec, ok
}

// Mnemonics lists every registered mnemonic in name order.
func (isa *ISA) Mnemonics() []Mnemonic {
	ms := make([]Mnemonic, 0, len(isa.nameToSpec))
	for m := range isa.nameToSpec {
		ms = append(ms, m)
	}

	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })

	return ms
}

// DefaultISA is the instruction set the code generator targets and the
// virtual machine executes.
var DefaultISA = defaultISA()

func defaultISA() *ISA {
	isa := NewISA("tacvm")

	isa.registerNewInst(InstSpec{Mnemonic: MOV, MinArgs: 2, MaxArgs: 2, Dst: true})

	for _, m := range []Mnemonic{ADD, SUB, MUL, DIV} {
		isa.registerNewInst(InstSpec{Mnemonic: m, MinArgs: 3, MaxArgs: 3, Dst: true})
	}

	isa.registerNewInst(InstSpec{Mnemonic: CMP, MinArgs: 2, MaxArgs: 2})
	isa.registerNewInst(InstSpec{Mnemonic: JMP, MinArgs: 1, MaxArgs: 1, Branch: true})

	for _, m := range []Mnemonic{JE, JNE, JL, JLE, JG, JGE} {
		isa.registerNewInst(InstSpec{
			Mnemonic: m, MinArgs: 1, MaxArgs: 1, Branch: true, Conditional: true,
		})
	}

	isa.registerNewInst(InstSpec{Mnemonic: PUSH, MinArgs: 1, MaxArgs: 1})
	isa.registerNewInst(InstSpec{Mnemonic: CALL, MinArgs: 1, MaxArgs: 1, Branch: true})
	isa.registerNewInst(InstSpec{Mnemonic: RETURN, MinArgs: 0, MaxArgs: 1})
	isa.registerNewInst(InstSpec{Mnemonic: PRINT, MinArgs: 1, MaxArgs: 1})
	isa.registerNewInst(InstSpec{Mnemonic: INPUT, MinArgs: 1, MaxArgs: 1, Dst: true})
	isa.registerNewInst(InstSpec{Mnemonic: LABEL, MinArgs: 1, MaxArgs: 1})

	return isa
}
