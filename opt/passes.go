package opt

import (
	"fmt"

	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/value"
)

type constantFolding struct{}

func (constantFolding) Name() string { return "constant-folding" }

func (constantFolding) Run(
	_ *ir.Program,
	in []ir.Instruction,
) ([]ir.Instruction, int, error) {
	out := make([]ir.Instruction, 0, len(in))
	changes := 0

	for _, inst := range in {
		if !inst.Op.IsArithmetic() ||
			!inst.Args[1].IsLiteral() || !inst.Args[2].IsLiteral() {
			out = append(out, inst)
			continue
		}

		v, ok, err := fold(inst)
		if err != nil {
			return nil, 0, err
		}

		if !ok {
			out = append(out, inst)
			continue
		}

		dst := inst.Args[0]
		out = append(out, ir.Instruction{
			Op:   ir.OpAssign,
			Args: []ir.Operand{dst, ir.NewLiteral(value.Coerce(v, dst.Type))},
		})
		changes++
	}

	return out, changes, nil
}

// fold computes a literal arithmetic instruction. Operands of kinds the
// operator does not accept are left for the VM to report.
func fold(inst ir.Instruction) (value.Value, bool, error) {
	l, r := inst.Args[1].Value, inst.Args[2].Value

	var (
		v   value.Value
		err error
	)

	switch inst.Op {
	case ir.OpAdd:
		v, err = value.Add(l, r)
	case ir.OpSub:
		v, err = value.Sub(l, r)
	case ir.OpMul:
		v, err = value.Mul(l, r)
	case ir.OpDiv:
		if r.Kind.IsNumeric() && r.IsZero() {
			return value.Value{}, false, diag.New(
				diag.OptimizerConstantDivisionByZero, inst.String(),
				"constant division by zero")
		}
		v, err = value.Div(l, r, true)
	default:
		panic(fmt.Sprintf("cannot fold %q", string(inst.Op)))
	}

	if err != nil {
		return value.Value{}, false, nil
	}

	return v, true, nil
}

// location identifies the storage an operand names.
type location struct {
	kind   ir.OperandKind
	name   string
	global bool
}

func locationOf(o ir.Operand) location {
	return location{kind: o.Kind, name: o.Name, global: o.Global}
}

type copyPropagation struct{}

func (copyPropagation) Name() string { return "copy-propagation" }

func (copyPropagation) Run(
	_ *ir.Program,
	in []ir.Instruction,
) ([]ir.Instruction, int, error) {
	out := make([]ir.Instruction, 0, len(in))
	known := make(map[location]value.Value)
	changes := 0

	for _, inst := range in {
		switch {
		case inst.Op == ir.OpLabel, inst.Op == ir.OpCall:
			clear(known)
		case inst.Op == ir.OpAssign:
			dst, src := inst.Args[0], inst.Args[1]

			if !src.IsLiteral() {
				if v, ok := known[locationOf(src)]; ok {
					inst = ir.Instruction{
						Op:   ir.OpAssign,
						Args: []ir.Operand{dst, ir.NewLiteral(v)},
					}
					src = inst.Args[1]
					changes++
				}
			}

			if src.IsLiteral() {
				known[locationOf(dst)] = value.Coerce(src.Value, dst.Type)
			} else {
				delete(known, locationOf(dst))
			}
		default:
			if dst, ok := inst.Dst(); ok {
				delete(known, locationOf(dst))
			}
		}

		out = append(out, inst)
	}

	return out, changes, nil
}

type deadStoreElimination struct{}

func (deadStoreElimination) Name() string { return "dead-store-elimination" }

// Run removes self-assignments and stores into temporaries nobody reads. A
// temporary read only by the copy right after its definition is merged
// into that copy.
func (deadStoreElimination) Run(
	_ *ir.Program,
	in []ir.Instruction,
) ([]ir.Instruction, int, error) {
	uses := tempUses(in)
	out := make([]ir.Instruction, 0, len(in))
	changes := 0

	for i := 0; i < len(in); i++ {
		inst := in[i]

		if inst.Op == ir.OpAssign && inst.Args[0].SameLocation(inst.Args[1]) {
			changes++
			continue
		}

		dst, defines := inst.Dst()
		if !defines || !dst.IsTemp() || inst.Op == ir.OpInput {
			out = append(out, inst)
			continue
		}

		if uses[dst.Name] == 0 && inst.Op == ir.OpAssign {
			changes++
			continue
		}

		if uses[dst.Name] == 1 && i+1 < len(in) && isCopyOf(in[i+1], dst) {
			merged := inst.Clone()
			merged.Args[0] = in[i+1].Args[0]
			out = append(out, merged)
			changes++
			i++

			continue
		}

		out = append(out, inst)
	}

	return out, changes, nil
}

func tempUses(instrs []ir.Instruction) map[string]int {
	uses := make(map[string]int)

	for _, inst := range instrs {
		for _, o := range inst.Uses() {
			if o.IsTemp() {
				uses[o.Name]++
			}
		}
	}

	return uses
}

func isCopyOf(inst ir.Instruction, temp ir.Operand) bool {
	return inst.Op == ir.OpAssign && inst.Args[1].SameLocation(temp)
}

type deadCodeElimination struct{}

func (deadCodeElimination) Name() string { return "dead-code-elimination" }

// Run drops the instructions between a return and the next label. Nothing
// jumps into that range, so it can never run.
func (deadCodeElimination) Run(
	_ *ir.Program,
	in []ir.Instruction,
) ([]ir.Instruction, int, error) {
	out := make([]ir.Instruction, 0, len(in))
	changes := 0
	unreachable := false

	for _, inst := range in {
		switch {
		case inst.Op == ir.OpLabel:
			unreachable = false
		case unreachable:
			changes++
			continue
		case inst.Op == ir.OpReturn:
			unreachable = true
		}

		out = append(out, inst)
	}

	return out, changes, nil
}
