// Package codegen translates optimized IR into target instructions.
//
// The translation is total over the IR opcode set. Most opcodes map to one
// target instruction. Conditional jumps become a CMP followed by the jump
// selected by the relation, and relations used as values expand into a
// CMP/jump diamond that stores true or false.
package codegen

import (
	"fmt"

	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

var arithOps = map[ir.Op]program.Mnemonic{
	ir.OpAdd: program.ADD,
	ir.OpSub: program.SUB,
	ir.OpMul: program.MUL,
	ir.OpDiv: program.DIV,
}

var jumpOps = map[ir.Op]program.Mnemonic{
	ir.OpLt: program.JL,
	ir.OpGt: program.JG,
	ir.OpLe: program.JLE,
	ir.OpGe: program.JGE,
	ir.OpEq: program.JE,
	ir.OpNe: program.JNE,
}

// Generator holds the state of one translation.
type Generator struct {
	insts  []program.Inst
	labels int
}

// Generate translates p with a fresh generator.
func Generate(p *ir.Program) (*program.Program, error) {
	return (&Generator{}).Generate(p)
}

// Generate translates p into a target program.
func (g *Generator) Generate(p *ir.Program) (*program.Program, error) {
	g.insts = make([]program.Inst, 0, len(p.Instrs))

	out := &program.Program{
		Funcs:   make(map[string]program.Func, len(p.Funcs)),
		MainEnd: -1,
	}

	for _, inst := range p.Instrs {
		if out.MainEnd < 0 && p.IsFuncEntry(inst) {
			out.MainEnd = len(g.insts)
		}

		if err := g.translate(inst); err != nil {
			return nil, err
		}
	}

	if out.MainEnd < 0 {
		out.MainEnd = len(g.insts)
	}

	for _, f := range p.Funcs {
		params := make([]program.Param, len(f.Params))
		for n, prm := range f.Params {
			params[n] = program.Param{Name: prm.Name, Type: prm.Type}
		}

		out.Funcs[f.Label] = program.Func{
			Name:       f.Name,
			Label:      f.Label,
			Params:     params,
			ReturnType: f.ReturnType,
		}
	}

	out.Insts = g.insts

	diag.Trace("CodeGen", "ir", len(p.Instrs), "target", len(out.Insts),
		"mainEnd", out.MainEnd)

	return out, nil
}

func (g *Generator) emit(m program.Mnemonic, ops ...program.Operand) {
	g.insts = append(g.insts, program.Inst{Mnemonic: m, Operands: ops})
}

func (g *Generator) newLabel(prefix string) program.Operand {
	g.labels++
	return program.NewLabel(fmt.Sprintf("cg_%s_%d", prefix, g.labels))
}

//nolint:gocyclo
func (g *Generator) translate(inst ir.Instruction) error {
	if !wellFormed(inst) {
		return diag.New(diag.CodeGenUnsupportedOpcode, string(inst.Op),
			"%q instruction with %d operands", string(inst.Op), len(inst.Args))
	}

	a := inst.Args

	switch {
	case inst.Op == ir.OpAssign:
		g.emit(program.MOV, operand(a[0]), operand(a[1]))
	case inst.Op.IsArithmetic():
		g.emit(arithOps[inst.Op], operand(a[0]), operand(a[1]), operand(a[2]))
	case inst.Op.IsRelational():
		g.relation(inst)
	case inst.Op == ir.OpIfGoto:
		g.emit(program.CMP, operand(a[0]), operand(a[1]))
		g.emit(jumpOps[inst.Rel], operand(a[2]))
	case inst.Op == ir.OpGoto:
		g.emit(program.JMP, operand(a[0]))
	case inst.Op == ir.OpLabel:
		g.emit(program.LABEL, operand(a[0]))
	case inst.Op == ir.OpParam:
		g.emit(program.PUSH, operand(a[0]))
	case inst.Op == ir.OpCall:
		g.emit(program.CALL, operand(a[0]))
	case inst.Op == ir.OpReturn:
		if len(a) == 0 {
			g.emit(program.RETURN)
		} else {
			g.emit(program.RETURN, operand(a[0]))
		}
	case inst.Op == ir.OpPrint:
		g.emit(program.PRINT, operand(a[0]))
	case inst.Op == ir.OpInput:
		g.emit(program.INPUT, operand(a[0]))
	default:
		return diag.New(diag.CodeGenUnsupportedOpcode, inst.String(),
			"unsupported opcode %q", string(inst.Op))
	}

	return nil
}

// relation stores the truth of "left op right" into dst.
//
//	CMP left, right
//	Jcc cg_true_N
//	MOV dst, false
//	JMP cg_end_M
//	LABEL cg_true_N
//	MOV dst, true
//	LABEL cg_end_M
func (g *Generator) relation(inst ir.Instruction) {
	dst := operand(inst.Args[0])
	isTrue := g.newLabel("true")
	end := g.newLabel("end")

	g.emit(program.CMP, operand(inst.Args[1]), operand(inst.Args[2]))
	g.emit(jumpOps[inst.Op], isTrue)
	g.emit(program.MOV, dst, program.NewImm(value.NewBool(false)))
	g.emit(program.JMP, end)
	g.emit(program.LABEL, isTrue)
	g.emit(program.MOV, dst, program.NewImm(value.NewBool(true)))
	g.emit(program.LABEL, end)
}

func wellFormed(inst ir.Instruction) bool {
	n := len(inst.Args)

	switch {
	case inst.Op == ir.OpAssign:
		return n == 2
	case inst.Op.IsArithmetic(), inst.Op.IsRelational():
		return n == 3
	case inst.Op == ir.OpIfGoto:
		_, ok := jumpOps[inst.Rel]
		return n == 3 && ok
	case inst.Op == ir.OpReturn:
		return n <= 1
	case inst.Op == ir.OpGoto, inst.Op == ir.OpLabel, inst.Op == ir.OpParam,
		inst.Op == ir.OpCall, inst.Op == ir.OpPrint, inst.Op == ir.OpInput:
		return n == 1
	default:
		return true
	}
}

func operand(o ir.Operand) program.Operand {
	switch o.Kind {
	case ir.Literal:
		return program.NewImm(o.Value)
	case ir.Label, ir.Func:
		return program.NewLabel(o.Name)
	case ir.RetSlot:
		return program.Operand{Kind: program.RetSlot, Name: o.Name, Type: o.Type}
	case ir.Temp:
		return program.Operand{Kind: program.Temp, Name: o.Name, Type: o.Type}
	default:
		return program.Operand{
			Kind: program.Var, Name: o.Name, Type: o.Type, Global: o.Global,
		}
	}
}
