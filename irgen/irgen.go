// Package irgen lowers a syntax tree into three-address IR.
//
// Lowering is purely structural and deterministic: the same tree always
// yields the same instructions given a fresh Context. Top-level statements
// are lowered first, followed by one region per function definition.
package irgen

import (
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/value"
)

// Generator is the IR generator. It visits statements and expressions.
type Generator struct {
	ctx    *Context
	instrs []ir.Instruction
	funcs  []*ast.FunctionDefinition

	// result holds the operand produced by the last visited expression.
	result ir.Operand
}

// Generate lowers a program with a fresh context.
func Generate(p *ast.Program) (*ir.Program, error) {
	return NewGenerator(NewContext()).Generate(p)
}

// NewGenerator creates a generator that works in the given context.
func NewGenerator(ctx *Context) *Generator {
	return &Generator{ctx: ctx}
}

// Generate lowers the program.
func (g *Generator) Generate(p *ast.Program) (*ir.Program, error) {
	if p == nil {
		return nil, violation("nil program")
	}

	for _, s := range p.Statements {
		if f, ok := s.(*ast.FunctionDefinition); ok && f != nil {
			if err := g.ctx.declareFunc(f); err != nil {
				return nil, err
			}
		}
	}

	if err := g.block(p.Statements); err != nil {
		return nil, err
	}

	out := &ir.Program{}

	for _, f := range g.funcs {
		if err := g.function(f); err != nil {
			return nil, err
		}
		out.Funcs = append(out.Funcs, g.ctx.funcs[f.Name])
	}

	out.Instrs = g.instrs

	diag.Trace("IRGen", "instructions", len(out.Instrs),
		"functions", len(out.Funcs))

	return out, nil
}

func violation(format string, args ...any) error {
	return diag.New(diag.FrontEndContractViolation, "", format, args...)
}

func (g *Generator) emit(op ir.Op, args ...ir.Operand) {
	g.instrs = append(g.instrs, ir.Instruction{Op: op, Args: args})
}

func (g *Generator) emitIf(rel ir.Op, l, r, target ir.Operand) {
	g.instrs = append(g.instrs, ir.Instruction{
		Op:   ir.OpIfGoto,
		Rel:  rel,
		Args: []ir.Operand{l, r, target},
	})
}

func (g *Generator) block(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if s == nil {
			return violation("nil statement")
		}

		if err := s.AcceptStmt(g); err != nil {
			return err
		}
	}

	return nil
}

func (g *Generator) expr(e ast.Expr) (ir.Operand, error) {
	if e == nil {
		return ir.Operand{}, violation("nil expression")
	}

	if err := e.AcceptExpr(g); err != nil {
		return ir.Operand{}, err
	}

	return g.result, nil
}

// jumpUnless emits a jump to target taken when cond does not hold.
func (g *Generator) jumpUnless(cond ast.Expr, target ir.Operand) error {
	if b, ok := cond.(*ast.BinaryExpr); ok && b != nil && b.Op.IsRelational() {
		l, err := g.expr(b.Left)
		if err != nil {
			return err
		}

		r, err := g.expr(b.Right)
		if err != nil {
			return err
		}

		g.emitIf(ir.Op(b.Op).Negate(), l, r, target)

		return nil
	}

	c, err := g.expr(cond)
	if err != nil {
		return err
	}

	if c.Type == value.Invalid {
		return violation("condition has no value")
	}

	g.emitIf(ir.OpEq, c, ir.NewLiteral(value.Zero(c.Type)), target)

	return nil
}

func (g *Generator) function(f *ast.FunctionDefinition) error {
	sig := g.ctx.enterFunc(f.Name)
	defer g.ctx.leaveFunc()

	g.emit(ir.OpLabel, ir.NewLabel(sig.Label))

	if err := g.block(f.Body); err != nil {
		return err
	}

	if n := len(f.Body); n == 0 || !isReturn(f.Body[n-1]) {
		g.emit(ir.OpReturn)
	}

	g.emit(ir.OpLabel, ir.NewLabel(sig.ExitLabel))

	return nil
}

func isReturn(s ast.Stmt) bool {
	_, ok := s.(*ast.ReturnStatement)
	return ok
}

func (g *Generator) VisitVariableDeclaration(n *ast.VariableDeclaration) error {
	if n.Type == value.Invalid {
		return violation("variable %q has no type", n.Name)
	}

	src := ir.NewLiteral(value.Zero(n.Type))
	if n.Init != nil {
		var err error
		if src, err = g.expr(n.Init); err != nil {
			return err
		}
	}

	if !src.IsTemp() {
		t := g.ctx.newTemp(n.Type)
		g.emit(ir.OpAssign, t, src)
		src = t
	}

	dst := g.ctx.declareVar(n.Name, n.Type)
	g.emit(ir.OpAssign, dst, src)

	return nil
}

func (g *Generator) VisitAssign(n *ast.AssignStatement) error {
	dst, err := g.ctx.lookupVar(n.Name)
	if err != nil {
		return err
	}

	src, err := g.expr(n.Value)
	if err != nil {
		return err
	}

	g.emit(ir.OpAssign, dst, src)

	return nil
}

func (g *Generator) VisitIf(n *ast.IfStatement) error {
	elseLabel := g.ctx.newLabel()
	endLabel := g.ctx.newLabel()

	target := endLabel
	if n.Else != nil {
		target = elseLabel
	}

	if err := g.jumpUnless(n.Cond, target); err != nil {
		return err
	}

	if err := g.block(n.Then); err != nil {
		return err
	}

	g.emit(ir.OpGoto, endLabel)

	if n.Else != nil {
		g.emit(ir.OpLabel, elseLabel)

		if err := g.block(n.Else); err != nil {
			return err
		}
	}

	g.emit(ir.OpLabel, endLabel)

	return nil
}

func (g *Generator) VisitWhile(n *ast.WhileStatement) error {
	start := g.ctx.newLabel()
	end := g.ctx.newLabel()

	g.emit(ir.OpLabel, start)

	if err := g.jumpUnless(n.Cond, end); err != nil {
		return err
	}

	if err := g.block(n.Body); err != nil {
		return err
	}

	g.emit(ir.OpGoto, start)
	g.emit(ir.OpLabel, end)

	return nil
}

func (g *Generator) VisitReturn(n *ast.ReturnStatement) error {
	if !g.ctx.inFunction() {
		return violation("return outside of a function")
	}

	if n.Value == nil {
		g.emit(ir.OpReturn)
		return nil
	}

	v, err := g.expr(n.Value)
	if err != nil {
		return err
	}

	g.emit(ir.OpReturn, v)

	return nil
}

func (g *Generator) VisitPrint(n *ast.PrintStatement) error {
	v, err := g.expr(n.Value)
	if err != nil {
		return err
	}

	g.emit(ir.OpPrint, v)

	return nil
}

func (g *Generator) VisitInput(n *ast.InputStatement) error {
	dst, err := g.ctx.lookupVar(n.Target)
	if err != nil {
		return err
	}

	g.emit(ir.OpInput, dst)

	return nil
}

func (g *Generator) VisitFunctionDefinition(n *ast.FunctionDefinition) error {
	if g.ctx.inFunction() {
		return violation("function %q defined inside %q", n.Name, g.ctx.current.Name)
	}

	if _, ok := g.ctx.funcs[n.Name]; !ok {
		return violation("function %q defined outside the top level", n.Name)
	}

	g.funcs = append(g.funcs, n)

	return nil
}

func (g *Generator) VisitCallStatement(n *ast.FunctionCall) error {
	_, err := g.call(n)
	return err
}

func (g *Generator) call(n *ast.FunctionCall) (ir.FuncSig, error) {
	sig, err := g.ctx.lookupFunc(n.Name)
	if err != nil {
		return sig, err
	}

	if len(n.Args) != len(sig.Params) {
		return sig, violation("%s expects %d arguments, got %d",
			n.Name, len(sig.Params), len(n.Args))
	}

	args := make([]ir.Operand, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := g.expr(a)
		if err != nil {
			return sig, err
		}
		args = append(args, v)
	}

	for _, a := range args {
		g.emit(ir.OpParam, a)
	}

	g.emit(ir.OpCall, ir.NewFunc(sig.Label))

	return sig, nil
}

func (g *Generator) VisitCall(n *ast.FunctionCall) error {
	sig, err := g.call(n)
	if err != nil {
		return err
	}

	if sig.ReturnType == value.Invalid {
		return violation("%s returns no value", n.Name)
	}

	t := g.ctx.newTemp(sig.ReturnType)
	g.emit(ir.OpAssign, t, ir.NewRetSlot(sig.ReturnType))
	g.result = t

	return nil
}

func (g *Generator) VisitBinary(n *ast.BinaryExpr) error {
	l, err := g.expr(n.Left)
	if err != nil {
		return err
	}

	r, err := g.expr(n.Right)
	if err != nil {
		return err
	}

	t, err := resultType(n.Op, l.Type, r.Type)
	if err != nil {
		return err
	}

	dst := g.ctx.newTemp(t)
	g.emit(ir.Op(n.Op), dst, l, r)
	g.result = dst

	return nil
}

func resultType(op ast.Operator, l, r value.Kind) (value.Kind, error) {
	switch {
	case op.IsRelational():
		return value.Bool, nil
	case !op.IsArithmetic():
		return value.Invalid, violation("unknown operator %q", string(op))
	case l == value.String && r == value.String && op == ast.OpAdd:
		return value.String, nil
	case l == value.Int && r == value.Int:
		return value.Int, nil
	case l.IsNumeric() && r.IsNumeric():
		return value.Float, nil
	default:
		return value.Invalid, violation("operator %s on %s and %s",
			string(op), l, r)
	}
}

func (g *Generator) VisitLiteral(n *ast.Literal) error {
	if !n.Value.IsValid() {
		return violation("literal without a kind")
	}

	g.result = ir.NewLiteral(n.Value)

	return nil
}

func (g *Generator) VisitIdentifier(n *ast.Identifier) error {
	v, err := g.ctx.lookupVar(n.Name)
	if err != nil {
		return err
	}

	g.result = v

	return nil
}
