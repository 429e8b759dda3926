package ast

import (
	"fmt"
	"strings"

	"github.com/sarchlab/tacvm/value"
)

// StmtVisitor has one method per statement kind.
type StmtVisitor interface {
	VisitVariableDeclaration(node *VariableDeclaration) error
	VisitAssign(node *AssignStatement) error
	VisitIf(node *IfStatement) error
	VisitWhile(node *WhileStatement) error
	VisitReturn(node *ReturnStatement) error
	VisitPrint(node *PrintStatement) error
	VisitInput(node *InputStatement) error
	VisitFunctionDefinition(node *FunctionDefinition) error
	VisitCallStatement(node *FunctionCall) error
}

// ExprVisitor has one method per expression kind.
type ExprVisitor interface {
	VisitBinary(node *BinaryExpr) error
	VisitLiteral(node *Literal) error
	VisitIdentifier(node *Identifier) error
	VisitCall(node *FunctionCall) error
}

func (n *VariableDeclaration) AcceptStmt(v StmtVisitor) error { return v.VisitVariableDeclaration(n) }
func (n *AssignStatement) AcceptStmt(v StmtVisitor) error     { return v.VisitAssign(n) }
func (n *IfStatement) AcceptStmt(v StmtVisitor) error         { return v.VisitIf(n) }
func (n *WhileStatement) AcceptStmt(v StmtVisitor) error      { return v.VisitWhile(n) }
func (n *ReturnStatement) AcceptStmt(v StmtVisitor) error     { return v.VisitReturn(n) }
func (n *PrintStatement) AcceptStmt(v StmtVisitor) error      { return v.VisitPrint(n) }
func (n *InputStatement) AcceptStmt(v StmtVisitor) error      { return v.VisitInput(n) }
func (n *FunctionDefinition) AcceptStmt(v StmtVisitor) error  { return v.VisitFunctionDefinition(n) }
func (n *FunctionCall) AcceptStmt(v StmtVisitor) error        { return v.VisitCallStatement(n) }

func (n *BinaryExpr) AcceptExpr(v ExprVisitor) error   { return v.VisitBinary(n) }
func (n *Literal) AcceptExpr(v ExprVisitor) error      { return v.VisitLiteral(n) }
func (n *Identifier) AcceptExpr(v ExprVisitor) error   { return v.VisitIdentifier(n) }
func (n *FunctionCall) AcceptExpr(v ExprVisitor) error { return v.VisitCall(n) }

// DebugVisitor prints each node as it visits it, forming a fully printed
// tree.
type DebugVisitor struct {
	sb     *strings.Builder
	indent int
}

// NewDebugVisitor creates an empty printer.
func NewDebugVisitor() *DebugVisitor {
	return &DebugVisitor{sb: &strings.Builder{}}
}

// Dump prints a whole program.
func Dump(p *Program) string {
	d := NewDebugVisitor()
	d.write("program:")
	d.block(p.Statements)

	return d.String()
}

func (d *DebugVisitor) String() string {
	return d.sb.String()
}

func (d *DebugVisitor) write(format string, args ...any) {
	d.sb.WriteString(strings.Repeat("  ", d.indent))
	fmt.Fprintf(d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *DebugVisitor) block(stmts []Stmt) {
	d.indent++
	for _, s := range stmts {
		if s == nil {
			d.write("<nil>")
			continue
		}
		_ = s.AcceptStmt(d)
	}
	d.indent--
}

func (d *DebugVisitor) expr(e Expr) {
	d.indent++
	if e == nil {
		d.write("<nil>")
	} else {
		_ = e.AcceptExpr(d)
	}
	d.indent--
}

func (d *DebugVisitor) VisitVariableDeclaration(n *VariableDeclaration) error {
	d.write("var: %s %s", n.Type, n.Name)
	if n.Init != nil {
		d.expr(n.Init)
	}
	return nil
}

func (d *DebugVisitor) VisitAssign(n *AssignStatement) error {
	d.write("assign: %s", n.Name)
	d.expr(n.Value)
	return nil
}

func (d *DebugVisitor) VisitIf(n *IfStatement) error {
	d.write("if:")
	d.expr(n.Cond)
	d.write("then:")
	d.block(n.Then)
	if n.Else != nil {
		d.write("else:")
		d.block(n.Else)
	}
	return nil
}

func (d *DebugVisitor) VisitWhile(n *WhileStatement) error {
	d.write("while:")
	d.expr(n.Cond)
	d.write("body:")
	d.block(n.Body)
	return nil
}

func (d *DebugVisitor) VisitReturn(n *ReturnStatement) error {
	d.write("return:")
	if n.Value != nil {
		d.expr(n.Value)
	}
	return nil
}

func (d *DebugVisitor) VisitPrint(n *PrintStatement) error {
	d.write("print:")
	d.expr(n.Value)
	return nil
}

func (d *DebugVisitor) VisitInput(n *InputStatement) error {
	d.write("input: %s", n.Target)
	return nil
}

func (d *DebugVisitor) VisitFunctionDefinition(n *FunctionDefinition) error {
	params := make([]string, 0, len(n.Params))
	for _, p := range n.Params {
		params = append(params, p.Type.Name()+" "+p.Name)
	}

	ret := "void"
	if n.ReturnType != value.Invalid {
		ret = n.ReturnType.Name()
	}

	d.write("func: %s(%s) %s", n.Name, strings.Join(params, ", "), ret)
	d.block(n.Body)
	return nil
}

func (d *DebugVisitor) VisitCallStatement(n *FunctionCall) error {
	return d.VisitCall(n)
}

func (d *DebugVisitor) VisitBinary(n *BinaryExpr) error {
	d.write("binary: %s", n.Op)
	d.expr(n.Left)
	d.expr(n.Right)
	return nil
}

func (d *DebugVisitor) VisitLiteral(n *Literal) error {
	d.write("literal: %s %s", n.Kind(), n.Value.Literal())
	return nil
}

func (d *DebugVisitor) VisitIdentifier(n *Identifier) error {
	d.write("ident: %s", n.Name)
	return nil
}

func (d *DebugVisitor) VisitCall(n *FunctionCall) error {
	d.write("call: %s", n.Name)
	for _, a := range n.Args {
		d.expr(a)
	}
	return nil
}
