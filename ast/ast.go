// Package ast defines the abstract syntax tree handed over by the front end.
//
// The node set is closed. Statements implement Stmt and expressions
// implement Expr; both interfaces carry an unexported marker so no other
// package can add a variant. Every consumer walks the tree through
// StmtVisitor and ExprVisitor, which have one method per node kind, so a new
// node kind breaks the build of every visitor that does not handle it.
//
// The core borrows the tree for the duration of a compilation and never
// mutates it.
package ast

import "github.com/sarchlab/tacvm/value"

type (
	// Node is implemented by every syntax tree node.
	Node interface {
		node()
	}

	// Stmt is a statement node.
	Stmt interface {
		Node
		AcceptStmt(v StmtVisitor) error
	}

	// Expr is an expression node.
	Expr interface {
		Node
		AcceptExpr(v ExprVisitor) error
	}
)

// Program is the root of a tree.
type Program struct {
	Statements []Stmt
}

type (
	// VariableDeclaration declares a typed variable with an optional
	// initializer.
	VariableDeclaration struct {
		Type value.Kind
		Name string
		Init Expr // nil when no initializer is given
	}

	// AssignStatement assigns an expression to an existing variable.
	AssignStatement struct {
		Name  string
		Value Expr
	}

	// IfStatement is an if with an optional else block. Else is nil when
	// no else block exists.
	IfStatement struct {
		Cond Expr
		Then []Stmt
		Else []Stmt
	}

	// WhileStatement loops while Cond holds.
	WhileStatement struct {
		Cond Expr
		Body []Stmt
	}

	// ReturnStatement returns from the enclosing function. Value is nil for
	// a bare return.
	ReturnStatement struct {
		Value Expr
	}

	// PrintStatement writes a value to the output.
	PrintStatement struct {
		Value Expr
	}

	// InputStatement reads a value into Target.
	InputStatement struct {
		Target string
	}

	// FunctionDefinition defines a function. ReturnType is value.Invalid
	// for functions that return nothing.
	FunctionDefinition struct {
		Name       string
		Params     []Param
		Body       []Stmt
		ReturnType value.Kind
	}

	// Param is one declared parameter.
	Param struct {
		Type value.Kind
		Name string
	}
)

type (
	// FunctionCall is both an expression and, when its result is
	// discarded, a statement.
	FunctionCall struct {
		Name string
		Args []Expr
	}

	// BinaryExpr applies Op to Left and Right.
	BinaryExpr struct {
		Left  Expr
		Op    Operator
		Right Expr
	}

	// Literal is a constant of one of the four value kinds.
	Literal struct {
		Value value.Value
	}

	// Identifier refers to a variable or parameter.
	Identifier struct {
		Name string
	}
)

// Kind returns the literal's kind.
func (l *Literal) Kind() value.Kind {
	return l.Value.Kind
}

func (*VariableDeclaration) node() {}
func (*AssignStatement) node()     {}
func (*IfStatement) node()         {}
func (*WhileStatement) node()      {}
func (*ReturnStatement) node()     {}
func (*PrintStatement) node()      {}
func (*InputStatement) node()      {}
func (*FunctionDefinition) node()  {}
func (*FunctionCall) node()        {}
func (*BinaryExpr) node()          {}
func (*Literal) node()             {}
func (*Identifier) node()          {}

// Operator is a binary operator.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpLt  Operator = "<"
	OpGt  Operator = ">"
	OpLe  Operator = "<="
	OpGe  Operator = ">="
	OpEq  Operator = "=="
	OpNe  Operator = "!="
)

// IsArithmetic tells if the operator is one of + - * /.
func (o Operator) IsArithmetic() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	default:
		return false
	}
}

// IsRelational tells if the operator compares its operands.
func (o Operator) IsRelational() bool {
	switch o {
	case OpLt, OpGt, OpLe, OpGe, OpEq, OpNe:
		return true
	default:
		return false
	}
}

// Int creates an int literal.
func Int(v int64) *Literal { return &Literal{Value: value.NewInt(v)} }

// Float creates a float literal.
func Float(v float64) *Literal { return &Literal{Value: value.NewFloat(v)} }

// Bool creates a bool literal.
func Bool(v bool) *Literal { return &Literal{Value: value.NewBool(v)} }

// Str creates a string literal.
func Str(v string) *Literal { return &Literal{Value: value.NewString(v)} }

// Ident creates an identifier.
func Ident(name string) *Identifier { return &Identifier{Name: name} }

// Bin creates a binary expression.
func Bin(left Expr, op Operator, right Expr) *BinaryExpr {
	return &BinaryExpr{Left: left, Op: op, Right: right}
}

// Call creates a function call.
func Call(name string, args ...Expr) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}
