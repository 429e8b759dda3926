package ast

import (
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/value"
)

// SupportedSchema is the range of document schema versions this package
// decodes.
const SupportedSchema = ">= 1.0.0, < 2.0.0"

// Document is the YAML hand-off format between a front end and the
// compiler. Each node is a mapping with a "kind" key.
//
//	schema: 1.0.0
//	statements:
//	  - kind: var
//	    type: int
//	    name: a
//	    init: {kind: lit, type: int, value: 5}
//	  - kind: print
//	    expr: {kind: ident, name: a}
type Document struct {
	Schema     string     `yaml:"schema"`
	Statements []*rawNode `yaml:"statements"`
}

type rawParam struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

type rawNode struct {
	Kind    string     `yaml:"kind"`
	Type    string     `yaml:"type"`
	Name    string     `yaml:"name"`
	Op      string     `yaml:"op"`
	Target  string     `yaml:"target"`
	Returns string     `yaml:"returns"`
	Value   yaml.Node  `yaml:"value"`
	Expr    *rawNode   `yaml:"expr"`
	Init    *rawNode   `yaml:"init"`
	Cond    *rawNode   `yaml:"cond"`
	Left    *rawNode   `yaml:"left"`
	Right   *rawNode   `yaml:"right"`
	Then    []*rawNode `yaml:"then"`
	Else    []*rawNode `yaml:"else"`
	Body    []*rawNode `yaml:"body"`
	Args    []*rawNode `yaml:"args"`
	Params  []rawParam `yaml:"params"`
}

// DecodeDocument reads a YAML document and builds the program it describes.
func DecodeDocument(r io.Reader) (*Program, error) {
	doc := Document{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if err := checkSchema(doc.Schema); err != nil {
		return nil, err
	}

	stmts, err := decodeBlock(doc.Statements)
	if err != nil {
		return nil, err
	}

	return &Program{Statements: stmts}, nil
}

func checkSchema(schema string) error {
	if schema == "" {
		schema = "1.0.0"
	}

	v, err := semver.NewVersion(schema)
	if err != nil {
		return fmt.Errorf("document schema %q: %w", schema, err)
	}

	c, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		panic(err)
	}

	if !c.Check(v) {
		return fmt.Errorf("document schema %s is not supported (want %s)",
			v, SupportedSchema)
	}

	return nil
}

func violation(format string, args ...any) error {
	return diag.New(diag.FrontEndContractViolation, "", format, args...)
}

func decodeBlock(nodes []*rawNode) ([]Stmt, error) {
	if nodes == nil {
		return nil, nil
	}

	stmts := make([]Stmt, 0, len(nodes))
	for _, n := range nodes {
		s, err := decodeStmt(n)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}

	return stmts, nil
}

func decodeType(name string) (value.Kind, error) {
	k, ok := value.ParseKind(name)
	if !ok {
		return value.Invalid, violation("unknown type %q", name)
	}

	return k, nil
}

//nolint:gocyclo,funlen
func decodeStmt(n *rawNode) (Stmt, error) {
	if n == nil {
		return nil, violation("empty statement")
	}

	switch n.Kind {
	case "var":
		t, err := decodeType(n.Type)
		if err != nil {
			return nil, err
		}
		var init Expr
		if n.Init != nil {
			if init, err = decodeExpr(n.Init); err != nil {
				return nil, err
			}
		}
		return &VariableDeclaration{Type: t, Name: n.Name, Init: init}, nil
	case "assign":
		e, err := decodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return &AssignStatement{Name: n.Name, Value: e}, nil
	case "if":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeBlock(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeBlock(n.Else)
		if err != nil {
			return nil, err
		}
		return &IfStatement{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStatement{Cond: cond, Body: body}, nil
	case "return":
		if n.Expr == nil {
			return &ReturnStatement{}, nil
		}
		e, err := decodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{Value: e}, nil
	case "print":
		e, err := decodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return &PrintStatement{Value: e}, nil
	case "input":
		return &InputStatement{Target: n.Target}, nil
	case "func":
		return decodeFunc(n)
	case "call":
		return decodeCall(n)
	default:
		return nil, violation("unknown statement kind %q", n.Kind)
	}
}

func decodeFunc(n *rawNode) (Stmt, error) {
	f := &FunctionDefinition{Name: n.Name}

	for _, p := range n.Params {
		t, err := decodeType(p.Type)
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, Param{Type: t, Name: p.Name})
	}

	if n.Returns != "" && n.Returns != "void" {
		t, err := decodeType(n.Returns)
		if err != nil {
			return nil, err
		}
		f.ReturnType = t
	}

	body, err := decodeBlock(n.Body)
	if err != nil {
		return nil, err
	}
	f.Body = body

	return f, nil
}

func decodeCall(n *rawNode) (*FunctionCall, error) {
	c := &FunctionCall{Name: n.Name}

	for _, a := range n.Args {
		e, err := decodeExpr(a)
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, e)
	}

	return c, nil
}

func decodeExpr(n *rawNode) (Expr, error) {
	if n == nil {
		return nil, violation("missing expression")
	}

	switch n.Kind {
	case "lit":
		return decodeLiteral(n)
	case "ident":
		return &Identifier{Name: n.Name}, nil
	case "binary":
		op := Operator(n.Op)
		if !op.IsArithmetic() && !op.IsRelational() {
			return nil, violation("unknown operator %q", n.Op)
		}
		l, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: l, Op: op, Right: r}, nil
	case "call":
		return decodeCall(n)
	default:
		return nil, violation("unknown expression kind %q", n.Kind)
	}
}

func decodeLiteral(n *rawNode) (Expr, error) {
	t, err := decodeType(n.Type)
	if err != nil {
		return nil, err
	}

	if n.Value.Kind != yaml.ScalarNode {
		return nil, violation("literal of type %s has no scalar value", t)
	}

	v, err := value.Parse(t, n.Value.Value)
	if err != nil {
		return nil, violation("bad %s literal: %v", t, err)
	}

	return &Literal{Value: v}, nil
}
