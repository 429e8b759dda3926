package ast_test

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/value"
)

const factorialDoc = `
schema: 1.0.0
statements:
  - kind: func
    name: factorial
    returns: int
    params: [{type: int, name: n}]
    body:
      - kind: if
        cond: {kind: binary, op: "<=", left: {kind: ident, name: n}, right: {kind: lit, type: int, value: 1}}
        then:
          - kind: return
            expr: {kind: lit, type: int, value: 1}
      - kind: return
        expr:
          kind: binary
          op: "*"
          left: {kind: ident, name: n}
          right:
            kind: call
            name: factorial
            args:
              - {kind: binary, op: "-", left: {kind: ident, name: n}, right: {kind: lit, type: int, value: 1}}
  - kind: var
    type: int
    name: r
    init: {kind: call, name: factorial, args: [{kind: lit, type: int, value: 5}]}
  - kind: print
    expr: {kind: ident, name: r}
`

var _ = Describe("DecodeDocument", func() {
	It("should build the tree a document describes", func() {
		p, err := ast.DecodeDocument(strings.NewReader(factorialDoc))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Statements).To(HaveLen(3))

		f, ok := p.Statements[0].(*ast.FunctionDefinition)
		Expect(ok).To(BeTrue())
		Expect(f.Name).To(Equal("factorial"))
		Expect(f.ReturnType).To(Equal(value.Int))
		Expect(f.Params).To(Equal([]ast.Param{{Type: value.Int, Name: "n"}}))
		Expect(f.Body).To(HaveLen(2))

		cond := f.Body[0].(*ast.IfStatement)
		Expect(cond.Else).To(BeNil())
		Expect(cond.Cond.(*ast.BinaryExpr).Op).To(Equal(ast.OpLe))

		decl := p.Statements[1].(*ast.VariableDeclaration)
		Expect(decl.Init).To(Equal(ast.Call("factorial", ast.Int(5))))
	})

	It("should keep string literals raw", func() {
		p, err := ast.DecodeDocument(strings.NewReader(`
statements:
  - kind: print
    expr: {kind: lit, type: str, value: "hello world"}
`))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Statements[0]).To(Equal(
			&ast.PrintStatement{Value: ast.Str("hello world")}))
	})

	It("should reject unsupported schema versions", func() {
		_, err := ast.DecodeDocument(strings.NewReader(
			"schema: 2.1.0\nstatements: []\n"))
		Expect(err).To(MatchError(ContainSubstring("not supported")))
	})

	It("should reject unknown node kinds as contract violations", func() {
		_, err := ast.DecodeDocument(strings.NewReader(`
statements:
  - kind: goto
`))
		Expect(errors.Is(err, diag.ErrFrontEndContractViolation)).To(BeTrue())
	})

	It("should reject unknown operators", func() {
		_, err := ast.DecodeDocument(strings.NewReader(`
statements:
  - kind: print
    expr: {kind: binary, op: "%", left: {kind: lit, type: int, value: 1}, right: {kind: lit, type: int, value: 2}}
`))
		Expect(err).To(MatchError(ContainSubstring(`unknown operator "%"`)))
	})

	It("should reject bad literals", func() {
		_, err := ast.DecodeDocument(strings.NewReader(`
statements:
  - kind: print
    expr: {kind: lit, type: int, value: abc}
`))
		Expect(diag.KindOf(err)).To(Equal(diag.FrontEndContractViolation))
	})
})

var _ = Describe("Dump", func() {
	It("should print every node", func() {
		p := &ast.Program{Statements: []ast.Stmt{
			&ast.VariableDeclaration{Type: value.Int, Name: "a", Init: ast.Int(5)},
			&ast.WhileStatement{
				Cond: ast.Bin(ast.Ident("a"), ast.OpGt, ast.Int(0)),
				Body: []ast.Stmt{
					&ast.AssignStatement{
						Name:  "a",
						Value: ast.Bin(ast.Ident("a"), ast.OpSub, ast.Int(1)),
					},
				},
			},
			&ast.PrintStatement{Value: ast.Str("done")},
		}}

		Expect(ast.Dump(p)).To(Equal(`program:
  var: int a
    literal: int 5
  while:
    binary: >
      ident: a
      literal: int 0
  body:
    assign: a
      binary: -
        ident: a
        literal: int 1
  print:
    literal: string "done"
`))
	})
})
