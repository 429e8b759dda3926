package api_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacvm/api"
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/config"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/value"
)

func example() *ast.Program {
	return &ast.Program{Statements: []ast.Stmt{
		&ast.VariableDeclaration{Type: value.Int, Name: "a", Init: ast.Int(5)},
		&ast.VariableDeclaration{Type: value.Int, Name: "b", Init: ast.Int(10)},
		&ast.VariableDeclaration{Type: value.Int, Name: "c",
			Init: ast.Bin(ast.Ident("a"), ast.OpAdd, ast.Ident("b"))},
		&ast.PrintStatement{Value: ast.Ident("c")},
	}}
}

func factorialProgram(n int64) *ast.Program {
	x := ast.Ident("n")

	return &ast.Program{Statements: []ast.Stmt{
		&ast.FunctionDefinition{
			Name:       "factorial",
			Params:     []ast.Param{{Type: value.Int, Name: "n"}},
			ReturnType: value.Int,
			Body: []ast.Stmt{
				&ast.IfStatement{
					Cond: ast.Bin(x, ast.OpLe, ast.Int(1)),
					Then: []ast.Stmt{&ast.ReturnStatement{Value: ast.Int(1)}},
				},
				&ast.ReturnStatement{Value: ast.Bin(x, ast.OpMul,
					ast.Call("factorial", ast.Bin(x, ast.OpSub, ast.Int(1))))},
			},
		},
		&ast.VariableDeclaration{Type: value.Int, Name: "r",
			Init: ast.Call("factorial", ast.Int(n))},
		&ast.PrintStatement{Value: ast.Ident("r")},
	}}
}

var _ = Describe("Compile", func() {
	It("should keep every stage", func() {
		c, err := api.Compile(example())

		Expect(err).ToNot(HaveOccurred())
		Expect(c.IR.Listing()).To(Equal([]string{
			"t1 = 5", "a = t1",
			"t2 = 10", "b = t2",
			"t3 = a + b", "c = t3",
			"print c",
		}))
		Expect(c.OptimizedIR.Listing()).To(Equal([]string{
			"a = 5", "b = 10", "c = a + b", "print c",
		}))
		Expect(c.Program.Listing()).To(Equal([]string{
			"MOV a, 5", "MOV b, 10", "ADD c, a, b", "PRINT c",
		}))
	})

	It("should skip the optimizer when asked", func() {
		c, err := api.CompileWith(example(), api.CompileOptions{})

		Expect(err).ToNot(HaveOccurred())
		Expect(c.OptimizedIR.Listing()).To(Equal(c.IR.Listing()))
		Expect(c.Program.Insts).To(HaveLen(7))
	})

	It("should not alias the unoptimized stage", func() {
		c, err := api.Compile(example())

		Expect(err).ToNot(HaveOccurred())
		Expect(c.IR.Instrs).To(HaveLen(7))
	})

	It("should report front-end violations", func() {
		_, err := api.Compile(&ast.Program{Statements: []ast.Stmt{
			&ast.PrintStatement{Value: ast.Ident("missing")},
		}})

		Expect(diag.KindOf(err)).To(Equal(diag.FrontEndContractViolation))
	})

	It("should report constant division by zero", func() {
		_, err := api.Compile(&ast.Program{Statements: []ast.Stmt{
			&ast.PrintStatement{Value: ast.Bin(ast.Int(1), ast.OpDiv, ast.Int(0))},
		}})

		Expect(diag.KindOf(err)).To(Equal(diag.OptimizerConstantDivisionByZero))
	})
})

var _ = Describe("Execute", func() {
	It("should return the final store", func() {
		c, err := api.Compile(example())
		Expect(err).ToNot(HaveOccurred())

		out := &core.BufferOutput{}
		store, err := api.Execute(c.Program, nil, out)

		Expect(err).ToNot(HaveOccurred())
		Expect(store).To(Equal(map[string]value.Value{
			"a": value.NewInt(5),
			"b": value.NewInt(10),
			"c": value.NewInt(15),
		}))
		Expect(out.Lines()).To(Equal([]string{"15"}))
	})
})

var _ = Describe("Driver", func() {
	It("should run a recursive program", func() {
		out := &core.BufferOutput{}
		d := api.MakeBuilder().Build("Driver")

		e, err := d.Run(factorialProgram(5), nil, out)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Lines()).To(Equal([]string{"120"}))
		Expect(e.Store["r"]).To(Equal(value.NewInt(120)))
		Expect(e.Compilation).ToNot(BeNil())
		Expect(e.Depth).To(Equal(0))
		Expect(e.Trace).To(BeEmpty())
	})

	It("should isolate executions", func() {
		d := api.MakeBuilder().Build("Driver")
		c, err := d.Compile(example())
		Expect(err).ToNot(HaveOccurred())

		first, err := d.Execute(c.Program, nil, &core.BufferOutput{})
		Expect(err).ToNot(HaveOccurred())

		second, err := d.Execute(c.Program, nil, &core.BufferOutput{})
		Expect(err).ToNot(HaveOccurred())

		Expect(second.Store).To(Equal(first.Store))
		Expect(second.Steps).To(Equal(first.Steps))
	})

	It("should record the trace", func() {
		d := api.MakeBuilder().WithTrace(true).Build("Driver")

		e, err := d.Run(example(), nil, &core.BufferOutput{})

		Expect(err).ToNot(HaveOccurred())
		Expect(e.Trace).To(HaveLen(4))
		Expect(e.Trace[2].Inst.String()).To(Equal("ADD c, a, b"))
	})

	It("should apply the configuration", func() {
		c := config.Default()
		c.VM.MaxCallDepth = 3

		d := api.MakeBuilder().WithConfig(c).Build("Driver")
		_, err := d.Run(factorialProgram(10), nil, &core.BufferOutput{})

		Expect(diag.KindOf(err)).To(Equal(diag.ExecutionLimit))
	})

	It("should stop at the step limit", func() {
		loop := &ast.Program{Statements: []ast.Stmt{
			&ast.VariableDeclaration{Type: value.Int, Name: "i", Init: ast.Int(0)},
			&ast.WhileStatement{
				Cond: ast.Bool(true),
				Body: []ast.Stmt{&ast.AssignStatement{Name: "i",
					Value: ast.Bin(ast.Ident("i"), ast.OpAdd, ast.Int(1))}},
			},
		}}

		d := api.MakeBuilder().WithMaxSteps(50).Build("Driver")
		_, err := d.Run(loop, nil, &core.BufferOutput{})

		Expect(diag.KindOf(err)).To(Equal(diag.ExecutionLimit))
	})
})
