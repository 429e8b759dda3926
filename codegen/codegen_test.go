package codegen_test

import (
	"errors"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/codegen"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/irgen"
	"github.com/sarchlab/tacvm/opt"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

func compile(stmts ...ast.Stmt) *program.Program {
	GinkgoHelper()

	p, err := irgen.Generate(&ast.Program{Statements: stmts})
	Expect(err).ToNot(HaveOccurred())

	p, err = opt.Optimize(p)
	Expect(err).ToNot(HaveOccurred())

	out, err := codegen.Generate(p)
	Expect(err).ToNot(HaveOccurred())

	return out
}

func expectListing(p *program.Program, want ...string) {
	GinkgoHelper()

	if diff := cmp.Diff(want, p.Listing()); diff != "" {
		Fail("target listing mismatch (-want +got):\n" + diff)
	}
}

var _ = Describe("Generate", func() {
	It("should map assignments and arithmetic one to one", func() {
		p := compile(
			&ast.VariableDeclaration{Type: value.Int, Name: "a", Init: ast.Int(5)},
			&ast.VariableDeclaration{Type: value.Int, Name: "b", Init: ast.Int(10)},
			&ast.VariableDeclaration{Type: value.Int, Name: "c",
				Init: ast.Bin(ast.Ident("a"), ast.OpAdd, ast.Ident("b"))},
			&ast.PrintStatement{Value: ast.Ident("c")},
		)

		expectListing(p, "MOV a, 5", "MOV b, 10", "ADD c, a, b", "PRINT c")
		Expect(p.MainEnd).To(Equal(4))
		Expect(p.Funcs).To(BeEmpty())
	})

	DescribeTable("conditional jumps are driven by the relation",
		func(rel ir.Op, jump program.Mnemonic) {
			x := ir.NewVar("x", value.Int)
			y := ir.NewVar("y", value.Int)

			p, err := codegen.Generate(&ir.Program{Instrs: []ir.Instruction{
				{Op: ir.OpIfGoto, Rel: rel, Args: []ir.Operand{x, y, ir.NewLabel("L")}},
				{Op: ir.OpLabel, Args: []ir.Operand{ir.NewLabel("L")}},
			}})

			Expect(err).ToNot(HaveOccurred())
			expectListing(p, "CMP x, y", string(jump)+" L", "LABEL L")
		},
		Entry("<", ir.OpLt, program.JL),
		Entry(">", ir.OpGt, program.JG),
		Entry("<=", ir.OpLe, program.JLE),
		Entry(">=", ir.OpGe, program.JGE),
		Entry("==", ir.OpEq, program.JE),
		Entry("!=", ir.OpNe, program.JNE),
	)

	It("should expand relations used as values", func() {
		p := compile(
			&ast.VariableDeclaration{Type: value.Int, Name: "x", Init: ast.Int(1)},
			&ast.VariableDeclaration{Type: value.Bool, Name: "big",
				Init: ast.Bin(ast.Ident("x"), ast.OpGt, ast.Int(10))},
		)

		expectListing(p,
			"MOV x, 1",
			"CMP x, 10",
			"JG cg_true_1",
			"MOV big, false",
			"JMP cg_end_2",
			"LABEL cg_true_1",
			"MOV big, true",
			"LABEL cg_end_2",
		)
	})

	It("should lay out functions after the main region", func() {
		n := ast.Ident("n")
		p := compile(
			&ast.FunctionDefinition{
				Name:       "double",
				Params:     []ast.Param{{Type: value.Int, Name: "n"}},
				ReturnType: value.Int,
				Body: []ast.Stmt{
					&ast.ReturnStatement{Value: ast.Bin(n, ast.OpMul, ast.Int(2))},
				},
			},
			&ast.PrintStatement{Value: ast.Call("double", ast.Int(21))},
		)

		expectListing(p,
			"PUSH 21",
			"CALL func_double",
			"MOV t1, return_value",
			"PRINT t1",
			"LABEL func_double",
			"MUL t2, n, 2",
			"RETURN t2",
			"LABEL end_func_double",
		)
		Expect(p.MainEnd).To(Equal(4))
		Expect(p.Funcs).To(HaveKeyWithValue("func_double", program.Func{
			Name:       "double",
			Label:      "func_double",
			Params:     []program.Param{{Name: "n", Type: value.Int}},
			ReturnType: value.Int,
		}))
		Expect(p.Insts[2].Operands[1].Kind).To(Equal(program.RetSlot))
		Expect(p.Insts[2].Operands[0].Kind).To(Equal(program.Temp))
	})

	It("should keep operand types and scopes", func() {
		p, err := codegen.Generate(&ir.Program{Instrs: []ir.Instruction{
			{Op: ir.OpAssign, Args: []ir.Operand{
				ir.NewGlobal("g", value.Float), ir.NewLiteral(value.NewInt(1)),
			}},
		}})

		Expect(err).ToNot(HaveOccurred())
		Expect(p.Insts[0].Operands[0]).To(Equal(program.Operand{
			Kind: program.Var, Name: "g", Type: value.Float, Global: true,
		}))
		Expect(p.Insts[0].Operands[1]).To(Equal(program.NewImm(value.NewInt(1))))
	})

	It("should reject opcodes outside the IR set", func() {
		_, err := codegen.Generate(&ir.Program{Instrs: []ir.Instruction{
			{Op: ir.Op("%"), Args: []ir.Operand{
				ir.NewTemp("t1", value.Int),
				ir.NewLiteral(value.NewInt(1)),
				ir.NewLiteral(value.NewInt(2)),
			}},
		}})

		Expect(errors.Is(err, diag.ErrCodeGenUnsupportedOpcode)).To(BeTrue())
	})

	It("should reject malformed instructions", func() {
		_, err := codegen.Generate(&ir.Program{Instrs: []ir.Instruction{
			{Op: ir.OpIfGoto, Rel: ir.OpAdd, Args: []ir.Operand{
				ir.NewVar("x", value.Int),
				ir.NewVar("y", value.Int),
				ir.NewLabel("L"),
			}},
		}})

		Expect(diag.KindOf(err)).To(Equal(diag.CodeGenUnsupportedOpcode))
	})
})
