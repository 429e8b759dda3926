package core_test

import (
	"errors"
	"io"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/codegen"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/irgen"
	"github.com/sarchlab/tacvm/opt"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

func typed(name string, t value.Kind) program.Operand {
	return program.Operand{Kind: program.Var, Name: name, Type: t}
}

func v(name string) program.Operand {
	return typed(name, value.Int)
}

func imm(i int64) program.Operand {
	return program.NewImm(value.NewInt(i))
}

func lbl(name string) program.Operand {
	return program.NewLabel(name)
}

func inst(m program.Mnemonic, ops ...program.Operand) program.Inst {
	return program.Inst{Mnemonic: m, Operands: ops}
}

func prog(insts ...program.Inst) *program.Program {
	return &program.Program{Insts: insts, MainEnd: len(insts)}
}

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

func run(p *program.Program, b core.Builder) (*core.Result, error) {
	GinkgoHelper()

	vm := b.Build("VM")
	Expect(vm.Load(p)).To(Succeed())

	return vm.Run()
}

func runtimeError(err error) *diag.Error {
	GinkgoHelper()

	var de *diag.Error
	Expect(errors.As(err, &de)).To(BeTrue(), "%v", err)

	return de
}

func factorial() *ast.FunctionDefinition {
	n := ast.Ident("n")

	return &ast.FunctionDefinition{
		Name:       "factorial",
		Params:     []ast.Param{{Type: value.Int, Name: "n"}},
		ReturnType: value.Int,
		Body: []ast.Stmt{
			&ast.IfStatement{
				Cond: ast.Bin(n, ast.OpLe, ast.Int(1)),
				Then: []ast.Stmt{&ast.ReturnStatement{Value: ast.Int(1)}},
			},
			&ast.ReturnStatement{Value: ast.Bin(n, ast.OpMul,
				ast.Call("factorial", ast.Bin(n, ast.OpSub, ast.Int(1))))},
		},
	}
}

var _ = Describe("VM", func() {
	var (
		mockCtrl *gomock.Controller
		out      *core.BufferOutput
		builder  core.Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		out = &core.BufferOutput{}
		builder = core.NewBuilder().WithOutput(out)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run straight-line code and write to the sink", func() {
		sink := NewMockOutputSink(mockCtrl)
		sink.EXPECT().WriteValue(value.NewInt(15)).Return(nil)

		res, err := run(prog(
			inst(program.MOV, v("a"), imm(5)),
			inst(program.MOV, v("b"), imm(10)),
			inst(program.ADD, v("c"), v("a"), v("b")),
			inst(program.PRINT, v("c")),
		), builder.WithOutput(sink))

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Store).To(Equal(map[string]value.Value{
			"a": value.NewInt(5),
			"b": value.NewInt(10),
			"c": value.NewInt(15),
		}))
		Expect(res.Steps).To(Equal(4))
	})

	It("should compute factorial recursively and unwind every frame", func() {
		p := compile(
			factorial(),
			&ast.VariableDeclaration{Type: value.Int, Name: "r",
				Init: ast.Call("factorial", ast.Int(5))},
			&ast.PrintStatement{Value: ast.Ident("r")},
		)

		res, err := run(p, builder)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Lines()).To(Equal([]string{"120"}))
		Expect(res.Store).To(HaveKeyWithValue("r", value.NewInt(120)))
		Expect(res.Depth).To(Equal(0))
		Expect(res.MaxDepth).To(Equal(5))
	})

	DescribeTable("while loops run their body exactly N times",
		func(n int64) {
			p := compile(
				&ast.VariableDeclaration{Type: value.Int, Name: "i", Init: ast.Int(0)},
				&ast.WhileStatement{
					Cond: ast.Bin(ast.Ident("i"), ast.OpLt, ast.Int(n)),
					Body: []ast.Stmt{
						&ast.PrintStatement{Value: ast.Ident("i")},
						&ast.AssignStatement{Name: "i",
							Value: ast.Bin(ast.Ident("i"), ast.OpAdd, ast.Int(1))},
					},
				},
			)

			res, err := run(p, builder)

			Expect(err).ToNot(HaveOccurred())
			Expect(out.Values).To(HaveLen(int(n)))
			Expect(res.Store["i"]).To(Equal(value.NewInt(n)))
		},
		Entry("zero times", int64(0)),
		Entry("once", int64(1)),
		Entry("seven times", int64(7)),
	)

	It("should let functions update top-level variables", func() {
		bump := &ast.FunctionDefinition{
			Name: "bump",
			Body: []ast.Stmt{&ast.AssignStatement{Name: "count",
				Value: ast.Bin(ast.Ident("count"), ast.OpAdd, ast.Int(1))}},
		}

		res, err := run(compile(
			&ast.VariableDeclaration{Type: value.Int, Name: "count", Init: ast.Int(0)},
			bump,
			ast.Call("bump"),
			ast.Call("bump"),
		), builder)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Store["count"]).To(Equal(value.NewInt(2)))
	})

	It("should read unset variables as the zero value of their type", func() {
		_, err := run(prog(
			inst(program.PRINT, typed("f", value.Float)),
			inst(program.PRINT, typed("s", value.String)),
			inst(program.PRINT, typed("b", value.Bool)),
			inst(program.PRINT, v("i")),
		), builder)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Lines()).To(Equal([]string{"0.0", "", "false", "0"}))
	})

	It("should divide in integers only when both operands are int", func() {
		res, err := run(prog(
			inst(program.DIV, v("q"), imm(7), imm(2)),
			inst(program.DIV, typed("r", value.Float), imm(7),
				program.NewImm(value.NewFloat(2))),
		), builder)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Store["q"]).To(Equal(value.NewInt(3)))
		Expect(res.Store["r"]).To(Equal(value.NewFloat(3.5)))
	})

	It("should coerce ints stored into float variables", func() {
		res, err := run(prog(
			inst(program.MOV, typed("f", value.Float), imm(2)),
		), builder)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Store["f"]).To(Equal(value.NewFloat(2)))
	})

	It("should compare strings and concatenate them", func() {
		s := func(x string) program.Operand {
			return program.NewImm(value.NewString(x))
		}

		_, err := run(prog(
			inst(program.ADD, typed("s", value.String), s("ab"), s("c")),
			inst(program.CMP, typed("s", value.String), s("abc")),
			inst(program.JNE, lbl("skip")),
			inst(program.PRINT, typed("s", value.String)),
			inst(program.LABEL, lbl("skip")),
		), builder)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Lines()).To(Equal([]string{"abc"}))
	})

	It("should read input through the source", func() {
		src := NewMockInputSource(mockCtrl)
		src.EXPECT().ReadValue(value.Int).Return(value.NewInt(42), nil)

		res, err := run(prog(
			inst(program.INPUT, v("x")),
		), builder.WithInput(src))

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Store["x"]).To(Equal(value.NewInt(42)))
	})

	It("should fail when the input source fails", func() {
		src := NewMockInputSource(mockCtrl)
		src.EXPECT().ReadValue(value.Int).Return(value.Value{}, io.EOF)

		_, err := run(prog(
			inst(program.INPUT, v("x")),
		), builder.WithInput(src))

		Expect(errors.Is(err, diag.ErrInputFailure)).To(BeTrue())
		Expect(errors.Is(err, io.EOF)).To(BeTrue())
	})

	It("should fail when the output sink fails", func() {
		sink := NewMockOutputSink(mockCtrl)
		sink.EXPECT().WriteValue(gomock.Any()).Return(io.ErrClosedPipe)

		_, err := run(prog(
			inst(program.PRINT, imm(1)),
		), builder.WithOutput(sink))

		Expect(errors.Is(err, diag.ErrOutputFailure)).To(BeTrue())
	})

	It("should parse lines from a reader", func() {
		res, err := run(prog(
			inst(program.INPUT, v("x")),
			inst(program.INPUT, typed("s", value.String)),
		), builder.WithInput(core.NewLinesInput("12", "hello there")))

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Store["x"]).To(Equal(value.NewInt(12)))
		Expect(res.Store["s"]).To(Equal(value.NewString("hello there")))
	})

	Context("runtime errors", func() {
		It("should report division by zero with the pc and store", func() {
			_, err := run(prog(
				inst(program.MOV, v("a"), imm(5)),
				inst(program.MOV, v("z"), imm(0)),
				inst(program.DIV, v("c"), v("a"), v("z")),
			), builder)

			de := runtimeError(err)
			Expect(de.Kind).To(Equal(diag.RuntimeDivisionByZero))
			Expect(de.PC).To(Equal(2))
			Expect(de.Inst).To(Equal("DIV c, a, z"))
			Expect(de.Snapshot).To(Equal(map[string]value.Value{
				"a": value.NewInt(5),
				"z": value.NewInt(0),
			}))
		})

		It("should report type mismatches", func() {
			_, err := run(prog(
				inst(program.SUB, v("c"), program.NewImm(value.NewString("s")), imm(1)),
			), builder)

			Expect(errors.Is(err, diag.ErrRuntimeTypeMismatch)).To(BeTrue())
		})

		It("should reject ordered jumps on bools", func() {
			t := program.NewImm(value.NewBool(true))
			f := program.NewImm(value.NewBool(false))

			_, err := run(prog(
				inst(program.CMP, t, f),
				inst(program.JL, lbl("L")),
				inst(program.LABEL, lbl("L")),
			), builder)

			Expect(diag.KindOf(err)).To(Equal(diag.RuntimeTypeMismatch))
		})

		It("should only honor CMP for the next instruction", func() {
			_, err := run(prog(
				inst(program.CMP, imm(1), imm(1)),
				inst(program.MOV, v("x"), imm(1)),
				inst(program.JE, lbl("L")),
				inst(program.LABEL, lbl("L")),
			), builder)

			de := runtimeError(err)
			Expect(de.Kind).To(Equal(diag.MalformedProgram))
			Expect(de.PC).To(Equal(2))
		})

		It("should reject jumps to undefined labels", func() {
			_, err := run(prog(
				inst(program.JMP, lbl("nowhere")),
			), builder)

			Expect(errors.Is(err, diag.ErrMalformedProgram)).To(BeTrue())
		})

		It("should reject RETURN with an empty frame stack", func() {
			_, err := run(prog(
				inst(program.RETURN, imm(1)),
			), builder)

			Expect(errors.Is(err, diag.ErrMalformedProgram)).To(BeTrue())
		})

		It("should reject calls with the wrong number of arguments", func() {
			p := compile(
				factorial(),
				&ast.PrintStatement{Value: ast.Call("factorial", ast.Int(3))},
			)
			p.Insts = append([]program.Inst{inst(program.PUSH, imm(9))}, p.Insts...)
			p.MainEnd++

			_, err := run(p, builder)

			Expect(errors.Is(err, diag.ErrMalformedProgram)).To(BeTrue())
		})
	})

	Context("limits", func() {
		It("should stop after the step limit", func() {
			_, err := run(prog(
				inst(program.LABEL, lbl("L")),
				inst(program.JMP, lbl("L")),
			), builder.WithMaxSteps(100))

			Expect(errors.Is(err, diag.ErrExecutionLimit)).To(BeTrue())
		})

		It("should stop runaway recursion", func() {
			forever := &ast.FunctionDefinition{
				Name:       "forever",
				ReturnType: value.Int,
				Body: []ast.Stmt{
					&ast.ReturnStatement{Value: ast.Call("forever")},
				},
			}

			_, err := run(compile(
				forever,
				&ast.PrintStatement{Value: ast.Call("forever")},
			), builder.WithMaxCallDepth(50))

			Expect(diag.KindOf(err)).To(Equal(diag.ExecutionLimit))
		})
	})

	Context("loading", func() {
		It("should reject duplicate labels", func() {
			vm := builder.Build("VM")

			err := vm.Load(prog(
				inst(program.LABEL, lbl("L")),
				inst(program.LABEL, lbl("L")),
			))

			Expect(errors.Is(err, diag.ErrMalformedProgram)).To(BeTrue())
		})

		It("should reject operand counts the ISA does not allow", func() {
			vm := builder.Build("VM")

			err := vm.Load(prog(inst(program.ADD, v("a"), imm(1))))

			Expect(err).To(MatchError(ContainSubstring("ADD takes 3 to 3 operands")))
		})
	})

	It("should report every retired instruction to hooks", func() {
		vm := builder.Build("VM")
		tracer := core.NewTracer()
		vm.AcceptHook(tracer)

		Expect(vm.Load(prog(
			inst(program.MOV, v("a"), imm(1)),
			inst(program.CMP, v("a"), imm(1)),
			inst(program.JE, lbl("end")),
			inst(program.PRINT, v("a")),
			inst(program.LABEL, lbl("end")),
		))).To(Succeed())

		_, err := vm.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(tracer.PCs()).To(Equal([]int{0, 1, 2, 4}))
		Expect(vm.Halted()).To(BeTrue())
		Expect(out.Values).To(BeEmpty())
		Expect(core.RenderTrace(tracer.Entries)).To(
			MatchRegexp(`(?s)2.*2.*0.*JE end.*3.*4.*0.*LABEL end`))
	})

	It("should render stores as tables", func() {
		s := core.RenderStore("Final store", map[string]value.Value{
			"b": value.NewString("x"),
			"a": value.NewInt(5),
		})

		Expect(s).To(ContainSubstring("Final store"))
		Expect(s).To(MatchRegexp(`(?s)a.*int.*5.*b.*string.*"x"`))
	})
})
