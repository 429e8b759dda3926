package verify

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/value"
)

// scope is the variable store of the top level or of one call.
type scope struct {
	vars  map[string]value.Value
	types map[string]value.Kind
}

func newScope() *scope {
	return &scope{
		vars:  make(map[string]value.Value),
		types: make(map[string]value.Kind),
	}
}

// read returns the zero value of the declared type for variables that
// were declared but never written.
func (s *scope) read(name string) value.Value {
	if v, ok := s.vars[name]; ok {
		return v
	}

	return value.Zero(s.types[name])
}

func (s *scope) write(name string, v value.Value) error {
	t := s.types[name]

	v = value.Coerce(v, t)
	if v.Kind != t {
		return diag.New(diag.RuntimeTypeMismatch, "",
			"cannot store %s in %s %s", v.Kind, t, name)
	}

	s.vars[name] = v

	return nil
}

// FunctionalSimulator executes a syntax tree directly, without lowering
// it. It is the reference the compiled program is checked against.
type FunctionalSimulator struct {
	program *ast.Program
	in      core.InputSource
	out     core.OutputSink

	funcs   map[string]*ast.FunctionDefinition
	globals *scope
	frames  []*scope

	// MaxCallDepth bounds recursion. Zero means unbounded.
	MaxCallDepth int

	maxSteps int
	steps    int

	result    value.Value
	returning bool
	retVal    value.Value

	// TraceStmt is called before each statement executes.
	TraceStmt func(depth int, s ast.Stmt)
}

// NewFunctionalSimulator creates a new functional simulator
func NewFunctionalSimulator(
	p *ast.Program,
	in core.InputSource,
	out core.OutputSink,
) *FunctionalSimulator {
	if in == nil {
		in = core.NewLinesInput()
	}

	if out == nil {
		out = &core.BufferOutput{}
	}

	return &FunctionalSimulator{
		program:      p,
		in:           in,
		out:          out,
		MaxCallDepth: core.DefaultMaxCallDepth,
	}
}

// Run executes the program, executing at most maxSteps statements. Zero
// means unbounded.
func (fs *FunctionalSimulator) Run(maxSteps int) error {
	if fs.program == nil {
		return fmt.Errorf("FunctionalSimulator not properly initialized")
	}

	fs.maxSteps = maxSteps
	fs.steps = 0
	fs.globals = newScope()
	fs.frames = nil
	fs.returning = false
	fs.funcs = make(map[string]*ast.FunctionDefinition)

	for _, s := range fs.program.Statements {
		if f, ok := s.(*ast.FunctionDefinition); ok {
			fs.funcs[f.Name] = f
		}
	}

	fs.declareGlobals(fs.program.Statements)

	return fs.block(fs.program.Statements)
}

// Store returns the final top-level store.
func (fs *FunctionalSimulator) Store() map[string]value.Value {
	store := make(map[string]value.Value, len(fs.globals.vars))
	for k, v := range fs.globals.vars {
		store[k] = v
	}

	return store
}

// Steps returns the number of statements executed.
func (fs *FunctionalSimulator) Steps() int {
	return fs.steps
}

// declareGlobals records the type of every top-level variable so that
// functions can read globals that are not written yet.
func (fs *FunctionalSimulator) declareGlobals(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.VariableDeclaration:
			fs.globals.types[n.Name] = n.Type
		case *ast.IfStatement:
			fs.declareGlobals(n.Then)
			fs.declareGlobals(n.Else)
		case *ast.WhileStatement:
			fs.declareGlobals(n.Body)
		}
	}
}

func (fs *FunctionalSimulator) current() *scope {
	if len(fs.frames) == 0 {
		return fs.globals
	}

	return fs.frames[len(fs.frames)-1]
}

func (fs *FunctionalSimulator) resolve(name string) (*scope, error) {
	if _, ok := fs.current().types[name]; ok {
		return fs.current(), nil
	}

	if _, ok := fs.globals.types[name]; ok {
		return fs.globals, nil
	}

	return nil, diag.New(diag.FrontEndContractViolation, "",
		"undeclared variable %s", name)
}

func (fs *FunctionalSimulator) tick() error {
	fs.steps++

	if fs.maxSteps > 0 && fs.steps > fs.maxSteps {
		return diag.New(diag.ExecutionLimit, "",
			"step limit %d reached", fs.maxSteps)
	}

	return nil
}

func (fs *FunctionalSimulator) block(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := fs.tick(); err != nil {
			return err
		}

		if fs.TraceStmt != nil {
			fs.TraceStmt(len(fs.frames), s)
		}

		if err := s.AcceptStmt(fs); err != nil {
			return err
		}

		if fs.returning {
			return nil
		}
	}

	return nil
}

func (fs *FunctionalSimulator) eval(e ast.Expr) (value.Value, error) {
	if err := e.AcceptExpr(fs); err != nil {
		return value.Value{}, err
	}

	return fs.result, nil
}

func (fs *FunctionalSimulator) truth(cond ast.Expr) (bool, error) {
	v, err := fs.eval(cond)
	if err != nil {
		return false, err
	}

	return !v.IsZero(), nil
}

func (fs *FunctionalSimulator) VisitVariableDeclaration(n *ast.VariableDeclaration) error {
	v := value.Zero(n.Type)

	if n.Init != nil {
		var err error
		if v, err = fs.eval(n.Init); err != nil {
			return err
		}
	}

	s := fs.current()
	s.types[n.Name] = n.Type

	return s.write(n.Name, v)
}

func (fs *FunctionalSimulator) VisitAssign(n *ast.AssignStatement) error {
	s, err := fs.resolve(n.Name)
	if err != nil {
		return err
	}

	v, err := fs.eval(n.Value)
	if err != nil {
		return err
	}

	return s.write(n.Name, v)
}

func (fs *FunctionalSimulator) VisitIf(n *ast.IfStatement) error {
	ok, err := fs.truth(n.Cond)
	if err != nil {
		return err
	}

	if ok {
		return fs.block(n.Then)
	}

	return fs.block(n.Else)
}

func (fs *FunctionalSimulator) VisitWhile(n *ast.WhileStatement) error {
	for {
		ok, err := fs.truth(n.Cond)
		if err != nil || !ok {
			return err
		}

		if err := fs.block(n.Body); err != nil || fs.returning {
			return err
		}

		if err := fs.tick(); err != nil {
			return err
		}
	}
}

func (fs *FunctionalSimulator) VisitReturn(n *ast.ReturnStatement) error {
	if len(fs.frames) == 0 {
		return diag.New(diag.FrontEndContractViolation, "",
			"return outside a function")
	}

	fs.retVal = value.Value{}

	if n.Value != nil {
		v, err := fs.eval(n.Value)
		if err != nil {
			return err
		}
		fs.retVal = v
	}

	fs.returning = true

	return nil
}

func (fs *FunctionalSimulator) VisitPrint(n *ast.PrintStatement) error {
	v, err := fs.eval(n.Value)
	if err != nil {
		return err
	}

	if err := fs.out.WriteValue(v); err != nil {
		return diag.New(diag.OutputFailure, "", "write output: %v", err)
	}

	return nil
}

func (fs *FunctionalSimulator) VisitInput(n *ast.InputStatement) error {
	s, err := fs.resolve(n.Target)
	if err != nil {
		return err
	}

	kind := s.types[n.Target]

	v, err := fs.in.ReadValue(kind)
	if err != nil {
		return diag.New(diag.InputFailure, "", "read %s input: %v", kind, err)
	}

	if v = value.Coerce(v, kind); v.Kind != kind {
		return diag.New(diag.InputFailure, "",
			"input source returned %s, want %s", v.Kind, kind)
	}

	return s.write(n.Target, v)
}

func (fs *FunctionalSimulator) VisitFunctionDefinition(*ast.FunctionDefinition) error {
	return nil
}

func (fs *FunctionalSimulator) VisitCallStatement(n *ast.FunctionCall) error {
	_, err := fs.call(n)
	return err
}

func (fs *FunctionalSimulator) call(n *ast.FunctionCall) (value.Value, error) {
	f, ok := fs.funcs[n.Name]
	if !ok {
		return value.Value{}, diag.New(diag.FrontEndContractViolation, "",
			"undeclared function %s", n.Name)
	}

	if len(n.Args) != len(f.Params) {
		return value.Value{}, diag.New(diag.FrontEndContractViolation, "",
			"%s expects %d arguments, got %d", n.Name, len(f.Params), len(n.Args))
	}

	frame := newScope()
	for i, a := range n.Args {
		v, err := fs.eval(a)
		if err != nil {
			return value.Value{}, err
		}

		p := f.Params[i]
		frame.types[p.Name] = p.Type
		frame.vars[p.Name] = value.Coerce(v, p.Type)
	}

	if fs.MaxCallDepth > 0 && len(fs.frames) >= fs.MaxCallDepth {
		return value.Value{}, diag.New(diag.ExecutionLimit, "",
			"call depth limit %d reached", fs.MaxCallDepth)
	}

	fs.frames = append(fs.frames, frame)
	err := fs.block(f.Body)
	fs.frames = fs.frames[:len(fs.frames)-1]

	ret := fs.retVal
	fs.returning = false
	fs.retVal = value.Value{}

	if err != nil {
		return value.Value{}, err
	}

	if f.ReturnType == value.Invalid {
		return value.Value{}, nil
	}

	if !ret.IsValid() {
		ret = value.Zero(f.ReturnType)
	}

	return value.Coerce(ret, f.ReturnType), nil
}

func (fs *FunctionalSimulator) VisitCall(n *ast.FunctionCall) error {
	v, err := fs.call(n)
	if err != nil {
		return err
	}

	fs.result = v

	return nil
}

func (fs *FunctionalSimulator) VisitBinary(n *ast.BinaryExpr) error {
	l, err := fs.eval(n.Left)
	if err != nil {
		return err
	}

	r, err := fs.eval(n.Right)
	if err != nil {
		return err
	}

	v, err := binary(n.Op, l, r)
	if err != nil {
		return err
	}

	fs.result = v

	return nil
}

func binary(op ast.Operator, l, r value.Value) (value.Value, error) {
	var (
		v   value.Value
		err error
	)

	switch op {
	case ast.OpAdd:
		v, err = value.Add(l, r)
	case ast.OpSub:
		v, err = value.Sub(l, r)
	case ast.OpMul:
		v, err = value.Mul(l, r)
	case ast.OpDiv:
		v, err = value.Div(l, r, true)
	default:
		v, err = relation(op, l, r)
	}

	switch {
	case errors.Is(err, value.ErrDivisionByZero):
		return v, diag.New(diag.RuntimeDivisionByZero, "", "%v", err)
	case err != nil:
		return v, diag.New(diag.RuntimeTypeMismatch, "", "%v", err)
	}

	return v, nil
}

func relation(op ast.Operator, l, r value.Value) (value.Value, error) {
	o, err := value.Compare(l, r)
	if err != nil {
		return value.Value{}, err
	}

	if o == value.Unordered && op != ast.OpEq && op != ast.OpNe {
		return value.Value{}, fmt.Errorf("%w: %s on values without an order",
			value.ErrTypeMismatch, op)
	}

	var b bool

	switch op {
	case ast.OpLt:
		b = o == value.Less
	case ast.OpLe:
		b = o == value.Less || o == value.Equal
	case ast.OpGt:
		b = o == value.Greater
	case ast.OpGe:
		b = o == value.Greater || o == value.Equal
	case ast.OpEq:
		b = o == value.Equal
	case ast.OpNe:
		b = o != value.Equal
	default:
		return value.Value{}, fmt.Errorf("%w: unknown operator %s",
			value.ErrTypeMismatch, op)
	}

	return value.NewBool(b), nil
}

func (fs *FunctionalSimulator) VisitLiteral(n *ast.Literal) error {
	fs.result = n.Value
	return nil
}

func (fs *FunctionalSimulator) VisitIdentifier(n *ast.Identifier) error {
	s, err := fs.resolve(n.Name)
	if err != nil {
		return err
	}

	fs.result = s.read(n.Name)

	return nil
}
