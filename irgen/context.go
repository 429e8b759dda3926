package irgen

import (
	"fmt"

	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/value"
)

// Context holds the symbol tables and counters of one compilation. A
// context is never shared between compilations.
type Context struct {
	globals map[string]value.Kind
	locals  map[string]value.Kind
	funcs   map[string]ir.FuncSig
	current *ir.FuncSig

	temps  int
	labels int
}

// NewContext creates an empty context with fresh counters.
func NewContext() *Context {
	return &Context{
		globals: make(map[string]value.Kind),
		funcs:   make(map[string]ir.FuncSig),
	}
}

// FuncLabel is the entry label of a function.
func FuncLabel(name string) string {
	return "func_" + name
}

// ExitLabel is the exit label of a function.
func ExitLabel(name string) string {
	return "end_func_" + name
}

func (c *Context) newTemp(t value.Kind) ir.Operand {
	c.temps++
	return ir.NewTemp(fmt.Sprintf("t%d", c.temps), t)
}

func (c *Context) newLabel() ir.Operand {
	c.labels++
	return ir.NewLabel(fmt.Sprintf("label_%d", c.labels))
}

func (c *Context) inFunction() bool {
	return c.current != nil
}

func (c *Context) declareFunc(f *ast.FunctionDefinition) error {
	if _, dup := c.funcs[f.Name]; dup {
		return violation("function %q defined twice", f.Name)
	}

	sig := ir.FuncSig{
		Name:       f.Name,
		Label:      FuncLabel(f.Name),
		ExitLabel:  ExitLabel(f.Name),
		ReturnType: f.ReturnType,
	}

	seen := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		if p.Type == value.Invalid {
			return violation("parameter %q of %q has no type", p.Name, f.Name)
		}
		if seen[p.Name] {
			return violation("parameter %q of %q declared twice", p.Name, f.Name)
		}
		seen[p.Name] = true
		sig.Params = append(sig.Params, ir.Param{Name: p.Name, Type: p.Type})
	}

	c.funcs[f.Name] = sig

	return nil
}

func (c *Context) enterFunc(name string) ir.FuncSig {
	sig := c.funcs[name]
	c.current = &sig
	c.locals = make(map[string]value.Kind, len(sig.Params))

	for _, p := range sig.Params {
		c.locals[p.Name] = p.Type
	}

	return sig
}

func (c *Context) leaveFunc() {
	c.current = nil
	c.locals = nil
}

func (c *Context) declareVar(name string, t value.Kind) ir.Operand {
	if c.inFunction() {
		c.locals[name] = t
	} else {
		c.globals[name] = t
	}

	return ir.NewVar(name, t)
}

func (c *Context) lookupVar(name string) (ir.Operand, error) {
	if c.inFunction() {
		if t, ok := c.locals[name]; ok {
			return ir.NewVar(name, t), nil
		}

		if t, ok := c.globals[name]; ok {
			return ir.NewGlobal(name, t), nil
		}
	} else if t, ok := c.globals[name]; ok {
		return ir.NewVar(name, t), nil
	}

	return ir.Operand{}, violation("undefined variable %q", name)
}

func (c *Context) lookupFunc(name string) (ir.FuncSig, error) {
	sig, ok := c.funcs[name]
	if !ok {
		return ir.FuncSig{}, violation("undefined function %q", name)
	}

	return sig, nil
}
