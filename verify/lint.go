package verify

import (
	"fmt"

	"github.com/sarchlab/tacvm/ir"
	"github.com/sarchlab/tacvm/program"
	"github.com/sarchlab/tacvm/value"
)

// RunLint performs static lint checks on the lowered forms of one
// compilation. Either program may be nil. Returns a list of issues found,
// or empty list if no issues.
func RunLint(irProg *ir.Program, target *program.Program) []Issue {
	var issues []Issue

	if irProg != nil {
		issues = append(issues, LintIR(irProg)...)
	}

	if target != nil {
		issues = append(issues, LintProgram(target)...)
	}

	return issues
}

type irLinter struct {
	prog   *ir.Program
	issues []Issue
	labels map[string]int
}

func (l *irLinter) report(t IssueType, idx int, format string, args ...interface{}) {
	issue := Issue{
		Type:    t,
		Stage:   StageIR,
		Index:   idx,
		Message: fmt.Sprintf(format, args...),
	}

	if idx >= 0 {
		issue.Inst = l.prog.Instrs[idx].String()
	}

	l.issues = append(l.issues, issue)
}

// LintIR checks an IR program.
func LintIR(p *ir.Program) []Issue {
	l := &irLinter{prog: p, labels: make(map[string]int)}

	l.collectLabels()
	l.checkTargets()
	l.checkFlow()

	return l.issues
}

func (l *irLinter) collectLabels() {
	for idx, inst := range l.prog.Instrs {
		if inst.Op != ir.OpLabel {
			continue
		}

		name := inst.Args[0].Name
		if prev, dup := l.labels[name]; dup {
			l.report(IssueStruct, idx, "label %s already defined at #%d", name, prev)
			continue
		}

		l.labels[name] = idx
	}
}

func (l *irLinter) checkTargets() {
	for idx, inst := range l.prog.Instrs {
		switch inst.Op {
		case ir.OpGoto, ir.OpIfGoto:
			target := inst.Args[len(inst.Args)-1].Name
			if _, ok := l.labels[target]; !ok {
				l.report(IssueStruct, idx, "jump to undefined label %s", target)
			}
		case ir.OpCall:
			target := inst.Args[0].Name
			if _, ok := l.prog.Func(target); !ok {
				l.report(IssueStruct, idx, "call to %s, which is not a function", target)
			} else if _, ok := l.labels[target]; !ok {
				l.report(IssueStruct, idx, "function %s has no entry label", target)
			}
		}
	}
}

// checkFlow walks the program in layout order. Temporaries are local to
// the statement that creates them, so layout order is definition order.
func (l *irLinter) checkFlow() {
	var (
		fn      *ir.FuncSig
		defined = make(map[string]bool)
		called  = false
		params  = 0
	)

	for idx, inst := range l.prog.Instrs {
		if l.prog.IsFuncEntry(inst) {
			sig, _ := l.prog.Func(inst.Args[0].Name)
			fn = &sig
			called = false
			params = 0
		}

		for _, use := range inst.Uses() {
			switch {
			case use.IsTemp() && !defined[use.Name]:
				l.report(IssueFlow, idx, "temporary %s read before it is written", use.Name)
			case use.Kind == ir.RetSlot && !called:
				l.report(IssueFlow, idx, "%s read before any call", ir.RetSlotName)
			}
		}

		if dst, ok := inst.Dst(); ok {
			if dst.Kind != ir.Temp && dst.Kind != ir.Var {
				l.report(IssueStruct, idx, "cannot write to %s", dst)
			}
			if dst.IsTemp() {
				defined[dst.Name] = true
			}
		}

		switch inst.Op {
		case ir.OpParam:
			params++
		case ir.OpCall:
			if sig, ok := l.prog.Func(inst.Args[0].Name); ok && len(sig.Params) != params {
				l.report(IssueFlow, idx, "%s expects %d arguments, got %d",
					sig.Name, len(sig.Params), params)
			}
			called = true
			params = 0
		case ir.OpReturn:
			switch {
			case fn == nil:
				l.report(IssueFlow, idx, "return outside a function")
			case fn.ReturnType == value.Invalid && len(inst.Args) > 0:
				l.report(IssueFlow, idx, "%s returns no value", fn.Name)
			}
		}
	}
}

type targetLinter struct {
	prog   *program.Program
	issues []Issue
	labels map[string]int
}

func (l *targetLinter) report(t IssueType, idx int, format string, args ...interface{}) {
	issue := Issue{
		Type:    t,
		Stage:   StageTarget,
		Index:   idx,
		Message: fmt.Sprintf(format, args...),
	}

	if idx >= 0 {
		issue.Inst = l.prog.Insts[idx].String()
	}

	l.issues = append(l.issues, issue)
}

// LintProgram checks a target program against the default ISA.
func LintProgram(p *program.Program) []Issue {
	l := &targetLinter{prog: p, labels: make(map[string]int)}

	if !l.checkShapes() {
		return l.issues
	}

	l.checkLayout()
	l.checkTargets()
	l.checkFlow()

	return l.issues
}

// checkShapes validates mnemonics and operand counts. The remaining checks
// index operands and only run when every instruction is well formed.
func (l *targetLinter) checkShapes() bool {
	ok := true

	for idx, inst := range l.prog.Insts {
		spec, known := program.DefaultISA.Lookup(inst.Mnemonic)
		if !known {
			l.report(IssueStruct, idx, "unknown instruction %s", inst.Mnemonic)
			ok = false
			continue
		}

		n := len(inst.Operands)
		if n < spec.MinArgs || n > spec.MaxArgs {
			l.report(IssueStruct, idx, "%s takes %d to %d operands, got %d",
				inst.Mnemonic, spec.MinArgs, spec.MaxArgs, n)
			ok = false
			continue
		}

		if spec.Dst {
			switch inst.Operands[0].Kind {
			case program.Var, program.Temp:
			default:
				l.report(IssueStruct, idx, "cannot write to %s", inst.Operands[0])
			}
		}

		if inst.Mnemonic == program.LABEL {
			name := inst.Operands[0].Name
			if prev, dup := l.labels[name]; dup {
				l.report(IssueStruct, idx, "label %s already defined at #%d", name, prev)
				continue
			}
			l.labels[name] = idx
		}
	}

	return ok
}

func (l *targetLinter) checkLayout() {
	p := l.prog

	if p.MainEnd < 0 || p.MainEnd > len(p.Insts) {
		l.report(IssueStruct, -1, "main region end %d outside the program", p.MainEnd)
		return
	}

	if p.MainEnd == len(p.Insts) {
		return
	}

	entry := p.Insts[p.MainEnd]
	if entry.Mnemonic != program.LABEL {
		l.report(IssueStruct, p.MainEnd, "main region must end at a function entry")
		return
	}

	if _, ok := p.Funcs[entry.Operands[0].Name]; !ok {
		l.report(IssueStruct, p.MainEnd, "main region must end at a function entry")
	}
}

func (l *targetLinter) checkTargets() {
	for idx, inst := range l.prog.Insts {
		spec, _ := program.DefaultISA.Lookup(inst.Mnemonic)
		if !spec.Branch {
			continue
		}

		target := inst.Operands[len(inst.Operands)-1]
		if target.Kind != program.Label {
			l.report(IssueStruct, idx, "%s needs a label operand", inst.Mnemonic)
			continue
		}

		if _, ok := l.labels[target.Name]; !ok {
			l.report(IssueStruct, idx, "jump to undefined label %s", target.Name)
			continue
		}

		if inst.Mnemonic == program.CALL {
			if _, ok := l.prog.Funcs[target.Name]; !ok {
				l.report(IssueStruct, idx, "call to %s, which is not a function", target.Name)
			}
		}
	}
}

func (l *targetLinter) checkFlow() {
	pushed := 0

	for idx, inst := range l.prog.Insts {
		spec, _ := program.DefaultISA.Lookup(inst.Mnemonic)

		if spec.Conditional &&
			(idx == 0 || l.prog.Insts[idx-1].Mnemonic != program.CMP) {
			l.report(IssueFlow, idx, "%s does not follow a CMP", inst.Mnemonic)
		}

		switch inst.Mnemonic {
		case program.PUSH:
			pushed++
		case program.CALL:
			fn, ok := l.prog.Funcs[inst.Operands[0].Name]
			if ok && len(fn.Params) != pushed {
				l.report(IssueFlow, idx, "%s expects %d arguments, got %d",
					fn.Name, len(fn.Params), pushed)
			}
			pushed = 0
		case program.RETURN:
			if idx < l.prog.MainEnd {
				l.report(IssueFlow, idx, "RETURN in the main region")
			}
			pushed = 0
		}
	}
}
