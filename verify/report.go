package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/tacvm/api"
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/diag"
	"github.com/sarchlab/tacvm/value"
)

// ReportOptions configures GenerateReport.
type ReportOptions struct {
	Compile api.CompileOptions

	// Inputs feed INPUT, one value per line, in both executions.
	Inputs []string

	// MaxSteps bounds both executions. Zero means unbounded.
	MaxSteps int
}

// Outcome is what one execution produced.
type Outcome struct {
	Output []string
	Store  map[string]value.Value
	Err    error
}

// VerificationReport represents a complete verification report
type VerificationReport struct {
	Name string

	Compilation *api.Compilation
	CompileErr  error

	LintIssues   []Issue
	StructIssues []Issue
	FlowIssues   []Issue

	VM        Outcome
	Reference Outcome

	// Inconclusive is set when a step or depth limit stopped either
	// execution, so the two cannot be compared.
	Inconclusive bool
	Mismatches   []string
}

// GenerateReport compiles the program, lints every lowered stage, runs
// the result on the VM and the functional simulator, and compares them.
func GenerateReport(name string, p *ast.Program, o ReportOptions) *VerificationReport {
	report := &VerificationReport{Name: name}

	report.Compilation, report.CompileErr = api.CompileWith(p, o.Compile)
	if report.CompileErr != nil {
		return report
	}

	c := report.Compilation
	report.LintIssues = append(report.LintIssues, LintIR(c.IR)...)
	if o.Compile.Optimize {
		report.LintIssues = append(report.LintIssues, LintIR(c.OptimizedIR)...)
	}
	report.LintIssues = append(report.LintIssues, LintProgram(c.Program)...)

	for _, issue := range report.LintIssues {
		if issue.Type == IssueStruct {
			report.StructIssues = append(report.StructIssues, issue)
		} else {
			report.FlowIssues = append(report.FlowIssues, issue)
		}
	}

	report.VM = runVM(c, o)
	report.Reference = runReference(p, o)
	report.compare()

	return report
}

func runVM(c *api.Compilation, o ReportOptions) Outcome {
	out := &core.BufferOutput{}
	d := api.MakeBuilder().
		WithCompileOptions(o.Compile).
		WithMaxSteps(o.MaxSteps).
		Build("Verify")

	e, err := d.Execute(c.Program, core.NewLinesInput(o.Inputs...), out)
	if err != nil {
		return Outcome{Output: out.Lines(), Err: err}
	}

	return Outcome{Output: out.Lines(), Store: e.Store}
}

func runReference(p *ast.Program, o ReportOptions) Outcome {
	out := &core.BufferOutput{}
	fs := NewFunctionalSimulator(p, core.NewLinesInput(o.Inputs...), out)

	if err := fs.Run(o.MaxSteps); err != nil {
		return Outcome{Output: out.Lines(), Err: err}
	}

	return Outcome{Output: out.Lines(), Store: fs.Store()}
}

func (r *VerificationReport) compare() {
	vmKind, refKind := diag.KindOf(r.VM.Err), diag.KindOf(r.Reference.Err)

	if vmKind == diag.ExecutionLimit || refKind == diag.ExecutionLimit {
		r.Inconclusive = true
		return
	}

	if vmKind != refKind {
		r.Mismatches = append(r.Mismatches,
			fmt.Sprintf("error: vm %s, reference %s", kindName(vmKind), kindName(refKind)))
	}

	if diff := cmp.Diff(r.Reference.Output, r.VM.Output); diff != "" {
		r.Mismatches = append(r.Mismatches, "output (-reference +vm):\n"+diff)
	}

	if r.VM.Err != nil || r.Reference.Err != nil {
		return
	}

	if diff := cmp.Diff(r.Reference.Store, r.VM.Store); diff != "" {
		r.Mismatches = append(r.Mismatches, "store (-reference +vm):\n"+diff)
	}
}

func kindName(k diag.Kind) string {
	if k == "" {
		return "none"
	}

	return string(k)
}

// OK tells if the program compiled, passed lint and behaved the same on
// the VM and the functional simulator.
func (r *VerificationReport) OK() bool {
	return r.CompileErr == nil &&
		len(r.LintIssues) == 0 &&
		len(r.Mismatches) == 0
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "VERIFICATION REPORT: %s\n", r.Name)
	fmt.Fprintln(w, separator)

	if r.CompileErr != nil {
		fmt.Fprintf(w, "\n⚠ Compilation failed: %v\n\n", r.CompileErr)
		return
	}

	c := r.Compilation
	fmt.Fprintf(w, "\n✓ Compiled: %d IR, %d optimized IR, %d target instructions\n",
		len(c.IR.Instrs), len(c.OptimizedIR.Instrs), len(c.Program.Insts))

	// STAGE 1: LINT
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "✓ No lint issues found!")
	} else {
		fmt.Fprintf(w, "⚠ Found %d lint issues:\n\n", len(r.LintIssues))
		fmt.Fprintln(w, renderIssues(r.LintIssues))
	}

	// STAGE 2: EXECUTION
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: VM AGAINST FUNCTIONAL SIMULATOR")
	fmt.Fprintln(w, separator)

	writeOutcome(w, "VM", r.VM)
	writeOutcome(w, "Reference", r.Reference)

	switch {
	case r.Inconclusive:
		fmt.Fprintln(w, "⚠ Execution limit reached, results not compared")
	case len(r.Mismatches) == 0:
		fmt.Fprintln(w, "✓ VM matches the functional simulator")
	default:
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "⚠ Mismatch in %s\n", m)
		}
	}

	// STAGE 3: SUMMARY
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "VERIFICATION SUMMARY")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Lint Result: %d issues detected (%d STRUCT, %d FLOW)\n",
		len(r.LintIssues), len(r.StructIssues), len(r.FlowIssues))

	status := "PASSED"
	if !r.OK() {
		status = "FAILED"
	}
	fmt.Fprintf(w, "Result: %s\n\n", status)
}

func renderIssues(issues []Issue) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Type", "#", "Instruction", "Message"})

	for _, issue := range issues {
		idx := ""
		if issue.Index >= 0 {
			idx = fmt.Sprint(issue.Index)
		}
		t.AppendRow(table.Row{issue.Stage, issue.Type, idx, issue.Inst, issue.Message})
	}

	return t.Render()
}

func writeOutcome(w io.Writer, who string, o Outcome) {
	if o.Err != nil {
		fmt.Fprintf(w, "%s stopped: %v\n", who, o.Err)
	}

	fmt.Fprintf(w, "%s printed %d values\n", who, len(o.Output))

	if o.Store != nil {
		fmt.Fprintln(w, core.RenderStore(who+" store", o.Store))
	}
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
