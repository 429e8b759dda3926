// Package verify provides debugging tools that check the compiler against
// itself.
//
// It implements two complementary verification stages:
//
// 1. Static Lint (lint.go): structural and data-flow checks on lowered code
//   - STRUCT checks: duplicate or undefined labels, unknown instructions,
//     operand counts, calls to labels that are not functions
//   - FLOW checks: temporaries read before they are written, argument
//     counts at call sites, conditional jumps without a comparison,
//     returns outside a function
//
// 2. Functional Simulator (funcsim.go): a tree-walking evaluator
//   - Executes the syntax tree directly, without lowering
//   - Its printed output and final store are the reference the compiled
//     program must reproduce
//   - Useful for isolating optimizer bugs from code generator and VM bugs
//
// GenerateReport (report.go) runs the pipeline, both lint passes, the VM
// and the functional simulator, and compares the results.
//
// # Usage Example
//
//	report := verify.GenerateReport(program, verify.ReportOptions{
//	    Compile:  api.DefaultCompileOptions(),
//	    Inputs:   []string{"5"},
//	    MaxSteps: 100000,
//	})
//	report.WriteReport(os.Stdout)
//	if !report.OK() {
//	    os.Exit(1)
//	}
package verify

import (
	"fmt"
)

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // Malformed code (labels, operands, opcodes)
	IssueFlow   IssueType = "FLOW"   // Data or control flow error
)

// Stage tells which representation an issue was found in.
type Stage string

const (
	StageIR     Stage = "IR"
	StageTarget Stage = "TARGET"
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType
	Stage   Stage
	Index   int    // Instruction index or -1
	Inst    string // Instruction listing, empty if not applicable
	Message string
	Details map[string]interface{}
}

func (i Issue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("[%s %s] %s", i.Stage, i.Type, i.Message)
	}

	return fmt.Sprintf("[%s %s #%d] %s: %s",
		i.Stage, i.Type, i.Index, i.Inst, i.Message)
}
