package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/tacvm/api"
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/verify"
)

//go:embed loop.yaml
var averageDoc string

func main() {
	program, err := ast.DecodeDocument(strings.NewReader(averageDoc))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	inputs := []string{"4", "1.5", "2.5", "3", "5"}

	report := verify.GenerateReport("loop", program, verify.ReportOptions{
		Compile: api.DefaultCompileOptions(),
		Inputs:  inputs,
	})
	report.WriteReport(os.Stdout)

	if !report.OK() {
		atexit.Exit(1)
	}

	fmt.Println(core.RenderStore("Final store", report.VM.Store))

	atexit.Exit(0)
}
