package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tacvm/api"
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/core"
)

//go:embed factorial.yaml
var factorialDoc string

func main() {
	program, err := ast.DecodeDocument(strings.NewReader(factorialDoc))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	driver := api.MakeBuilder().
		WithFreq(1 * sim.GHz).
		Build("Driver")

	out := &core.BufferOutput{}
	result, err := driver.Run(program, core.NewLinesInput(), out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	for i, line := range out.Lines() {
		fmt.Printf("%2d! = %s\n", i+1, line)
	}

	fmt.Printf("retired %d instructions, deepest call %d\n",
		result.Steps, result.MaxDepth)

	atexit.Exit(0)
}
