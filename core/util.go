package core

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/tacvm/value"
)

// RenderStore renders a variable store as a table sorted by name.
func RenderStore(title string, store map[string]value.Value) string {
	names := make([]string, 0, len(store))
	for name := range store {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Name", "Type", "Value"})

	for _, name := range names {
		v := store[name]
		t.AppendRow(table.Row{name, v.Kind.Name(), v.Literal()})
	}

	return t.Render()
}

// RenderTrace renders retired instructions in execution order.
func RenderTrace(entries []RetiredInst) string {
	t := table.NewWriter()
	t.SetTitle("Trace")
	t.AppendHeader(table.Row{"Step", "PC", "Depth", "Instruction"})

	for n, e := range entries {
		t.AppendRow(table.Row{n, e.PC, e.Depth, e.Inst.String()})
	}

	return t.Render()
}
