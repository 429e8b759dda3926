package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sarchlab/akita/v4/monitoring"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/tacvm/api"
	"github.com/sarchlab/tacvm/ast"
	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/verify"
)

var errVerifyFailed = errors.New("verification failed")

func load(path string) (*ast.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ast.DecodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

func openInput(path string) (core.InputSource, func(), error) {
	if path == "" {
		return core.NewReaderInput(os.Stdin), func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return core.NewReaderInput(f), func() { f.Close() }, nil
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}

	return strings.Split(text, "\n"), nil
}

func astCmd(args []string) error {
	fs := flag.NewFlagSet("ast", flag.ContinueOnError)
	c := addCommon(fs)
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	if _, err := c.setup(); err != nil {
		return err
	}

	p, err := load(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Print(ast.Dump(p))

	return nil
}

func irCmd(args []string) error {
	fs := flag.NewFlagSet("ir", flag.ContinueOnError)
	c := addCommon(fs)
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	cfg, err := c.setup()
	if err != nil {
		return err
	}

	p, err := load(fs.Arg(0))
	if err != nil {
		return err
	}

	comp, err := api.CompileWith(p, compileOptions(cfg))
	if err != nil {
		return err
	}

	printSection(os.Stdout, "Original IR", comp.IR.Listing())
	printSection(os.Stdout, "Optimized IR", comp.OptimizedIR.Listing())

	return nil
}

func printSection(w io.Writer, title string, lines []string) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)
}

// compileCmd compiles every document on its own pipeline, concurrently.
func compileCmd(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	c := addCommon(fs)
	outDir := fs.String("o", "", "write <name>.tasm files to this directory")
	if err := parse(fs, args, 1, -1); err != nil {
		return err
	}

	cfg, err := c.setup()
	if err != nil {
		return err
	}

	files := fs.Args()
	results := make([]*api.Compilation, len(files))

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for i, path := range files {
		g.Go(func() error {
			p, err := load(path)
			if err != nil {
				return err
			}

			comp, err := api.CompileWith(p, compileOptions(cfg))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = comp

			if *outDir == "" {
				return nil
			}

			return writeListing(*outDir, path, comp)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if *outDir != "" {
		return nil
	}

	for i, comp := range results {
		if len(files) > 1 {
			fmt.Printf("; %s\n", files[i])
		}
		if err := comp.Program.Format(os.Stdout); err != nil {
			return err
		}
	}

	return nil
}

func writeListing(dir, path string, comp *api.Compilation) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".tasm"

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}

	if err := comp.Program.Format(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	c := addCommon(fs)
	inputPath := fs.String("input", "", "read INPUT values from this file instead of stdin")
	showStore := fs.Bool("store", false, "print the final store")
	watchFile := fs.Bool("watch", false, "run again whenever the document changes")
	monitor := fs.Bool("monitor", false, "serve the akita monitor while running")
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	cfg, err := c.setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	builder := api.MakeBuilder().WithConfig(cfg)
	if *monitor {
		m := monitoring.NewMonitor()
		m.StartServer()
		builder = builder.WithMonitor(m)
	}
	driver := builder.Build("Driver")

	path := fs.Arg(0)
	runOnce := func() error {
		p, err := load(path)
		if err != nil {
			return err
		}

		in, done, err := openInput(*inputPath)
		if err != nil {
			return err
		}
		defer done()

		e, err := driver.Run(p, in, core.NewWriterOutput(os.Stdout))
		if err != nil {
			return err
		}

		if *showStore {
			fmt.Println(core.RenderStore("Final store", e.Store))
		}

		if len(e.Trace) > 0 {
			fmt.Println(core.RenderTrace(e.Trace))
		}

		return nil
	}

	if *watchFile {
		return watch(ctx, path, runOnce)
	}

	if err := runOnce(); err != nil {
		return err
	}

	if *monitor {
		fmt.Fprintln(os.Stderr, "monitor running, press Ctrl-C to exit")
		<-ctx.Done()
	}

	return nil
}

// demoCmd prints every stage of the pipeline, runs the program and prints
// the final store.
func demoCmd(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	c := addCommon(fs)
	inputPath := fs.String("input", "", "read INPUT values from this file instead of stdin")
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	cfg, err := c.setup()
	if err != nil {
		return err
	}

	p, err := load(fs.Arg(0))
	if err != nil {
		return err
	}

	driver := api.MakeBuilder().WithConfig(cfg).Build("Driver")

	comp, err := driver.Compile(p)
	if err != nil {
		return err
	}

	printSection(os.Stdout, "Original IR", comp.IR.Listing())
	printSection(os.Stdout, "Optimized IR", comp.OptimizedIR.Listing())
	printSection(os.Stdout, "Target code", comp.Program.Listing())

	in, done, err := openInput(*inputPath)
	if err != nil {
		return err
	}
	defer done()

	fmt.Println("Program output:")
	e, err := driver.Execute(comp.Program, in, core.NewWriterOutput(os.Stdout))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(core.RenderStore("Final store", e.Store))

	return nil
}

// verifyCmd writes one report per document, in argument order.
func verifyCmd(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	c := addCommon(fs)
	inputPath := fs.String("input", "", "INPUT values, one per line, for every document")
	reportDir := fs.String("report", "", "also save each report to this directory")
	if err := parse(fs, args, 1, -1); err != nil {
		return err
	}

	cfg, err := c.setup()
	if err != nil {
		return err
	}

	inputs, err := readLines(*inputPath)
	if err != nil {
		return err
	}

	opts := verify.ReportOptions{
		Compile:  compileOptions(cfg),
		Inputs:   inputs,
		MaxSteps: cfg.VM.MaxSteps,
	}

	files := fs.Args()
	reports := make([]*verify.VerificationReport, len(files))

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for i, path := range files {
		g.Go(func() error {
			p, err := load(path)
			if err != nil {
				return err
			}

			reports[i] = verify.GenerateReport(path, p, opts)

			if *reportDir == "" {
				return nil
			}

			name := filepath.Base(path) + ".report.txt"
			return reports[i].SaveReportToFile(filepath.Join(*reportDir, name))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		r.WriteReport(os.Stdout)
		if !r.OK() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d documents", errVerifyFailed, failed, len(files))
	}

	return nil
}
