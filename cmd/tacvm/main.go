// Command tacvm compiles syntax-tree documents and runs them on the
// virtual machine.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/tacvm/api"
	"github.com/sarchlab/tacvm/config"
)

const version = "0.1.0"

var errUsage = errors.New("usage")

type command func(args []string) error

func commands() map[string]command {
	return map[string]command{
		"ast":     astCmd,
		"ir":      irCmd,
		"compile": compileCmd,
		"run":     runCmd,
		"demo":    demoCmd,
		"verify":  verifyCmd,
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		atexit.Exit(2)
	}

	name := os.Args[1]
	switch name {
	case "help", "-h", "--help":
		usage()
		atexit.Exit(0)
	case "version":
		fmt.Printf("tacvm version %s\n", version)
		atexit.Exit(0)
	}

	cmd, ok := commands()[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", name)
		usage()
		atexit.Exit(2)
	}

	err := cmd(os.Args[2:])
	switch {
	case err == nil:
		atexit.Exit(0)
	case errors.Is(err, flag.ErrHelp):
		atexit.Exit(0)
	case errors.Is(err, errUsage):
		atexit.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "tacvm: %v\n", err)
		atexit.Exit(1)
	}
}

func usage() {
	fmt.Println(`tacvm - compile and run three-address code programs

Usage:
    tacvm ast <doc.yaml>                  Print the syntax tree
    tacvm ir <doc.yaml>                   Print the IR before and after optimization
    tacvm compile [-o dir] <doc.yaml>...  Print or write target listings
    tacvm run [-watch] <doc.yaml>         Execute a program
    tacvm demo <doc.yaml>                 Show every stage, run, print the store
    tacvm verify <doc.yaml>...            Lint and cross-check against the tree evaluator
    tacvm version                         Show the version

Common options:
    -config <file>   Configuration file (YAML)
    -log-level <l>   trace, debug, info, warn or error
    -no-opt          Skip the optimizer
    -max-steps <n>   Stop after n instructions
    -trace           Record and print the executed instructions`)
}

// common holds the flags every subcommand accepts. They override the
// configuration file.
type common struct {
	configPath string
	logLevel   string
	noOpt      bool
	maxSteps   int
	trace      bool
}

func addCommon(fs *flag.FlagSet) *common {
	c := &common{}

	fs.StringVar(&c.configPath, "config", "", "configuration file")
	fs.StringVar(&c.logLevel, "log-level", "", "log level")
	fs.BoolVar(&c.noOpt, "no-opt", false, "skip the optimizer")
	fs.IntVar(&c.maxSteps, "max-steps", -1, "instruction limit, 0 for none")
	fs.BoolVar(&c.trace, "trace", false, "record executed instructions")

	return c
}

// setup loads the configuration, applies the flags and installs the
// logger. The log file is closed when the process exits.
func (c *common) setup() (config.Config, error) {
	cfg := config.Default()

	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return cfg, err
		}
	}

	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	if c.noOpt {
		cfg.Compiler.Optimize = false
	}

	if c.maxSteps >= 0 {
		cfg.VM.MaxSteps = c.maxSteps
	}

	if c.trace {
		cfg.VM.Trace = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	closer, err := config.InitLogger(cfg.Log)
	if err != nil {
		return cfg, err
	}

	atexit.Register(func() {
		if err := closer(); err != nil {
			fmt.Fprintf(os.Stderr, "tacvm: close log: %v\n", err)
		}
	})

	return cfg, nil
}

func compileOptions(cfg config.Config) api.CompileOptions {
	return api.CompileOptions{
		Optimize:  cfg.Compiler.Optimize,
		MaxPasses: cfg.Compiler.MaxPasses,
	}
}

// parse parses the flags and checks the number of positional arguments.
func parse(fs *flag.FlagSet, args []string, minArgs, maxArgs int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}

	n := fs.NArg()
	if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
		fs.Usage()
		return errUsage
	}

	return nil
}
