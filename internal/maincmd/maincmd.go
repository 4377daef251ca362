// Package maincmd implements the evilcandy command-line driver: it wires
// the assembler, the serializer, the disassembler and the machine together
// behind the flag surface of the binary.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"

	"github.com/evilcandy-lang/evilcandy/lang/compiler"
	"github.com/evilcandy-lang/evilcandy/lang/machine"
	"github.com/evilcandy-lang/evilcandy/lang/scanner"
)

const binName = "evilcandy"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <file>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <file>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the %[1]s scripting language. The
<file> argument is a source file path, or '-' to read source from
standard input.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -d --disassemble          Print a disassembly of the compiled
                                 program instead of executing it.
       -c --compile              Write the compiled byte code to
                                 <file>.evc instead of executing it.
       -r --read                 Treat <file> as serialized byte code
                                 rather than source text.

The process exits 0 on clean termination, 1 on an unhandled exception
or a parse error, and 2 on command-line misuse.
`, binName)
)

// config is the set of driver-level tunables read once from the
// environment; the language core itself reads no environment variables.
type config struct {
	MaxReenter   int `env:"EVILCANDY_MAX_REENTER"`
	MaxCallDepth int `env:"EVILCANDY_MAX_CALL_DEPTH"`
}

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help        bool `flag:"h,help"`
	Version     bool `flag:"v,version"`
	Disassemble bool `flag:"d,disassemble"`
	Compile     bool `flag:"c,compile"`
	ReadBin     bool `flag:"r,read"`

	args []string
	cfg  config
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return errors.New("exactly one file must be provided")
	}
	if c.Compile && c.ReadBin {
		return errors.New("-c and -r are mutually exclusive")
	}
	if c.Compile && c.Disassemble {
		return errors.New("-c and -d are mutually exclusive")
	}
	if c.ReadBin && c.args[0] == "-" {
		return errors.New("-r requires a file path")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	if err := env.Parse(&c.cfg); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid environment: %s\n", err)
		return mainer.InvalidArgs
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio, c.args[0]); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// run executes the selected pipeline for file; errors have been printed
// when it returns.
func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio, file string) error {
	ex, err := c.loadProgram(ctx, file)
	if err != nil {
		printError(stdio, err)
		return err
	}

	switch {
	case c.Disassemble:
		b, err := compiler.Dasm(ex)
		if err != nil {
			printError(stdio, err)
			return err
		}
		if _, err := stdio.Stdout.Write(b); err != nil {
			printError(stdio, err)
			return err
		}
		return nil

	case c.Compile:
		out := file + ".evc"
		if err := compiler.SaveProgram(out, ex); err != nil {
			printError(stdio, err)
			return err
		}
		return nil
	}

	return RunProgram(ctx, stdio, &machine.Options{
		MaxReenter:   c.cfg.MaxReenter,
		MaxCallDepth: c.cfg.MaxCallDepth,
	}, ex)
}

func (c *Cmd) loadProgram(ctx context.Context, file string) (*compiler.Executable, error) {
	if c.ReadBin {
		return compiler.ReadProgramFile(file)
	}
	return compiler.AssembleFile(ctx, file)
}

// RunProgram executes a compiled program on a fresh interpreter wired to
// the given stdio, with a loader that assembles and runs loaded files in
// the same interpreter. The unhandled exception, if any, is printed to
// stderr before returning.
func RunProgram(ctx context.Context, stdio mainer.Stdio, opts *machine.Options, ex *compiler.Executable) error {
	o := machine.Options{
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
		Stdin:  stdio.Stdin,
	}
	if opts != nil {
		o.MaxReenter = opts.MaxReenter
		o.MaxCallDepth = opts.MaxCallDepth
	}
	it := machine.New(&o)
	it.Loader = func(it *machine.Interp, path string) error {
		lex, err := compiler.AssembleFile(ctx, path)
		if err != nil {
			return err
		}
		return it.RunScript(ctx, lex)
	}

	if err := it.RunScript(ctx, ex); err != nil {
		printError(stdio, err)
		return err
	}
	return nil
}

func printError(stdio mainer.Stdio, err error) {
	var el scanner.ErrorList
	if errors.As(err, &el) {
		scanner.PrintError(stdio.Stderr, el)
		return
	}
	fmt.Fprintf(stdio.Stderr, "%s\n", err)
}
