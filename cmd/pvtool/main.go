// pvtool works with pvdata schemas, value files and capture files.
//
// Usage:
//
//	pvtool schema [--yaml] <schema.yaml>
//	pvtool request --schema <schema.yaml> <request>
//	pvtool encode --schema <schema.yaml> --out <file> [--compression zstd] <values.jsonc>...
//	pvtool dump [--json] [--changed] <file>
//	pvtool browse --schema <schema.yaml> [--values <values.jsonc>] [--record <file>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/pvdata/capture"
	"github.com/wippyai/pvdata/codec"
	"github.com/wippyai/pvdata/message"
	"github.com/wippyai/pvdata/pvcopy"
	"github.com/wippyai/pvdata/pvtype"
)

type command struct {
	name  string
	usage string
	run   func(env *env, args []string) error
}

var commands = []command{
	{"schema", "print the record a schema file describes", runSchema},
	{"request", "project a schema record through a request string", runRequest},
	{"encode", "encode value files into a capture", runEncode},
	{"dump", "replay a capture and print every frame", runDump},
	{"browse", "edit a record interactively and watch its partial encoding", runBrowse},
}

// env carries what every command shares.
type env struct {
	log *zap.Logger
	reg *pvtype.Registry
}

func (e *env) codecOptions() []codec.Option {
	return []codec.Option{
		codec.WithRegistry(e.reg),
		codec.WithRequester(message.NewZapRequester(e.log, "pvtool")),
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var verbose bool
	global := pflag.NewFlagSet("pvtool", pflag.ContinueOnError)
	global.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	global.SetInterspersed(false)
	global.Usage = func() { printUsage(global) }
	if err := global.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(global)
		return fmt.Errorf("missing command")
	}

	log, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	installLogger(log)

	for _, c := range commands {
		if c.name == rest[0] {
			return c.run(&env{log: log, reg: pvtype.NewRegistry()}, rest[1:])
		}
	}
	printUsage(global)
	return fmt.Errorf("unknown command %q", rest[0])
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func installLogger(log *zap.Logger) {
	pvtype.SetLogger(log.Named("pvtype"))
	codec.SetLogger(log.Named("codec"))
	pvcopy.SetLogger(log.Named("pvcopy"))
	capture.SetLogger(log.Named("capture"))
}

func printUsage(global *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: pvtool [--verbose] <command> [flags] [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Global flags:")
	global.SetOutput(os.Stderr)
	global.PrintDefaults()
}

// newFlags returns a flag set for a command that reports its own usage.
func newFlags(name, args string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pvtool %s [flags] %s\n\nFlags:\n", name, args)
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
	}
	return fs
}
