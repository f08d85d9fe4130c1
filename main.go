// This is the main-driver for daffy.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lento/daffy/logging"
	"github.com/lento/daffy/ops"
	"github.com/lento/daffy/optype"
	"github.com/lento/daffy/scheduler"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	//
	// Look for flags.
	//
	fs := flag.NewFlagSet("daffy", flag.ContinueOnError)
	fs.SetOutput(stderr)

	verbose := fs.Bool("v", false, "Raise the log level to debug.")
	fs.BoolVar(verbose, "verbose", false, "Raise the log level to debug.")
	cmd := fs.String("c", "", "Run a single instruction instead of a program file.")
	workers := fs.Int("workers", scheduler.DefaultWorkers, "Number of worker goroutines executing operations concurrently.")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	//
	// Exactly one of "-c" or a positional FILE must be given.
	//
	file := ""
	if fs.NArg() == 1 {
		file = fs.Arg(0)
	}
	if (*cmd == "" && file == "") || (*cmd != "" && file != "") {
		fmt.Fprintf(stderr, "Usage: daffy [-v|--verbose] [-c CMD | FILE] [-workers N]\n")
		return 2
	}

	logger := logging.New(stderr, *verbose)

	//
	// Build the catalog and the scheduler.
	//
	reg := optype.NewRegistry()
	ops.Register(reg, stdout)
	sched := scheduler.New(reg, *workers, logger)

	ctx := context.Background()

	var err error
	if *cmd != "" {
		err = sched.RunInstruction(ctx, *cmd)
	} else {
		f, openErr := os.Open(file)
		if openErr != nil {
			logger.Error().Err(openErr).Str("file", file).Msg("could not open program file")
			return 1
		}
		defer f.Close()
		err = sched.RunProgram(ctx, f)
	}

	if err != nil {
		logger.Error().Err(err).Msg("daffy run failed")
		return 1
	}
	return 0
}
