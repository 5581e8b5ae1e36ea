package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrUnknownCommand is returned for an unrecognized subcommand.
var ErrUnknownCommand = errors.New("unknown command")

func main() {
	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}

// runMain dispatches to a subcommand and returns the process exit code.
// Without a subcommand, or when the first argument is a flag, it serves.
func runMain(ctx context.Context, args []string, env *Environment) int {
	cmd, rest := splitCommand(args)

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, rest, env)
	case "doctor":
		return runDoctorCmd(rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "pdfsandbox %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		runHelp(rest, env.Stdout)
		return ExitSuccess
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
		printUsage(env.Stderr)
	}

	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
	}
	return exitCodeFor(err)
}

// splitCommand separates the subcommand from its arguments. args[0] is the
// program name.
func splitCommand(args []string) (string, []string) {
	if len(args) > 0 {
		args = args[1:]
	}
	if len(args) == 0 {
		return "serve", nil
	}
	first := args[0]
	if strings.HasPrefix(first, "-") && first != "-h" && first != "--help" && first != "--version" {
		return "serve", args
	}
	return first, args[1:]
}
