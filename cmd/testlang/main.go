// Package main is the testlang command: it runs programs, serves the
// playground and hosts an interactive REPL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes for invalid invocations.
const (
	exitBothSources = 101
	exitNoSource    = 102
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

var rootCmd = &cobra.Command{
	Use:           "testlang [file]",
	Short:         "Run testlang programs",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("testlang version {{.Version}}\n")

	rootCmd.Flags().StringP("eval", "e", "", "Program source to run instead of a file")
	rootCmd.Flags().BoolP("verbose", "v", false, "Print the source, tokens and parsed program before running")

	rootCmd.AddCommand(serveCmd, replCmd, testCmd, fmtCmd)
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)
	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(1)
}

func run(cmd *cobra.Command, args []string) error {
	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return interpreter.Execute(ctx, source, interpreter.Options{Verbose: verbose})
}

// readSource returns the program given either as a file argument or with -e.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	eval, _ := cmd.Flags().GetString("eval")
	hasEval := cmd.Flags().Changed("eval")

	switch {
	case len(args) == 1 && hasEval:
		return "", &exitError{code: exitBothSources, msg: "cannot run a file and -e at the same time"}
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading program: %w", err)
		}
		return string(data), nil
	case hasEval:
		return eval, nil
	default:
		return "", &exitError{code: exitNoSource, msg: "expected a file to run or -e <code>, see testlang --help"}
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
