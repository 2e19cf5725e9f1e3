package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/testlang/pkg/conformance"
)

var testCmd = &cobra.Command{
	Use:   "test <dir>",
	Short: "Run the YAML conformance suites in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runTests,
}

func init() {
	testCmd.Flags().Int("max-steps", 0, "Step limit of every case (default 1000000)")
}

func runTests(cmd *cobra.Command, args []string) error {
	suites, err := conformance.LoadDir(args[0])
	if err != nil {
		return err
	}

	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	r := &conformance.Runner{MaxSteps: maxSteps}
	report := r.RunSuites(context.Background(), suites)

	out := cmd.OutOrStdout()
	failed := report.Failed()
	for _, res := range failed {
		fmt.Fprintf(out, "FAIL %s/%s: %s\n", res.Suite, res.Case, res.Failure)
	}
	fmt.Fprintf(out, "%d passed, %d failed\n", report.Passed(), len(failed))

	if len(failed) > 0 {
		return fmt.Errorf("%d conformance case(s) failed", len(failed))
	}
	return nil
}
