package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/testlang/pkg/syntax"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Print a program in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE:  formatFile,
}

func formatFile(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	prog, err := syntax.ParseSource(string(data))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), syntax.Stringify(prog))
	return nil
}
