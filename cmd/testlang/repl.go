package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
	"github.com/lemonberrylabs/testlang/pkg/syntax"
)

const (
	historyFile = ".testlang_history"
	promptMain  = "> "
	promptCont  = ". "
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE:  repl,
}

func repl(cmd *cobra.Command, args []string) error {
	fmt.Printf("testlang %s. Type :quit to exit.\n", version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := interpreter.NewSession(interpreter.Options{})
	for {
		source, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return nil
		}

		trimmed := strings.TrimSpace(source)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return nil
		case strings.HasPrefix(trimmed, ":"):
			fmt.Println("unknown command. Type :quit to exit.")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(source, "\n", " "))
		if err := runInteractive(session, source); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// runInteractive executes one input; Ctrl-C stops a runaway program
// without leaving the REPL.
func runInteractive(session *interpreter.Session, source string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return session.Execute(ctx, source)
}

// readStatement keeps prompting while the input so far only fails to parse
// because it ended early.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := syntax.ParseSource(src); err != nil && syntax.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}
