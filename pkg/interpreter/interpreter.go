// Package interpreter is the testlang entry point: it runs source text
// through the lexer, the parser and the evaluator.
package interpreter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lemonberrylabs/testlang/pkg/runtime"
	"github.com/lemonberrylabs/testlang/pkg/stdlib"
	"github.com/lemonberrylabs/testlang/pkg/syntax"
	"github.com/lemonberrylabs/testlang/pkg/types"
)

const separatorWidth = 50

// Options configures one execution.
type Options struct {
	// Verbose writes the source, its tokens and the re-printed AST to Diag
	// before running.
	Verbose bool

	// Log receives one line per print call. Defaults to stdout.
	Log stdlib.LogFunc

	// Diag receives verbose output. Defaults to stdout.
	Diag io.Writer

	// Rand chooses among same-named jump locations. Defaults to math/rand.
	Rand runtime.Rand

	// MaxSteps bounds the number of executed statements; zero is unlimited.
	MaxSteps int
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = func(line string) { fmt.Fprintln(os.Stdout, line) }
	}
	if o.Diag == nil {
		o.Diag = os.Stdout
	}
	return o
}

func (o Options) engineOptions() []runtime.Option {
	return []runtime.Option{runtime.WithRand(o.Rand), runtime.WithMaxSteps(o.MaxSteps)}
}

// Execute runs source to completion. The only visible effects are calls to
// opts.Log (and verbose output); any lex, syntax or runtime error aborts the
// run and is returned.
func Execute(ctx context.Context, source string, opts Options) error {
	opts = opts.withDefaults()

	prog, err := compile(source, opts)
	if err != nil {
		return err
	}
	env := stdlib.NewRegistry(opts.Log).Environment()
	_, err = runtime.NewEngine(prog, opts.engineOptions()...).Run(ctx, env)
	return err
}

// Check lexes and parses source without running it.
func Check(source string) error {
	_, err := syntax.ParseSource(source)
	return err
}

// compile lexes and parses source, writing the verbose sections as it goes.
func compile(source string, opts Options) (*syntax.Program, error) {
	separator := strings.Repeat("-", separatorWidth)
	if opts.Verbose {
		fmt.Fprintln(opts.Diag, "Program:")
		fmt.Fprintln(opts.Diag, source)
		fmt.Fprintln(opts.Diag, separator)
	}

	tokens, err := syntax.Lex(source)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		fmt.Fprintln(opts.Diag, "Tokens:")
		fmt.Fprintln(opts.Diag, syntax.StringifyTokens(tokens))
		fmt.Fprintln(opts.Diag, separator)
	}

	prog, err := syntax.Parse(tokens)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		fmt.Fprintln(opts.Diag, "Program from AST:")
		fmt.Fprintln(opts.Diag, syntax.Stringify(prog))
		fmt.Fprintln(opts.Diag, separator)
		fmt.Fprintln(opts.Diag, "Program output:")
	}
	return prog, nil
}

// Session runs several sources one after another in a shared environment,
// so bindings made by one input are visible to the next.
type Session struct {
	opts Options
	env  *types.Environment
}

// NewSession creates a session with a fresh builtin environment.
func NewSession(opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts: opts,
		env:  stdlib.NewRegistry(opts.Log).Environment(),
	}
}

// Execute runs source in the session environment. Jumps only reach come
// from labels of the same source. On error, names first bound by the failing
// source are dropped while updates to existing bindings remain.
func (s *Session) Execute(ctx context.Context, source string) error {
	prog, err := compile(source, s.opts)
	if err != nil {
		return err
	}
	env, err := runtime.NewEngine(prog, s.opts.engineOptions()...).Run(ctx, s.env)
	if err != nil {
		return err
	}
	s.env = env
	return nil
}

// Lookup returns the value bound to name in the session.
func (s *Session) Lookup(name string) (types.Value, bool) {
	return s.env.Get(name)
}
