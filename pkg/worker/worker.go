// Package worker runs a testlang program in the background and streams its
// output as messages.
package worker

import (
	"context"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
)

// Kind identifies a worker message.
type Kind string

const (
	KindLog  Kind = "log"  // one line of program output
	KindErr  Kind = "err"  // the run failed; Text holds the error
	KindDone Kind = "done" // always the last message
)

// Message is one event of a background run.
type Message struct {
	Kind Kind   `json:"tag"`
	Text string `json:"text,omitempty"`
	Err  error  `json:"-"`
}

// bufferSize lets short programs finish without waiting on the reader.
const bufferSize = 64

// Start runs source in a new goroutine. Every print becomes a KindLog
// message, a failure becomes one KindErr message, and KindDone is sent
// last before the channel is closed.
//
// The reader must drain the channel until it is closed. Once ctx is done
// the run stops at its next statement and undelivered log lines are
// dropped; the KindErr and KindDone messages are still delivered.
func Start(ctx context.Context, source string, opts interpreter.Options) <-chan Message {
	out := make(chan Message, bufferSize)

	opts.Log = func(line string) {
		select {
		case out <- Message{Kind: KindLog, Text: line}:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(out)
		if err := interpreter.Execute(ctx, source, opts); err != nil {
			out <- Message{Kind: KindErr, Text: err.Error(), Err: err}
		}
		out <- Message{Kind: KindDone}
	}()
	return out
}

// Result is the collected outcome of a finished run.
type Result struct {
	Output []string
	Err    error
}

// Run starts source and waits for it to finish.
func Run(ctx context.Context, source string, opts interpreter.Options) Result {
	var res Result
	for msg := range Start(ctx, source, opts) {
		switch msg.Kind {
		case KindLog:
			res.Output = append(res.Output, msg.Text)
		case KindErr:
			res.Err = msg.Err
		}
	}
	return res
}
