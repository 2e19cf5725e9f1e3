package conformance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
	"github.com/lemonberrylabs/testlang/pkg/worker"
)

// caseTimeout bounds a single case.
const caseTimeout = 5 * time.Second

// defaultMaxSteps stops cases that never terminate.
const defaultMaxSteps = 1_000_000

// Result is the outcome of one case.
type Result struct {
	Suite   string
	Case    string
	Passed  bool
	Failure string
}

// Report collects the results of a run.
type Report struct {
	Results []Result
}

// Passed counts the passing cases.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Failed returns the failing results.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Runner executes suites.
type Runner struct {
	MaxSteps int
}

// RunSuites runs every case of every suite.
func (r *Runner) RunSuites(ctx context.Context, suites []*Suite) *Report {
	report := &Report{}
	for _, s := range suites {
		for _, c := range s.Tests {
			res := r.RunCase(ctx, c)
			res.Suite = s.Name
			report.Results = append(report.Results, res)
		}
	}
	return report
}

// RunCase executes one case and checks its output and error.
func (r *Runner) RunCase(ctx context.Context, c Case) Result {
	maxSteps := r.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultMaxSteps
	}

	ctx, cancel := context.WithTimeout(ctx, caseTimeout)
	defer cancel()
	got := worker.Run(ctx, c.Source, interpreter.Options{MaxSteps: maxSteps})

	res := Result{Case: c.Name}
	if msg := compareOutput(c.Output, got.Output); msg != "" {
		res.Failure = msg
		return res
	}
	if msg := compareError(c.Error, got.Err); msg != "" {
		res.Failure = msg
		return res
	}
	res.Passed = true
	return res
}

func compareOutput(want, got []string) string {
	if len(want) != len(got) {
		return fmt.Sprintf("expected %d output lines %q, got %d %q", len(want), want, len(got), got)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Sprintf("output line %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}
	return ""
}

func compareError(want string, err error) string {
	switch {
	case want == "" && err != nil:
		return fmt.Sprintf("unexpected error: %v", err)
	case want != "" && err == nil:
		return fmt.Sprintf("expected error %q, program succeeded", want)
	case want != "" && interpreter.ErrorTag(err) != want && !strings.Contains(err.Error(), want):
		return fmt.Sprintf("expected error %q, got %v", want, err)
	}
	return ""
}
