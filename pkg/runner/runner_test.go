package runner

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lemonberrylabs/testlang/pkg/store"
	"github.com/lemonberrylabs/testlang/pkg/types"
)

const parent = "namespaces/default"

func newRunner(t *testing.T, id, source string, maxSteps int) (*Runner, string) {
	t.Helper()
	s := store.New()
	p, err := s.CreateProgram(parent, id, source, "")
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	return New(s, maxSteps), p.Name
}

func waitRun(t *testing.T, r *Runner, name string) *store.Run {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := r.Wait(ctx, name)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return run
}

func TestStartSucceeds(t *testing.T) {
	r, program := newRunner(t, "count", "i = 1;\ncome from loop;\nprint(i);\ni = i + 1;\n{\n  // loop\n} unless i > 3;\n", 0)

	run, err := r.Start(program)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	got := waitRun(t, r, run.Name)

	if got.State != store.RunSucceeded {
		t.Fatalf("state = %s, error = %+v", got.State, got.Error)
	}
	want := []string{"1", "2", "3"}
	if len(got.Output) != len(want) {
		t.Fatalf("output = %q", got.Output)
	}
	for i := range want {
		if got.Output[i] != want[i] {
			t.Errorf("output[%d] = %q, want %q", i, got.Output[i], want[i])
		}
	}
	if r.IsActive(run.Name) {
		t.Error("finished run should not be active")
	}
}

func TestStartFails(t *testing.T) {
	r, program := newRunner(t, "bad", `print("before"); print(missing);`, 0)

	run, _ := r.Start(program)
	got := waitRun(t, r, run.Name)

	if got.State != store.RunFailed || got.Error == nil || got.Error.Tag != types.TagNameError {
		t.Errorf("unexpected run %+v", got)
	}
	if len(got.Output) != 1 {
		t.Errorf("output before the error should be kept: %q", got.Output)
	}
}

func TestStepLimit(t *testing.T) {
	r, program := newRunner(t, "spin", "come from spin;\n// spin\n", 50)

	run, _ := r.Start(program)
	got := waitRun(t, r, run.Name)
	if got.State != store.RunFailed || got.Error.Tag != types.TagResourceLimitError {
		t.Errorf("unexpected run %+v", got)
	}
}

func TestCancel(t *testing.T) {
	r, program := newRunner(t, "spin", "come from spin;\n// spin\n", 0)

	run, _ := r.Start(program)
	cancelled, err := r.Cancel(run.Name)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.State != store.RunCancelled {
		t.Errorf("state = %s", cancelled.State)
	}

	got := waitRun(t, r, run.Name)
	if got.State != store.RunCancelled {
		t.Errorf("state after the engine stopped = %s", got.State)
	}

	if _, err := r.Cancel(run.Name); !errors.Is(err, store.ErrNotActive) {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestExecute(t *testing.T) {
	r := New(store.New(), 0)
	res := r.Execute(context.Background(), `print("ab" * 3);`)
	if res.Err != nil || len(res.Output) != 1 || res.Output[0] != "ababab" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRecordingErrorsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	r, program := newRunner(t, "spin", "come from spin;\nprint(1);\n// spin\n", 0)
	run, err := r.Start(program)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Deleting the program drops the run record while it is still executing.
	if err := r.Store().DeleteProgram(program); err != nil {
		t.Fatalf("delete: %v", err)
	}
	r.mu.Lock()
	stop := r.active[run.Name]
	r.mu.Unlock()
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.Wait(ctx, run.Name); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected the run to be gone, got %v", err)
	}

	for _, want := range []string{"could not record failure", "could not record completion"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("expected %q in logs:\n%s", want, logs.String())
		}
	}
}
