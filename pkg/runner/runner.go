// Package runner executes stored programs in the background and records
// their output in the store.
package runner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
	"github.com/lemonberrylabs/testlang/pkg/store"
	"github.com/lemonberrylabs/testlang/pkg/worker"
)

// Runner starts runs and tracks the ones still executing so they can be
// cancelled.
type Runner struct {
	store    *store.Store
	maxSteps int

	mu      sync.Mutex
	active  map[string]context.CancelFunc
	waiters map[string]chan struct{}
}

// New creates a runner writing to s. maxSteps bounds every run; zero means
// no limit.
func New(s *store.Store, maxSteps int) *Runner {
	return &Runner{
		store:    s,
		maxSteps: maxSteps,
		active:   make(map[string]context.CancelFunc),
		waiters:  make(map[string]chan struct{}),
	}
}

// Store returns the underlying store.
func (r *Runner) Store() *store.Store {
	return r.store
}

// Start creates a run of the program's current revision and executes it
// asynchronously.
func (r *Runner) Start(programName string) (*store.Run, error) {
	run, err := r.store.CreateRun(programName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.mu.Lock()
	r.active[run.Name] = cancel
	r.waiters[run.Name] = done
	r.mu.Unlock()

	go r.execute(ctx, run, done)
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *store.Run, done chan struct{}) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.active[run.Name]; ok {
			cancel()
			delete(r.active, run.Name)
		}
		r.mu.Unlock()
	}()

	opts := interpreter.Options{MaxSteps: r.maxSteps}
	for msg := range worker.Start(ctx, run.Source, opts) {
		switch msg.Kind {
		case worker.KindLog:
			if err := r.store.AppendOutput(run.Name, msg.Text); err != nil {
				log.Printf("Warning: could not record output of %s: %v", run.Name, err)
			}
		case worker.KindErr:
			if err := r.store.FailRun(run.Name, msg.Err); err != nil {
				log.Printf("Warning: could not record failure of %s: %v", run.Name, err)
			}
		case worker.KindDone:
			// FailRun and CancelRun leave the run inactive, so this only
			// completes runs that ended cleanly.
			if err := r.store.CompleteRun(run.Name); err != nil {
				log.Printf("Warning: could not record completion of %s: %v", run.Name, err)
			}
		}
	}
}

// Cancel stops an active run and marks it cancelled.
func (r *Runner) Cancel(runName string) (*store.Run, error) {
	if err := r.store.CancelRun(runName); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cancel, ok := r.active[runName]; ok {
		cancel()
	}
	r.mu.Unlock()

	return r.store.GetRun(runName)
}

// Wait blocks until the run finished executing or ctx is done, and returns
// its final record.
func (r *Runner) Wait(ctx context.Context, runName string) (*store.Run, error) {
	r.mu.Lock()
	done, ok := r.waiters[runName]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("run '%s' was not started by this runner: %w", runName, store.ErrNotFound)
	}

	select {
	case <-done:
		return r.store.GetRun(runName)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Execute runs source synchronously without storing it.
func (r *Runner) Execute(ctx context.Context, source string) worker.Result {
	return worker.Run(ctx, source, interpreter.Options{MaxSteps: r.maxSteps})
}

// IsActive reports whether the run is still executing.
func (r *Runner) IsActive(runName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[runName]
	return ok
}
