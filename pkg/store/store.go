// Package store provides in-memory storage for testlang programs and their
// runs.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
)

var (
	// ErrNotFound is wrapped by every lookup of a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is wrapped when creating a program under a taken name.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotActive is wrapped when cancelling a run that already finished.
	ErrNotActive = errors.New("not active")
)

// RunState represents the state of a program run.
type RunState string

const (
	RunActive    RunState = "ACTIVE"
	RunSucceeded RunState = "SUCCEEDED"
	RunFailed    RunState = "FAILED"
	RunCancelled RunState = "CANCELLED"
)

// Program is a stored testlang source file.
type Program struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RevisionID  string    `json:"revisionId"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
	Source      string    `json:"sourceContents"`
}

// ID returns the last segment of the program name.
func (p *Program) ID() string {
	return lastSegment(p.Name)
}

// Run is one execution of a program revision.
type Run struct {
	Name              string    `json:"name"`
	State             RunState  `json:"state"`
	Source            string    `json:"-"`
	Output            []string  `json:"output"`
	Error             *RunError `json:"error,omitempty"`
	StartTime         time.Time `json:"startTime"`
	EndTime           time.Time `json:"endTime,omitempty"`
	ProgramRevisionID string    `json:"programRevisionId"`
}

// ID returns the last segment of the run name.
func (r *Run) ID() string {
	return lastSegment(r.Name)
}

// Program returns the name of the program the run belongs to.
func (r *Run) Program() string {
	if i := strings.LastIndex(r.Name, "/runs/"); i >= 0 {
		return r.Name[:i]
	}
	return ""
}

// RunError describes why a run failed.
type RunError struct {
	Payload string `json:"payload"`
	Tag     string `json:"tag,omitempty"`
}

// Store is a thread-safe in-memory storage for programs and runs. Getters
// return copies, so callers may read them while runs keep writing output.
type Store struct {
	mu       sync.RWMutex
	programs map[string]*Program
	runs     map[string]*Run

	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		programs: make(map[string]*Program),
		runs:     make(map[string]*Run),
	}
}

// ProgramName builds the full name of a program.
func ProgramName(parent, programID string) string {
	return fmt.Sprintf("%s/programs/%s", parent, programID)
}

// RunName builds the full name of a run.
func RunName(programName, runID string) string {
	return fmt.Sprintf("%s/runs/%s", programName, runID)
}

// CreateProgram stores a new program.
func (s *Store) CreateProgram(parent, programID, source, description string) (*Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ProgramName(parent, programID)
	if _, exists := s.programs[name]; exists {
		return nil, fmt.Errorf("program '%s': %w", name, ErrAlreadyExists)
	}

	now := time.Now()
	p := &Program{
		Name:        name,
		Description: description,
		RevisionID:  s.nextRevision(),
		CreateTime:  now,
		UpdateTime:  now,
		Source:      source,
	}
	s.programs[name] = p
	return p.clone(), nil
}

// GetProgram retrieves a program by its full name.
func (s *Store) GetProgram(name string) (*Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[name]
	if !ok {
		return nil, fmt.Errorf("program '%s': %w", name, ErrNotFound)
	}
	return p.clone(), nil
}

// ListPrograms returns all programs under a parent ordered by name.
func (s *Store) ListPrograms(parent string) []*Program {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Program
	prefix := parent + "/programs/"
	for name, p := range s.programs {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			result = append(result, p.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateProgram replaces a program's source and bumps its revision. An empty
// description keeps the old one.
func (s *Store) UpdateProgram(name, source, description string) (*Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[name]
	if !ok {
		return nil, fmt.Errorf("program '%s': %w", name, ErrNotFound)
	}

	p.Source = source
	if description != "" {
		p.Description = description
	}
	p.RevisionID = s.nextRevision()
	p.UpdateTime = time.Now()
	return p.clone(), nil
}

// DeleteProgram removes a program and its runs.
func (s *Store) DeleteProgram(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.programs[name]; !ok {
		return fmt.Errorf("program '%s': %w", name, ErrNotFound)
	}
	delete(s.programs, name)

	prefix := name + "/runs/"
	for runName := range s.runs {
		if strings.HasPrefix(runName, prefix) {
			delete(s.runs, runName)
		}
	}
	return nil
}

// CreateRun records a new active run of the program's current revision.
func (s *Store) CreateRun(programName string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[programName]
	if !ok {
		return nil, fmt.Errorf("program '%s': %w", programName, ErrNotFound)
	}

	r := &Run{
		Name:              RunName(programName, uuid.NewString()),
		State:             RunActive,
		Source:            p.Source,
		StartTime:         time.Now(),
		ProgramRevisionID: p.RevisionID,
	}
	s.runs[r.Name] = r
	return r.clone(), nil
}

// GetRun retrieves a run by name.
func (s *Store) GetRun(name string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[name]
	if !ok {
		return nil, fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	return r.clone(), nil
}

// ListRuns returns the runs of a program, newest first.
func (s *Store) ListRuns(programName string) []*Run {
	return s.listRuns(programName + "/runs/")
}

// ListAllRuns returns the runs of every program under parent, newest first.
func (s *Store) ListAllRuns(parent string) []*Run {
	return s.listRuns(parent + "/programs/")
}

func (s *Store) listRuns(prefix string) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Run
	for name, r := range s.runs {
		if strings.HasPrefix(name, prefix) {
			result = append(result, r.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.After(result[j].StartTime)
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// AppendOutput adds one output line to an active run. Lines arriving after
// the run finished are dropped.
func (s *Store) AppendOutput(name, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[name]
	if !ok {
		return fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	if r.State == RunActive {
		r.Output = append(r.Output, line)
	}
	return nil
}

// CompleteRun marks a run as succeeded.
func (s *Store) CompleteRun(name string) error {
	return s.finish(name, RunSucceeded, nil)
}

// FailRun marks a run as failed with err.
func (s *Store) FailRun(name string, err error) error {
	runErr := &RunError{Payload: err.Error(), Tag: interpreter.ErrorTag(err)}
	return s.finish(name, RunFailed, runErr)
}

// finish moves an active run into a final state. A run that was cancelled
// meanwhile keeps its cancelled state.
func (s *Store) finish(name string, state RunState, runErr *RunError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[name]
	if !ok {
		return fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	if r.State != RunActive {
		return nil
	}
	r.State = state
	r.Error = runErr
	r.EndTime = time.Now()
	return nil
}

// CancelRun marks an active run as cancelled.
func (s *Store) CancelRun(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[name]
	if !ok {
		return fmt.Errorf("run '%s': %w", name, ErrNotFound)
	}
	if r.State != RunActive {
		return fmt.Errorf("run '%s' (state: %s): %w", name, r.State, ErrNotActive)
	}

	r.State = RunCancelled
	r.EndTime = time.Now()
	return nil
}

// nextRevision must be called with s.mu held.
func (s *Store) nextRevision() string {
	s.revCounter++
	return fmt.Sprintf("%06d-000", s.revCounter)
}

func (p *Program) clone() *Program {
	c := *p
	return &c
}

func (r *Run) clone() *Run {
	c := *r
	c.Output = append([]string(nil), r.Output...)
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

func lastSegment(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}
