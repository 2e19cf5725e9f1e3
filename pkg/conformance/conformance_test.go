package conformance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBundledSuites(t *testing.T) {
	suites, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(suites) != 3 {
		t.Fatalf("expected 3 suites, got %d", len(suites))
	}

	r := &Runner{MaxSteps: 10000}
	for _, s := range suites {
		t.Run(s.Name, func(t *testing.T) {
			for _, c := range s.Tests {
				t.Run(c.Name, func(t *testing.T) {
					res := r.RunCase(context.Background(), c)
					if !res.Passed {
						t.Error(res.Failure)
					}
				})
			}
		})
	}
}

func TestRunCaseFailures(t *testing.T) {
	r := &Runner{MaxSteps: 1000}

	tests := []struct {
		name    string
		c       Case
		failure string
	}{
		{
			name:    "wrong output",
			c:       Case{Name: "x", Source: `print(1);`, Output: []string{"2"}},
			failure: `output line 1: expected "2", got "1"`,
		},
		{
			name:    "missing output",
			c:       Case{Name: "x", Source: `print(1);`},
			failure: "expected 0 output lines",
		},
		{
			name:    "unexpected error",
			c:       Case{Name: "x", Source: `print(y);`},
			failure: "unexpected error: NameError",
		},
		{
			name:    "expected error",
			c:       Case{Name: "x", Source: `x = 1;`, Error: "TypeError"},
			failure: `expected error "TypeError", program succeeded`,
		},
		{
			name:    "wrong error",
			c:       Case{Name: "x", Source: `print(y);`, Error: "TypeError"},
			failure: `expected error "TypeError", got NameError`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.RunCase(context.Background(), tt.c)
			if res.Passed {
				t.Fatal("expected the case to fail")
			}
			if !strings.Contains(res.Failure, tt.failure) {
				t.Errorf("failure = %q, want it to contain %q", res.Failure, tt.failure)
			}
		})
	}
}

func TestRunSuitesReport(t *testing.T) {
	suites := []*Suite{{
		Name: "mixed",
		Tests: []Case{
			{Name: "ok", Source: `print("a");`, Output: []string{"a"}},
			{Name: "bad", Source: `print("a");`, Output: []string{"b"}},
		},
	}}

	report := (&Runner{}).RunSuites(context.Background(), suites)
	if report.Passed() != 1 {
		t.Errorf("Passed() = %d", report.Passed())
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Suite != "mixed" || failed[0].Case != "bad" {
		t.Errorf("unexpected failures %+v", failed)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	if _, err := LoadFile(write("bad.yaml", "tests: [")); err == nil {
		t.Error("expected a YAML error")
	}
	if _, err := LoadFile(write("unnamed.yaml", "tests:\n  - source: 'print(1);'\n")); err == nil {
		t.Error("expected an error for a test without a name")
	}

	s, err := LoadFile(write("plain.yml", "tests:\n  - name: one\n    source: 'print(1);'\n    output: ['1']\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.Name != "plain.yml" || len(s.Tests) != 1 {
		t.Errorf("unexpected suite %+v", s)
	}

	if _, err := LoadDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
