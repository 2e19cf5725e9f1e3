// Package integration exercises a running "testlang serve" instance over its
// REST API, gRPC services and web UI. Point TESTLANG_URL and
// TESTLANG_GRPC_ENDPOINT at the server; tests skip when it is unreachable.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var (
	testServer   = "http://localhost:8787"
	grpcEndpoint = "localhost:8788"
	namespace    = "default"
	// parentPath is set in init() from the namespace.
	parentPath string
)

func init() {
	if v := os.Getenv("TESTLANG_URL"); v != "" {
		testServer = v
	}
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}
	if v := os.Getenv("TESTLANG_GRPC_ENDPOINT"); v != "" {
		grpcEndpoint = v
	}
	if v := os.Getenv("NAMESPACE"); v != "" {
		namespace = v
	}
	parentPath = "namespaces/" + namespace
}

var (
	probeOnce sync.Once
	serverUp  bool
)

// requireServer skips the test when no server answers at testServer.
func requireServer(t *testing.T) {
	t.Helper()
	probeOnce.Do(func() {
		client := http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(apiURL(parentPath + "/programs"))
		if err == nil {
			resp.Body.Close()
			serverUp = true
		}
	})
	if !serverUp {
		t.Skipf("no testlang server at %s", testServer)
	}
}

var idCounter atomic.Int64

// uniqueID returns a program ID that does not collide across runs.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano()%1_000_000, idCounter.Add(1))
}

// loadProgram reads a program from the testdata directory.
func loadProgram(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "programs", name))
	if err != nil {
		t.Fatalf("failed to load program %s: %v", name, err)
	}
	return string(data)
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

// doJSON sends body as JSON and decodes the JSON response.
func doJSON(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("%s %s: decode error: %v", method, url, err)
	}
	return resp.StatusCode, result
}

// createProgram deploys source and returns the program resource name
// (e.g., "namespaces/default/programs/my-program").
func createProgram(t *testing.T, programID, source string) string {
	t.Helper()

	url := apiURL(parentPath+"/programs") + "?programId=" + programID
	code, result := doJSON(t, http.MethodPost, url, map[string]any{"sourceContents": source})
	if code != http.StatusOK {
		t.Fatalf("createProgram failed with status %d: %v", code, result)
	}
	name, _ := result["name"].(string)
	if name == "" {
		t.Fatalf("createProgram: no name in response: %v", result)
	}
	return name
}

// runResult is the final state of a run.
type runResult struct {
	Name   string
	State  string
	Output []string
	Error  map[string]any
	Raw    map[string]any
}

// startRun starts a run of the named program and waits for it to finish.
func startRun(t *testing.T, programName string) runResult {
	t.Helper()

	code, run := doJSON(t, http.MethodPost, apiURL(programName+"/runs"), nil)
	if code != http.StatusOK {
		t.Fatalf("startRun failed with status %d: %v", code, run)
	}
	runName, _ := run["name"].(string)
	if runName == "" {
		t.Fatalf("startRun: no run name in response: %v", run)
	}
	return waitForRun(t, runName, 30*time.Second)
}

// waitForRun polls the run until it reaches a terminal state.
func waitForRun(t *testing.T, runName string, timeout time.Duration) runResult {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("run %s did not complete within %s", runName, timeout)
		}

		_, run := doJSON(t, http.MethodGet, apiURL(runName), nil)
		state, _ := run["state"].(string)
		if state != "ACTIVE" {
			rr := runResult{Name: runName, State: state, Raw: run}
			if lines, ok := run["output"].([]any); ok {
				for _, l := range lines {
					s, _ := l.(string)
					rr.Output = append(rr.Output, s)
				}
			}
			rr.Error, _ = run["error"].(map[string]any)
			return rr
		}

		time.Sleep(100 * time.Millisecond)
	}
}

// deployAndRun is a convenience that creates a program, runs it and returns
// the finished run.
func deployAndRun(t *testing.T, programID, source string) runResult {
	t.Helper()
	return startRun(t, createProgram(t, programID, source))
}

// assertOutput checks that the run succeeded with the expected output.
func assertOutput(t *testing.T, rr runResult, want ...string) {
	t.Helper()
	if rr.State != "SUCCEEDED" {
		t.Fatalf("expected SUCCEEDED but got %s; error: %v", rr.State, rr.Error)
	}
	if strings.Join(rr.Output, "\n") != strings.Join(want, "\n") {
		t.Errorf("output mismatch:\n  expected: %q\n  actual:   %q", want, rr.Output)
	}
}

// assertFailed checks that the run failed with the given error tag.
func assertFailed(t *testing.T, rr runResult, tag string) {
	t.Helper()
	if rr.State != "FAILED" {
		t.Fatalf("expected FAILED but got %s; output: %q", rr.State, rr.Output)
	}
	if got, _ := rr.Error["tag"].(string); got != tag {
		t.Errorf("expected error tag %s, got %v", tag, rr.Error)
	}
}
