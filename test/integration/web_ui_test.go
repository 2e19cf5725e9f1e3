package integration

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// uiURL builds a URL for the web UI.
func uiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/ui" + path
}

func getPage(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from %s, got %d", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestWebUI_DashboardLoads(t *testing.T) {
	requireServer(t)

	id := uniqueID("ui-dash")
	createProgram(t, id, loadProgram(t, "hello.tstl"))

	body := getPage(t, uiURL(""))
	if !strings.Contains(body, "<html") || !strings.Contains(body, id) {
		t.Error("dashboard should list the deployed program")
	}
}

func TestWebUI_RunDetail(t *testing.T) {
	requireServer(t)

	id := uniqueID("ui-run")
	rr := deployAndRun(t, id, loadProgram(t, "hello.tstl"))
	runID := rr.Name[strings.LastIndex(rr.Name, "/")+1:]

	body := getPage(t, uiURL("/runs/"+id+"/"+runID))
	if !strings.Contains(body, "Hello World") || !strings.Contains(body, "SUCCEEDED") {
		t.Error("run page should show the output and state")
	}
}

func TestWebUI_Playground(t *testing.T) {
	requireServer(t)

	resp, err := http.PostForm(uiURL("/playground"), url.Values{"source": {`print("from the form");`}})
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "from the form") {
		t.Error("playground should show the program output")
	}
}
