// Package web provides the embedded testlang playground UI.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
	"github.com/lemonberrylabs/testlang/pkg/runner"
	"github.com/lemonberrylabs/testlang/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	recentRuns     = 10
	executeTimeout = 10 * time.Second
)

// Handler serves the web UI pages.
type Handler struct {
	runner    *runner.Runner
	store     *store.Store
	namespace string
	funcMap   template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Namespace string
	Data      any
}

// New creates a new web UI handler showing the programs of namespace.
func New(r *runner.Runner, namespace string) *Handler {
	return &Handler{
		runner:    r,
		store:     r.Store(),
		namespace: namespace,
		funcMap: template.FuncMap{
			"shortName":  shortName,
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"duration":   duration,
			"stateClass": stateClass,
			"stateIcon":  stateIcon,
			"truncate":   truncate,
			"countLines": countLines,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page, navActive string, data any) error {
	// Each page is parsed with the layout on its own so the pages' define
	// blocks never collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Namespace: h.namespace,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/programs/:id", h.programDetail)
	app.Post("/ui/programs/:id/run", h.startRun)
	app.Get("/ui/runs/:program/:run", h.runDetail)
	app.Get("/ui/playground", h.playground)
	app.Post("/ui/playground", h.playgroundRun)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Programs       []*programView
	RecentRuns     []*runView
	ActiveCount    int
	SucceededCount int
	FailedCount    int
	CancelledCount int
}

type programView struct {
	*store.Program
	RunCount int
}

type runView struct {
	*store.Run
	ProgramID string
	RunID     string
}

type programDetailContent struct {
	Program *store.Program
	Runs    []*runView
}

type runDetailContent struct {
	Run       *store.Run
	ProgramID string
	RunID     string
}

type playgroundContent struct {
	Source   string
	Ran      bool
	Output   []string
	Error    string
	ErrorTag string
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) parent() string {
	return "namespaces/" + h.namespace
}

func (h *Handler) dashboard(c *fiber.Ctx) error {
	programs := h.store.ListPrograms(h.parent())
	runs := h.store.ListAllRuns(h.parent())

	content := dashboardContent{}
	perProgram := make(map[string]int)
	for _, r := range runs {
		perProgram[r.Program()]++
		switch r.State {
		case store.RunActive:
			content.ActiveCount++
		case store.RunSucceeded:
			content.SucceededCount++
		case store.RunFailed:
			content.FailedCount++
		case store.RunCancelled:
			content.CancelledCount++
		}
	}

	for _, p := range programs {
		content.Programs = append(content.Programs, &programView{Program: p, RunCount: perProgram[p.Name]})
	}
	if len(runs) > recentRuns {
		runs = runs[:recentRuns]
	}
	content.RecentRuns = toRunViews(runs)

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) programDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := h.store.GetProgram(store.ProgramName(h.parent(), id))
	if err != nil {
		return h.notFound(c, fmt.Sprintf("Program '%s' not found", id))
	}

	return h.render(c, "program_detail.html", "dashboard", programDetailContent{
		Program: p,
		Runs:    toRunViews(h.store.ListRuns(p.Name)),
	})
}

func (h *Handler) startRun(c *fiber.Ctx) error {
	id := c.Params("id")
	run, err := h.runner.Start(store.ProgramName(h.parent(), id))
	if err != nil {
		return h.notFound(c, fmt.Sprintf("Program '%s' not found", id))
	}
	return c.Redirect(fmt.Sprintf("/ui/runs/%s/%s", id, run.ID()), fiber.StatusSeeOther)
}

func (h *Handler) runDetail(c *fiber.Ctx) error {
	programID := c.Params("program")
	runID := c.Params("run")
	name := store.RunName(store.ProgramName(h.parent(), programID), runID)

	run, err := h.store.GetRun(name)
	if err != nil {
		return h.notFound(c, fmt.Sprintf("Run '%s' not found", runID))
	}

	return h.render(c, "run_detail.html", "dashboard", runDetailContent{
		Run:       run,
		ProgramID: programID,
		RunID:     runID,
	})
}

func (h *Handler) playground(c *fiber.Ctx) error {
	return h.render(c, "playground.html", "playground", playgroundContent{
		Source: c.Query("source"),
	})
}

func (h *Handler) playgroundRun(c *fiber.Ctx) error {
	source := c.FormValue("source")

	ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	defer cancel()
	res := h.runner.Execute(ctx, source)

	content := playgroundContent{
		Source: source,
		Ran:    true,
		Output: res.Output,
	}
	if res.Err != nil {
		content.Error = res.Err.Error()
		content.ErrorTag = interpreter.ErrorTag(res.Err)
	}
	return h.render(c, "playground.html", "playground", content)
}

func (h *Handler) notFound(c *fiber.Ctx, message string) error {
	c.Status(fiber.StatusNotFound)
	return h.render(c, "not_found.html", "", notFoundContent{Message: message})
}

func toRunViews(runs []*store.Run) []*runView {
	views := make([]*runView, len(runs))
	for i, r := range runs {
		views[i] = &runView{
			Run:       r,
			ProgramID: shortName(r.Program()),
			RunID:     r.ID(),
		}
	}
	return views
}

// --- Template Helpers ---

func shortName(fullName string) string {
	return fullName[strings.LastIndex(fullName, "/")+1:]
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return fmt.Sprintf("%s (running)", formatDuration(time.Since(start)))
	}
	return formatDuration(end.Sub(start))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

func stateClass(state store.RunState) string {
	switch state {
	case store.RunActive:
		return "state-active"
	case store.RunSucceeded:
		return "state-succeeded"
	case store.RunFailed:
		return "state-failed"
	case store.RunCancelled:
		return "state-cancelled"
	default:
		return ""
	}
}

func stateIcon(state store.RunState) template.HTML {
	switch state {
	case store.RunActive:
		return "&#9654;"
	case store.RunSucceeded:
		return "&#10003;"
	case store.RunFailed:
		return "&#10007;"
	case store.RunCancelled:
		return "&#9632;"
	default:
		return "&#8226;"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
