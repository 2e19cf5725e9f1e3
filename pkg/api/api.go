// Package api implements the testlang playground REST API: one-shot
// execution plus stored programs and their runs.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/lemonberrylabs/testlang/pkg/interpreter"
	"github.com/lemonberrylabs/testlang/pkg/runner"
	"github.com/lemonberrylabs/testlang/pkg/store"
)

// SourceExt is the file extension of testlang programs.
const SourceExt = ".tstl"

// executeTimeout bounds a synchronous /v1/execute call.
const executeTimeout = 10 * time.Second

// Server is the REST API server.
type Server struct {
	app    *fiber.App
	runner *runner.Runner
	store  *store.Store
}

// Config tunes the HTTP server.
type Config struct {
	// AccessLog enables the fiber request logger.
	AccessLog bool
}

// New creates a new API server.
func New(r *runner.Runner, cfg Config) *Server {
	srv := &Server{
		runner: r,
		store:  r.Store(),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	app.Post("/v1/execute", srv.execute)

	// Programs
	app.Post("/v1/namespaces/:namespace/programs", srv.createProgram)
	app.Get("/v1/namespaces/:namespace/programs/:program", srv.getProgram)
	app.Get("/v1/namespaces/:namespace/programs", srv.listPrograms)
	app.Patch("/v1/namespaces/:namespace/programs/:program", srv.updateProgram)
	app.Delete("/v1/namespaces/:namespace/programs/:program", srv.deleteProgram)

	// Runs
	app.Post("/v1/namespaces/:namespace/programs/:program/runs", srv.createRun)
	app.Get("/v1/namespaces/:namespace/programs/:program/runs/:run", srv.getRun)
	app.Get("/v1/namespaces/:namespace/programs/:program/runs", srv.listRuns)
	app.Post("/v1/namespaces/:namespace/programs/:program/runs/:run\\:cancel", srv.cancelRun)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Execute ---

type executeRequest struct {
	Source string `json:"source"`
}

func (s *Server) execute(c *fiber.Ctx) error {
	var req executeRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), executeTimeout)
	defer cancel()
	res := s.runner.Execute(ctx, req.Source)

	output := res.Output
	if output == nil {
		output = []string{}
	}
	body := fiber.Map{"output": output}
	if res.Err != nil {
		body["error"] = errorToJSON(res.Err)
	}
	return c.JSON(body)
}

// --- Program Handlers ---

type programRequest struct {
	SourceContents string `json:"sourceContents"`
	Description    string `json:"description"`
}

var validProgramID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func (s *Server) createProgram(c *fiber.Ctx) error {
	parent := buildParent(c)
	programID := c.Query("programId")
	if programID == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "programId query parameter is required")
	}
	if !validProgramID.MatchString(programID) {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid programId %q", programID))
	}

	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}
	if req.SourceContents == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "sourceContents is required")
	}
	if err := interpreter.Check(req.SourceContents); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid program: %v", err))
	}

	p, err := s.store.CreateProgram(parent, programID, req.SourceContents, req.Description)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) getProgram(c *fiber.Ctx) error {
	p, err := s.store.GetProgram(buildProgramName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) listPrograms(c *fiber.Ctx) error {
	programs := s.store.ListPrograms(buildParent(c))

	items := make([]fiber.Map, len(programs))
	for i, p := range programs {
		items[i] = programToJSON(p)
	}
	return c.JSON(fiber.Map{"programs": items})
}

func (s *Server) updateProgram(c *fiber.Ctx) error {
	name := buildProgramName(c)

	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}

	source := req.SourceContents
	if source == "" {
		existing, err := s.store.GetProgram(name)
		if err != nil {
			return storeError(c, err)
		}
		source = existing.Source
	} else if err := interpreter.Check(source); err != nil {
		return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid program: %v", err))
	}

	p, err := s.store.UpdateProgram(name, source, req.Description)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) deleteProgram(c *fiber.Ctx) error {
	if err := s.store.DeleteProgram(buildProgramName(c)); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"done": true})
}

// --- Run Handlers ---

func (s *Server) createRun(c *fiber.Ctx) error {
	run, err := s.runner.Start(buildProgramName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

func (s *Server) getRun(c *fiber.Ctx) error {
	run, err := s.store.GetRun(buildRunName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	name := buildProgramName(c)
	if _, err := s.store.GetProgram(name); err != nil {
		return storeError(c, err)
	}
	runs := s.store.ListRuns(name)

	items := make([]fiber.Map, len(runs))
	for i, run := range runs {
		items[i] = runToJSON(run)
	}
	return c.JSON(fiber.Map{"runs": items})
}

func (s *Server) cancelRun(c *fiber.Ctx) error {
	run, err := s.runner.Cancel(buildRunName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

// --- Directory Loading ---

// LoadDir deploys every *.tstl file in dir as a program under parent. The
// file name without extension becomes the program ID. Files that do not
// parse are skipped with a warning.
func (s *Server) LoadDir(dir, parent string) (int, error) {
	return LoadDir(s.store, dir, parent)
}

// LoadDir is the store-level form of Server.LoadDir.
func LoadDir(st *store.Store, dir, parent string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading programs directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != SourceExt {
			continue
		}

		base := strings.TrimSuffix(name, SourceExt)
		programID := strings.ToLower(base)
		if programID != base {
			log.Printf("Warning: lowercased program ID %q (from file %q)", programID, name)
		}
		if !validProgramID.MatchString(programID) || len(programID) > 128 {
			log.Printf("Warning: skipping file %q, invalid program ID %q", name, programID)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", name, err)
			continue
		}
		if err := interpreter.Check(string(data)); err != nil {
			log.Printf("Warning: could not parse %q: %v", name, err)
			continue
		}
		if _, err := st.CreateProgram(parent, programID, string(data), ""); err != nil {
			log.Printf("Warning: could not deploy %q: %v", name, err)
			continue
		}

		loaded++
		log.Printf("Loaded program %q from %s", programID, name)
	}

	log.Printf("Loaded %d program(s) from %s", loaded, dir)
	return loaded, nil
}

// --- Helpers ---

func buildParent(c *fiber.Ctx) string {
	return "namespaces/" + c.Params("namespace")
}

func buildProgramName(c *fiber.Ctx) string {
	return store.ProgramName(buildParent(c), c.Params("program"))
}

func buildRunName(c *fiber.Ctx) string {
	return store.RunName(buildProgramName(c), c.Params("run"))
}

func apiError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// storeError maps store sentinel errors to HTTP statuses.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return apiError(c, fiber.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, store.ErrNotActive):
		return apiError(c, fiber.StatusBadRequest, "FAILED_PRECONDITION", err.Error())
	default:
		return apiError(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func errorToJSON(err error) fiber.Map {
	return fiber.Map{
		"payload": err.Error(),
		"tag":     interpreter.ErrorTag(err),
	}
}

func programToJSON(p *store.Program) fiber.Map {
	return fiber.Map{
		"name":           p.Name,
		"description":    p.Description,
		"revisionId":     p.RevisionID,
		"createTime":     p.CreateTime.Format(time.RFC3339),
		"updateTime":     p.UpdateTime.Format(time.RFC3339),
		"sourceContents": p.Source,
	}
}

func runToJSON(run *store.Run) fiber.Map {
	output := run.Output
	if output == nil {
		output = []string{}
	}
	result := fiber.Map{
		"name":              run.Name,
		"state":             run.State,
		"output":            output,
		"startTime":         run.StartTime.Format(time.RFC3339),
		"programRevisionId": run.ProgramRevisionID,
	}
	if run.Error != nil {
		result["error"] = fiber.Map{
			"payload": run.Error.Payload,
			"tag":     run.Error.Tag,
		}
	}
	if !run.EndTime.IsZero() {
		result["endTime"] = run.EndTime.Format(time.RFC3339)
	}
	return result
}
