// Package mcp exposes machine sessions as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/internal/metrics"
	"github.com/aretw0/turing/pkg/codec"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/aretw0/turing/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ListURI is the resource listing every machine ID.
const ListURI = "turing://machines"

// Server wraps a session manager and exposes it as an MCP Server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	metrics   *metrics.Collector
	maxSteps  int
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records run durations on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithMaxSteps is the run_machine limit used when the caller gives none.
func WithMaxSteps(n int) Option {
	return func(s *Server) {
		s.maxSteps = n
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, version string, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("turing-mcp", strings.TrimSpace(version)),
		maxSteps:  machine.DefaultMaxSteps,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Tool arguments.

type CreateArgs struct {
	Content string `json:"content"`
	Format  string `json:"format,omitempty"`
}

type RunArgs struct {
	ID       string `json:"id"`
	MaxSteps int    `json:"max_steps,omitempty"`
}

type StepArgs struct {
	ID        string `json:"id"`
	Direction string `json:"direction,omitempty"`
}

type SeekArgs struct {
	ID   string `json:"id"`
	Step int    `json:"step"`
}

type ViewArgs struct {
	ID    string `json:"id"`
	From  int    `json:"from,omitempty"`
	Count int    `json:"count,omitempty"`
}

type ExportArgs struct {
	ID     string `json:"id"`
	Format string `json:"format,omitempty"`
}

// Tool results.

type CreateResult struct {
	ID   string       `json:"id" jsonschema_description:"Session ID of the new machine"`
	View machine.View `json:"view" jsonschema_description:"Initial view of the machine"`
}

type RunResult struct {
	Outcome      domain.HaltOutcome `json:"outcome,omitempty" jsonschema_description:"successful or failed; empty when the step limit was reached"`
	Steps        int                `json:"steps" jsonschema_description:"Steps taken by this call"`
	LimitReached bool               `json:"limit_reached" jsonschema_description:"True when the machine was still running at max_steps"`
	View         machine.View       `json:"view"`
}

type StepResult struct {
	Moved   bool               `json:"moved" jsonschema_description:"False when a forward step halted or a back step was already at the first step"`
	Outcome domain.HaltOutcome `json:"outcome,omitempty"`
	View    machine.View       `json:"view"`
}

type ExportResult struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

type ListResult struct {
	IDs []string `json:"ids"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_machine",
		mcp.WithDescription("Create a machine from a .tm (XML), YAML or JSON document and return its session ID."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The machine document")),
		mcp.WithString("format", mcp.Description("Document format"), mcp.Enum("tm", "yaml", "json")),
		mcp.WithOutputSchema[CreateResult](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("run_machine",
		mcp.WithDescription("Run a machine from its current step until it halts or max_steps is reached."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("max_steps", mcp.Description("Step limit"), mcp.Min(1)),
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("step_machine",
		mcp.WithDescription("Take one step forward or back. Enters run mode when needed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("direction", mcp.Description("Step direction"), mcp.Enum("forward", "back")),
		mcp.WithOutputSchema[StepResult](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("seek_machine",
		mcp.WithDescription("Jump to a recorded step of the current run."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Target step index"), mcp.Min(0)),
		mcp.WithOutputSchema[machine.View](),
	), mcp.NewStructuredToolHandler(s.handleSeek))

	s.mcpServer.AddTool(mcp.NewTool("view_machine",
		mcp.WithDescription("Show the tape window, mode and current state of a machine."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("from", mcp.Description("First tape cell of the window")),
		mcp.WithNumber("count", mcp.Description("Window size; omitted centres a default window on the head")),
		mcp.WithOutputSchema[machine.View](),
	), mcp.NewStructuredToolHandler(s.handleView))

	s.mcpServer.AddTool(mcp.NewTool("export_machine",
		mcp.WithDescription("Encode a machine as a .tm (XML), YAML or JSON document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("format", mcp.Description("Document format"), mcp.Enum("tm", "yaml", "json")),
		mcp.WithOutputSchema[ExportResult](),
	), mcp.NewStructuredToolHandler(s.handleExport))

	s.mcpServer.AddTool(mcp.NewTool("list_machines",
		mcp.WithDescription("List every machine session ID."),
		mcp.WithOutputSchema[ListResult](),
	), mcp.NewStructuredToolHandler(s.handleList))
}

func parseFormat(s string) (codec.Format, error) {
	if s == "" {
		return codec.FormatXML, nil
	}
	return codec.ParseFormat(s)
}

func (s *Server) handleCreate(ctx context.Context, _ mcp.CallToolRequest, args CreateArgs) (CreateResult, error) {
	format, err := parseFormat(args.Format)
	if err != nil {
		return CreateResult{}, err
	}
	snap, err := codec.Unmarshal(format, []byte(args.Content))
	if err != nil {
		return CreateResult{}, err
	}
	id, m, err := s.sessions.Create(ctx, snap)
	if err != nil {
		return CreateResult{}, err
	}
	s.logger.Info("MCP: machine created", "session_id", id)
	return CreateResult{ID: id, View: m.View(0, 0)}, nil
}

func (s *Server) handleRun(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (RunResult, error) {
	limit := args.MaxSteps
	if limit <= 0 {
		limit = s.maxSteps
	}

	var res RunResult
	err := s.sessions.Do(ctx, args.ID, func(ctx context.Context, m *machine.Machine) error {
		start := time.Now()
		outcome, steps, err := m.Run(ctx, limit)
		if s.metrics != nil {
			s.metrics.ObserveRun(start)
		}
		switch {
		case errors.Is(err, domain.ErrStepLimit):
			res.LimitReached = true
		case err != nil:
			return err
		}
		res.Outcome = outcome
		res.Steps = steps
		res.View = m.View(0, 0)
		return nil
	})
	return res, err
}

func (s *Server) handleStep(ctx context.Context, _ mcp.CallToolRequest, args StepArgs) (StepResult, error) {
	var res StepResult
	err := s.sessions.Do(ctx, args.ID, func(ctx context.Context, m *machine.Machine) error {
		if !m.Running() {
			if err := m.EnterRunMode(ctx); err != nil {
				return err
			}
		}
		switch args.Direction {
		case "", "forward":
			moved, outcome, err := m.StepForward(ctx)
			if err != nil {
				return err
			}
			res.Moved, res.Outcome = moved, outcome
		case "back":
			before := m.View(0, 1).Step
			if _, err := m.StepBack(ctx); err != nil {
				return err
			}
			res.Moved = m.View(0, 1).Step != before
		default:
			return fmt.Errorf("unknown direction %q", args.Direction)
		}
		res.View = m.View(0, 0)
		return nil
	})
	return res, err
}

func (s *Server) handleSeek(ctx context.Context, _ mcp.CallToolRequest, args SeekArgs) (machine.View, error) {
	var view machine.View
	err := s.sessions.Do(ctx, args.ID, func(ctx context.Context, m *machine.Machine) error {
		if err := m.ChangeStep(ctx, args.Step); err != nil {
			return err
		}
		view = m.View(0, 0)
		return nil
	})
	return view, err
}

func (s *Server) handleView(ctx context.Context, _ mcp.CallToolRequest, args ViewArgs) (machine.View, error) {
	var view machine.View
	err := s.sessions.Do(ctx, args.ID, func(_ context.Context, m *machine.Machine) error {
		view = m.View(args.From, args.Count)
		return nil
	})
	return view, err
}

func (s *Server) handleExport(ctx context.Context, _ mcp.CallToolRequest, args ExportArgs) (ExportResult, error) {
	format, err := parseFormat(args.Format)
	if err != nil {
		return ExportResult{}, err
	}
	var data []byte
	err = s.sessions.Do(ctx, args.ID, func(_ context.Context, m *machine.Machine) error {
		var err error
		data, err = codec.Marshal(format, m.Save())
		return err
	})
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Format: string(format), Content: string(data)}, nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (ListResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{IDs: ids}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ListURI, "Machine sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list machines: %w", err)
		}
		data, err := json.Marshal(ListResult{IDs: ids})
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ListURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
