// Package mcp exposes widget scoring as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSessionID is used by tool calls that do not name a session.
const DefaultSessionID = "mcp"

// ScoreArgs are the arguments of the score_widgets tool. Either ExampleID or
// the graphs and focus node must be given.
type ScoreArgs struct {
	SessionID          string `json:"session_id,omitempty"`
	ExampleID          string `json:"example_id,omitempty"`
	FocusNode          string `json:"focus_node,omitempty"`
	WidgetScoringGraph string `json:"widget_scoring_graph,omitempty"`
	DataGraphShapes    string `json:"data_graph_shapes,omitempty"`
	ShapesGraphShapes  string `json:"shapes_graph_shapes,omitempty"`
	DataGraph          string `json:"data_graph,omitempty"`
	ShapesGraph        string `json:"shapes_graph,omitempty"`
	ConstraintShape    string `json:"constraint_shape,omitempty"`
}

// StepArgs are the arguments of the step_result tool.
type StepArgs struct {
	SessionID string `json:"session_id,omitempty"`
	Action    string `json:"action"`
	Index     int    `json:"index,omitempty"`
}

// ScoreResponse is the structured result of score_widgets and step_result.
type ScoreResponse struct {
	SessionID     string                `json:"session_id" jsonschema_description:"Session holding the result"`
	Result        *domain.ScoringResult `json:"result,omitempty" jsonschema_description:"Widget scores and execution trace"`
	CurrentStep   int                   `json:"current_step" jsonschema_description:"Selected execution step, -1 for none"`
	Step          *domain.ExecutionStep `json:"step,omitempty" jsonschema_description:"The selected execution step"`
	Error         string                `json:"error,omitempty" jsonschema_description:"Recorded evaluation error"`
	ErrorKind     domain.ErrorKind      `json:"error_kind,omitempty" jsonschema_description:"Classification of the error"`
	RuntimeStatus string                `json:"runtime_status" jsonschema_description:"Worker lifecycle state"`
}

// RuntimeResponse is the structured result of runtime_status.
type RuntimeResponse struct {
	State string           `json:"state" jsonschema_description:"uninitialized, initializing, ready or failed"`
	Kind  domain.ErrorKind `json:"kind,omitempty" jsonschema_description:"Classification of the last failure"`
	Error string           `json:"error,omitempty" jsonschema_description:"Last failure message"`
}

// Server exposes a Playground as an MCP server.
type Server struct {
	pg        *scorebridge.Playground
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Never log to stdout under the stdio transport.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(pg *scorebridge.Playground, opts ...Option) *Server {
	s := &Server{
		pg:        pg,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("scorebridge-mcp", scorebridge.Release()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over HTTP with server-sent events until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
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

func (s *Server) registerTools() {
	scoreTool := mcp.NewTool("score_widgets",
		mcp.WithDescription("Score SHACL UI widgets for a focus node. Pass example_id to score a bundled example, "+
			"or the focus node and the Turtle graphs."),
		mcp.WithString("session_id", mcp.Description("Session to record the result in (default: mcp)")),
		mcp.WithString("example_id", mcp.Description("ID of a bundled example")),
		mcp.WithString("focus_node", mcp.Description(`Focus node: an IRI, or JSON such as {"tag":"literal","value":"true","datatype":"http://www.w3.org/2001/XMLSchema#boolean"}`)),
		mcp.WithString("widget_scoring_graph", mcp.Description("Widget scoring graph (Turtle)")),
		mcp.WithString("data_graph_shapes", mcp.Description("Data graph shapes graph (Turtle)")),
		mcp.WithString("shapes_graph_shapes", mcp.Description("Shapes graph shapes graph (Turtle)")),
		mcp.WithString("data_graph", mcp.Description("Data graph (Turtle)")),
		mcp.WithString("shapes_graph", mcp.Description("Shapes graph (Turtle)")),
		mcp.WithString("constraint_shape", mcp.Description("IRI of the constraint shape")),
		mcp.WithOutputSchema[ScoreResponse](),
	)
	s.mcpServer.AddTool(scoreTool, mcp.NewStructuredToolHandler(s.handleScore))

	stepTool := mcp.NewTool("step_result",
		mcp.WithDescription("Walk the execution trace of the last scoring result."),
		mcp.WithString("session_id", mcp.Description("Session to step (default: mcp)")),
		mcp.WithString("action", mcp.Required(), mcp.Enum("next", "previous", "seek", "clear"),
			mcp.Description("Cursor movement")),
		mcp.WithNumber("index", mcp.Description("Step index for seek; -1 deselects")),
		mcp.WithOutputSchema[ScoreResponse](),
	)
	s.mcpServer.AddTool(stepTool, mcp.NewStructuredToolHandler(s.handleStep))

	statusTool := mcp.NewTool("runtime_status",
		mcp.WithDescription("Report whether the scoring runtime is provisioned."),
		mcp.WithOutputSchema[RuntimeResponse](),
	)
	s.mcpServer.AddTool(statusTool, mcp.NewStructuredToolHandler(s.handleRuntimeStatus))
}

func (s *Server) handleScore(ctx context.Context, request mcp.CallToolRequest, args ScoreArgs) (ScoreResponse, error) {
	req, err := s.scoringRequest(ctx, args)
	if err != nil {
		return ScoreResponse{}, err
	}

	sessionID := sessionOrDefault(args.SessionID)
	snap, err := s.pg.Evaluate(ctx, sessionID, req)
	if snap == nil {
		return ScoreResponse{}, fmt.Errorf("scoring failed: %w", err)
	}
	if err != nil {
		s.logger.Warn("MCP scoring failed", "session_id", sessionID, "kind", domain.KindOf(err), "err", err)
	}
	return s.response(snap, err), nil
}

func (s *Server) scoringRequest(ctx context.Context, args ScoreArgs) (domain.ScoringRequest, error) {
	if args.ExampleID != "" {
		return s.pg.ExampleRequest(ctx, args.ExampleID)
	}
	if args.FocusNode == "" {
		return domain.ScoringRequest{}, errors.New("focus_node is required when example_id is not given")
	}
	node, err := parseFocusNode(args.FocusNode)
	if err != nil {
		return domain.ScoringRequest{}, err
	}
	return domain.ScoringRequest{
		FocusNode:          node,
		WidgetScoringGraph: args.WidgetScoringGraph,
		DataGraphShapes:    args.DataGraphShapes,
		ShapesGraphShapes:  args.ShapesGraphShapes,
		DataGraph:          args.DataGraph,
		ShapesGraph:        args.ShapesGraph,
		ConstraintShape:    args.ConstraintShape,
	}, nil
}

// parseFocusNode accepts the JSON wire form or a bare IRI.
func parseFocusNode(raw string) (domain.FocusNode, error) {
	if len(raw) > 0 && raw[0] == '{' {
		node, err := domain.DeserializeFocusNode([]byte(raw))
		if err != nil {
			return domain.FocusNode{}, fmt.Errorf("invalid focus_node: %w", err)
		}
		return node, nil
	}
	node := domain.NamedTerm(raw)
	if err := node.Validate(); err != nil {
		return domain.FocusNode{}, fmt.Errorf("invalid focus_node: %w", err)
	}
	return node, nil
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args StepArgs) (ScoreResponse, error) {
	sessionID := sessionOrDefault(args.SessionID)

	var (
		snap *scorebridge.Snapshot
		err  error
	)
	switch args.Action {
	case "next":
		snap, err = s.pg.Next(ctx, sessionID)
	case "previous":
		snap, err = s.pg.Previous(ctx, sessionID)
	case "seek":
		snap, err = s.pg.Seek(ctx, sessionID, args.Index)
	case "clear":
		snap, err = s.pg.Clear(ctx, sessionID)
	default:
		return ScoreResponse{}, fmt.Errorf("unknown action %q", args.Action)
	}
	if err != nil {
		return ScoreResponse{}, err
	}
	return s.response(snap, nil), nil
}

func (s *Server) handleRuntimeStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RuntimeResponse, error) {
	state, err := s.pg.RuntimeState()
	resp := RuntimeResponse{State: state.String()}
	if err != nil {
		resp.Error = err.Error()
		resp.Kind = domain.KindOf(err)
	}
	return resp, nil
}

func (s *Server) response(snap *scorebridge.Snapshot, evalErr error) ScoreResponse {
	state, _ := s.pg.RuntimeState()
	resp := ScoreResponse{
		SessionID:     snap.ID,
		Result:        snap.Steps.Result,
		CurrentStep:   snap.Steps.CurrentStep,
		Step:          snap.Step,
		RuntimeStatus: state.String(),
	}
	if snap.Steps.IsError {
		resp.Error = snap.Steps.ErrorMessage
	}
	if evalErr != nil {
		resp.ErrorKind = domain.KindOf(evalErr)
	}
	return resp
}

func sessionOrDefault(id string) string {
	if id == "" {
		return DefaultSessionID
	}
	return id
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("scorebridge://examples", "Bundled scoring examples",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.examples(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "scorebridge://examples",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server) examples(ctx context.Context) ([]ports.Example, error) {
	src, err := s.pg.Examples()
	if errors.Is(err, scorebridge.ErrNoExamples) {
		return []ports.Example{}, nil
	}
	if err != nil {
		return nil, err
	}
	return src.List(ctx)
}
