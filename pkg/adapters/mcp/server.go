package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/internal/logging"
	presentation "github.com/aretw0/compositor/internal/presentation/graph"
	"github.com/aretw0/compositor/pkg/adapters/file"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	graphURI   = "compositor://graph"
	mermaidURI = "compositor://graph/mermaid"
)

// RenderResponse aligns with the OpenAPI schema and provides a unified structure across adapters.
type RenderResponse struct {
	NodeID    string        `json:"node_id" jsonschema_description:"The rendered node"`
	Time      string        `json:"time" jsonschema_description:"Render time as a rational number of seconds"`
	Type      string        `json:"type" jsonschema_description:"Value type of the node's primary output"`
	Value     any           `json:"value,omitempty" jsonschema_description:"Primary output; textures are summarized by size"`
	Evaluated int           `json:"evaluated" jsonschema_description:"Nodes computed during this render"`
	CacheHits int           `json:"cache_hits" jsonschema_description:"Nodes served from cache during this render"`
	Degraded  []ports.Fault `json:"degraded,omitempty" jsonschema_description:"Nodes that fell back to default outputs"`
}

// Engine defines the interface required by the MCP server to drive the compositor.
type Engine interface {
	ports.Compositor
}

// Server wraps the compositor Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("compositor-mcp", compositor.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on the given port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
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

func (s *Server) registerTools() {
	// TOOL: render_frame
	renderTool := mcp.NewTool("render_frame",
		mcp.WithDescription("Evaluate a node at a point in time and report its primary output."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The ID of the node to render")),
		mcp.WithString("time", mcp.Description(`Seconds as "num/den", a decimal or an integer (default 0)`)),
		mcp.WithOutputSchema[RenderResponse](),
	)
	s.mcpServer.AddTool(renderTool, mcp.NewStructuredToolHandler(s.handleRenderFrame))

	// TOOL: render_image
	s.mcpServer.AddTool(mcp.NewTool("render_image",
		mcp.WithDescription("Render a texture-producing node at a point in time and return it as a PNG image."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The ID of the node to render")),
		mcp.WithString("time", mcp.Description("Render time (default 0)")),
	), s.handleRenderImage)

	// TOOL: set_parameter
	s.mcpServer.AddTool(mcp.NewTool("set_parameter",
		mcp.WithDescription("Replace an input parameter of a node with a static value or keyframes."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("port", mcp.Required(), mcp.Description("Input port name")),
		mcp.WithString("value", mcp.Description(`Static value as JSON (e.g. 2.5, true, "#ff0000"); bare text is taken as a string`)),
		mcp.WithString("keyframes", mcp.Description(`JSON array of {"time","value","interp"} keys`)),
	), s.handleSetParameter)

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full graph document for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := s.graphJSON()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleRenderFrame(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RenderResponse, error) {
	nodeID, _ := args["node_id"].(string)
	t, err := parseTime(args["time"])
	if err != nil {
		return RenderResponse{}, err
	}

	res, err := s.engine.Render(ctx, nodeID, t)
	if err != nil {
		return RenderResponse{}, fmt.Errorf("render failed: %w", err)
	}

	return RenderResponse{
		NodeID:    res.NodeID,
		Time:      res.Time.String(),
		Type:      string(res.Value.Type()),
		Value:     schema.APIValue(res.Value),
		Evaluated: res.Evaluated,
		CacheHits: res.CacheHits,
		Degraded:  res.Degraded,
	}, nil
}

func (s *Server) handleRenderImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	nodeID, _ := args["node_id"].(string)
	t, err := parseTime(args["time"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.engine.Render(ctx, nodeID, t)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	img, ok := res.Value.AsTexture()
	if !ok || img == nil {
		return mcp.NewToolResultError(fmt.Sprintf("node %q produced %s, not a texture", nodeID, res.Value.Type())), nil
	}

	var buf bytes.Buffer
	if err := file.Encode(&buf, img, file.FormatPNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	b := img.Bounds()
	caption := fmt.Sprintf("%s at %s (%dx%d)", nodeID, res.Time, b.Dx(), b.Dy())
	return mcp.NewToolResultImage(caption, base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"), nil
}

func (s *Server) handleSetParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	nodeID, _ := args["node_id"].(string)
	port, _ := args["port"].(string)

	var param schema.ParamDoc
	if raw, ok := args["value"].(string); ok && raw != "" {
		param.Value = decodeLoose(raw)
	}
	if raw, ok := args["keyframes"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &param.Keyframes); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid keyframes: %v", err)), nil
		}
	}
	if param.Value == nil && len(param.Keyframes) == 0 {
		return mcp.NewToolResultError("either value or keyframes is required"), nil
	}

	if err := s.engine.SetParameter(ctx, nodeID, port, param); err != nil {
		s.logger.Warn("MCP set_parameter rejected", "node", nodeID, "port", port, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s.%s updated", nodeID, port)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: compositor://graph
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Current Graph Document",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := s.graphJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to inspect graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	// EXPOSE: compositor://graph/mermaid
	s.mcpServer.AddResource(mcp.NewResource(mermaidURI, "Graph Diagram",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		doc, err := s.engine.Document()
		if err != nil {
			return nil, fmt.Errorf("failed to inspect graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      mermaidURI,
				MIMEType: "text/plain",
				Text:     presentation.GenerateMermaid(doc, nil),
			},
		}, nil
	})
}

func (s *Server) graphJSON() ([]byte, error) {
	doc, err := s.engine.Document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func parseTime(raw any) (domain.Time, error) {
	switch x := raw.(type) {
	case nil:
		return domain.NewTime(0, 1), nil
	case string:
		if x == "" {
			return domain.NewTime(0, 1), nil
		}
		return domain.ParseTime(x)
	case float64:
		return domain.Seconds(x)
	}
	return domain.Time{}, fmt.Errorf("invalid time %v", raw)
}

// decodeLoose reads raw as JSON, falling back to the literal text so color names
// and other strings need no quoting.
func decodeLoose(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
