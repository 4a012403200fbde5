// Package mcp exposes the route registry to agents as an MCP server.
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

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/internal/dto"
	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/route"
	"github.com/aretw0/stanza/pkg/script"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RoutesURI is the resource listing every registered route.
const RoutesURI = "stanza://routes"

// Resolver matches and binds a keyword occurrence without invoking it.
type Resolver interface {
	Resolve(ctx context.Context, kw *domain.Keyword) error
}

// RouteLister lists registered routes.
type RouteLister interface {
	Routes() []*route.Route
	RoutesByName(name string) []*route.Route
}

// RoutesResponse is the structured result of list_routes.
type RoutesResponse struct {
	Routes []dto.RouteInfo `json:"routes" jsonschema_description:"Registered routes in registration order"`
}

// ValidateResponse is the structured result of validate_script.
type ValidateResponse struct {
	Keywords int               `json:"keywords" jsonschema_description:"Number of keyword occurrences read"`
	Failures []dto.MatchResult `json:"failures" jsonschema_description:"Occurrences that could not be routed or bound"`
}

// Server wraps the route registry and exposes it as an MCP Server.
type Server struct {
	routes    RouteLister
	resolver  Resolver
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(routes RouteLister, resolver Resolver, opts ...Option) *Server {
	s := &Server{
		routes:    routes,
		resolver:  resolver,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stanza-mcp", strings.TrimSpace(stanza.Version)),
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
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
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

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: match_keyword
	matchTool := mcp.NewTool("match_keyword",
		mcp.WithDescription("Resolve one tab-delimited script line to the route that would serve it, without running it."),
		mcp.WithString("line", mcp.Required(), mcp.Description("Script line, cells separated by TAB")),
		mcp.WithOutputSchema[dto.MatchResult](),
	)
	s.mcpServer.AddTool(matchTool, mcp.NewStructuredToolHandler(s.handleMatch))

	// TOOL: list_routes
	listTool := mcp.NewTool("list_routes",
		mcp.WithDescription("List registered routes, optionally only those with the given keyword name."),
		mcp.WithString("name", mcp.Description("Keyword name, the first constant token of a route (optional)")),
		mcp.WithOutputSchema[RoutesResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListRoutes))

	// TOOL: validate_script
	validateTool := mcp.NewTool("validate_script",
		mcp.WithDescription("Route and bind every line of a script without running it."),
		mcp.WithString("script", mcp.Required(), mcp.Description("Script text")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))
}

func (s *Server) handleMatch(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (dto.MatchResult, error) {
	line, _ := args["line"].(string)
	kw, err := script.ParseLine(line)
	if err != nil {
		return dto.MatchResult{}, fmt.Errorf("invalid line: %w", err)
	}
	if kw == nil {
		return dto.MatchResult{}, errors.New("line holds no keyword")
	}

	err = s.resolver.Resolve(ctx, kw)
	if err != nil {
		s.logger.Debug("MCP match_keyword: unresolved", "keyword", kw.String(), "err", err)
	}
	return dto.NewMatchResult(kw, err), nil
}

func (s *Server) handleListRoutes(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RoutesResponse, error) {
	routes := s.routes.Routes()
	if name, _ := args["name"].(string); name != "" {
		routes = s.routes.RoutesByName(name)
	}
	return RoutesResponse{Routes: dto.NewRouteInfos(routes)}, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	text, _ := args["script"].(string)
	scenarios, err := script.NewReader().Read("mcp", strings.NewReader(text))
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("invalid script: %w", err)
	}

	resp := ValidateResponse{Failures: []dto.MatchResult{}}
	for _, sc := range scenarios {
		for _, kw := range sc.Keywords {
			resp.Keywords++
			if err := s.resolver.Resolve(ctx, kw); err != nil {
				resp.Failures = append(resp.Failures, dto.NewMatchResult(kw, err))
			}
		}
	}
	return resp, nil
}

func (s *Server) registerResources() {
	// EXPOSE: stanza://routes
	s.mcpServer.AddResource(mcp.NewResource(RoutesURI, "Registered Routes",
		mcp.WithMIMEType("application/json"),
	), s.readRoutes)
}

func (s *Server) readRoutes(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(dto.NewRouteInfos(s.routes.Routes()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode routes: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RoutesURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
