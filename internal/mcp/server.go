package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"blockpad/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for blockpad.
// It exposes tools, resources, and prompts so AI agents can edit documents.
type Server struct {
	mcp  *server.MCPServer
	docs *service.DocumentService

	// Active document context (set by create_document / open_document)
	mu          sync.Mutex
	activeDocID string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Documents *service.DocumentService
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{docs: deps.Documents}

	s.mcp = server.NewMCPServer(
		"blockpad-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerDocumentTools()
	s.registerEditTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server, e.g. for an SSE transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func (s *Server) setActive(id string) {
	s.mu.Lock()
	s.activeDocID = id
	s.mu.Unlock()
}

// resolveDocID returns documentId from the tool args or falls back to the
// active document.
func (s *Server) resolveDocID(req mcp.CallToolRequest) (string, error) {
	if id := req.GetString("documentId", ""); id != "" {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeDocID != "" {
		return s.activeDocID, nil
	}
	return "", fmt.Errorf("no documentId provided and no active document (use open_document first)")
}

func boolPtr(v bool) *bool { return &v }
