// Package mcpsrv exposes the research agent as a Model Context Protocol
// tool server, so MCP-compatible clients can drive a research request
// the same way they'd call any other tool.
package mcpsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/deeprlabs/deepr"
)

// Server wraps the mcp-go server with a single deepr.Agent.
type Server struct {
	mcpServer *mcpserver.MCPServer
	agent     *deepr.Agent
}

// New creates and configures an MCP server exposing the "research" tool.
func New(agent *deepr.Agent) *Server {
	s := &Server{agent: agent}

	s.mcpServer = mcpserver.NewMCPServer(
		"deepr",
		"0.1.0",
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ListenAndServe exposes the tool server over MCP's StreamableHTTP
// transport on addr.
func (s *Server) ListenAndServe(addr string) error {
	handler := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return http.ListenAndServe(addr, handler)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("research",
			mcplib.WithDescription("Run a deep research agent against a question and return a cited answer"),
			mcplib.WithString("question", mcplib.Description("The question to research"), mcplib.Required()),
		),
		s.handleResearch,
	)
}

func (s *Server) handleResearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	question := request.GetString("question", "")
	if question == "" {
		return errorResult("question is required"), nil
	}

	result, err := s.agent.Answer(ctx, question)
	if err != nil {
		return errorResult(fmt.Sprintf("research failed: %v", err)), nil
	}

	resultData, err := json.MarshalIndent(map[string]any{
		"answer":       result.Answer.AnswerText,
		"references":   result.Answer.References,
		"visited_urls": result.VisitedURLs,
		"cost":         result.Cost,
	}, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err)), nil
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
