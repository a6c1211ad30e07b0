// Package mcpserver exposes the catalog agent's tools over the Model
// Context Protocol, on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

// Server adapts the registry's listing and ordering tools to MCP.
type Server struct {
	mcpServer *server.MCPServer
	reg       *registry.Registry
	catalog   *catalog.Gateway
	executor  *order.Executor
}

// New registers one MCP tool per listing or ordering spec in reg.
func New(name, version string, reg *registry.Registry, gw *catalog.Gateway, ex *order.Executor) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		reg:       reg,
		catalog:   gw,
		executor:  ex,
	}
	for _, spec := range reg.Specs() {
		switch {
		case reg.Is(spec.Name, registry.Listing):
			s.mcpServer.AddTool(toolFor(spec), s.handleList)
		case reg.Is(spec.Name, registry.Ordering):
			s.mcpServer.AddTool(toolFor(spec), s.handleOrder)
		}
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcpServer }

// ServeStdio blocks serving MCP on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// HTTPHandler serves stateless streamable HTTP at path.
func (s *Server) HTTPHandler(path string) http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer,
		server.WithEndpointPath(path),
		server.WithStateLess(true),
	)
}

func toolFor(spec registry.ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, f := range spec.Input {
		popts := []mcp.PropertyOption{mcp.Description(f.Name)}
		if !f.Optional {
			popts = append(popts, mcp.Required())
		}
		switch f.Type {
		case registry.TypeInteger, registry.TypeNumber:
			opts = append(opts, mcp.WithNumber(f.Name, popts...))
		case registry.TypeObject:
			opts = append(opts, mcp.WithObject(f.Name, popts...))
		case registry.TypeArray:
			opts = append(opts, mcp.WithArray(f.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(f.Name, popts...))
		}
	}
	return mcp.NewTool(spec.Name, opts...)
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.catalog.List(ctx)
	return structured(map[string]any{"products": snap.Products})
}

func (s *Server) handleOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := intent.Intent{Tool: request.Params.Name, Args: request.GetArguments()}
	ex, err := s.executor.Execute(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("order failed: %v", err)), nil
	}
	return structured(map[string]any{"order": ex.Order})
}

func structured(v map[string]any) (*mcp.CallToolResult, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultStructured(v, string(text)), nil
}
