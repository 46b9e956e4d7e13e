// Package mcp exposes the libvirt XML model as MCP tools.
package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/libvirt-mcp/pkg/hypervisor"
)

const (
	serverName    = "libvirt-mcp"
	serverVersion = "0.1.0"
)

// Server holds the MCP server and its tools. The live tools are only
// registered when a libvirt connection is available.
type Server struct {
	srv      *server.MCPServer
	conn     hypervisor.Connection
	loader   *hypervisor.Loader
	handlers map[string]server.ToolHandlerFunc
	tools    []mcp.Tool
}

// NewServer registers the document tools, plus the live tools when conn is
// not nil.
func NewServer(ctx context.Context, conn hypervisor.Connection) (*Server, error) {
	s := &Server{
		srv:      server.NewMCPServer(serverName, serverVersion, server.WithLogging()),
		conn:     conn,
		handlers: map[string]server.ToolHandlerFunc{},
	}

	if err := s.registerDocumentTools(ctx); err != nil {
		return nil, errors.Errorf("registering document tools: %w", err)
	}

	if conn != nil {
		s.loader = hypervisor.NewLoader(conn)
		if err := s.registerLiveTools(ctx); err != nil {
			return nil, errors.Errorf("registering live tools: %w", err)
		}
	}

	zerolog.Ctx(ctx).Info().Int("tools", len(s.tools)).Bool("live", conn != nil).Msg("created mcp server")
	return s, nil
}

func (s *Server) Server() *server.MCPServer {
	return s.srv
}

// ToolNames returns the registered tool names, sorted.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) Tool(name string) (mcp.Tool, bool) {
	for _, t := range s.tools {
		if t.Name == name {
			return t, true
		}
	}
	return mcp.Tool{}, false
}

// Call invokes a tool directly, bypassing the transport.
func (s *Server) Call(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, errors.Errorf("unknown tool %q", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}

func (s *Server) add(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = h
	s.srv.AddTool(tool, h)
}
