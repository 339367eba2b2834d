package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/shopadmin/internal/logging"
	"github.com/dshills/shopadmin/internal/orders"
	"github.com/dshills/shopadmin/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "shopadmin"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	orders *orders.Manager
	actor  types.Actor
	logger *logging.Logger
}

// NewServer creates a new MCP server. Every write is attributed to actor.
func NewServer(manager *orders.Manager, actor types.Actor, logger *logging.Logger) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("order manager is required")
	}
	if err := actor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service actor: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		orders: manager,
		actor:  actor,
		logger: logger,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio until the client disconnects or ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp", "serving on stdio")
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) registerTools() {
	s.mcp.AddTool(createOrderTool(), s.handleCreateOrder)
	s.mcp.AddTool(getOrderTool(), s.handleGetOrder)
	s.mcp.AddTool(listOrdersTool(), s.handleListOrders)
	s.mcp.AddTool(updateOrderTool(), s.handleUpdateOrder)
	s.mcp.AddTool(deleteOrderTool(), s.handleDeleteOrder)
}
