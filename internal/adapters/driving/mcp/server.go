package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/xtctx/internal/logger"
)

// ServerName is the implementation name announced to clients.
const ServerName = "xtctx"

// instructions is sent to clients during initialisation.
const instructions = `xtctx is shared memory across AI coding tools on this machine.
Call xtctx_search before starting work to see what earlier sessions did.
Record durable outcomes with xtctx_save_decision, xtctx_save_error_solution
or xtctx_save_insight. Near-duplicates are rejected and close matches supersede the older record.`

// Server is the MCP server for xtctx.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if version == "" {
		version = "dev"
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	server.AddReceivingMiddleware(logRequests)

	s := &Server{ports: ports, server: server}
	s.registerTools()
	s.registerResources()

	return s, nil
}

// logRequests traces every inbound method at debug level.
func logRequests(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		start := time.Now()
		res, err := next(ctx, method, req)
		if err != nil {
			logger.Debug("mcp: %s failed after %s: %v", method, time.Since(start), err)
		} else {
			logger.Debug("mcp: %s in %s", method, time.Since(start))
		}
		return res, err
	}
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP streamable HTTP transport on addr.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: http shutdown: %v", err)
		}
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
