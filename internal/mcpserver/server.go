// Package mcpserver exposes the dispatch pipeline and passage index as
// Model Context Protocol tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/pipeline"
)

const name = "dispatch"

var (
	ErrMissingRunner = errors.New("mcp: pipeline runner is required")
	ErrMissingIndex  = errors.New("mcp: passage index is required")
)

// Runner executes one query through the pipeline.
type Runner interface {
	Run(ctx context.Context, query string) (pipeline.State, error)
}

// Stats reports index contents.
type Stats interface {
	Stats(ctx context.Context) (index.Stats, error)
}

// Server is an MCP server backed by a pipeline and an index.
type Server struct {
	runner Runner
	stats  Stats
	server *mcp.Server
}

func New(runner Runner, stats Stats, version string) (*Server, error) {
	if runner == nil {
		return nil, ErrMissingRunner
	}
	if stats == nil {
		return nil, ErrMissingIndex
	}

	s := &Server{
		runner: runner,
		stats:  stats,
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http: %w", err)
	}
	return nil
}
