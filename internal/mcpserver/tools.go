package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/pipeline"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"a weather question or a question about indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Response    string   `json:"response"`
	Category    string   `json:"category"`
	Entity      string   `json:"entity,omitempty"`
	Sources     []string `json:"sources"`
	Success     bool     `json:"success"`
	HandlerUsed string   `json:"handler_used"`
}

// StatsInput is the empty input schema for the index_stats tool.
type StatsInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Route a question to the weather or document handler and return the answer",
	}, s.Ask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Report how many passages and sources the document index holds",
	}, s.IndexStats)
}

// Ask runs input.Query through the pipeline.
func (s *Server) Ask(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, AskOutput{}, pipeline.ErrEmptyQuery
	}

	st, err := s.runner.Run(ctx, query)
	if err != nil {
		return nil, AskOutput{}, fmt.Errorf("run query: %w", err)
	}

	return nil, AskOutput{
		Response:    st.Response,
		Category:    string(st.Category),
		Entity:      st.Entity,
		Sources:     st.Sources,
		Success:     st.Success,
		HandlerUsed: st.HandlerUsed,
	}, nil
}

// IndexStats returns the current index statistics.
func (s *Server) IndexStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, index.Stats, error) {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, index.Stats{}, fmt.Errorf("index stats: %w", err)
	}
	return nil, stats, nil
}
