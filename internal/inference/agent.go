// Package inference adapts a go-agents chat agent to the pipeline's
// inference contract.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/pkg/metrics"
)

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("empty model response")

// Agent satisfies pipeline.Inference with one Chat call per request.
// A fresh go-agents agent is created per call so concurrent runs never
// share conversation state.
type Agent struct {
	cfg    gaconfig.AgentConfig
	logger *slog.Logger
}

func New(cfg gaconfig.AgentConfig, logger *slog.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		logger: logger.With("system", "inference"),
	}
}

func (a *Agent) Complete(ctx context.Context, req pipeline.Request) (string, error) {
	return a.chat(ctx, req, "")
}

func (a *Agent) CompleteStructured(ctx context.Context, req pipeline.Request, schema string) (string, error) {
	return a.chat(ctx, req, schema)
}

func (a *Agent) chat(ctx context.Context, req pipeline.Request, schema string) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCall("inference", start, err) }()

	prompt, err := Compose(req, schema)
	if err != nil {
		return "", err
	}

	cfg := a.cfg
	ag, err := agent.New(&cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := ag.Chat(ctx, prompt, map[string]any{"temperature": req.Temperature})
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	text = strings.TrimSpace(resp.Content())
	if text == "" {
		return "", ErrEmptyResponse
	}

	a.logger.DebugContext(ctx, "inference complete",
		"structured", schema != "",
		"temperature", req.Temperature,
		"duration", time.Since(start),
	)
	return text, nil
}

// Compose joins the instructions, the rendered user template, and, for
// structured calls, the output schema into a single chat prompt.
func Compose(req pipeline.Request, schema string) (string, error) {
	rendered, err := req.Render()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if instr := strings.TrimSpace(req.Instructions); instr != "" {
		sb.WriteString(instr)
		sb.WriteString("\n\n")
	}
	sb.WriteString(rendered)
	if schema = strings.TrimSpace(schema); schema != "" {
		sb.WriteString("\n\nRespond with JSON only, matching:\n")
		sb.WriteString(schema)
	}
	return sb.String(), nil
}
