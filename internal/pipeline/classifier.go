package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/pkg/metrics"
)

const classifyTemplate = `User Query: {{.query}}`

type classifyResponse struct {
	Category  Category `json:"category"`
	Rationale string   `json:"rationale"`
	Entity    string   `json:"entity"`
}

// Classifier assigns a query to exactly one Category with a single structured call.
type Classifier struct {
	inf         Inference
	prompts     prompts.Source
	temperature float64
	logger      *slog.Logger
}

func NewClassifier(inf Inference, src prompts.Source, temperature float64, logger *slog.Logger) *Classifier {
	return &Classifier{
		inf:         inf,
		prompts:     src,
		temperature: temperature,
		logger:      logger.With("system", "classifier"),
	}
}

// Classify returns the query's category, rationale, and entity. Inference and
// decode failures are returned wrapped in ErrClassifyFailed.
func (c *Classifier) Classify(ctx context.Context, query string) (result Classification, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCall("classify", start, err) }()

	instructions, err := c.prompts.Instructions(ctx, prompts.StageClassify)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}
	schema, err := c.prompts.Spec(ctx, prompts.StageClassify)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	resp, err := Structured[classifyResponse](ctx, c.inf, Request{
		Instructions: instructions,
		Template:     classifyTemplate,
		Variables:    map[string]any{"query": query},
		Temperature:  c.temperature,
	}, schema)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	result = Classification{
		Category:  ParseCategory(string(resp.Category)),
		Rationale: resp.Rationale,
		Entity:    resp.Entity,
	}

	c.logger.InfoContext(ctx, "query classified",
		"category", result.Category,
		"entity", result.Entity,
	)
	return result, nil
}
