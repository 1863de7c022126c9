package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/prompts"
	"github.com/JaimeStill/dispatch/pkg/metrics"
)

const (
	HandlerDocument = "document"

	NoDocumentsMessage = "I don't have any documents indexed yet. Please upload a PDF first."

	passageSeparator = "\n\n---\n\n"

	documentTemplate = `Context from documents:
{{.context}}

User Question: {{.question}}

Answer:`
)

// DocumentHandler answers questions from retrieved passages.
type DocumentHandler struct {
	retriever   Retriever
	inf         Inference
	prompts     prompts.Source
	k           int
	temperature float64
	logger      *slog.Logger
}

func NewDocumentHandler(retriever Retriever, inf Inference, src prompts.Source, k int, temperature float64, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		retriever:   retriever,
		inf:         inf,
		prompts:     src,
		k:           k,
		temperature: temperature,
		logger:      logger.With("system", "document-handler"),
	}
}

// Handle retrieves passages for query and answers from them. Retrieval and
// inference errors become an apologetic response.
func (h *DocumentHandler) Handle(ctx context.Context, query string) Outcome {
	out := Outcome{Sources: []string{}, HandlerUsed: HandlerDocument}

	start := time.Now()
	passages, err := h.retriever.Retrieve(ctx, query, h.k)
	metrics.ObserveCall("retrieve", start, err)
	if err != nil {
		out.Response = documentError(err)
		return out
	}

	if len(passages) == 0 {
		out.Response = NoDocumentsMessage
		return out
	}

	instructions, err := composeInstructions(ctx, h.prompts, prompts.StageDocument)
	if err != nil {
		out.Response = documentError(err)
		return out
	}

	text, err := h.inf.Complete(ctx, Request{
		Instructions: instructions,
		Template:     documentTemplate,
		Variables: map[string]any{
			"context":  BuildContext(passages),
			"question": query,
		},
		Temperature: h.temperature,
	})
	if err != nil {
		out.Response = documentError(err)
		return out
	}

	out.Response = text
	out.Sources = Sources(passages)
	out.Success = len(out.Sources) > 0

	h.logger.InfoContext(ctx, "document question answered",
		"passages", len(passages),
		"sources", len(out.Sources),
	)
	return out
}

func documentError(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error while searching the documents: %v", err)
}

// BuildContext tags each passage with its source and page and joins them.
func BuildContext(passages []index.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("[Source: %s, Page %s]\n%s", p.Source, p.PageLabel(), p.Content)
	}
	return strings.Join(parts, passageSeparator)
}

// Sources returns the distinct source names of passages in sorted order.
func Sources(passages []index.Passage) []string {
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Source != "" {
			out = append(out, p.Source)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
