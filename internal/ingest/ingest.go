// Package ingest extracts text from uploaded files, splits it into passages,
// and writes them to a passage index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/pkg/formatting"
	"github.com/JaimeStill/dispatch/pkg/metrics"
)

// Indexer receives extracted passages.
type Indexer interface {
	Index(ctx context.Context, passages []index.Passage) (int, error)
}

// Document is a file to ingest. DocumentID links passages to a registry row and may be empty.
type Document struct {
	DocumentID  string
	Name        string
	ContentType string
	Data        []byte
}

// Result describes one ingested file.
type Result struct {
	Source   string `json:"source"`
	Kind     Kind   `json:"kind"`
	Pages    int    `json:"pages"`
	Passages int    `json:"passages"`
	Bytes    int64  `json:"bytes"`
}

// Ingester turns files into indexed passages.
type Ingester struct {
	indexer Indexer
	chunker *Chunker
	logger  *slog.Logger
}

func New(indexer Indexer, chunker *Chunker, logger *slog.Logger) *Ingester {
	if chunker == nil {
		chunker = NewChunker()
	}
	return &Ingester{
		indexer: indexer,
		chunker: chunker,
		logger:  logger.With("system", "ingest"),
	}
}

// Ingest indexes a file and returns the number of passages stored.
func (i *Ingester) Ingest(ctx context.Context, name, contentType string, data []byte) (int, error) {
	res, err := i.IngestDocument(ctx, Document{Name: name, ContentType: contentType, Data: data})
	if err != nil {
		return 0, err
	}
	return res.Passages, nil
}

// IngestDocument extracts, chunks, and indexes doc.
func (i *Ingester) IngestDocument(ctx context.Context, doc Document) (Result, error) {
	kind, err := Detect(doc.Name, doc.ContentType)
	if err != nil {
		return Result{}, err
	}

	passages, pages, err := i.Passages(kind, doc)
	if err != nil {
		return Result{}, err
	}

	n, err := i.indexer.Index(ctx, passages)
	if err != nil {
		return Result{}, fmt.Errorf("index %s: %w", doc.Name, err)
	}
	metrics.AddIndexed(n)

	i.logger.InfoContext(ctx, "document ingested",
		"source", doc.Name,
		"kind", kind,
		"pages", pages,
		"passages", n,
		"size", formatting.FormatBytes(int64(len(doc.Data)), 1),
	)

	return Result{
		Source:   doc.Name,
		Kind:     kind,
		Pages:    pages,
		Passages: n,
		Bytes:    int64(len(doc.Data)),
	}, nil
}

// Passages extracts and chunks doc without indexing it. It returns the
// passages and the number of pages that held text.
func (i *Ingester) Passages(kind Kind, doc Document) ([]index.Passage, int, error) {
	pages, err := Extract(kind, doc.Name, doc.Data)
	if err != nil {
		return nil, 0, err
	}

	var passages []index.Passage
	withText := 0
	for _, p := range pages {
		chunks := i.chunker.Split(p.Text)
		if len(chunks) > 0 {
			withText++
		}
		for _, c := range chunks {
			passages = append(passages, index.Passage{
				Content:    c,
				Source:     doc.Name,
				Page:       p.Number,
				DocumentID: doc.DocumentID,
			})
		}
	}

	if len(passages) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoText, doc.Name)
	}
	return passages, withText, nil
}
