package ingest

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of ingesting one file from disk.
type FileResult struct {
	Path   string
	Result Result
	Err    error
}

// IngestFile reads and ingests the file at path. The source name is the file's base name.
func (i *Ingester) IngestFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	name := filepath.Base(path)
	return i.IngestDocument(ctx, Document{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Data:        data,
	})
}

// Batch ingests paths with at most concurrency files in flight. Per-file
// failures are reported in the results; only context cancellation aborts the batch.
func (i *Ingester) Batch(ctx context.Context, paths []string, concurrency int) ([]FileResult, error) {
	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))

	for idx, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := i.IngestFile(ctx, path)

			results[idx] = FileResult{Path: path, Result: res, Err: err}

			if err != nil {
				i.logger.WarnContext(ctx, "ingest failed", "path", path, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
