package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/ingest"
	"github.com/JaimeStill/dispatch/pkg/pagination"
)

// System defines the public contract for document registry operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)

	// Create stores the upload, registers it, and indexes its passages.
	// An indexing failure is recorded on the returned document rather
	// than returned as an error.
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)

	// Download returns the document and a reader over its stored bytes.
	// The caller must close the reader.
	Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error)

	// Delete removes the row, the blob, and the document's passages.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ingester indexes a document's passages.
type Ingester interface {
	IngestDocument(ctx context.Context, doc ingest.Document) (ingest.Result, error)
}

// Unindexer removes a document's passages by document id. It is only
// needed for index backends whose passages are not cascaded from the
// documents table. Filenames are not unique, so removal never goes by source.
type Unindexer interface {
	RemoveDocument(ctx context.Context, id string) (int, error)
}
