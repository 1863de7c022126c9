package documents

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/ingest"
	"github.com/JaimeStill/dispatch/pkg/pagination"
	"github.com/JaimeStill/dispatch/pkg/query"
	"github.com/JaimeStill/dispatch/pkg/repository"
	"github.com/JaimeStill/dispatch/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	ingester   Ingester
	unindexer  Unindexer
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
// unindexer may be nil when passages are removed by the database cascade.
func New(
	db *sql.DB,
	store storage.System,
	ingester Ingester,
	unindexer Unindexer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		ingester:   ingester,
		unindexer:  unindexer,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "ContentType")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	body, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download blob: %w", err)
	}
	return doc, body, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidFile)
	}
	kind, err := ingest.Detect(cmd.Filename, cmd.ContentType)
	if err != nil {
		return nil, err
	}

	var pageCount *int
	if kind == ingest.KindPDF {
		n, err := ingest.PageCount(cmd.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
		pageCount = &n
	}

	id := uuid.New()
	key := storage.Key("documents", id.String(), cmd.Filename)

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := `
		INSERT INTO documents(id, filename, content_type, size_bytes, page_count, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		` + returning

	insertArgs := []any{
		id,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		pageCount,
		key,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "document registered", "id", d.ID, "filename", d.Filename)

	return r.index(ctx, d, cmd)
}

// index ingests the upload and records the outcome on the row.
func (r *repo) index(ctx context.Context, d Document, cmd CreateCommand) (*Document, error) {
	res, ingestErr := r.ingester.IngestDocument(ctx, ingest.Document{
		DocumentID:  d.ID.String(),
		Name:        cmd.Filename,
		ContentType: cmd.ContentType,
		Data:        cmd.Data,
	})

	status := StatusIndexed
	var msg *string
	if ingestErr != nil {
		status = StatusFailed
		text := ingestErr.Error()
		msg = &text
		r.logger.WarnContext(ctx, "document indexing failed", "id", d.ID, "error", ingestErr)
	}

	q := `
		UPDATE documents
		SET status = $2, passage_count = $3, error = $4, updated_at = NOW()
		WHERE id = $1
		` + returning

	updated, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, []any{d.ID, status, res.Passages, msg}, scanDocument)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "document indexed",
		"id", updated.ID,
		"status", updated.Status,
		"passages", updated.PassageCount,
	)
	return &updated, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	err = repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return repository.ExecExpectOne(ctx, tx, "DELETE FROM documents WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if r.unindexer != nil {
		if _, err := r.unindexer.RemoveDocument(ctx, id.String()); err != nil {
			r.logger.Warn("passage removal failed after DB delete", "id", id, "error", err)
		}
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.InfoContext(ctx, "document deleted", "id", id)
	return nil
}
