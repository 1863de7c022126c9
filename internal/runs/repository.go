package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/pkg/pagination"
	"github.com/JaimeStill/dispatch/pkg/query"
	"github.com/JaimeStill/dispatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	exec       Executor
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a run repository implementing the System interface.
func New(
	db *sql.DB,
	exec Executor,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		exec:       exec,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Query", "Response")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) Execute(ctx context.Context, cmd ExecuteCommand) (*Run, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	st, runErr := r.exec.Run(ctx, cmd.Query)
	return r.record(ctx, cmd.Query, st, time.Since(start), runErr)
}

func (r *repo) Stream(ctx context.Context, cmd ExecuteCommand, send func(Event) error) (*Run, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	var (
		final  pipeline.State
		runErr error
	)

	for snap, err := range r.exec.Stream(ctx, cmd.Query) {
		if err != nil {
			runErr = err
			break
		}
		final = snap.State
		if err := send(Event{Stage: snap.Stage, State: &snap.State}); err != nil {
			cancel()
			return nil, fmt.Errorf("send %s snapshot: %w", snap.Stage, err)
		}
	}

	return r.record(ctx, cmd.Query, final, time.Since(start), runErr)
}

// record persists a run outcome, even when the request context is done.
// When runErr is set the run is stored with its error and runErr is returned.
func (r *repo) record(ctx context.Context, query string, st pipeline.State, elapsed time.Duration, runErr error) (*Run, error) {
	if st.Query == "" {
		st = pipeline.NewState(query)
	}
	run := fromState(st, elapsed, runErr)

	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}

	q := `
		INSERT INTO runs(query, category, entity, rationale, response, sources, success, handler_used, duration_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		` + returning

	args := []any{
		run.Query,
		run.Category,
		run.Entity,
		run.Rationale,
		run.Response,
		sourcesJSON,
		run.Success,
		run.HandlerUsed,
		run.DurationMs,
		run.Error,
	}

	saveCtx := context.WithoutCancel(ctx)
	saved, err := repository.WithTx(saveCtx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(saveCtx, tx, q, args, scanRun)
	})
	if err != nil {
		if runErr != nil {
			r.logger.Warn("failed run not recorded", "error", err)
			return nil, runErr
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if runErr != nil {
		r.logger.WarnContext(ctx, "run failed", "id", saved.ID, "error", runErr)
		return &saved, runErr
	}

	r.logger.InfoContext(ctx, "run recorded",
		"id", saved.ID,
		"category", saved.Category,
		"handler", saved.HandlerUsed,
		"success", saved.Success,
	)
	return &saved, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	err := repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return repository.ExecExpectOne(ctx, tx, "DELETE FROM runs WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("run deleted", "id", id)
	return nil
}
