package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/dispatch/pkg/repository"
)

// Postgres ranks passages with ts_rank over a generated tsvector column.
// Passages linked to a document are removed by the documents foreign key cascade.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection pool. The passages table is created by migrations.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Index(ctx context.Context, passages []Passage) (int, error) {
	passages = clean(passages)
	if len(passages) == 0 {
		return 0, nil
	}

	return repository.WithTx(ctx, p.db, func(tx *sql.Tx) (int, error) {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO passages(document_id, source, page, content)
			VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return 0, fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, ps := range passages {
			if _, err := stmt.ExecContext(ctx, nullableID(ps.DocumentID), ps.Source, ps.Page, ps.Content); err != nil {
				return 0, fmt.Errorf("insert passage from %s: %w", ps.Source, err)
			}
		}
		return len(passages), nil
	})
}

func (p *Postgres) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		return []Passage{}, nil
	}

	q := `
		SELECT content, source, page, COALESCE(document_id::text, '')
		FROM passages
		ORDER BY ts_rank(tsv, websearch_to_tsquery('english', $1)) DESC, created_at, id
		LIMIT $2`

	passages, err := repository.QueryMany(ctx, p.db, q, []any{query, k}, scanPassage)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	return passages, nil
}

func (p *Postgres) RemoveSource(ctx context.Context, source string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM passages WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("remove source %s: %w", source, err)
	}
	return affected(res)
}

func (p *Postgres) RemoveDocument(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, nil
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM passages WHERE document_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("remove document %s: %w", id, err)
	}
	return affected(res)
}

func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: BackendPostgres}
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT source) FROM passages`).
		Scan(&stats.Passages, &stats.Sources)
	if err != nil {
		return Stats{}, fmt.Errorf("passage stats: %w", err)
	}
	return stats, nil
}

func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("reset passages: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the database system.
func (p *Postgres) Close() error { return nil }

func scanPassage(s repository.Scanner) (Passage, error) {
	var p Passage
	err := s.Scan(&p.Content, &p.Source, &p.Page, &p.DocumentID)
	return p, err
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
