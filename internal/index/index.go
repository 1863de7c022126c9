// Package index stores document passages and retrieves the most relevant
// ones for a query. Backends rank lexically: BM25 in memory, FTS5 in SQLite,
// and ts_rank in PostgreSQL.
package index

import (
	"context"
	"database/sql"
	"fmt"
)

// Passage is a chunk of document text with its provenance.
type Passage struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	Page       string `json:"page,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// PageLabel returns the page indicator, or "?" when none was recorded.
func (p Passage) PageLabel() string {
	if p.Page == "" {
		return "?"
	}
	return p.Page
}

// Stats summarizes the contents of an index.
type Stats struct {
	Backend  string `json:"backend"`
	Passages int    `json:"passages"`
	Sources  int    `json:"sources"`
}

// Store is a passage index. Implementations are safe for concurrent use;
// passages written by Index become visible to subsequent Retrieve calls.
type Store interface {
	// Index adds passages and returns how many were stored. Blank passages are skipped.
	Index(ctx context.Context, passages []Passage) (int, error)
	// Retrieve returns up to k passages ordered by relevance to query.
	// A non-empty index always yields at least one passage; an empty index yields none.
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
	// RemoveSource deletes every passage from the named source.
	RemoveSource(ctx context.Context, source string) (int, error)
	// RemoveDocument deletes the passages indexed for one registered
	// document. An empty id matches nothing.
	RemoveDocument(ctx context.Context, id string) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Reset(ctx context.Context) error
	Close() error
}

// New opens the backend named by cfg. The postgres backend requires db.
func New(cfg *Config, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres backend requires a database connection", ErrInvalidBackend)
		}
		return NewPostgres(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.Backend)
	}
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func clean(passages []Passage) []Passage {
	out := make([]Passage, 0, len(passages))
	for _, p := range passages {
		if isBlank(p.Content) {
			continue
		}
		out = append(out, p)
	}
	return out
}
