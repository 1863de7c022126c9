package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS passages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	page        TEXT NOT NULL DEFAULT '',
	document_id TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source);
CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(document_id);

CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
	content,
	content='passages',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS passages_ai AFTER INSERT ON passages BEGIN
	INSERT INTO passages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS passages_ad AFTER DELETE ON passages BEGIN
	INSERT INTO passages_fts(passages_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
`

// SQLite is a file-backed index using an FTS5 external-content table.
// WAL mode lets readers proceed while a writer indexes. Writers in this
// process take mu; transactions begin IMMEDIATE so writers in other
// processes wait on busy_timeout instead of failing on lock upgrade.
type SQLite struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSQLite opens or creates the index database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite index: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Index(ctx context.Context, passages []Passage) (int, error) {
	passages = clean(passages)
	if len(passages) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin index tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO passages(source, page, document_id, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.Source, p.Page, p.DocumentID, p.Content); err != nil {
			return 0, fmt.Errorf("insert passage from %s: %w", p.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit index tx: %w", err)
	}
	return len(passages), nil
}

func (s *SQLite) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		return []Passage{}, nil
	}

	out := make([]Passage, 0, k)
	seen := make(map[int64]struct{})

	if match := ftsQuery(query); match != "" {
		rows, err := s.db.QueryContext(ctx, `
			SELECT p.id, p.content, p.source, p.page, p.document_id
			FROM passages_fts
			JOIN passages p ON p.id = passages_fts.rowid
			WHERE passages_fts MATCH ?
			ORDER BY bm25(passages_fts), p.id
			LIMIT ?`, match, k)
		if err != nil {
			return nil, fmt.Errorf("search passages: %w", err)
		}
		if out, err = collect(rows, out, seen); err != nil {
			return nil, err
		}
	}

	if len(out) < k {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, content, source, page, document_id
			FROM passages
			ORDER BY id
			LIMIT ?`, k+len(seen))
		if err != nil {
			return nil, fmt.Errorf("fill passages: %w", err)
		}
		if out, err = collect(rows, out, seen); err != nil {
			return nil, err
		}
	}

	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *SQLite) RemoveSource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM passages WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("remove source %s: %w", source, err)
	}
	return affected(res)
}

func (s *SQLite) RemoveDocument(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM passages WHERE document_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("remove document %s: %w", id, err)
	}
	return affected(res)
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: BackendSQLite}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT source) FROM passages`).
		Scan(&stats.Passages, &stats.Sources)
	if err != nil {
		return Stats{}, fmt.Errorf("passage stats: %w", err)
	}
	return stats, nil
}

func (s *SQLite) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("reset passages: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// ftsQuery turns free text into an FTS5 OR-query of quoted terms.
func ftsQuery(query string) string {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

func collect(rows *sql.Rows, out []Passage, seen map[int64]struct{}) ([]Passage, error) {
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			p  Passage
		)
		if err := rows.Scan(&id, &p.Content, &p.Source, &p.Page, &p.DocumentID); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return out, nil
}
