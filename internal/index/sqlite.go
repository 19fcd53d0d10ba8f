// Package index provides the transcript search index and per-caller
// searchers on top of it.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	_ "modernc.org/sqlite"

	"github.com/rcliao/voice-memories/internal/model"
)

// SQLiteIndex stores search documents in SQLite. It is a cache over the
// transcript files and can be rebuilt from them at any time.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// NewSQLiteIndex opens or creates an index database at the given path.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	x := &SQLiteIndex{db: db, path: dbPath}
	if err := x.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return x, nil
}

func (x *SQLiteIndex) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		memory_id   TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		folded      TEXT NOT NULL,
		thumbnail   TEXT,
		indexed_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_indexed ON documents(indexed_at DESC);
	`
	_, err := x.db.Exec(schema)
	return err
}

// fold normalizes text for case-insensitive matching.
func fold(s string) string {
	return strings.ToLower(s)
}

// Publish upserts the document for a memory.
func (x *SQLiteIndex) Publish(ctx context.Context, doc model.Document) error {
	if doc.MemoryID == "" {
		return fmt.Errorf("%w: publish: empty memory id", model.ErrIndex)
	}
	now := time.Now().UTC()
	if !doc.IndexedAt.IsZero() {
		now = doc.IndexedAt.UTC()
	}

	var thumb *string
	if doc.Thumbnail != "" {
		thumb = &doc.Thumbnail
	}

	_, err := x.db.ExecContext(ctx,
		`INSERT INTO documents (memory_id, text, folded, thumbnail, indexed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(memory_id) DO UPDATE SET
		   text = excluded.text,
		   folded = excluded.folded,
		   thumbnail = excluded.thumbnail,
		   indexed_at = excluded.indexed_at`,
		doc.MemoryID, doc.Text, fold(doc.Text), thumb, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: publish %s: %v", model.ErrIndex, doc.MemoryID, err)
	}
	return nil
}

// Query returns the ids of memories whose transcript contains substr,
// ignoring case.
func (x *SQLiteIndex) Query(ctx context.Context, substr string) ([]string, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT memory_id FROM documents WHERE instr(folded, ?) > 0 ORDER BY memory_id`,
		fold(substr))
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", model.ErrIndex, substr, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: query %q: %v", model.ErrIndex, substr, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", model.ErrIndex, substr, err)
	}
	return ids, nil
}

// QueryFuzzy returns the ids of memories whose transcript contains the
// characters of pattern in order, best matches first.
func (x *SQLiteIndex) QueryFuzzy(ctx context.Context, pattern string) ([]string, error) {
	docs, err := x.All(ctx)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = fold(d.Text)
	}

	ids := []string{}
	for _, m := range fuzzy.Find(fold(pattern), texts) {
		ids = append(ids, docs[m.Index].MemoryID)
	}
	return ids, nil
}

// Get returns the document for a memory.
func (x *SQLiteIndex) Get(ctx context.Context, id string) (*model.Document, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT memory_id, text, thumbnail, indexed_at FROM documents WHERE memory_id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", model.ErrIndex, id, err)
	}
	return &d, nil
}

// All returns every document ordered by memory id.
func (x *SQLiteIndex) All(ctx context.Context) ([]model.Document, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT memory_id, text, thumbnail, indexed_at FROM documents ORDER BY memory_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", model.ErrIndex, err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list documents: %v", model.ErrIndex, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes the document for a memory. Deleting a missing document is
// not an error.
func (x *SQLiteIndex) Delete(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM documents WHERE memory_id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete %s: %v", model.ErrIndex, id, err)
	}
	return nil
}

// Rebuild replaces the whole index with docs.
func (x *SQLiteIndex) Rebuild(ctx context.Context, docs []model.Document) (int, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: rebuild: %v", model.ErrIndex, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return 0, fmt.Errorf("%w: rebuild: %v", model.ErrIndex, err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, d := range docs {
		var thumb *string
		if d.Thumbnail != "" {
			thumb = &d.Thumbnail
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (memory_id, text, folded, thumbnail, indexed_at) VALUES (?, ?, ?, ?, ?)`,
			d.MemoryID, d.Text, fold(d.Text), thumb, now)
		if err != nil {
			return 0, fmt.Errorf("%w: rebuild %s: %v", model.ErrIndex, d.MemoryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: rebuild: %v", model.ErrIndex, err)
	}
	return len(docs), nil
}

// Close closes the index database.
func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (model.Document, error) {
	var d model.Document
	var thumb sql.NullString
	var indexedAt string

	if err := row.Scan(&d.MemoryID, &d.Text, &thumb, &indexedAt); err != nil {
		return d, err
	}
	if thumb.Valid {
		d.Thumbnail = thumb.String
	}
	d.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
	return d, nil
}
