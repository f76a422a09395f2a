// Package sqlite provides a SQLite-backed implementation of the store.Index
// port for persisting the prefix catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
	"github.com/haukened/imeigen/internal/store"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ store.Index = (*Index)(nil)

// Index implements store.Index using SQLite (via database/sql). It is safe for
// concurrent use; database/sql manages connection pooling and serialization.
type Index struct{ db *sql.DB }

// New constructs an Index, initializing the required schema if absent.
func New(db *sql.DB) (*Index, error) {
	ix := &Index{db: db}
	if err := ix.init(); err != nil {
		return nil, err
	}
	return ix, nil
}

// The unique index is what enforces one record per prefix.
func (i *Index) init() error {
	schema := `CREATE TABLE IF NOT EXISTS imei_prefix (
id INTEGER PRIMARY KEY,
prefix TEXT NOT NULL,
model TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS imei_prefix_prefix ON imei_prefix(prefix);
CREATE INDEX IF NOT EXISTS imei_prefix_model ON imei_prefix(model);`
	_, err := i.db.Exec(schema)
	return err
}

// Insert stores a new record. Conflicts on prefix are ignored by SQLite and
// surfaced as app.ErrDuplicatePrefix.
func (i *Index) Insert(ctx context.Context, rec domain.PrefixRecord) error {
	const q = `INSERT INTO imei_prefix (prefix, model) VALUES (?, ?) ON CONFLICT(prefix) DO NOTHING`
	res, err := i.db.ExecContext(ctx, q, rec.Prefix.String(), rec.Model)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", app.ErrDuplicatePrefix, rec.Prefix)
	}
	return nil
}

// Count returns the number of records for model ("" counts all).
func (i *Index) Count(ctx context.Context, model string) (int, error) {
	const q = `SELECT COUNT(*) FROM imei_prefix WHERE (?1 = '' OR model = ?1)`
	var n int
	if err := i.db.QueryRowContext(ctx, q, model).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// At returns the prefix at offset in insertion order among matching records.
func (i *Index) At(ctx context.Context, model string, offset int) (domain.Prefix, error) {
	const q = `SELECT prefix FROM imei_prefix WHERE (?1 = '' OR model = ?1) ORDER BY id LIMIT 1 OFFSET ?2`
	var p string
	if err := i.db.QueryRowContext(ctx, q, model, offset).Scan(&p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", app.ErrNotFound
		}
		return "", err
	}
	return domain.Prefix(p), nil
}

// List returns matching records in insertion order.
func (i *Index) List(ctx context.Context, model string) ([]domain.PrefixRecord, error) {
	const q = `SELECT prefix, model FROM imei_prefix WHERE (?1 = '' OR model = ?1) ORDER BY id`
	rows, err := i.db.QueryContext(ctx, q, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []domain.PrefixRecord
	for rows.Next() {
		var p, m string
		if err = rows.Scan(&p, &m); err != nil {
			return nil, err
		}
		recs = append(recs, domain.PrefixRecord{Prefix: domain.Prefix(p), Model: m})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Lookup returns the record for prefix.
func (i *Index) Lookup(ctx context.Context, prefix domain.Prefix) (domain.PrefixRecord, error) {
	const q = `SELECT model FROM imei_prefix WHERE prefix = ?`
	var m string
	if err := i.db.QueryRowContext(ctx, q, prefix.String()).Scan(&m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PrefixRecord{}, app.ErrNotFound
		}
		return domain.PrefixRecord{}, err
	}
	return domain.PrefixRecord{Prefix: prefix, Model: m}, nil
}

// Delete hard-deletes the record for prefix.
func (i *Index) Delete(ctx context.Context, prefix domain.Prefix) error {
	const q = `DELETE FROM imei_prefix WHERE prefix = ?`
	res, err := i.db.ExecContext(ctx, q, prefix.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

// Models returns prefix counts grouped by model, ordered by model.
func (i *Index) Models(ctx context.Context) ([]app.ModelCount, error) {
	const q = `SELECT model, COUNT(*) FROM imei_prefix GROUP BY model ORDER BY model`
	rows, err := i.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []app.ModelCount
	for rows.Next() {
		var mc app.ModelCount
		if err = rows.Scan(&mc.Model, &mc.Prefixes); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
