// Package store defines internal persistence adapter ports used by the
// higher-level Catalog implementation. These ports isolate the concrete
// SQLite and in-memory indexes so they can be tested and evolved
// independently. Callers outside this package interact only with the
// app.Catalog implementation, not these internal details.
package store

import (
	"context"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

// Index abstracts prefix record persistence (typically backed by SQLite).
// Records are ordered by insertion; a model filter of "" matches every record.
type Index interface {
	// Insert stores rec or returns app.ErrDuplicatePrefix without modifying the existing row.
	Insert(ctx context.Context, rec domain.PrefixRecord) error
	// Count returns the number of records matching model.
	Count(ctx context.Context, model string) (int, error)
	// At returns the prefix at 0-based offset among records matching model, or app.ErrNotFound.
	At(ctx context.Context, model string, offset int) (domain.Prefix, error)
	List(ctx context.Context, model string) ([]domain.PrefixRecord, error)
	Lookup(ctx context.Context, prefix domain.Prefix) (domain.PrefixRecord, error)
	Delete(ctx context.Context, prefix domain.Prefix) error
	Models(ctx context.Context) ([]app.ModelCount, error)
}
