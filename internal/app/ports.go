// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the core use-cases of imeigen depend upon. It follows a
// hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (SQLite or in-memory catalog, CLI, HTTP layer)
// provide concrete implementations. No I/O, logging, SQL, or network concerns
// belong here.
package app

import (
	"context"

	"github.com/haukened/imeigen/internal/domain"
)

// Catalog is the storage port for prefix records. Implementations must keep
// prefixes unique and must never overwrite an existing record on insert.
type Catalog interface {
	// Insert stores rec. It returns ErrDuplicatePrefix, leaving the existing
	// record untouched, when rec.Prefix is already present.
	Insert(ctx context.Context, rec domain.PrefixRecord) error

	// PickRandom selects one prefix uniformly at random among the records whose
	// model equals model, or among all records when model is empty. The boolean
	// is false when the candidate set is empty; that is not an error.
	PickRandom(ctx context.Context, model string) (domain.Prefix, bool, error)

	// List returns records ordered by insertion, filtered by model when non-empty.
	List(ctx context.Context, model string) ([]domain.PrefixRecord, error)

	// Lookup returns the record for prefix or ErrNotFound.
	Lookup(ctx context.Context, prefix domain.Prefix) (domain.PrefixRecord, error)

	// Delete removes the record for prefix or returns ErrNotFound.
	Delete(ctx context.Context, prefix domain.Prefix) error

	// Models returns the number of prefixes per model.
	Models(ctx context.Context) ([]ModelCount, error)
}

// ModelCount is a per-model aggregate of the catalog.
type ModelCount struct {
	Model    string
	Prefixes int
}

// Recorder receives usage counters. The metrics package implements it; a nil
// Recorder on Service disables recording.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}
