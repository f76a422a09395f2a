// Package store provides the concrete implementation of the application
// Catalog port by composing a lower-layer Index with a random source.
// External packages should construct the catalog via New and interact only
// through the app.Catalog interface.
package store

import (
	"context"
	"errors"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

// pickAttempts bounds retries when a record disappears between Count and At.
const pickAttempts = 3

// Catalog composes an Index and a random Source to satisfy app.Catalog.
// Uniform selection is implemented here once, so every Index backend only
// needs counting and positional lookup.
type Catalog struct {
	index Index
	src   domain.Source
}

// New returns a Catalog implementation of app.Catalog.
func New(index Index, src domain.Source) *Catalog {
	return &Catalog{index: index, src: src}
}

var _ app.Catalog = (*Catalog)(nil)

func (c *Catalog) ready() error {
	if c == nil || c.index == nil || c.src == nil {
		return errors.New("catalog not properly initialized")
	}
	return nil
}

// Insert stores a validated record.
func (c *Catalog) Insert(ctx context.Context, rec domain.PrefixRecord) error {
	if err := c.ready(); err != nil {
		return err
	}
	if !rec.Prefix.Valid() {
		return domain.ErrInvalidPrefix
	}
	if err := domain.ValidateModel(rec.Model); err != nil {
		return err
	}
	return c.index.Insert(ctx, rec)
}

// PickRandom draws a uniform offset in [0, count) and resolves it to a prefix.
// An empty candidate set yields ok=false and no error.
func (c *Catalog) PickRandom(ctx context.Context, model string) (domain.Prefix, bool, error) {
	if err := c.ready(); err != nil {
		return "", false, err
	}
	for attempt := 0; attempt < pickAttempts; attempt++ {
		n, err := c.index.Count(ctx, model)
		if err != nil {
			return "", false, err
		}
		if n == 0 {
			return "", false, nil
		}
		p, err := c.index.At(ctx, model, c.src.IntN(n))
		if errors.Is(err, app.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		return p, true, nil
	}
	return "", false, nil
}

// List returns records filtered by model.
func (c *Catalog) List(ctx context.Context, model string) ([]domain.PrefixRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.index.List(ctx, model)
}

// Lookup returns a single record.
func (c *Catalog) Lookup(ctx context.Context, prefix domain.Prefix) (domain.PrefixRecord, error) {
	if err := c.ready(); err != nil {
		return domain.PrefixRecord{}, err
	}
	return c.index.Lookup(ctx, prefix)
}

// Delete removes a record.
func (c *Catalog) Delete(ctx context.Context, prefix domain.Prefix) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.index.Delete(ctx, prefix)
}

// Models returns per-model prefix counts.
func (c *Catalog) Models(ctx context.Context) ([]app.ModelCount, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.index.Models(ctx)
}
