// Package memory provides an in-process implementation of the store.Index
// port. Records live only as long as the process; it backs the "memory"
// catalog backend and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
	"github.com/haukened/imeigen/internal/store"
)

var _ store.Index = (*Index)(nil)

// Index keeps records in insertion order with a prefix lookup table.
type Index struct {
	mu    sync.RWMutex
	recs  []domain.PrefixRecord
	byKey map[domain.Prefix]int
}

// New returns an empty Index.
func New() *Index {
	return &Index{byKey: make(map[domain.Prefix]int)}
}

func (i *Index) Insert(_ context.Context, rec domain.PrefixRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.byKey[rec.Prefix]; ok {
		return fmt.Errorf("%w: %s", app.ErrDuplicatePrefix, rec.Prefix)
	}
	i.byKey[rec.Prefix] = len(i.recs)
	i.recs = append(i.recs, rec)
	return nil
}

func matches(rec domain.PrefixRecord, model string) bool {
	return model == "" || rec.Model == model
}

func (i *Index) Count(_ context.Context, model string) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if model == "" {
		return len(i.recs), nil
	}
	n := 0
	for _, r := range i.recs {
		if matches(r, model) {
			n++
		}
	}
	return n, nil
}

func (i *Index) At(_ context.Context, model string, offset int) (domain.Prefix, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if offset < 0 {
		return "", app.ErrNotFound
	}
	for _, r := range i.recs {
		if !matches(r, model) {
			continue
		}
		if offset == 0 {
			return r.Prefix, nil
		}
		offset--
	}
	return "", app.ErrNotFound
}

func (i *Index) List(_ context.Context, model string) ([]domain.PrefixRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []domain.PrefixRecord
	for _, r := range i.recs {
		if matches(r, model) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (i *Index) Lookup(_ context.Context, prefix domain.Prefix) (domain.PrefixRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	pos, ok := i.byKey[prefix]
	if !ok {
		return domain.PrefixRecord{}, app.ErrNotFound
	}
	return i.recs[pos], nil
}

// Delete removes the record and reindexes the records that followed it.
func (i *Index) Delete(_ context.Context, prefix domain.Prefix) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	pos, ok := i.byKey[prefix]
	if !ok {
		return app.ErrNotFound
	}
	i.recs = append(i.recs[:pos], i.recs[pos+1:]...)
	delete(i.byKey, prefix)
	for j := pos; j < len(i.recs); j++ {
		i.byKey[i.recs[j].Prefix] = j
	}
	return nil
}

func (i *Index) Models(_ context.Context) ([]app.ModelCount, error) {
	i.mu.RLock()
	counts := make(map[string]int)
	for _, r := range i.recs {
		counts[r.Model]++
	}
	i.mu.RUnlock()
	out := make([]app.ModelCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, app.ModelCount{Model: m, Prefixes: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Model < out[b].Model })
	return out, nil
}
