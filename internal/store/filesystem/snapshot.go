package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/catalogio"
	"github.com/haukened/imeigen/internal/domain"
)

// ErrNoSnapshots is returned by Load when the store holds no snapshot.
var ErrNoSnapshots = errors.New("no snapshots")

// Lister is the part of the catalog a snapshot needs.
type Lister interface {
	List(ctx context.Context, model string) ([]domain.PrefixRecord, error)
}

// Snapshotter writes the full catalog to a Store and enforces retention.
type Snapshotter struct {
	Catalog Lister
	Store   *Store
	Format  catalogio.Format
	Now     func() time.Time
}

// Snapshot writes every catalog record to a new snapshot file and returns its
// name and record count.
func (s *Snapshotter) Snapshot(ctx context.Context) (string, int, error) {
	recs, err := s.Catalog.List(ctx, "")
	if err != nil {
		return "", 0, err
	}
	format := s.Format
	if format == "" {
		format = catalogio.FormatCSV
	}
	var buf bytes.Buffer
	if err := catalogio.Write(&buf, format, recs); err != nil {
		return "", 0, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name := Name(now(), string(format))
	if err := s.Store.Write(name, &buf); err != nil {
		return "", 0, err
	}
	return name, len(recs), nil
}

// Prune deletes the oldest snapshots so that at most keep remain. keep <= 0
// keeps everything.
func (s *Snapshotter) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	entries, err := s.Store.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := 0; i < len(entries)-keep; i++ {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.Store.Delete(entries[i].Name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Load reads a stored snapshot back as import lines. An empty name selects
// the newest snapshot. The resolved name is returned with the lines.
func (s *Snapshotter) Load(ctx context.Context, name string) (string, []app.ImportLine, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if name == "" {
		entries, err := s.Store.List()
		if err != nil {
			return "", nil, err
		}
		if len(entries) == 0 {
			return "", nil, ErrNoSnapshots
		}
		name = entries[len(entries)-1].Name
	}
	rc, err := s.Store.Open(name)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()
	lines, err := catalogio.Read(rc, catalogio.FormatFor(name))
	if err != nil {
		return "", nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return name, lines, nil
}
