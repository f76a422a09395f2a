// Package app contains the application orchestration layer for imeigen. It wires
// domain generation and validation with the catalog port without performing any
// I/O itself.
package app

import (
	"context"
	"errors"

	"github.com/haukened/imeigen/internal/domain"
)

var (
	// ErrNotFound indicates the prefix is not in the catalog.
	ErrNotFound = errors.New("prefix not found")
	// ErrDuplicatePrefix indicates an insert for a prefix that is already stored.
	ErrDuplicatePrefix = errors.New("prefix already exists")
	// ErrNoPrefixAvailable indicates generation found no matching prefix in the catalog.
	ErrNoPrefixAvailable = errors.New("no prefix available")
	// ErrBatchSize indicates a requested identifier count outside [1, MaxBatch].
	ErrBatchSize = errors.New("batch size out of range")
)

// Counter and summary names reported through Recorder.
const (
	CounterGenerated          = "imei_generated_total"
	CounterValidated          = "imei_validated_total"
	CounterChecksumMismatch   = "imei_checksum_mismatch_total"
	CounterStructuralInvalid  = "imei_structural_invalid_total"
	CounterNoPrefix           = "imei_no_prefix_total"
	CounterPrefixesInserted   = "prefixes_inserted_total"
	CounterPrefixesDuplicate  = "prefixes_duplicate_total"
	CounterImportMalformed    = "import_malformed_lines_total"
	CounterPrefixesDeleted    = "prefixes_deleted_total"
	CounterSnapshotsWritten   = "snapshots_written_total"
	CounterSnapshotsPruned    = "snapshots_pruned_total"
	CounterSnapshotFailures   = "snapshot_failures_total"
	SummaryImportBatchInserts = "import_batch_inserted"
	SummarySnapshotRecords    = "snapshot_records"
)

// DefaultMaxBatch bounds batch generation when Service.MaxBatch is unset.
const DefaultMaxBatch = 100

// Generated is one identifier together with the catalog entry it came from.
// Model is empty when the prefix was supplied directly and is not catalogued.
type Generated struct {
	IMEI   domain.IMEI
	Prefix domain.Prefix
	Model  string
}

// Service orchestrates catalog maintenance, identifier generation and
// validation using the injected catalog and random source.
type Service struct {
	Catalog  Catalog
	Source   domain.Source
	Metrics  Recorder
	MaxBatch int
}

func (s *Service) inc(name string, delta int64) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, delta)
	}
}

func (s *Service) checkBatch(n int) error {
	maxBatch := s.MaxBatch
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	if n < 1 || n > maxBatch {
		return ErrBatchSize
	}
	return nil
}

// AddPrefix validates and inserts a single catalog record.
func (s *Service) AddPrefix(ctx context.Context, prefix, model string) (domain.PrefixRecord, error) {
	rec, err := domain.NewPrefixRecord(prefix, model)
	if err != nil {
		return domain.PrefixRecord{}, err
	}
	if err := s.Catalog.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicatePrefix) {
			s.inc(CounterPrefixesDuplicate, 1)
		}
		return rec, err
	}
	s.inc(CounterPrefixesInserted, 1)
	return rec, nil
}

// Generate produces n identifiers, each from a prefix picked at random from the
// catalog (restricted to model when non-empty). It returns ErrNoPrefixAvailable
// when the catalog has no matching record.
func (s *Service) Generate(ctx context.Context, model string, n int) ([]Generated, error) {
	if err := s.checkBatch(n); err != nil {
		return nil, err
	}
	out := make([]Generated, 0, n)
	for i := 0; i < n; i++ {
		prefix, ok, err := s.Catalog.PickRandom(ctx, model)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.inc(CounterNoPrefix, 1)
			return nil, ErrNoPrefixAvailable
		}
		label := model
		if label == "" {
			rec, err := s.Catalog.Lookup(ctx, prefix)
			if err != nil {
				return nil, err
			}
			label = rec.Model
		}
		out = append(out, Generated{IMEI: domain.Generate(prefix, s.Source), Prefix: prefix, Model: label})
	}
	s.inc(CounterGenerated, int64(len(out)))
	return out, nil
}

// GenerateFromPrefix produces n identifiers from a caller-supplied prefix. The
// prefix does not need to be catalogued; when it is, its model is reported.
func (s *Service) GenerateFromPrefix(ctx context.Context, prefix string, n int) ([]Generated, error) {
	p, err := domain.ParsePrefix(prefix)
	if err != nil {
		return nil, err
	}
	if err := s.checkBatch(n); err != nil {
		return nil, err
	}
	var model string
	rec, err := s.Catalog.Lookup(ctx, p)
	switch {
	case err == nil:
		model = rec.Model
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	out := make([]Generated, 0, n)
	for _, id := range domain.GenerateBatch(p, s.Source, n) {
		out = append(out, Generated{IMEI: id, Prefix: p, Model: model})
	}
	s.inc(CounterGenerated, int64(len(out)))
	return out, nil
}

// Validate checks candidate. A structural problem is returned as an error
// (*domain.StructuralError); a checksum mismatch is a result with Valid=false
// and the expected check digit.
func (s *Service) Validate(_ context.Context, candidate string) (domain.Validation, error) {
	s.inc(CounterValidated, 1)
	v, err := domain.Validate(candidate)
	if err != nil {
		s.inc(CounterStructuralInvalid, 1)
		return domain.Validation{}, err
	}
	if !v.Valid {
		s.inc(CounterChecksumMismatch, 1)
	}
	return v, nil
}

// List returns catalog records, filtered by model when non-empty.
func (s *Service) List(ctx context.Context, model string) ([]domain.PrefixRecord, error) {
	return s.Catalog.List(ctx, model)
}

// Models returns prefix counts per model.
func (s *Service) Models(ctx context.Context) ([]ModelCount, error) {
	return s.Catalog.Models(ctx)
}

// DeletePrefix removes a record by prefix.
func (s *Service) DeletePrefix(ctx context.Context, prefix string) error {
	p, err := domain.ParsePrefix(prefix)
	if err != nil {
		return err
	}
	if err := s.Catalog.Delete(ctx, p); err != nil {
		return err
	}
	s.inc(CounterPrefixesDeleted, 1)
	return nil
}
