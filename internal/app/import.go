package app

import (
	"context"
	"errors"

	"github.com/haukened/imeigen/internal/domain"
)

// ImportLine is one raw (prefix, model) pair read by a bulk import source.
// Number is the 1-based position in the source, used for reporting only.
type ImportLine struct {
	Number int
	Prefix string
	Model  string
}

// ImportProblem describes a line that was not inserted.
type ImportProblem struct {
	Line   int
	Prefix string
	Err    error
}

// ImportReport summarizes a bulk import. Attempted counts lines that parsed
// into a valid record; Attempted == Inserted + Duplicates.
type ImportReport struct {
	Lines      int
	Attempted  int
	Inserted   int
	Duplicates int
	Malformed  int
	Problems   []ImportProblem
}

// Add folds another report into r.
func (r *ImportReport) Add(o ImportReport) {
	r.Lines += o.Lines
	r.Attempted += o.Attempted
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
	r.Malformed += o.Malformed
	r.Problems = append(r.Problems, o.Problems...)
}

// Import inserts each line as one record. Malformed lines and duplicate
// prefixes are skipped and counted; only catalog failures abort the batch, in
// which case the partial report is returned with the error.
func (s *Service) Import(ctx context.Context, lines []ImportLine) (ImportReport, error) {
	var rep ImportReport
	for _, ln := range lines {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Lines++
		rec, err := domain.NewPrefixRecord(ln.Prefix, ln.Model)
		if err != nil {
			rep.Malformed++
			rep.Problems = append(rep.Problems, ImportProblem{Line: ln.Number, Prefix: ln.Prefix, Err: err})
			continue
		}
		rep.Attempted++
		if err := s.Catalog.Insert(ctx, rec); err != nil {
			if !errors.Is(err, ErrDuplicatePrefix) {
				return rep, err
			}
			rep.Duplicates++
			rep.Problems = append(rep.Problems, ImportProblem{Line: ln.Number, Prefix: ln.Prefix, Err: err})
			continue
		}
		rep.Inserted++
	}
	s.inc(CounterPrefixesInserted, int64(rep.Inserted))
	s.inc(CounterPrefixesDuplicate, int64(rep.Duplicates))
	s.inc(CounterImportMalformed, int64(rep.Malformed))
	if s.Metrics != nil {
		s.Metrics.Observe(SummaryImportBatchInserts, int64(rep.Inserted))
	}
	return rep, nil
}
