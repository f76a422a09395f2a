package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/catalogio"
)

func runImport(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("import", "<file|pattern>...")
	quiet := fs.Bool("q", false, "do not print skipped lines")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%w: import needs at least one file", ErrUsage)
	}
	paths, err := catalogio.Expand(fs.Args())
	if err != nil {
		return err
	}
	total, err := importFiles(ctx, e, paths, *quiet)
	if err != nil {
		return err
	}
	if len(paths) > 1 {
		printReport(e, "total", total)
	}
	return nil
}

// importFiles imports each path in order and returns the combined report.
func importFiles(ctx context.Context, e *Env, paths []string, quiet bool) (app.ImportReport, error) {
	var total app.ImportReport
	for _, p := range paths {
		lines, err := catalogio.ReadFile(p)
		if err != nil {
			return total, err
		}
		rep, err := e.Service.Import(ctx, lines)
		total.Add(rep)
		if err != nil {
			return total, fmt.Errorf("%s: %w", p, err)
		}
		if !quiet {
			for _, pr := range rep.Problems {
				fmt.Fprintf(e.stderr(), "%s:%d: skipped %q: %v\n", p, pr.Line, pr.Prefix, pr.Err)
			}
		}
		printReport(e, p, rep)
		e.log().Info("import", "domain", "cli", "file", p,
			"inserted", rep.Inserted, "duplicates", rep.Duplicates, "malformed", rep.Malformed)
	}
	return total, nil
}

func printReport(e *Env, label string, rep app.ImportReport) {
	fmt.Fprintf(e.stdout(), "%s: %d lines, %d inserted, %d duplicate, %d malformed\n",
		label, rep.Lines, rep.Inserted, rep.Duplicates, rep.Malformed)
}

func runAdd(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("add", "<prefix> <model>")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("%w: add needs a prefix and a model", ErrUsage)
	}
	// Models may contain spaces; everything after the prefix is the model.
	rec, err := e.Service.AddPrefix(ctx, fs.Arg(0), joinArgs(fs.Args()[1:]))
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout(), "added %s %s\n", rec.Prefix, rec.Model)
	return nil
}

func runList(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("list", "")
	model := fs.String("model", "", "only list prefixes of this model")
	if err := parse(fs, args); err != nil {
		return err
	}
	recs, err := e.Service.List(ctx, *model)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PREFIX\tMODEL")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\n", r.Prefix, r.Model)
	}
	return tw.Flush()
}

func runModels(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("models", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	models, err := e.Service.Models(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPREFIXES")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%d\n", m.Model, m.Prefixes)
	}
	return tw.Flush()
}

func runDelete(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("delete", "<prefix>...")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%w: delete needs at least one prefix", ErrUsage)
	}
	var errs []error
	for _, p := range fs.Args() {
		if err := e.Service.DeletePrefix(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		fmt.Fprintf(e.stdout(), "deleted %s\n", p)
	}
	return errors.Join(errs...)
}

func runExport(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("export", "")
	formatName := fs.String("format", "", "csv or yaml (default from -o extension, else csv)")
	out := fs.String("o", "", "output file (default stdout)")
	model := fs.String("model", "", "only export prefixes of this model")
	if err := parse(fs, args); err != nil {
		return err
	}
	format := catalogio.FormatCSV
	switch {
	case *formatName != "":
		f, err := catalogio.ParseFormat(*formatName)
		if err != nil {
			return err
		}
		format = f
	case *out != "":
		format = catalogio.FormatFor(*out)
	}
	recs, err := e.Service.List(ctx, *model)
	if err != nil {
		return err
	}
	if *out == "" {
		return catalogio.Write(e.stdout(), format, recs)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := catalogio.Write(f, format, recs); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.stderr(), "exported %d records to %s\n", len(recs), *out)
	return nil
}
