package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
)

func runGenerate(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("generate", "")
	model := fs.String("model", "", "pick prefixes of this model only (default any)")
	prefix := fs.String("prefix", "", "generate from this 8-digit prefix instead of the catalog")
	n := fs.Int("n", 1, "number of IMEIs")
	long := fs.Bool("l", false, "also print prefix and model")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *model != "" && *prefix != "" {
		return fmt.Errorf("%w: -model and -prefix are mutually exclusive", ErrUsage)
	}
	var (
		out []app.Generated
		err error
	)
	if *prefix != "" {
		out, err = e.Service.GenerateFromPrefix(ctx, *prefix, *n)
	} else {
		out, err = e.Service.Generate(ctx, *model, *n)
	}
	if err != nil {
		return err
	}
	for _, g := range out {
		if *long {
			fmt.Fprintf(e.stdout(), "%s\t%s\t%s\n", g.IMEI, g.Prefix, g.Model)
			continue
		}
		fmt.Fprintln(e.stdout(), g.IMEI)
	}
	return nil
}

func runValidate(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("validate", "<imei>...")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%w: validate needs at least one imei", ErrUsage)
	}
	failed := 0
	for _, c := range fs.Args() {
		if !validateOne(ctx, e, c) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrInvalid, failed, fs.NArg())
	}
	return nil
}

// validateOne prints the verdict for candidate and reports whether it passed.
func validateOne(ctx context.Context, e *Env, candidate string) bool {
	v, err := e.Service.Validate(ctx, candidate)
	var structural *domain.StructuralError
	switch {
	case errors.As(err, &structural):
		fmt.Fprintf(e.stdout(), "%s: invalid: %v\n", candidate, structural)
		return false
	case err != nil:
		fmt.Fprintf(e.stdout(), "%s: error: %v\n", candidate, err)
		return false
	case !v.Valid:
		fmt.Fprintf(e.stdout(), "%s: invalid: check digit should be %d, got %d\n", candidate, v.Expected, v.Actual)
		return false
	}
	fmt.Fprintf(e.stdout(), "%s: valid\n", candidate)
	return true
}
