// Package cli implements the imeigen subcommands on top of the application
// service. Each command parses its own flag set, writes results to Stdout and
// reports problems through the returned error; main decides the exit code.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/domain"
	"github.com/haukened/imeigen/internal/metrics"
)

var (
	// ErrUsage is returned for unknown commands and bad arguments.
	ErrUsage = errors.New("usage")
	// ErrInvalid is returned by validate when at least one candidate failed.
	ErrInvalid = errors.New("invalid imei")
)

// Service is the subset of app.Service the commands use.
type Service interface {
	Generate(ctx context.Context, model string, n int) ([]app.Generated, error)
	GenerateFromPrefix(ctx context.Context, prefix string, n int) ([]app.Generated, error)
	Validate(ctx context.Context, candidate string) (domain.Validation, error)
	AddPrefix(ctx context.Context, prefix, model string) (domain.PrefixRecord, error)
	Import(ctx context.Context, lines []app.ImportLine) (app.ImportReport, error)
	List(ctx context.Context, model string) ([]domain.PrefixRecord, error)
	Models(ctx context.Context) ([]app.ModelCount, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

var _ Service = (*app.Service)(nil)

// Snapshotter writes a catalog snapshot, applies retention and reads
// snapshots back for restore.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, int, error)
	Prune(ctx context.Context, keep int) (int, error)
	Load(ctx context.Context, name string) (string, []app.ImportLine, error)
}

// Env carries the collaborators and streams of one invocation.
type Env struct {
	Service      Service
	Snapshots    Snapshotter              // optional; snapshot fails without it
	SnapshotKeep int                      // retention applied after snapshot
	Stats        metrics.SnapshotProvider // optional; stats fails without it
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *Env, args []string) error
}

var commands = []command{
	{"import", "import prefix files (csv or yaml, globs allowed)", runImport},
	{"add", "add one prefix: add <prefix> <model>", runAdd},
	{"generate", "generate IMEIs from the catalog or a given prefix", runGenerate},
	{"validate", "validate one or more IMEIs", runValidate},
	{"list", "list catalog records", runList},
	{"models", "list models with prefix counts", runModels},
	{"delete", "delete prefixes", runDelete},
	{"export", "write the catalog as csv or yaml", runExport},
	{"snapshot", "write a catalog snapshot into the data directory", runSnapshot},
	{"restore", "import a stored snapshot (default the newest)", runRestore},
	{"stats", "print persisted usage counters", runStats},
	{"menu", "interactive menu", runMenu},
}

// Run dispatches args[0] to its command.
func (e *Env) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		e.Usage()
		return ErrUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			e.log().Debug("run command", "domain", "cli", "command", c.name)
			return c.run(ctx, e, args[1:])
		}
	}
	e.Usage()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

// Usage prints the command list to Stderr.
func (e *Env) Usage() {
	w := e.stderr()
	fmt.Fprintln(w, "usage: imeigen [global flags] <command> [flags] [args]")
	fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "  %-9s %s\n", "serve", "run the HTTP API")
}

func (e *Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) stdout() io.Writer {
	if e.Stdout == nil {
		return io.Discard
	}
	return e.Stdout
}

func (e *Env) stderr() io.Writer {
	if e.Stderr == nil {
		return io.Discard
	}
	return e.Stderr
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (e *Env) newFlagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr())
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: imeigen %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parse wraps flag errors in ErrUsage; -h is passed through as flag.ErrHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinArgs(args []string) string { return strings.Join(args, " ") }
