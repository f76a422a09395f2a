// Package main provides the imeigen binary: a prefix catalog backed IMEI
// generator and validator. One-shot commands (import, generate, validate, ...)
// run against the catalog and exit; "serve" starts the HTTP API together with
// the metrics flusher and the snapshot janitor.
//
// The application flow:
//  1. Parse global flags.
//  2. Load defaults and apply environment variables and flags.
//  3. Validate configuration and build the logger.
//  4. Prepare the data directory and open the catalog backend.
//  5. Dispatch the command.
//
// Exit codes: 0 success, 1 runtime failure, 2 configuration or usage error,
// 3 data directory problem, 4 database failure.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/catalogio"
	"github.com/haukened/imeigen/internal/cli"
	"github.com/haukened/imeigen/internal/config"
	"github.com/haukened/imeigen/internal/domain"
	"github.com/haukened/imeigen/internal/httpx"
	"github.com/haukened/imeigen/internal/janitor"
	"github.com/haukened/imeigen/internal/metrics"
	"github.com/haukened/imeigen/internal/store"
	"github.com/haukened/imeigen/internal/store/filesystem"
	"github.com/haukened/imeigen/internal/store/memory"
	"github.com/haukened/imeigen/internal/store/sqlite"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitDataDir = 3
	exitDB      = 4
)

// globalFlags maps command line flags onto configuration keys.
var globalFlags = []struct{ flag, key, usage string }{
	{"addr", "addr", "HTTP listen address (serve)"},
	{"data-dir", "data_dir", "directory for the catalog database and snapshots"},
	{"backend", "backend", "catalog backend: sqlite or memory"},
	{"seed", "seed", "random seed, 0 seeds from the OS"},
	{"log-level", "log_level", "debug, info, warn or error"},
	{"log-format", "log_format", "text or json"},
	{"max-batch", "max_batch", "largest number of IMEIs per generate call"},
	{"snapshot-interval", "snapshot_interval", "time between catalog snapshots (serve), 0 disables"},
	{"snapshot-keep", "snapshot_keep", "snapshots to retain, 0 keeps all"},
	{"snapshot-format", "snapshot_format", "snapshot file format: csv or yaml"},
}

// parseGlobal parses the flags before the command name and returns them as
// configuration overrides plus the remaining arguments.
func parseGlobal(args []string, stderr io.Writer) (map[string]string, []string, error) {
	fs := flag.NewFlagSet("imeigen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	values := make(map[string]*string, len(globalFlags))
	for _, g := range globalFlags {
		values[g.key] = fs.String(g.flag, "", g.usage+" (env "+config.EnvPrefix+envName(g.key)+")")
	}
	fs.Usage = func() {
		env := cli.Env{Stderr: fs.Output()}
		env.Usage()
		fmt.Fprintln(fs.Output(), "\nglobal flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	overrides := make(map[string]string, len(values))
	for k, v := range values {
		overrides[k] = *v
	}
	return overrides, fs.Args(), nil
}

func envName(key string) string { return strings.ToUpper(key) }

// ensureDataDir creates the data directory and its snapshot subdirectory.
func ensureDataDir(cfg *config.Config) error {
	if st, err := os.Stat(cfg.DataDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat data directory: %w", err)
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("data path %s is not a directory", cfg.DataDir)
	}
	if err := os.MkdirAll(cfg.SnapshotDir(), 0o750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	return nil
}

// deps holds the collaborators shared by every command.
type deps struct {
	db        *sql.DB // nil for the memory backend
	svc       *app.Service
	metrics   *metrics.Manager
	snapshots *filesystem.Snapshotter
}

func openDatabase(cfg *config.Config) (*sql.DB, store.Index, error) {
	db, err := sql.Open("sqlite3", cfg.SQLiteDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite driver: %w", err)
	}
	idx, err := sqlite.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return db, idx, nil
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deps, error) {
	rt := &deps{}
	var idx store.Index
	switch cfg.Backend {
	case config.BackendMemory:
		idx = memory.New()
	default:
		db, sqlIdx, err := openDatabase(cfg)
		if err != nil {
			return nil, err
		}
		rt.db, idx = db, sqlIdx
	}
	rt.metrics = metrics.New(rt.db, metrics.Config{FlushInterval: cfg.MetricsFlush, Logger: logger})
	if err := rt.metrics.InitSchema(ctx); err != nil {
		rt.close(ctx, logger)
		return nil, fmt.Errorf("init metrics schema: %w", err)
	}
	src := domain.NewSource(cfg.Seed)
	catalog := store.New(idx, src)
	rt.svc = &app.Service{Catalog: catalog, Source: src, Metrics: rt.metrics, MaxBatch: cfg.MaxBatch}

	snapStore, err := filesystem.New(cfg.SnapshotDir())
	if err != nil {
		rt.close(ctx, logger)
		return nil, fmt.Errorf("init snapshot store: %w", err)
	}
	format, err := catalogio.ParseFormat(cfg.SnapshotFormat)
	if err != nil {
		rt.close(ctx, logger)
		return nil, err
	}
	rt.snapshots = &filesystem.Snapshotter{Catalog: catalog, Store: snapStore, Format: format}
	return rt, nil
}

// close flushes pending metrics and closes the database.
func (rt *deps) close(ctx context.Context, logger *slog.Logger) {
	if rt.metrics != nil {
		if err := rt.metrics.Stop(ctx); err != nil {
			logger.Warn("final metrics flush", "err", err)
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			logger.Warn("close database", "err", err)
		}
	}
}

func (rt *deps) readiness(ctx context.Context) error {
	if rt.db != nil {
		if err := rt.db.PingContext(ctx); err != nil {
			return err
		}
	}
	_, err := rt.snapshots.Store.List()
	return err
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second, ReadTimeout: 15 * time.Second, WriteTimeout: 60 * time.Second, IdleTimeout: 120 * time.Second}
}

// serve runs the HTTP API until ctx is cancelled or the listener fails.
func serve(ctx context.Context, cfg *config.Config, rt *deps, logger *slog.Logger) error {
	rt.metrics.Start(ctx)

	var jan *janitor.Janitor
	if cfg.SnapshotInterval > 0 {
		jan = janitor.New(rt.snapshots, rt.metrics, janitor.Config{
			Interval: cfg.SnapshotInterval,
			Keep:     cfg.SnapshotKeep,
			Logger:   logger,
		})
		jan.Start(ctx)
		defer jan.Stop()
	}

	h := httpx.New(rt.svc, logger, rt.readiness)
	h.Metrics = metrics.Handler(rt.metrics, cfg.MetricsToken)
	srv := newServer(cfg, h.Router())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.Addr, "backend", cfg.Backend, "pid", os.Getpid())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, cli.ErrUsage):
		return exitConfig
	default:
		return exitRuntime
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	overrides, rest, err := parseGlobal(args, stderr)
	if err != nil {
		return exitCode(err)
	}
	if len(rest) == 0 {
		(&cli.Env{Stderr: stderr}).Usage()
		return exitConfig
	}
	cfg, err := config.LoadWith(overrides)
	if err != nil {
		slog.New(slog.NewTextHandler(stderr, nil)).Error("configuration error", "err", err)
		return exitConfig
	}
	logger := cfg.NewLogger(stderr)
	if err := ensureDataDir(cfg); err != nil {
		logger.Error("data directory", "dir", cfg.DataDir, "err", err)
		return exitDataDir
	}
	rt, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		logger.Error("open catalog", "backend", cfg.Backend, "err", err)
		return exitDB
	}
	// Final flush gets its own deadline; ctx may already be cancelled.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rt.close(closeCtx, logger)
	}()

	if rest[0] == "serve" {
		if err := serve(ctx, cfg, rt, logger); err != nil {
			logger.Error("server error", "err", err)
			return exitRuntime
		}
		return exitOK
	}

	env := &cli.Env{
		Service:      rt.svc,
		Snapshots:    rt.snapshots,
		SnapshotKeep: cfg.SnapshotKeep,
		Stats:        rt.metrics,
		Stdin:        stdin,
		Stdout:       stdout,
		Stderr:       stderr,
		Logger:       logger,
	}
	err = env.Run(ctx, rest)
	if err != nil && !errors.Is(err, flag.ErrHelp) && !errors.Is(err, cli.ErrInvalid) {
		fmt.Fprintf(stderr, "imeigen %s: %v\n", rest[0], err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
