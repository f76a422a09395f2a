package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
)

func runSnapshot(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("snapshot", "")
	keep := fs.Int("keep", e.SnapshotKeep, "snapshots to retain after writing (0 keeps all)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if e.Snapshots == nil {
		return errors.New("snapshots are not configured")
	}
	name, n, err := e.Snapshots.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	fmt.Fprintf(e.stdout(), "wrote %s (%d records)\n", name, n)
	pruned, err := e.Snapshots.Prune(ctx, *keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if pruned > 0 {
		fmt.Fprintf(e.stdout(), "pruned %d old snapshots\n", pruned)
	}
	return nil
}

// runRestore imports a snapshot into the catalog. Prefixes already present
// count as duplicates, so restoring into a live catalog only adds what is
// missing.
func runRestore(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("restore", "[snapshot-name]")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return fmt.Errorf("%w: restore takes at most one snapshot name", ErrUsage)
	}
	if e.Snapshots == nil {
		return errors.New("snapshots are not configured")
	}
	name, lines, err := e.Snapshots.Load(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	rep, err := e.Service.Import(ctx, lines)
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	printReport(e, name, rep)
	e.log().Info("restore", "domain", "cli", "snapshot", name,
		"inserted", rep.Inserted, "duplicates", rep.Duplicates, "malformed", rep.Malformed)
	return nil
}

func runStats(ctx context.Context, e *Env, args []string) error {
	fs := e.newFlagSet("stats", "")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if e.Stats == nil {
		return errors.New("metrics are not configured")
	}
	snap, err := e.Stats.Snapshot(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(e.stdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	tw := tabwriter.NewWriter(e.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTER\tVALUE")
	for _, k := range sortedKeys(snap.Counters) {
		fmt.Fprintf(tw, "%s\t%d\n", k, snap.Counters[k])
	}
	if len(snap.Summaries) > 0 {
		fmt.Fprintln(tw, "\nSUMMARY\tCOUNT\tSUM\tMIN\tMAX")
		for _, k := range sortedKeys(snap.Summaries) {
			s := snap.Summaries[k]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", k, s.Count, s.Sum, s.Min, s.Max)
		}
	}
	return tw.Flush()
}
