package metrics

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haukened/imeigen/internal/app"
)

// openTempDB creates an isolated sqlite database file for tests.
func openTempDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "m.db")
	db, err := sql.Open("sqlite3", p)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newManager(t *testing.T, cfg Config) (*Manager, *sql.DB) {
	t.Helper()
	db := openTempDB(t)
	m := New(db, cfg)
	if err := m.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return m, db
}

func counterValue(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	var v int64
	row := db.QueryRowContext(context.Background(), `SELECT value FROM metrics_counters WHERE name=?`, name)
	if err := row.Scan(&v); err != nil {
		t.Fatalf("scan %s: %v", name, err)
	}
	return v
}

func TestManagerIncFlush(t *testing.T) {
	m, db := newManager(t, Config{FlushInterval: time.Hour})
	ctx := context.Background()
	m.Inc(app.CounterGenerated, 1)
	m.Inc(app.CounterGenerated, 2)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if v := counterValue(t, db, app.CounterGenerated); v != 3 {
		t.Fatalf("expected 3 got %d", v)
	}
}

func TestManagerObserveFlushSnapshot(t *testing.T) {
	m, _ := newManager(t, Config{FlushInterval: time.Hour})
	ctx := context.Background()
	m.Observe(app.SummaryImportBatchInserts, 5)
	m.Observe(app.SummaryImportBatchInserts, 7)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Counters) != 0 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
	agg, ok := snap.Summaries[app.SummaryImportBatchInserts]
	if !ok {
		t.Fatalf("missing summary")
	}
	if agg != (Summary{Count: 2, Sum: 12, Min: 5, Max: 7}) {
		t.Fatalf("bad summary %+v", agg)
	}
}

func TestManagerSummaryLayering(t *testing.T) {
	m, db := newManager(t, Config{FlushInterval: time.Hour})
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO metrics_summaries(name,count,sum,min,max) VALUES(?,?,?,?,?)`, app.SummaryImportBatchInserts, 3, 30, 5, 20); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
	m.Observe(app.SummaryImportBatchInserts, 4)
	m.Observe(app.SummaryImportBatchInserts, 25)
	m.Observe(app.SummaryImportBatchInserts, 6)
	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	agg := snap.Summaries[app.SummaryImportBatchInserts]
	if agg != (Summary{Count: 6, Sum: 65, Min: 4, Max: 25}) {
		t.Fatalf("unexpected layered summary %+v", agg)
	}
}

func TestManagerStopFlushesQueuedEvents(t *testing.T) {
	m, db := newManager(t, Config{FlushInterval: time.Hour})
	m.Inc(app.CounterValidated, 4)
	// not started: Stop must apply the queued event itself
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if v := counterValue(t, db, app.CounterValidated); v != 4 {
		t.Fatalf("expected 4 got %d", v)
	}
}

func TestManagerSnapshotMergesDeltas(t *testing.T) {
	m, db := newManager(t, Config{FlushInterval: time.Hour})
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO metrics_counters(name,value) VALUES(?,10)`, app.CounterGenerated); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m.Inc(app.CounterGenerated, 5)
	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Counters[app.CounterGenerated] != 15 {
		t.Fatalf("expected merged 15 got %d", snap.Counters[app.CounterGenerated])
	}
}

func TestManagerFlushEmpty(t *testing.T) {
	m, _ := newManager(t, Config{})
	if err := m.flush(context.Background()); err != nil {
		t.Fatalf("flush empty: %v", err)
	}
}

func TestManagerFlushFailureKeepsDeltas(t *testing.T) {
	m, db := newManager(t, Config{FlushInterval: time.Hour})
	m.Inc(app.CounterGenerated, 2)
	m.drain()
	db.Close()
	if err := m.flush(context.Background()); err == nil {
		t.Fatalf("expected flush error on closed db")
	}
	m.mu.Lock()
	got := m.counters[app.CounterGenerated]
	m.mu.Unlock()
	if got != 2 {
		t.Fatalf("expected delta retained, got %d", got)
	}
}

func TestManagerStartIdempotent(t *testing.T) {
	m, db := newManager(t, Config{FlushInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	m.Start(ctx) // second call should be no-op
	m.Inc(app.CounterGenerated, 1)
	time.Sleep(30 * time.Millisecond)
	cancel()
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if v := counterValue(t, db, app.CounterGenerated); v == 0 {
		t.Fatalf("expected counter increment persisted")
	}
}

func TestManagerChannelFullAppliesInline(t *testing.T) {
	m, db := newManager(t, Config{})
	ctx := context.Background()
	m.events = make(chan event, 1)
	m.Inc(app.CounterGenerated, 1)
	// buffer is full: applied directly
	m.Inc(app.CounterGenerated, 100)
	m.Observe(app.SummaryImportBatchInserts, 7)
	m.drain()
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if v := counterValue(t, db, app.CounterGenerated); v != 101 {
		t.Fatalf("expected 101 got %d", v)
	}
}

func TestManagerWithoutStartKeepsEveryEvent(t *testing.T) {
	m, _ := newManager(t, Config{})
	ctx := context.Background()
	const n = 3000
	for i := 0; i < n; i++ {
		m.Inc(app.CounterValidated, 1)
		m.Observe(app.SummarySnapshotRecords, 2)
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := snap.Counters[app.CounterValidated]; got != n {
		t.Fatalf("expected %d validations got %d", n, got)
	}
	if got := snap.Summaries[app.SummarySnapshotRecords]; got.Count != n || got.Sum != 2*n {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestManagerIncNonPositiveIgnored(t *testing.T) {
	m, db := newManager(t, Config{})
	ctx := context.Background()
	m.Inc(app.CounterGenerated, -5)
	m.Inc(app.CounterGenerated, 0)
	select {
	case ev := <-m.events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT value FROM metrics_counters WHERE name=?`, app.CounterGenerated)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	if rows.Next() {
		t.Fatalf("expected no row for ignored inc")
	}
}

func TestManagerWithoutDatabase(t *testing.T) {
	m := New(nil, Config{})
	ctx := context.Background()
	if err := m.InitSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	m.Inc(app.CounterGenerated, 3)
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Counters[app.CounterGenerated] != 3 {
		t.Fatalf("expected in-memory total 3, got %+v", snap.Counters)
	}
}

func TestManagerRecordsServiceActivity(t *testing.T) {
	m := New(nil, Config{})
	svc := &app.Service{Metrics: m}
	if _, err := svc.Validate(context.Background(), "12345"); err == nil {
		t.Fatalf("expected structural error")
	}
	snap, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Counters[app.CounterValidated] != 1 || snap.Counters[app.CounterStructuralInvalid] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}
