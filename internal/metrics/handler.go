package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imeigen"

// SnapshotProvider abstracts Manager for testing.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Collector exposes a SnapshotProvider to Prometheus. Metric names are only
// known at scrape time, so it registers as an unchecked collector.
type Collector struct {
	provider SnapshotProvider
	timeout  time.Duration
	errDesc  *prometheus.Desc
}

// NewCollector returns a Collector reading from provider on every scrape.
func NewCollector(provider SnapshotProvider) *Collector {
	return &Collector{
		provider: provider,
		timeout:  5 * time.Second,
		errDesc:  prometheus.NewDesc(namespace+"_metrics_snapshot_error", "Set when the usage snapshot could not be read.", nil, nil),
	}
}

// Describe sends nothing, marking the collector unchecked.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect emits one counter per usage counter, and a summary plus min/max
// gauges per usage summary.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.errDesc, err)
		return
	}
	for name, v := range snap.Counters {
		desc := prometheus.NewDesc(metricName(name), "Usage counter "+name+".", nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	for name, s := range snap.Summaries {
		base := metricName(name)
		desc := prometheus.NewDesc(base, "Usage summary "+name+".", nil, nil)
		ch <- prometheus.MustNewConstSummary(desc, uint64(s.Count), float64(s.Sum), nil)
		ch <- prometheus.MustNewConstMetric(prometheus.NewDesc(base+"_min", "Smallest observation of "+name+".", nil, nil), prometheus.GaugeValue, float64(s.Min))
		ch <- prometheus.MustNewConstMetric(prometheus.NewDesc(base+"_max", "Largest observation of "+name+".", nil, nil), prometheus.GaugeValue, float64(s.Max))
	}
}

func metricName(name string) string {
	return namespace + "_" + strings.ReplaceAll(name, "-", "_")
}

// Registry builds a registry with the usage collector and the Go runtime
// collectors.
func Registry(provider SnapshotProvider) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(provider),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the Prometheus text exposition for provider. If token is
// non-empty, requests must include Authorization: Bearer <token>.
func Handler(provider SnapshotProvider, token string) http.Handler {
	h := promhttp.HandlerFor(Registry(provider), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			hdr := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(hdr) <= len(prefix) || hdr[:len(prefix)] != prefix || hdr[len(prefix):] != token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		h.ServeHTTP(w, r)
	})
}
