// Package metrics exposes Prometheus counters and gauges for the pager
// and VM, grounded on
// NayanaChandrika99-DocReasoner/tree_db/internal/metrics's promauto-based
// registration style (trimmed to this engine's domain: no gRPC-layer
// metrics, since spec.md §1 puts network service out of scope).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kellerstore/kellerstore/internal/pager"
)

// Registry holds every metric this engine exports.
type Registry struct {
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	JournalFsyncsTotal prometheus.Counter
	CommitsTotal       prometheus.Counter
	RollbacksTotal     prometheus.Counter
	CachedPages        prometheus.Gauge
	TotalPages         prometheus.Gauge

	InstructionsExecutedTotal prometheus.Counter

	prevCacheHits   int
	prevCacheMisses int
	prevCommits     int
	prevRollbacks   int
}

// NewRegistry constructs and registers every metric against reg. Pass
// prometheus.NewRegistry() for an isolated registry (as tests do), or
// prometheus.DefaultRegisterer to expose via the default /metrics handler.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kellerdb_pager_cache_hits_total",
			Help: "Total number of pager cache hits.",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kellerdb_pager_cache_misses_total",
			Help: "Total number of pager cache misses.",
		}),
		JournalFsyncsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kellerdb_pager_journal_fsyncs_total",
			Help: "Rollback-journal fsync proxy: advances by one per committed transaction; the journal's per-append fsyncs are not counted.",
		}),
		CommitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kellerdb_pager_commits_total",
			Help: "Total number of committed transactions.",
		}),
		RollbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kellerdb_pager_rollbacks_total",
			Help: "Total number of rolled-back transactions.",
		}),
		CachedPages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kellerdb_pager_cached_pages",
			Help: "Current number of pages held in the pager's cache.",
		}),
		TotalPages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kellerdb_pager_total_pages",
			Help: "Total number of pages allocated in the data file.",
		}),
		InstructionsExecutedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kellerdb_vm_instructions_executed_total",
			Help: "Total number of VM instructions dispatched.",
		}),
	}
}

// Sample polls p.Stats() and applies the deltas to the registry's
// counters, then sets the gauges to their latest values. Counters only
// move forward, so Sample can be called on a timer (cmd/kellerdb's demo
// driver calls it after every scenario) without double-counting.
func (r *Registry) Sample(p *pager.Pager) {
	stats := p.Stats()

	if d := stats.CacheHits - r.prevCacheHits; d > 0 {
		r.CacheHitsTotal.Add(float64(d))
	}
	if d := stats.CacheMisses - r.prevCacheMisses; d > 0 {
		r.CacheMissesTotal.Add(float64(d))
	}
	if d := stats.Commits - r.prevCommits; d > 0 {
		r.CommitsTotal.Add(float64(d))
		// The pager does not count journal fsyncs, so this counter
		// advances by the commit count. The journal itself fsyncs once
		// at Begin and once after every appended pre-image; those
		// fsyncs are not reflected here.
		r.JournalFsyncsTotal.Add(float64(d))
	}
	if d := stats.Rollbacks - r.prevRollbacks; d > 0 {
		r.RollbacksTotal.Add(float64(d))
	}

	r.prevCacheHits = stats.CacheHits
	r.prevCacheMisses = stats.CacheMisses
	r.prevCommits = stats.Commits
	r.prevRollbacks = stats.Rollbacks

	r.CachedPages.Set(float64(stats.CachedPages))
	r.TotalPages.Set(float64(stats.TotalPages))
}
