package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/domain-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker holds and manages crawl metrics.
// Counters are kept in memory for the final report and mirrored into a
// private Prometheus registry.
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
	outcomes         Outcomes

	registry          *prometheus.Registry
	fetches           *prometheus.CounterVec
	domainsDiscovered prometheus.Counter
	visitsSpawned     prometheus.Counter
	visitsDropped     prometheus.Counter
	fetchDuration     prometheus.Histogram
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
		registry: registry,
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weaver_fetches_total",
			Help: "Page fetches by outcome",
		}, []string{"outcome"}),
		domainsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_domains_discovered_total",
			Help: "Distinct registrable domains admitted",
		}),
		visitsSpawned: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_visits_spawned_total",
			Help: "Child visitations started",
		}),
		visitsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_visits_dropped_total",
			Help: "Child visitations shed by the in-flight limit",
		}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weaver_fetch_duration_seconds",
			Help:    "Page fetch duration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// IncrementDomainsDiscovered increments the discovered domains counter
func (t *Tracker) IncrementDomainsDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.DomainsDiscovered++
	t.domainsDiscovered.Inc()
}

// IncrementVisitsSpawned increments the spawned visitations counter
func (t *Tracker) IncrementVisitsSpawned() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.VisitsSpawned++
	t.visitsSpawned.Inc()
}

// IncrementVisitsDropped increments the shed visitations counter
func (t *Tracker) IncrementVisitsDropped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.VisitsDropped++
	t.visitsDropped.Inc()
}

// RecordOutcome tallies the outcome of a page fetch
func (t *Tracker) RecordOutcome(outcome Outcome) {
	t.outcomes.Add(outcome)
	t.fetches.WithLabelValues(outcome.String()).Inc()
}

// Outcomes returns the fetch outcome tally
func (t *Tracker) Outcomes() *Outcomes {
	return &t.outcomes
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
	t.fetchDuration.Observe(duration.Seconds())
}

// snapshot must be called with t.mu held
func (t *Tracker) snapshot() storage.Metrics {
	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	snapshot.PagesFetched = t.outcomes.Success()
	snapshot.PagesBlocked = t.outcomes.Blocked()
	snapshot.PagesFailed = t.outcomes.Failure()
	return snapshot
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	snapshot := t.snapshot()
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	s := t.GetSnapshot()
	return fmt.Sprintf("Domains: %d discovered | Visits: %d spawned, %d dropped | Pages: %d fetched, %d blocked, %d failed",
		s.DomainsDiscovered,
		s.VisitsSpawned,
		s.VisitsDropped,
		s.PagesFetched,
		s.PagesBlocked,
		s.PagesFailed,
	)
}
