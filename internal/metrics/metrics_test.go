package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alvmarrod/domain-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomesTally(t *testing.T) {
	var o Outcomes
	o.Add(OutcomeSuccess)
	o.Add(OutcomeFailure)
	o.Add(OutcomeBlocked)
	o.Add(OutcomeSuccess)

	assert.Equal(t, 2, o.Success())
	assert.Equal(t, 1, o.Failure())
	assert.Equal(t, 1, o.Blocked())
	assert.Equal(t, 4, o.Total())
}

func TestOutcomesConcurrent(t *testing.T) {
	var o Outcomes
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				o.Add(Outcome(i % 3))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, o.Failure())
	assert.Equal(t, 1000, o.Blocked())
	assert.Equal(t, 1000, o.Success())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "blocked", OutcomeBlocked.String())
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestTrackerSnapshot(t *testing.T) {
	tracker := NewTracker()
	tracker.IncrementDomainsDiscovered()
	tracker.IncrementDomainsDiscovered()
	tracker.IncrementVisitsSpawned()
	tracker.IncrementVisitsDropped()
	tracker.RecordOutcome(OutcomeSuccess)
	tracker.RecordOutcome(OutcomeBlocked)
	tracker.RecordFetchTime(100 * time.Millisecond)
	tracker.RecordFetchTime(300 * time.Millisecond)

	s := tracker.GetSnapshot()
	assert.Equal(t, 2, s.DomainsDiscovered)
	assert.Equal(t, 1, s.VisitsSpawned)
	assert.Equal(t, 1, s.VisitsDropped)
	assert.Equal(t, 1, s.PagesFetched)
	assert.Equal(t, 1, s.PagesBlocked)
	assert.Equal(t, 0, s.PagesFailed)
	assert.Equal(t, int64(400), s.TotalFetchTimeMs)
	assert.Equal(t, int64(200), s.AvgFetchTimeMs)

	assert.Contains(t, tracker.LogProgress(), "Domains: 2 discovered")
}

func TestTrackerPrometheusMirror(t *testing.T) {
	tracker := NewTracker()
	tracker.IncrementDomainsDiscovered()
	tracker.RecordOutcome(OutcomeFailure)
	tracker.RecordOutcome(OutcomeFailure)

	assert.Equal(t, 1.0, testutil.ToFloat64(tracker.domainsDiscovered))
	assert.Equal(t, 2.0, testutil.ToFloat64(tracker.fetches.WithLabelValues("failure")))

	rec := httptest.NewRecorder()
	tracker.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "weaver_domains_discovered_total 1"))
}

func TestTrackerWriteToFile(t *testing.T) {
	tracker := NewTracker()
	tracker.IncrementDomainsDiscovered()
	tracker.RecordOutcome(OutcomeSuccess)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tracker.WriteToFile(path, "completed"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var m storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "completed", m.TerminationReason)
	assert.Equal(t, 1, m.DomainsDiscovered)
	assert.Equal(t, 1, m.PagesFetched)
	assert.False(t, m.EndTime.Before(m.StartTime))
}
