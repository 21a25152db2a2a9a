package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alvmarrod/domain-weaver/internal/config"
	"github.com/alvmarrod/domain-weaver/internal/domain"
	"github.com/alvmarrod/domain-weaver/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Crawler orchestrates the recursive domain crawl
type Crawler struct {
	cfg       *config.Config
	fetcher   Fetcher
	admission *Admission
	tracker   *metrics.Tracker
	slots     *semaphore.Weighted // nil when in-flight visits are unbounded
}

// Result summarises a finished crawl
type Result struct {
	SeedDomain string
	Domains    int
	Elapsed    time.Duration
}

// NewCrawler creates a new crawler instance
func NewCrawler(cfg *config.Config, fetcher Fetcher, admission *Admission, tracker *metrics.Tracker) *Crawler {
	c := &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		admission: admission,
		tracker:   tracker,
	}
	if cfg.MaxInFlight > 0 {
		c.slots = semaphore.NewWeighted(int64(cfg.MaxInFlight))
	}
	return c
}

// Run records the seed domain and crawls from the seed URL until every
// visitation finished. Cancelling ctx stops new visitations from being
// spawned; visitations already fetching run to completion.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	seedDomain, ok := c.admission.Reduce(c.cfg.SeedURL)
	if !ok {
		return nil, fmt.Errorf("invalid seed URL %q: no registrable domain", c.cfg.SeedURL)
	}

	start := time.Now()

	if c.admission.Seed(seedDomain) {
		c.tracker.IncrementDomainsDiscovered()
	}
	logrus.Infof("%d - %s", c.admission.Size(), seedDomain)

	c.visit(ctx, c.cfg.SeedURL, 0, func() {})

	return &Result{
		SeedDomain: seedDomain,
		Domains:    c.admission.Size(),
		Elapsed:    time.Since(start),
	}, nil
}

// visit fetches pageURL, spawns one child per newly admitted domain and
// waits for all of them. release is called as soon as this page is
// processed, before the children are joined.
func (c *Crawler) visit(ctx context.Context, pageURL string, depth int, release func()) {
	children := c.process(ctx, pageURL, depth)
	release()

	// children at the depth limit would return without fetching, so they
	// are recorded but never spawned and never hold a slot
	if len(children) == 0 || depth+1 >= c.cfg.MaxDepth {
		return
	}

	var g errgroup.Group
	for _, child := range children {
		if !c.tryAcquire() {
			c.tracker.IncrementVisitsDropped()
			logrus.Debugf("In-flight limit reached, dropping %s", child)
			continue
		}

		c.tracker.IncrementVisitsSpawned()
		g.Go(func() error {
			// a failing subtree never cancels its siblings
			c.visit(ctx, child, depth+1, c.release)
			return nil
		})
	}
	_ = g.Wait()
}

// process is the fetch-and-admit step of a visitation. It returns the URLs
// of the children to spawn.
func (c *Crawler) process(ctx context.Context, pageURL string, depth int) []string {
	if depth >= c.cfg.MaxDepth {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	log := logrus.WithFields(logrus.Fields{"url": pageURL, "depth": depth})

	fetchStart := time.Now()
	page, err := c.fetcher.Fetch(ctx, pageURL)
	c.tracker.RecordFetchTime(time.Since(fetchStart))
	if err != nil {
		c.tracker.RecordOutcome(outcomeOf(err))
		log.Warnf("Fetch failed: %v", err)
		return nil
	}
	c.tracker.RecordOutcome(metrics.OutcomeSuccess)
	log.Debugf("Fetched %d links (status=%d)", len(page.Links), page.StatusCode)

	source, ok := c.admission.Reduce(pageURL)
	if !ok {
		log.Warn("Page URL has no registrable domain, skipping links")
		return nil
	}

	admitted := c.admission.AdmitAll(page.Links, source)
	for _, a := range admitted {
		c.tracker.IncrementDomainsDiscovered()
		logrus.Infof("%d - %s", c.admission.Size(), a.Domain)
	}

	if ctx.Err() != nil {
		if len(admitted) > 0 {
			log.Infof("Crawl cancelled, not spawning %d visits", len(admitted))
		}
		return nil
	}

	children := make([]string, 0, len(admitted))
	for _, a := range admitted {
		children = append(children, childURL(a))
	}
	return children
}

func (c *Crawler) tryAcquire() bool {
	if c.slots == nil {
		return true
	}
	return c.slots.TryAcquire(1)
}

func (c *Crawler) release() {
	if c.slots != nil {
		c.slots.Release(1)
	}
}

// childURL is the root URL of an admitted domain, keeping the link's scheme
func childURL(a Admitted) string {
	return domain.Scheme(a.Link) + "://" + a.Domain
}

func outcomeOf(err error) metrics.Outcome {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Blocked() {
		return metrics.OutcomeBlocked
	}
	return metrics.OutcomeFailure
}
