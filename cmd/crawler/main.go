package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/domain-weaver/internal/config"
	"github.com/alvmarrod/domain-weaver/internal/crawler"
	"github.com/alvmarrod/domain-weaver/internal/domain"
	"github.com/alvmarrod/domain-weaver/internal/memory"
	"github.com/alvmarrod/domain-weaver/internal/metrics"
	"github.com/alvmarrod/domain-weaver/internal/report"
	"github.com/alvmarrod/domain-weaver/internal/storage"
	"github.com/alvmarrod/domain-weaver/internal/version"
	"github.com/sirupsen/logrus"
)

// visitedState is the store selected by the crawl mode
type visitedState struct {
	graph   *memory.Graph
	history *memory.History
}

func (v visitedState) admissionStore() crawler.VisitedStore {
	if v.graph != nil {
		return crawler.GraphStore(v.graph)
	}
	return crawler.HistoryStore(v.history)
}

func (v visitedState) shardCount() int {
	if v.graph != nil {
		return v.graph.ShardCount()
	}
	return v.history.ShardCount()
}

// dump writes the end-of-run artifacts. It is safe to call while visits are
// still running, which the forced exit path relies on.
func (v visitedState) dump(cfg *config.Config) {
	if v.graph != nil {
		if err := report.WriteFile(cfg.GraphPath, v.graph); err != nil {
			logrus.Errorf("Failed to write graph dump: %v", err)
		} else {
			logrus.Infof("Graph written to %s", cfg.GraphPath)
		}
	}

	if cfg.DBPath == "" {
		return
	}

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		logrus.Errorf("Failed to initialize storage: %v", err)
		return
	}
	defer store.Close()

	if v.graph != nil {
		err = v.graph.Flush(store)
	} else {
		err = v.history.Flush(store)
	}
	if err != nil {
		logrus.Errorf("Failed to flush visited state: %v", err)
		return
	}

	nodes, edges, err := store.Counts()
	if err != nil {
		logrus.Errorf("Failed to read back dump: %v", err)
		return
	}
	logrus.Infof("Visited state saved to %s (%d nodes, %d edges)", cfg.DBPath, nodes, edges)
}

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Domain Weaver v%s starting...", version.Version)

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)

	logrus.Infof("Configuration loaded: seed=%s, depth=%d, mode=%s, shards=%d, max_in_flight=%d",
		cfg.SeedURL, cfg.MaxDepth, cfg.Mode, cfg.ShardCount, cfg.MaxInFlight)

	reducer, err := domain.NewReducer(cfg.ReducerCacheSize)
	if err != nil {
		logrus.Fatalf("Failed to create reducer: %v", err)
	}

	filter, err := crawler.NewFilter(cfg.ExcludePatterns)
	if err != nil {
		logrus.Fatalf("Failed to compile exclude patterns: %v", err)
	}

	var state visitedState
	if cfg.Mode == config.ModeHistory {
		state.history = memory.NewHistory(cfg.ShardCount)
	} else {
		state.graph = memory.NewGraph(cfg.ShardCount)
	}
	logrus.Debugf("Visited state: mode=%s, shards=%d", cfg.Mode, state.shardCount())

	tracker := metrics.NewTracker()
	admission := crawler.NewAdmission(state.admissionStore(), reducer, filter)
	fetcher := crawler.NewCollyFetcher(time.Duration(cfg.RequestTimeoutMs)*time.Millisecond, cfg.UserAgent)
	c := crawler.NewCrawler(cfg, fetcher, admission, tracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal stops new visits, the second forces an exit
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.Infof("Received signal: %v, draining in-flight visits...", sig)
		cancel()

		sig = <-sigChan
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
		logrus.Warn("Attempting emergency save...")
		state.dump(cfg)
		if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
			logrus.Errorf("Emergency metrics save failed: %v", err)
		}
		os.Exit(1)
	}()

	var wg sync.WaitGroup
	if cfg.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tracker.Serve(ctx, cfg.MetricsAddr); err != nil {
				logrus.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	// Start progress logger
	stopProgress := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	result, err := c.Run(ctx)
	if err != nil {
		logrus.Fatalf("Crawl failed: %v", err)
	}

	terminationReason := "completed"
	if ctx.Err() != nil {
		terminationReason = "signal"
	}

	close(stopProgress)
	cancel()
	wg.Wait()

	summary := report.Summary{Domains: result.Domains, Elapsed: result.Elapsed}
	fmt.Printf("\n%s\n", summary)
	logrus.Info("Final stats: " + tracker.LogProgress())

	state.dump(cfg)

	if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Crawl complete. Goodbye!")
}
