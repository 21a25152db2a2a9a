package memory

import (
	"fmt"
	"time"

	"github.com/alvmarrod/domain-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

// Flush writes every vertex and edge to SQLite in one transaction.
// It is meant to run once, after the crawl has drained.
func (g *Graph) Flush(store *storage.Storage) error {
	startTime := time.Now()
	logrus.Info("Starting graph flush to database...")

	batch, err := store.Begin()
	if err != nil {
		return err
	}

	// nodes first, so edges can be written with database IDs
	idMap := make(map[string]int64, g.Size())
	var firstErr error
	g.Walk(func(v *Vertex) {
		if firstErr != nil {
			return
		}
		in, out := v.Degree()
		id, err := batch.UpsertNode(v.Domain(), in, out)
		if err != nil {
			firstErr = fmt.Errorf("flush node %s: %w", v.Domain(), err)
			return
		}
		idMap[v.Domain()] = id
	})

	edgesWritten := 0
	g.Walk(func(v *Vertex) {
		if firstErr != nil {
			return
		}
		fromID := idMap[v.Domain()]
		for _, dst := range v.Outgoing() {
			toID, ok := idMap[dst]
			if !ok {
				logrus.Warnf("Skipping edge %s -> %s: node ID mapping not found", v.Domain(), dst)
				continue
			}
			if err := batch.UpsertEdge(fromID, toID); err != nil {
				firstErr = fmt.Errorf("flush edge %s -> %s: %w", v.Domain(), dst, err)
				return
			}
			edgesWritten++
		}
	})

	if firstErr != nil {
		if err := batch.Rollback(); err != nil {
			logrus.Warnf("Rollback failed: %v", err)
		}
		return firstErr
	}

	if err := batch.Commit(); err != nil {
		return err
	}

	logrus.Infof("Flush complete: %d nodes, %d edges written in %v", len(idMap), edgesWritten, time.Since(startTime))
	return nil
}

// Flush writes every recorded domain to SQLite as an isolated node
func (h *History) Flush(store *storage.Storage) error {
	startTime := time.Now()

	batch, err := store.Begin()
	if err != nil {
		return err
	}

	domains := h.Domains()
	for _, d := range domains {
		if _, err := batch.UpsertNode(d, 0, 0); err != nil {
			if rbErr := batch.Rollback(); rbErr != nil {
				logrus.Warnf("Rollback failed: %v", rbErr)
			}
			return fmt.Errorf("flush node %s: %w", d, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return err
	}

	logrus.Infof("Flush complete: %d domains written in %v", len(domains), time.Since(startTime))
	return nil
}
