package memory

import (
	"sort"
	"sync"
)

type historyShard struct {
	mu      sync.Mutex
	domains map[string]struct{}
}

// History is a sharded set of visited domains with no link structure
type History struct {
	shards []*historyShard
}

// NewHistory creates an empty history split into numShards shards
func NewHistory(numShards int) *History {
	numShards = normalizeShards(numShards)

	h := &History{shards: make([]*historyShard, numShards)}
	for i := range h.shards {
		h.shards[i] = &historyShard{domains: make(map[string]struct{})}
	}
	return h
}

func (h *History) shard(domain string) *historyShard {
	return h.shards[shardIndex(domain, len(h.shards))]
}

// Insert records domain and reports whether it was not already present.
// The check and the insert happen under one acquisition of the shard lock.
func (h *History) Insert(domain string) bool {
	s := h.shard(domain)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.domains[domain]; exists {
		return false
	}
	s.domains[domain] = struct{}{}
	return true
}

// Contains reports whether domain was previously inserted
func (h *History) Contains(domain string) bool {
	s := h.shard(domain)
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.domains[domain]
	return exists
}

// Size sums the shard sizes, locking one shard at a time
func (h *History) Size() int {
	size := 0
	for _, s := range h.shards {
		s.mu.Lock()
		size += len(s.domains)
		s.mu.Unlock()
	}
	return size
}

// ShardCount returns the fixed number of shards
func (h *History) ShardCount() int {
	return len(h.shards)
}

// Domains returns a sorted snapshot of every recorded domain
func (h *History) Domains() []string {
	domains := make([]string, 0, h.Size())
	for _, s := range h.shards {
		s.mu.Lock()
		for d := range s.domains {
			domains = append(domains, d)
		}
		s.mu.Unlock()
	}
	sort.Strings(domains)
	return domains
}
