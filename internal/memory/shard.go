// Package memory holds the in-memory visited-domain state shared by every
// visitation: a flat History set or a Domain Graph, both partitioned into a
// fixed number of independently locked shards.
package memory

import "github.com/zeebo/xxh3"

// shardIndex maps a domain onto one of n shards. The hash is deterministic,
// so a domain lives in the same shard for the lifetime of a store.
func shardIndex(domain string, n int) int {
	return int(xxh3.HashString(domain) % uint64(n))
}

func normalizeShards(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
