package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistorySizeEmpty(t *testing.T) {
	for _, shards := range []int{1, 3, 64} {
		assert.Equal(t, 0, NewHistory(shards).Size())
	}
}

func TestHistorySizeIndependentOfShards(t *testing.T) {
	const numValues = 100
	for _, shards := range []int{0, 1, 7, 64, 1000} {
		h := NewHistory(shards)
		for i := 0; i < numValues; i++ {
			require.True(t, h.Insert(fmt.Sprintf("%d val", i)))
		}
		assert.Equal(t, numValues, h.Size(), "shards=%d", shards)
	}
}

func TestHistoryInsert(t *testing.T) {
	h := NewHistory(10)

	assert.True(t, h.Insert("test value"))
	assert.True(t, h.Contains("test value"))

	assert.False(t, h.Insert("test value"))
	assert.Equal(t, 1, h.Size())
}

func TestHistoryContains(t *testing.T) {
	h := NewHistory(10)
	for _, d := range []string{"qunitjs.com", "sizzlejs.com", "webhint.io", "americanexpress.com", "coinbase.com"} {
		h.Insert(d)
	}

	assert.True(t, h.Contains("webhint.io"))
	assert.False(t, h.Contains("netflix.com"))
}

func TestHistoryNormalizesShards(t *testing.T) {
	assert.Equal(t, 1, NewHistory(0).ShardCount())
	assert.Equal(t, 1, NewHistory(-5).ShardCount())
	assert.Equal(t, 16, NewHistory(16).ShardCount())
}

func TestHistoryDomainsSorted(t *testing.T) {
	h := NewHistory(4)
	h.Insert("github.com")
	h.Insert("apple.com")
	h.Insert("zoom.us")

	assert.Equal(t, []string{"apple.com", "github.com", "zoom.us"}, h.Domains())
}

func TestHistoryConcurrentInsertSingleWinner(t *testing.T) {
	h := NewHistory(8)

	const callers = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if h.Insert("github.com") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, h.Contains("github.com"))
	assert.Equal(t, 1, h.Size())
}

func TestHistoryConcurrentDistinctInserts(t *testing.T) {
	h := NewHistory(16)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				d := fmt.Sprintf("w%d-%d.com", w, i)
				assert.True(t, h.Insert(d))
				assert.True(t, h.Contains(d))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 2000, h.Size())
}
