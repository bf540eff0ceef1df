package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamCacheGetPut(t *testing.T) {
	c := NewParamCache()
	key := SimilarityKey{WidthBucket: 10, HeightBucket: 10, SizeBucket: 8}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, LearnedParams{Quality: 0.3, Scale: 1.0})
	got, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, LearnedParams{Quality: 0.3, Scale: 1.0}, got)

	// Overwrite: last write wins.
	c.Put(key, LearnedParams{Quality: 0.5, Scale: 0.85})
	got, _ = c.Get(key)
	assert.Equal(t, LearnedParams{Quality: 0.5, Scale: 0.85}, got)
	assert.Equal(t, 1, c.Len())
}

func TestParamCacheConcurrentAccess(t *testing.T) {
	c := NewParamCache()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := SimilarityKey{WidthBucket: i % 10, HeightBucket: worker, SizeBucket: int64(i % 7)}
				c.Put(key, LearnedParams{Quality: float64(worker) / 10, Scale: 1.0})
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()

	// 8 workers x 10 width buckets x 7 size buckets.
	assert.Equal(t, 8*10*7, c.Len())
}

func TestParamCacheSnapshotIsolation(t *testing.T) {
	c := NewParamCache()
	key := SimilarityKey{WidthBucket: 1, HeightBucket: 2, SizeBucket: 3}
	c.Put(key, LearnedParams{Quality: 0.4, Scale: 1.0})

	snap := c.Snapshot()
	c.Put(key, LearnedParams{Quality: 0.9, Scale: 0.5})

	assert.Equal(t, LearnedParams{Quality: 0.4, Scale: 1.0}, snap[key],
		"snapshot must not observe later writes")
}
