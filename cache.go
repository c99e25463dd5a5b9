package dxa

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Cache memoises decoded file payloads across repeated Extract calls on the
// same plan, keyed by an xxhash digest of the plan's archive identity
// (path plus data_start) and admitted via TinyLFU so a bulk scan touching
// mostly-cold files can't evict a small set of hot ones. Purely an
// optimisation: it changes no C1-C7 invariant and is safe to leave unused.
type Cache struct {
	mu    sync.Mutex
	inner *tinylfu.T
}

// NewCache creates a Cache admitting up to size decoded payloads, sampling
// sampleSize candidates per TinyLFU admission decision.
func NewCache(size, sampleSize int) *Cache {
	return &Cache{inner: tinylfu.New(size, sampleSize)}
}

func cacheKey(p ExtractPlan) string {
	h := xxhash.New()
	_, _ = h.WriteString(p.Path)
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(p.DataStart >> (8 * uint(i)))
	}
	_, _ = h.Write(buf[:])
	return strconv.FormatUint(h.Sum64(), 36)
}

// Extract decodes p via a, memoising the result in c. Concurrent callers
// for the same plan may both miss and both decode once: the cache
// deduplicates completed results, not in-flight work.
func (c *Cache) Extract(a *Archive, p ExtractPlan) ([]byte, error) {
	key := cacheKey(p)

	c.mu.Lock()
	v, ok := c.inner.Get(key)
	c.mu.Unlock()
	if ok {
		return v.([]byte), nil
	}

	data, err := a.Extract(p)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.inner.Set(&tinylfu.Item{Key: key, Value: data})
	c.mu.Unlock()

	return data, nil
}
