package lru

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int
	CurrentSize int64
	MaxEntries  int   // 0 when count-based limit is not set.
	MaxSize     int64 // 0 when size-based limit is not set.
}

// HitRate returns the cache hit rate as a fraction (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns current cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.curSize,
		MaxEntries:  c.maxEntries,
		MaxSize:     c.maxSize,
	}
}
