package extract

// Cache memoizes marker searches within the windows of one parse. A window is
// identified by its offsets inside a Source, so keys stay small even for
// large captures. A Cache belongs to a single goroutine and a single file.
type Cache struct {
	entries map[cacheKey]match
	hits    int
	misses  int
}

type cacheKey struct {
	src    int
	lo, hi int
	marker string
	occ    int
}

type match struct {
	pos  int
	size int
	err  error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]match)}
}

// Hits returns how many searches were answered from the cache.
func (c *Cache) Hits() int {
	if c == nil {
		return 0
	}
	return c.hits
}

// Misses returns how many searches had to scan the window.
func (c *Cache) Misses() int {
	if c == nil {
		return 0
	}
	return c.misses
}

// Len returns the number of memoized searches.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (c *Cache) locate(src Source, lo, hi int, m Marker, n int) (int, int, error) {
	if c == nil {
		return locate(src.Text, lo, hi, m, n)
	}
	k := cacheKey{src: src.ID, lo: lo, hi: hi, marker: m.key(), occ: n}
	if hit, ok := c.entries[k]; ok {
		c.hits++
		return hit.pos, hit.size, hit.err
	}
	c.misses++
	pos, size, err := locate(src.Text, lo, hi, m, n)
	c.entries[k] = match{pos: pos, size: size, err: err}
	return pos, size, err
}
