// Package cache implements the shared file content cache used across the
// mining phases of a pipeline run. Entries are validated against the source
// file's modification time and evicted least-recently-used under count and
// memory budgets. A cache belongs to one mining session; it must not be
// shared across concurrent, independent runs.
package cache

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"patternbank/internal/lru"
)

const (
	// MaxFileSize is the per-file ceiling. Files larger than this are
	// excluded from mining entirely, not merely left uncached.
	MaxFileSize = 5 * 1024 * 1024

	// DefaultMaxEntries and DefaultMaxBytes bound the cache.
	DefaultMaxEntries = 512
	DefaultMaxBytes   = 64 * 1024 * 1024
)

type entry struct {
	content string
	size    int64
	modTime time.Time
}

// Cache is a bounded, invalidation-aware content cache keyed by resolved
// absolute path. Safe for concurrent use within one run: a mutex guards the
// LRU index and singleflight collapses concurrent reads of the same path
// into one disk read.
type Cache struct {
	mu         sync.Mutex
	entries    *lru.List[string, entry]
	maxEntries int
	maxBytes   int64
	validate   bool
	sf         singleflight.Group
	log        *zap.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	skips         atomic.Int64
	invalidations atomic.Int64
	evictions     atomic.Int64
	bytesRead     atomic.Int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Skips         int64 `json:"skips"`
	Invalidations int64 `json:"invalidations"`
	Evictions     int64 `json:"evictions"`
	Entries       int   `json:"entries"`
	Bytes         int64 `json:"bytes"`
	BytesRead     int64 `json:"bytes_read"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries overrides the entry-count budget.
func WithMaxEntries(n int) Option { return func(c *Cache) { c.maxEntries = n } }

// WithMaxBytes overrides the memory budget.
func WithMaxBytes(n int64) Option { return func(c *Cache) { c.maxBytes = n } }

// WithoutValidation disables per-hit stat checks. Intended for pre-warmed,
// caller-supplied content that is already known fresh.
func WithoutValidation() Option { return func(c *Cache) { c.validate = false } }

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option { return func(c *Cache) { c.log = l } }

// New creates an empty cache with default budgets and validation enabled.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    lru.New[string, entry](),
		maxEntries: DefaultMaxEntries,
		maxBytes:   DefaultMaxBytes,
		validate:   true,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the content of the file at path. The second return is false
// when the file is excluded (symlink, oversized, unreadable). Cached content
// is revalidated against the file's current modification time unless
// validation is disabled.
func (c *Cache) Get(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		c.skips.Add(1)
		return "", false
	}

	c.mu.Lock()
	if e, ok := c.entries.Get(abs); ok {
		if !c.validate {
			c.mu.Unlock()
			c.hits.Add(1)
			return e.content, true
		}
		info, statErr := os.Lstat(abs)
		if statErr == nil && info.Mode()&os.ModeSymlink == 0 && info.ModTime().Equal(e.modTime) {
			c.mu.Unlock()
			c.hits.Add(1)
			return e.content, true
		}
		// Source changed or became unreadable underneath us.
		c.entries.Remove(abs)
		c.invalidations.Add(1)
		if statErr != nil {
			c.mu.Unlock()
			c.skips.Add(1)
			return "", false
		}
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do(abs, func() (any, error) {
		return c.readAndAdmit(abs)
	})
	if err != nil {
		return "", false
	}
	return v.(string), true
}

// skipError marks files excluded from mining. Never surfaced to callers;
// Get reports exclusion as absence of content.
type skipError struct{}

func (skipError) Error() string { return "file excluded from cache" }

func (c *Cache) readAndAdmit(abs string) (string, error) {
	info, err := os.Lstat(abs)
	if err != nil {
		c.skips.Add(1)
		return "", skipError{}
	}
	if info.Mode()&os.ModeSymlink != 0 || info.Size() > MaxFileSize {
		c.skips.Add(1)
		return "", skipError{}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		c.skips.Add(1)
		return "", skipError{}
	}
	c.misses.Add(1)
	c.bytesRead.Add(int64(len(data)))

	content := string(data)
	// In-memory estimate: 2 bytes per character, not on-disk byte count.
	size := 2 * int64(utf8.RuneCountInString(content))

	c.mu.Lock()
	c.admit(abs, entry{content: content, size: size, modTime: info.ModTime()})
	c.mu.Unlock()
	return content, nil
}

// admit inserts an entry, evicting from the LRU tail as needed. Caller holds
// the mutex.
func (c *Cache) admit(abs string, e entry) {
	if e.size > c.maxBytes {
		// Larger than the whole budget: usable this once, never cached.
		return
	}
	if c.entries.Len() >= c.maxEntries {
		batch := c.maxEntries / 10
		if batch < 1 {
			batch = 1
		}
		evicted := c.entries.EvictOldest(batch)
		c.evictions.Add(int64(len(evicted)))
	}
	budget := c.maxBytes - e.size
	evicted := c.entries.EvictUntil(func(bytes int64) bool { return bytes <= budget })
	c.evictions.Add(int64(len(evicted)))

	c.entries.Put(abs, e, e.size)
}

// Put pre-warms the cache with caller-supplied content. The entry carries
// the file's current mod time when the file exists so later validated hits
// still work.
func (c *Cache) Put(path, content string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	var mod time.Time
	if info, statErr := os.Lstat(abs); statErr == nil {
		mod = info.ModTime()
	}
	size := 2 * int64(utf8.RuneCountInString(content))
	c.mu.Lock()
	c.admit(abs, entry{content: content, size: size, modTime: mod})
	c.mu.Unlock()
}

// Invalidate drops the entry for path if present.
func (c *Cache) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	if c.entries.Remove(abs) {
		c.invalidations.Add(1)
	}
	c.mu.Unlock()
}

// Clear releases all cached content. Call after a mining session.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries.Clear()
	c.mu.Unlock()
}

// Stats returns a snapshot of the cumulative counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := c.entries.Len()
	bytes := c.entries.Bytes()
	c.mu.Unlock()
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Skips:         c.skips.Load(),
		Invalidations: c.invalidations.Load(),
		Evictions:     c.evictions.Load(),
		Entries:       entries,
		Bytes:         bytes,
		BytesRead:     c.bytesRead.Load(),
	}
}

// LogStats emits the counters at debug level for tuning.
func (c *Cache) LogStats() {
	s := c.Stats()
	c.log.Debug("content cache stats",
		zap.Int64("hits", s.Hits),
		zap.Int64("misses", s.Misses),
		zap.Int64("skips", s.Skips),
		zap.Int64("invalidations", s.Invalidations),
		zap.Int64("evictions", s.Evictions),
		zap.Int("entries", s.Entries),
		zap.Int64("bytes", s.Bytes),
		zap.Int64("bytes_read", s.BytesRead))
}
