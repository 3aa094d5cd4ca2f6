package client

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// CacheManager keeps scraped pages on disk so repeated runs, or a run
// being debugged, can reuse them without hitting the site.
type CacheManager struct {
	cacheDir   string
	defaultTTL time.Duration

	mu     sync.Mutex
	hits   int
	misses int
}

// CacheEntry represents a cached item with metadata
type CacheEntry struct {
	Key         string          `json:"key"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	AccessCount int             `json:"access_count"`
	LastAccess  time.Time       `json:"last_access"`
}

// CachedPage is the payload stored for a fetched page.
type CachedPage struct {
	URL      string `json:"url"`
	FinalURL string `json:"final_url"`
	Status   int    `json:"status"`
	Body     string `json:"body"`
}

// CacheStats contains cache statistics
type CacheStats struct {
	TotalEntries   int           `json:"total_entries"`
	TotalSize      int64         `json:"total_size"`
	SessionHits    int           `json:"session_hits"`
	SessionMisses  int           `json:"session_misses"`
	OldestEntry    time.Time     `json:"oldest_entry"`
	NewestEntry    time.Time     `json:"newest_entry"`
	ExpiredEntries int           `json:"expired_entries"`
	CacheDir       string        `json:"cache_dir"`
	DefaultTTL     time.Duration `json:"default_ttl"`
}

// DefaultCacheDir returns the per-user page cache location.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "apkcrawler", "pages")
	}
	return filepath.Join(os.TempDir(), "apkcrawler-cache")
}

// NewCacheManager creates a page cache rooted at cacheDir. Empty values
// fall back to DefaultCacheDir and a one hour TTL.
func NewCacheManager(cacheDir string, defaultTTL time.Duration) *CacheManager {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &CacheManager{
		cacheDir:   cacheDir,
		defaultTTL: defaultTTL,
	}
}

// Dir returns the cache directory.
func (c *CacheManager) Dir() string {
	return c.cacheDir
}

// Get retrieves an item from cache
func (c *CacheManager) Get(key string, target interface{}) (bool, error) {
	cachePath := c.getCachePath(key)

	entry, err := c.loadCacheEntry(cachePath)
	if os.IsNotExist(err) {
		c.count(false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(cachePath)
		c.count(false)
		return false, nil
	}

	entry.AccessCount++
	entry.LastAccess = time.Now()
	_ = c.saveCacheEntry(cachePath, entry) // best effort

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, err
	}
	c.count(true)
	return true, nil
}

func (c *CacheManager) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Set stores an item in cache
func (c *CacheManager) Set(key string, data interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	now := time.Now()
	entry := &CacheEntry{
		Key:        key,
		Data:       raw,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastAccess: now,
	}
	return c.saveCacheEntry(c.getCachePath(key), entry)
}

// GetPage returns the cached page for url.
func (c *CacheManager) GetPage(url string) (*CachedPage, bool) {
	var page CachedPage
	found, err := c.Get("page:"+url, &page)
	if err != nil || !found {
		return nil, false
	}
	return &page, true
}

// SetPage stores a fetched page under its request URL.
func (c *CacheManager) SetPage(page *CachedPage) error {
	return c.Set("page:"+page.URL, page, 0)
}

// Delete removes an item from cache
func (c *CacheManager) Delete(key string) error {
	return os.Remove(c.getCachePath(key))
}

// Clear removes all cache entries
func (c *CacheManager) Clear() (int, error) {
	entries, err := c.entries()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []string
	for _, name := range entries {
		if err := os.Remove(filepath.Join(c.cacheDir, name)); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		removed++
	}

	if len(errs) > 0 {
		return removed, fmt.Errorf("failed to remove some cache files: %s", strings.Join(errs, ", "))
	}
	return removed, nil
}

// CleanExpired removes expired and unreadable cache entries
func (c *CacheManager) CleanExpired() (int, error) {
	entries, err := c.entries()
	if err != nil {
		return 0, err
	}

	removed := 0
	now := time.Now()
	for _, name := range entries {
		cachePath := filepath.Join(c.cacheDir, name)

		cacheEntry, err := c.loadCacheEntry(cachePath)
		if err != nil || now.After(cacheEntry.ExpiresAt) {
			if os.Remove(cachePath) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// GetStats returns cache statistics
func (c *CacheManager) GetStats() (*CacheStats, error) {
	c.mu.Lock()
	stats := &CacheStats{
		CacheDir:      c.cacheDir,
		DefaultTTL:    c.defaultTTL,
		SessionHits:   c.hits,
		SessionMisses: c.misses,
	}
	c.mu.Unlock()

	entries, err := c.entries()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, name := range entries {
		cachePath := filepath.Join(c.cacheDir, name)

		cacheEntry, err := c.loadCacheEntry(cachePath)
		if err != nil {
			continue
		}
		stats.TotalEntries++
		if info, err := os.Stat(cachePath); err == nil {
			stats.TotalSize += info.Size()
		}
		if now.After(cacheEntry.ExpiresAt) {
			stats.ExpiredEntries++
		}
		if stats.OldestEntry.IsZero() || cacheEntry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = cacheEntry.CreatedAt
		}
		if stats.NewestEntry.IsZero() || cacheEntry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = cacheEntry.CreatedAt
		}
	}

	return stats, nil
}

func (c *CacheManager) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(c.cacheDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range dirEntries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".cache") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// getCachePath maps a key to a file name. URLs carry characters no
// filesystem accepts, so the key is hashed.
func (c *CacheManager) getCachePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:16])+".cache")
}

func (c *CacheManager) loadCacheEntry(cachePath string) (*CacheEntry, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *CacheManager) saveCacheEntry(cachePath string, entry *CacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tmp := cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, cachePath)
}

// PrintStats writes formatted cache statistics to w.
func (c *CacheManager) PrintStats(w io.Writer) error {
	stats, err := c.GetStats()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Page cache:")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "   Directory: %s\n", stats.CacheDir)
	fmt.Fprintf(w, "   Total entries: %d\n", stats.TotalEntries)
	fmt.Fprintf(w, "   Total size: %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	fmt.Fprintf(w, "   Default TTL: %v\n", stats.DefaultTTL)

	if stats.TotalEntries > 0 {
		fmt.Fprintf(w, "   Expired entries: %d\n", stats.ExpiredEntries)
		if !stats.OldestEntry.IsZero() {
			fmt.Fprintf(w, "   Oldest entry: %s\n", humanize.Time(stats.OldestEntry))
		}
		if !stats.NewestEntry.IsZero() {
			fmt.Fprintf(w, "   Newest entry: %s\n", humanize.Time(stats.NewestEntry))
		}
	}

	return nil
}
