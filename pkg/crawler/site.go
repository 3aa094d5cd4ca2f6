// Package crawler fans tracked package identifiers out to per-site
// scrapers and collects the files they fetched.
package crawler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/models"
)

// Site is implemented by every per-site scraper.
type Site interface {
	// Name returns the registry name, e.g. "apkpure".
	Name() string

	// Scrape returns every release the site lists for packageID. A site
	// that does not carry the package returns client.ErrPageNotFound.
	Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error)
}

// Resolver is implemented by sites whose listing links to an
// intermediate page instead of the file. It is only called for
// candidates that are needed.
type Resolver interface {
	Resolve(ctx context.Context, rec models.PackageRecord) (string, error)
}

// Limiter is implemented by sites that drop connections above a number
// of parallel requests.
type Limiter interface {
	MaxWorkers() int
}

// Factory creates a site scraper for a base URL.
type Factory func(baseURL string, pages *client.PageClient) Site

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a site factory. defaultURL is used when New is called
// without a base URL.
func Register(name, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
	defaults[name] = defaultURL
}

// New creates the named site.
func New(name, baseURL string, pages *client.PageClient) (Site, error) {
	mu.RLock()
	factory, ok := factories[name]
	defaultURL := defaults[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown site: %s", name)
	}
	if baseURL == "" {
		baseURL = defaultURL
	}
	if pages == nil {
		pages = client.NewPageClient(client.DefaultPageOptions())
	}
	return factory(baseURL, pages), nil
}

// Sites returns all registered site names, sorted.
func Sites() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultURL returns the default base URL of a site.
func DefaultURL(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[name]
}
