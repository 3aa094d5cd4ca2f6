package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"github.com/imroc/req/v3"
	"github.com/temoto/robotstxt"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrPageNotFound is returned for 404/410 answers and for redirects
	// when redirects are disabled.
	ErrPageNotFound = errors.New("page not found")
	// ErrDisallowed is returned when robots.txt forbids the page.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Page is a fetched page body.
type Page struct {
	URL      string
	FinalURL string
	Status   int
	Body     string
}

// PageClient fetches HTML and JSON pages from APK sites.
type PageClient struct {
	client     *req.Client
	noRedirect *req.Client
	userAgent  string
	cache      *CacheManager
	robots     bool
	logger     utils.Logger

	robotsMu   sync.Mutex
	robotsData map[string]*robotstxt.RobotsData
}

// PageOptions configures a PageClient.
type PageOptions struct {
	UserAgent   string
	Timeout     time.Duration
	Retries     int
	Impersonate bool // present a Chrome TLS and header fingerprint
	Robots      bool
	Cache       *CacheManager
	Logger      utils.Logger
}

// DefaultPageOptions returns the options used by the crawl command.
func DefaultPageOptions() PageOptions {
	return PageOptions{
		Timeout:     30 * time.Second,
		Retries:     3,
		Impersonate: true,
	}
}

// NewPageClient creates a page client.
func NewPageClient(opts PageOptions) *PageClient {
	logger := opts.Logger
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}

	c := req.C()
	if opts.Impersonate {
		c.ImpersonateChrome()
	}
	if opts.UserAgent != "" {
		c.SetUserAgent(opts.UserAgent)
	}
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}

	pc := &PageClient{
		userAgent:  opts.UserAgent,
		cache:      opts.Cache,
		robots:     opts.Robots,
		logger:     logger,
		robotsData: make(map[string]*robotstxt.RobotsData),
	}

	c.SetCommonRetryCount(opts.Retries).
		SetCommonRetryBackoffInterval(500*time.Millisecond, 5*time.Second).
		SetCommonRetryHook(pc.retryHook).
		SetCommonRetryCondition(retryCondition)

	pc.client = c
	// hand the 3xx back instead of failing so get can map it to ErrPageNotFound
	pc.noRedirect = c.Clone().SetRedirectPolicy(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})
	return pc
}

func (pc *PageClient) retryHook(resp *req.Response, err error) {
	if resp == nil || resp.Request == nil || resp.Request.RawRequest == nil {
		pc.logger.Debug("retrying request: %v", err)
		return
	}
	raw := resp.Request.RawRequest
	pc.logger.Debug("status %d, error %v, retrying %s %s", resp.GetStatusCode(), err, raw.Method, raw.URL)
}

func retryCondition(resp *req.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.GetStatusCode()
	return code == http.StatusTooManyRequests || code >= 500
}

// Get fetches a page, following redirects. Cached pages are returned
// without a request when the client has a cache.
func (pc *PageClient) Get(ctx context.Context, pageURL string) (*Page, error) {
	return pc.get(ctx, pc.client, pageURL)
}

// GetNoRedirect fetches a page and treats any redirect as a missing page.
func (pc *PageClient) GetNoRedirect(ctx context.Context, pageURL string) (*Page, error) {
	return pc.get(ctx, pc.noRedirect, pageURL)
}

func (pc *PageClient) get(ctx context.Context, c *req.Client, pageURL string) (*Page, error) {
	if pc.cache != nil {
		if cached, ok := pc.cache.GetPage(pageURL); ok {
			pc.logger.Debug("page cache hit: %s", pageURL)
			return &Page{URL: cached.URL, FinalURL: cached.FinalURL, Status: cached.Status, Body: cached.Body}, nil
		}
	}

	if err := pc.checkRobots(ctx, pageURL); err != nil {
		return nil, err
	}

	pc.logger.Debug("requesting %s", pageURL)
	resp, err := c.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%s: %w", pageURL, ErrPageNotFound)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, fmt.Errorf("%s redirected to %s: %w", pageURL, resp.Header.Get("Location"), ErrPageNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	page := &Page{
		URL:      pageURL,
		FinalURL: finalURL(resp, pageURL),
		Status:   resp.StatusCode,
		Body:     resp.String(),
	}

	if pc.cache != nil {
		if err := pc.cache.SetPage(&CachedPage{URL: page.URL, FinalURL: page.FinalURL, Status: page.Status, Body: page.Body}); err != nil {
			pc.logger.Warn("failed to cache %s: %v", pageURL, err)
		}
	}
	return page, nil
}

func finalURL(resp *req.Response, fallback string) string {
	if resp.Response != nil && resp.Response.Request != nil && resp.Response.Request.URL != nil {
		return resp.Response.Request.URL.String()
	}
	return fallback
}

// Document fetches pageURL and parses it as HTML. The page text is
// folded to ASCII first so selectors and regular expressions only see
// plain characters.
func (pc *PageClient) Document(ctx context.Context, pageURL string) (*goquery.Document, *Page, error) {
	page, err := pc.Get(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ToASCII(page.Body)))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, page, nil
}

// JSON fetches pageURL and decodes the body into v.
func (pc *PageClient) JSON(ctx context.Context, pageURL string, v interface{}) error {
	page, err := pc.Get(ctx, pageURL)
	if err != nil {
		return err
	}
	return decodeJSON(page, v)
}

// JSONNoRedirect is JSON with redirects reported as ErrPageNotFound.
func (pc *PageClient) JSONNoRedirect(ctx context.Context, pageURL string, v interface{}) error {
	page, err := pc.GetNoRedirect(ctx, pageURL)
	if err != nil {
		return err
	}
	return decodeJSON(page, v)
}

func decodeJSON(page *Page, v interface{}) error {
	if err := json.Unmarshal([]byte(page.Body), v); err != nil {
		return fmt.Errorf("decoding %s: %w", page.URL, err)
	}
	return nil
}

// Resolve issues a HEAD request, follows redirects and returns the
// final URL.
func (pc *PageClient) Resolve(ctx context.Context, pageURL string) (string, error) {
	if err := pc.checkRobots(ctx, pageURL); err != nil {
		return "", err
	}

	resp, err := pc.client.R().SetContext(ctx).Head(pageURL)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", pageURL, err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return "", fmt.Errorf("%s: %w", pageURL, ErrPageNotFound)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("resolving %s: unexpected status %d", pageURL, resp.StatusCode)
	}
	return finalURL(resp, pageURL), nil
}

// Reachable reports whether baseURL answers at all. Used by doctor.
func (pc *PageClient) Reachable(ctx context.Context, baseURL string) (int, error) {
	resp, err := pc.noRedirect.R().SetContext(ctx).SetRetryCount(0).Head(baseURL)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (pc *PageClient) checkRobots(ctx context.Context, pageURL string) error {
	if !pc.robots {
		return nil
	}
	if !pc.allowed(ctx, pageURL) {
		return fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
	}
	return nil
}

func (pc *PageClient) allowed(ctx context.Context, pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	base := parsed.Scheme + "://" + parsed.Host

	pc.robotsMu.Lock()
	data, seen := pc.robotsData[base]
	pc.robotsMu.Unlock()

	if !seen {
		data = pc.fetchRobots(ctx, base)
		pc.robotsMu.Lock()
		pc.robotsData[base] = data
		pc.robotsMu.Unlock()
	}
	if data == nil {
		return true
	}

	agent := pc.userAgent
	if agent == "" {
		agent = "apkcrawler"
	}
	return data.TestAgent(parsed.Path, agent)
}

// fetchRobots returns nil when the site has no usable robots.txt, which
// allows everything.
func (pc *PageClient) fetchRobots(ctx context.Context, base string) *robotstxt.RobotsData {
	resp, err := pc.client.R().SetContext(ctx).SetRetryCount(0).Get(base + "/robots.txt")
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := robotstxt.FromBytes(resp.Bytes())
	if err != nil {
		pc.logger.Debug("ignoring malformed robots.txt at %s: %v", base, err)
		return nil
	}
	return data
}

// ToASCII decomposes s (NFKD) and drops every non-ASCII rune.
func ToASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
