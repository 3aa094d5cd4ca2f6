package system

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Error categories reported by CategorizeError.
const (
	CategoryTimeout     = "timeout"
	CategoryRefused     = "connection_refused"
	CategoryDNS         = "dns_failure"
	CategoryUnreachable = "network_unreachable"
	CategoryTLS         = "tls_certificate_error"
	CategoryProxy       = "proxy_error"
	CategoryHTTP        = "http_status"
	CategoryUnknown     = "unknown"
)

// ReachFunc probes url and returns the HTTP status it answered with.
type ReachFunc func(ctx context.Context, url string) (int, error)

// SiteTarget is one site base URL to probe.
type SiteTarget struct {
	Name string
	URL  string
}

// SiteStatus is the outcome of probing one site.
type SiteStatus struct {
	Name     string
	URL      string
	Status   int
	Latency  time.Duration
	Err      error
	Category string
}

// Reachable reports whether the site answered with anything but a server
// error. Redirects and 404s on the bare host still mean the host is up.
func (s SiteStatus) Reachable() bool {
	return s.Err == nil && s.Status > 0 && s.Status < 500
}

// NetworkChecker probes the configured sites.
type NetworkChecker struct {
	logger  Logger
	timeout time.Duration
}

// NewNetworkChecker creates a network checker. Each probe is bounded by
// timeout; values <= 0 mean ten seconds.
func NewNetworkChecker(logger Logger, timeout time.Duration) *NetworkChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NetworkChecker{logger: logger, timeout: timeout}
}

// CheckSites probes every target concurrently and returns the results
// sorted by name.
func (nc *NetworkChecker) CheckSites(ctx context.Context, targets []SiteTarget, reach ReachFunc) []SiteStatus {
	results := make([]SiteStatus, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target SiteTarget) {
			defer wg.Done()
			results[i] = nc.probe(ctx, target, reach)
		}(i, target)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func (nc *NetworkChecker) probe(ctx context.Context, target SiteTarget, reach ReachFunc) SiteStatus {
	ctx, cancel := context.WithTimeout(ctx, nc.timeout)
	defer cancel()

	start := time.Now()
	status, err := reach(ctx, target.URL)
	res := SiteStatus{
		Name:    target.Name,
		URL:     target.URL,
		Status:  status,
		Latency: time.Since(start),
		Err:     err,
	}
	switch {
	case err != nil:
		res.Category = CategorizeError(err)
	case status >= 500:
		res.Category = CategoryHTTP
	}

	if nc.logger != nil && !res.Reachable() {
		nc.logger.Debug("%s (%s) unreachable: status=%d err=%v", target.Name, target.URL, status, err)
	}
	return res
}

// CategorizeError maps a transport error to one of the Category constants.
func CategorizeError(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded):
		return CategoryTimeout
	case errors.As(err, &dnsErr):
		return CategoryDNS
	case errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &invalidErr):
		return CategoryTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return CategoryTimeout
	case strings.Contains(msg, "connection refused"):
		return CategoryRefused
	case strings.Contains(msg, "no such host"):
		return CategoryDNS
	case strings.Contains(msg, "network is unreachable"), strings.Contains(msg, "network unreachable"):
		return CategoryUnreachable
	case strings.Contains(msg, "certificate"):
		return CategoryTLS
	case strings.Contains(msg, "proxy"):
		return CategoryProxy
	}
	return CategoryUnknown
}

// Suggestions returns hints for a category from CategorizeError.
func Suggestions(category string) []string {
	switch category {
	case CategoryTimeout:
		return []string{"Check your internet connection", "Raise crawler.timeout in the configuration"}
	case CategoryRefused:
		return []string{"The site may be down or have moved; check sites.<name>.url"}
	case CategoryDNS:
		return []string{"Check your DNS settings", "Verify the site URL is spelled correctly"}
	case CategoryUnreachable:
		return []string{"Check your network connection and routing"}
	case CategoryTLS:
		return []string{"Check the system date and time", "Update the CA certificates"}
	case CategoryProxy:
		return []string{"Check HTTP_PROXY and HTTPS_PROXY"}
	case CategoryHTTP:
		return []string{"The site answered with a server error; try again later"}
	case "":
		return nil
	}
	return []string{"Try again later", "Disable the site with sites.<name>.enabled: false"}
}
