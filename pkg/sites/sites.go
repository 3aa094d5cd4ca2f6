// Package sites holds helpers shared by the per-site scrapers in its
// subpackages.
package sites

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/client"
)

// Absolute resolves href against the page it was found on. Protocol
// relative links ("//host/path") keep the page's scheme.
func Absolute(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// Join appends path elements to a base URL with exactly one slash
// between them.
func Join(baseURL string, elem ...string) string {
	out := strings.TrimRight(baseURL, "/")
	for _, e := range elem {
		out += "/" + strings.TrimLeft(e, "/")
	}
	return out
}

// NotSupported wraps client.ErrPageNotFound for a package a site does
// not carry.
func NotSupported(site, packageID string) error {
	return fmt.Errorf("%s not supported by %s: %w", packageID, site, client.ErrPageNotFound)
}

// Collapse removes all whitespace from s.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), "")
}
