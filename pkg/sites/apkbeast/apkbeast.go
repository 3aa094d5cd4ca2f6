// Package apkbeast scrapes apkbeast.com, which only shows the latest
// release of an app.
package apkbeast

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name       = "apkbeast"
	DefaultURL = "http://apkbeast.com"

	// the site drops connections beyond this
	maxWorkers = 3
)

var downloadURL = regexp.MustCompile(`var url = '(.*)';`)

func init() {
	crawler.Register(Name, DefaultURL, func(baseURL string, pages *client.PageClient) crawler.Site {
		return New(baseURL, pages)
	})
}

type Site struct {
	baseURL string
	pages   *client.PageClient
}

func New(baseURL string, pages *client.PageClient) *Site {
	return &Site{baseURL: baseURL, pages: pages}
}

func (s *Site) Name() string { return Name }

func (s *Site) MaxWorkers() int { return maxWorkers }

// Scrape returns the single listed release. The page carries no version
// code and no SDK level. A relative link leads to an intermediate page
// that Resolve reads; an absolute one is the file itself.
func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	pageURL := sites.Join(s.baseURL, packageID)
	doc, _, err := s.pages.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	version := strings.TrimSpace(doc.Find(`p[itemprop="softwareVersion"]`).First().Text())
	href, ok := doc.Find("a.da").First().Attr("href")
	if version == "" || !ok || href == "" {
		return nil, sites.NotSupported(Name, packageID)
	}

	in := models.RecordInput{
		PackageID:   packageID,
		Version:     version,
		SourceLabel: Name,
		PageURL:     pageURL,
	}
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		in.PageURL = sites.Absolute(pageURL, href)
	} else {
		in.DownloadURL = sites.Absolute(pageURL, href)
	}
	return []models.PackageRecord{models.NewPackageRecord(in)}, nil
}

// Resolve pulls the file address out of the intermediate page's script.
func (s *Site) Resolve(ctx context.Context, rec models.PackageRecord) (string, error) {
	page, err := s.pages.Get(ctx, rec.PageURL)
	if err != nil {
		return "", err
	}
	m := downloadURL.FindStringSubmatch(page.Body)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("no download url in %s", rec.PageURL)
	}
	return sites.Absolute(page.FinalURL, m[1]), nil
}
