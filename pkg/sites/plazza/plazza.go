// Package plazza scrapes plazza.ir. Only the latest release is free to
// download and its version code is read from the file name the download
// link redirects to.
package plazza

import (
	"context"
	"fmt"
	"regexp"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name       = "plazza"
	DefaultURL = "http://www.plazza.ir"
)

var (
	downloadPath = regexp.MustCompile(`^/dl/([0-9]+)/1$`)
	fileCode     = regexp.MustCompile(`_([0-9]+)\.apk$`)
)

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

func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	pageURL := sites.Join(s.baseURL, "app", packageID) + "?hl=en"
	doc, _, err := s.pages.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	href, ok := doc.Find(`a[itemprop="downloadUrl"]`).First().Attr("href")
	if !ok {
		return nil, sites.NotSupported(Name, packageID)
	}
	if !downloadPath.MatchString(href) {
		return nil, fmt.Errorf("%s: unexpected download link %q", packageID, href)
	}

	final, err := s.pages.Resolve(ctx, sites.Absolute(pageURL, href))
	if err != nil {
		return nil, err
	}
	m := fileCode.FindStringSubmatch(final)
	if m == nil {
		return nil, fmt.Errorf("%s: no version code in %s", packageID, final)
	}

	return []models.PackageRecord{models.NewPackageRecord(models.RecordInput{
		PackageID:   packageID,
		VersionCode: m[1],
		SourceLabel: Name,
		PageURL:     pageURL,
		DownloadURL: final,
	})}, nil
}
