// Package apkpure scrapes the version history block of apkpure.com.
package apkpure

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name       = "apkpure"
	DefaultURL = "https://apkpure.com"
)

// "Version: 7.5.10 (58432) for Android 4.0.3+ (Ice Cream Sandwich, API 15)"
var versionInfo = regexp.MustCompile(`Version:\s(.*)\s\(([0-9]*)\)(\sfor\sAndroid.+API\s([0-9]+)\))?`)

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

// Scrape reads every entry of the version list, including the ones the
// page initially hides.
func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	// the path segment before the id can be any word
	pageURL := sites.Join(s.baseURL, "apkpure", packageID)
	doc, _, err := s.pages.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	list := doc.Find("div.faq_cat").First()
	if list.Length() == 0 {
		return nil, sites.NotSupported(Name, packageID)
	}

	var recs []models.PackageRecord
	list.Find("dd").Each(func(_ int, apk *goquery.Selection) {
		m := versionInfo.FindStringSubmatch(apk.Find("p").First().Text())
		if m == nil {
			return
		}
		href, ok := apk.Find("a.down").Attr("href")
		if !ok || href == "" {
			return
		}
		recs = append(recs, models.NewPackageRecord(models.RecordInput{
			PackageID:   packageID,
			MinSDK:      m[4],
			Version:     strings.TrimSpace(m[1]),
			VersionCode: m[2],
			SourceLabel: Name,
			PageURL:     sites.Absolute(pageURL, href),
		}))
	})
	return recs, nil
}

// Resolve reads the file link from the download page.
func (s *Site) Resolve(ctx context.Context, rec models.PackageRecord) (string, error) {
	doc, page, err := s.pages.Document(ctx, rec.PageURL)
	if err != nil {
		return "", err
	}
	href, ok := doc.Find("a#download_link.ga").Attr("href")
	if !ok || href == "" {
		return "", fmt.Errorf("no download link on %s", rec.PageURL)
	}
	return sites.Absolute(page.FinalURL, href), nil
}
