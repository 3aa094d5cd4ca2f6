// Package apkdl scrapes apk-dl.com.
package apkdl

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name       = "apkdl"
	DefaultURL = "http://apk-dl.com"
)

func init() {
	crawler.Register(Name, DefaultURL, func(baseURL string, pages *client.PageClient) crawler.Site {
		return New(baseURL, pages)
	})
}

// Site lists the releases on an apk-dl.com app page. The listed links
// point at a redirect page, so it also implements crawler.Resolver.
type Site struct {
	baseURL string
	pages   *client.PageClient
}

func New(baseURL string, pages *client.PageClient) *Site {
	return &Site{baseURL: baseURL, pages: pages}
}

func (s *Site) Name() string { return Name }

func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	pageURL := sites.Join(s.baseURL, packageID)
	doc, _, err := s.pages.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	list := doc.Find("ul.apks.dlist").First()
	if list.Length() == 0 {
		return nil, sites.NotSupported(Name, packageID)
	}

	var recs []models.PackageRecord
	list.Find("div.details").Each(func(_ int, apk *goquery.Selection) {
		fields := make(map[string]string)
		apk.Find("div").Each(func(_ int, item *goquery.Selection) {
			if k, v, ok := strings.Cut(sites.Collapse(item.Text()), ":"); ok {
				fields[k] = v
			}
		})

		href, ok := apk.Find("a.btn.btn-success").Attr("href")
		if !ok || href == "" {
			return
		}
		version, code, ok := parseVersion(fields["Version"])
		if !ok {
			return
		}
		sdk, ok := parseSDK(fields["RequiresAndroid"])
		if !ok {
			return
		}

		recs = append(recs, models.NewPackageRecord(models.RecordInput{
			PackageID:   packageID,
			MinSDK:      sdk,
			Version:     version,
			VersionCode: code,
			SourceLabel: Name,
			PageURL:     sites.Absolute(pageURL, href),
		}))
	})
	return recs, nil
}

// Resolve reads the download link from the redirect page.
func (s *Site) Resolve(ctx context.Context, rec models.PackageRecord) (string, error) {
	doc, page, err := s.pages.Document(ctx, rec.PageURL)
	if err != nil {
		return "", err
	}
	href, ok := doc.Find("span.glyphicon.glyphicon-cloud-download").First().Parent().Attr("href")
	if !ok {
		return "", fmt.Errorf("no download link on %s", rec.PageURL)
	}
	return sites.Absolute(page.FinalURL, href), nil
}

// parseVersion splits a collapsed "7.5.10(Code:58432)" field.
func parseVersion(field string) (version, code string, ok bool) {
	ver, rest, found := strings.Cut(field, "(Code:")
	if !found {
		return "", "", false
	}
	ver, _, _ = strings.Cut(ver, "(")
	return strings.TrimSpace(ver), strings.TrimSpace(strings.TrimSuffix(rest, ")")), true
}

// parseSDK takes the level out of "Android4.0.3+(IceCreamSandwich,API:15)".
func parseSDK(field string) (string, bool) {
	_, sdk, found := strings.Cut(field, "API:")
	if !found {
		return "", false
	}
	return strings.TrimSuffix(sdk, ")"), true
}
