// Package uptodown scrapes uptodown.com, where every app lives on its
// own subdomain.
package uptodown

import (
	"context"
	"fmt"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name = "uptodown"
	// %s is replaced by the app's slug
	DefaultURL = "http://%s.en.uptodown.com"
)

// Slugs maps package identifiers to uptodown subdomains. Packages not
// listed here are not looked up.
var Slugs = map[string]string{
	"com.android.vending":                         "google-play",
	"com.google.android.apps.books":               "google-play-books",
	"com.google.android.apps.docs":                "google-drive",
	"com.google.android.apps.docs.editors.docs":   "google-docs",
	"com.google.android.apps.docs.editors.sheets": "google-sheets",
	"com.google.android.apps.docs.editors.slides": "google-slides",
	"com.google.android.apps.fitness":             "google-fit",
	"com.google.android.apps.inbox":               "inbox-by-gmail",
	"com.google.android.apps.magazines":           "google-play-newsstand",
	"com.google.android.apps.maps":                "google-maps",
	"com.google.android.apps.messaging":           "messenger",
	"com.google.android.apps.plus":                "google-plus",
	"com.google.android.apps.translate":           "traductor-de-google",
	"com.google.android.calendar":                 "google-calendar",
	"com.google.android.deskclock":                 "clock",
	"com.google.android.ears":                     "sound-search-for-google-play",
	"com.google.android.gm":                       "gmail",
	"com.google.android.gms":                      "google-play-services",
	"com.google.android.googlecamera":             "google-camera",
	"com.google.android.googlequicksearchbox":     "google-search",
	"com.google.android.inputmethod.japanese":     "google-japanese-input",
	"com.google.android.inputmethod.latin":        "google-keyboard",
	"com.google.android.keep":                     "google-keep",
	"com.google.android.launcher":                 "google-now-launcher",
	"com.google.android.marvin.talkback":          "google-talkback",
	"com.google.android.music":                    "google-play-music",
	"com.google.android.play.games":               "google-play-games",
	"com.google.android.street":                   "street-view-on-google-maps",
	"com.google.android.talk":                     "hangouts",
	"com.google.android.videos":                   "google-play-movies",
	"com.google.android.webview":                  "android-system-webview",
	"com.google.android.youtube":                  "youtube",
	"com.google.earth":                            "google-earth",
}

func init() {
	crawler.Register(Name, DefaultURL, func(baseURL string, pages *client.PageClient) crawler.Site {
		return New(baseURL, pages, Slugs)
	})
}

type Site struct {
	baseURL string
	slugs   map[string]string
	pages   *client.PageClient
}

// New creates the scraper. baseURL either contains %s for the slug
// subdomain or is a plain prefix the slug is appended to as a path.
func New(baseURL string, pages *client.PageClient, slugs map[string]string) *Site {
	return &Site{baseURL: baseURL, slugs: slugs, pages: pages}
}

func (s *Site) Name() string { return Name }

func (s *Site) appURL(slug string) string {
	if strings.Contains(s.baseURL, "%s") {
		return sites.Join(fmt.Sprintf(s.baseURL, slug), "android")
	}
	return sites.Join(s.baseURL, slug, "android")
}

// Scrape reads the current version from the app page and the file link
// from its download page. The site publishes no version code.
func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	slug, ok := s.slugs[packageID]
	if !ok {
		return nil, sites.NotSupported(Name, packageID)
	}

	appURL := s.appURL(slug)
	doc, _, err := s.pages.Document(ctx, appURL)
	if err != nil {
		return nil, err
	}
	// some pages put a "v" in front of the version, some leave it empty
	version := strings.TrimSpace(doc.Find(`span[itemprop="softwareVersion"]`).First().Text())
	version = strings.TrimSpace(strings.TrimPrefix(version, "v"))

	downloadPage := sites.Join(appURL, "download")
	doc, page, err := s.pages.Document(ctx, downloadPage)
	if err != nil {
		return nil, err
	}
	src, ok := doc.Find("iframe#iframe_download").Attr("src")
	if !ok || src == "" {
		return nil, fmt.Errorf("no download frame on %s", downloadPage)
	}

	return []models.PackageRecord{models.NewPackageRecord(models.RecordInput{
		PackageID:   packageID,
		Version:     version,
		SourceLabel: Name,
		PageURL:     appURL,
		DownloadURL: sites.Absolute(page.FinalURL, src),
	})}, nil
}
