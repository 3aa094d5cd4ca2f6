// Package apkmirror scrapes the upload lists of apkmirror.com.
package apkmirror

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name       = "apkmirror"
	DefaultURL = "http://www.apkmirror.com"
)

// "7.5.10 (58432) for Android 4.0.3+ (Ice Cream Sandwich MR1, API 15)"
var versionInfo = regexp.MustCompile(`(\S*) \((\d*)\).* API (\d*)\)`)

// App is an apkmirror listing. Slug defaults to the name lowercased with
// spaces turned into dashes.
type App struct {
	Name string
	Slug string
}

// Apps maps package identifiers to apkmirror listings.
var Apps = map[string]App{
	"com.google.android.apps.walletnfcrel":        {Name: "Android Pay"},
	"com.google.android.webview":                  {Name: "Android System WebView"},
	"com.google.android.calculator":               {Name: "Calculator", Slug: "google-calculator"},
	"com.google.android.calendar":                 {Name: "Google Calendar", Slug: "calendar"},
	"com.google.android.googlecamera":             {Name: "Google Camera", Slug: "camera"},
	"com.android.chrome":                          {Name: "Chrome"},
	"com.google.android.deskclock":                {Name: "Clock"},
	"com.google.android.apps.cloudprint":          {Name: "Cloud Print"},
	"com.google.android.apps.docs.editors.docs":   {Name: "Docs"},
	"com.google.android.apps.docs":                {Name: "Drive"},
	"com.google.earth":                            {Name: "Earth"},
	"com.google.android.apps.fitness":             {Name: "Fitness Tracking", Slug: "fit"},
	"com.google.android.gm":                       {Name: "Gmail"},
	"com.google.android.contacts":                 {Name: "Google Contacts"},
	"com.google.android.inputmethod.latin":        {Name: "Google Keyboard"},
	"com.google.android.launcher":                 {Name: "Google Now Launcher"},
	"com.google.android.dialer":                   {Name: "Google Phone"},
	"com.google.android.apps.books":               {Name: "Google Play Books"},
	"com.google.android.play.games":               {Name: "Google Play Games"},
	"com.google.android.apps.magazines":           {Name: "Google Play Newsstand"},
	"com.google.android.videos":                   {Name: "Google Play Movies"},
	"com.google.android.music":                    {Name: "Google Play Music"},
	"com.google.android.gms":                      {Name: "Google Play services"},
	"com.android.vending":                         {Name: "Google Play Store"},
	"com.google.android.googlequicksearchbox":     {Name: "Google App", Slug: "google-search"},
	"com.google.android.tts":                      {Name: "Google Text-to-speech Engine"},
	"com.google.android.apps.plus":                {Name: "Google+"},
	"com.google.android.talk":                     {Name: "Hangouts"},
	"com.google.android.apps.inbox":               {Name: "Inbox"},
	"com.google.android.keep":                     {Name: "Keep"},
	"com.google.android.apps.maps":                {Name: "Maps"},
	"com.google.android.apps.messaging":           {Name: "Messenger", Slug: "messenger-google-inc"},
	"com.google.android.apps.genie.geniewidget":   {Name: "News & Weather"},
	"com.google.android.apps.photos":              {Name: "Photos"},
	"com.google.android.apps.tycho":               {Name: "Project Fi"},
	"com.google.android.apps.docs.editors.sheets": {Name: "Sheets"},
	"com.google.android.apps.docs.editors.slides": {Name: "Slides"},
	"com.google.android.ears":                     {Name: "Sound Search for Google Play"},
	"com.google.android.street":                   {Name: "Street View"},
	"com.google.android.marvin.talkback":          {Name: "TalkBack"},
	"com.google.android.apps.translate":           {Name: "Translate"},
	"com.google.android.youtube":                  {Name: "YouTube"},
}

// URLSlug returns the uploads filter value for the app.
func (a App) URLSlug() string {
	if a.Slug != "" {
		return a.Slug
	}
	slug := strings.ToLower(a.Name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "-&-", "-")
	slug = strings.ReplaceAll(slug, "+", "")
	return slug
}

func init() {
	crawler.Register(Name, DefaultURL, func(baseURL string, pages *client.PageClient) crawler.Site {
		return New(baseURL, pages, Apps)
	})
}

type Site struct {
	baseURL string
	apps    map[string]App
	pages   *client.PageClient
}

func New(baseURL string, pages *client.PageClient, apps map[string]App) *Site {
	return &Site{baseURL: baseURL, apps: apps, pages: pages}
}

func (s *Site) Name() string { return Name }

// Scrape reads the latest uploads of the app. A tracked beta lineage
// only takes beta uploads; every other package skips beta and preview
// uploads.
func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	base := models.PackageRecord{PackageID: packageID}
	wantBeta := base.IsBeta()
	app, ok := s.apps[base.BasePackageID()]
	if !ok {
		return nil, sites.NotSupported(Name, packageID)
	}

	pageURL := sites.Join(s.baseURL, "uploads") + "/?app=" + url.QueryEscape(app.URLSlug())
	doc, _, err := s.pages.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	widgets := doc.Find("div.latestWidget")
	if widgets.Length() < 2 {
		return nil, sites.NotSupported(Name, packageID)
	}

	var recs []models.PackageRecord
	widgets.Eq(1).Find("div.latestPost").Each(func(_ int, post *goquery.Selection) {
		link := post.Find("a.fontBlack").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := strings.ToLower(link.Text())
		isBeta := strings.Contains(title, "beta") || strings.Contains(title, "preview")
		if isBeta != wantBeta {
			return
		}

		m := versionInfo.FindStringSubmatch(versionText(post))
		if m == nil {
			return
		}
		recs = append(recs, models.NewPackageRecord(models.RecordInput{
			PackageID:   packageID,
			MinSDK:      m[3],
			Version:     m[1],
			VersionCode: m[2],
			SourceLabel: Name,
			PageURL:     sites.Absolute(pageURL, href),
		}))
	})
	return recs, nil
}

// versionText finds the text following the "Version" label of a post.
func versionText(post *goquery.Selection) string {
	var text string
	post.Find("span.fontBlue").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(label.Text(), "Version") {
			return true
		}
		strong := label.NextAllFiltered("strong").First()
		if strong.Length() == 0 {
			strong = post.Find("strong").First()
		}
		text = strings.TrimSpace(strong.Text())
		return false
	})
	return text
}

// Resolve reads the download button of the release page.
func (s *Site) Resolve(ctx context.Context, rec models.PackageRecord) (string, error) {
	doc, page, err := s.pages.Document(ctx, rec.PageURL)
	if err != nil {
		return "", err
	}
	buttons := doc.Find("div.post-area").First().Find(`a[type="button"]`)
	if buttons.Length() < 2 {
		return "", fmt.Errorf("no download button on %s", rec.PageURL)
	}
	href, _ := buttons.Eq(1).Attr("href")
	return sites.Absolute(page.FinalURL, href), nil
}
