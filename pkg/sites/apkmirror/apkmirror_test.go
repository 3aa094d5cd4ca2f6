package apkmirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/utils"
)

const uploadsPage = `<html><body>
<div class="latestWidget"><p>featured</p></div>
<div class="latestWidget">
  <div class="latestPost">
    <a class="fontBlack" href="/apk/google-inc/webview/webview-53-beta/">Android System WebView 53.0 beta</a>
    <span class="fontBlue">Version:</span> <strong>53.0.2785.34 (278503400) for Android 5.0+ (Lollipop, API 21)</strong>
  </div>
  <div class="latestPost">
    <a class="fontBlack" href="/apk/google-inc/webview/webview-52/">Android System WebView 52.0</a>
    <p><span class="fontBlue">Version:</span></p><p><strong>52.0.2743.98 (274309800) for Android 5.0+ (Lollipop, API 21)</strong></p>
  </div>
  <div class="latestPost">
    <a class="fontBlack" href="/apk/google-inc/webview/webview-51/">Android System WebView 51.0</a>
    <span class="fontBlue">Uploaded:</span> <strong>yesterday</strong>
  </div>
</div>
</body></html>`

const releasePage = `<html><body><div class="post-area">
<a type="button" href="/apk/google-inc/webview/webview-52/#variants">Variants</a>
<a type="button" href="/wp-content/download.php?id=52">Download APK</a>
</div></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/uploads/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("app") != "android-system-webview" {
			fmt.Fprint(w, `<html><body><div class="latestWidget"></div></body></html>`)
			return
		}
		fmt.Fprint(w, uploadsPage)
	})
	mux.HandleFunc("/apk/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, releasePage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSite(srv *httptest.Server) *Site {
	pages := client.NewPageClient(client.PageOptions{Logger: utils.NopLogger()})
	return New(srv.URL, pages, map[string]App{
		"com.google.android.webview": {Name: "Android System WebView"},
		"com.google.android.gm":      {Name: "Gmail"},
	})
}

func summary(recs []models.PackageRecord) []string {
	var out []string
	for _, r := range recs {
		out = append(out, fmt.Sprintf("%s %s %d sdk=%s", r.PackageID, r.RawVersion, r.VersionCode, r.MinSDK))
	}
	return out
}

func TestScrapeStable(t *testing.T) {
	srv := newServer(t)
	recs, err := testSite(srv).Scrape(context.Background(), "com.google.android.webview")
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	want := []string{"com.google.android.webview 52.0.2743.98 274309800 sdk=21"}
	if diff := cmp.Diff(want, summary(recs)); diff != "" {
		t.Errorf("Scrape mismatch (-want +got):\n%s", diff)
	}
	if recs[0].PageURL != srv.URL+"/apk/google-inc/webview/webview-52/" {
		t.Errorf("PageURL = %q", recs[0].PageURL)
	}
}

func TestScrapeBetaLineage(t *testing.T) {
	srv := newServer(t)
	recs, err := testSite(srv).Scrape(context.Background(), "com.google.android.webview.beta")
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	want := []string{"com.google.android.webview.beta 53.0.2785.34 278503400 sdk=21"}
	if diff := cmp.Diff(want, summary(recs)); diff != "" {
		t.Errorf("Scrape mismatch (-want +got):\n%s", diff)
	}
}

func TestScrapeUnsupported(t *testing.T) {
	srv := newServer(t)
	s := testSite(srv)
	for _, id := range []string{"org.unlisted", "com.google.android.gm"} {
		if _, err := s.Scrape(context.Background(), id); !errors.Is(err, client.ErrPageNotFound) {
			t.Errorf("Scrape(%s) error = %v, want ErrPageNotFound", id, err)
		}
	}
}

func TestResolve(t *testing.T) {
	srv := newServer(t)
	s := testSite(srv)
	recs, err := s.Scrape(context.Background(), "com.google.android.webview")
	if err != nil || len(recs) == 0 {
		t.Fatalf("Scrape failed: %v", err)
	}
	link, err := s.Resolve(context.Background(), recs[0])
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if link != srv.URL+"/wp-content/download.php?id=52" {
		t.Errorf("Resolve = %q", link)
	}
}

func TestURLSlug(t *testing.T) {
	tests := map[App]string{
		{Name: "Android System WebView"}:                 "android-system-webview",
		{Name: "News & Weather"}:                         "news-weather",
		{Name: "Google+"}:                                "google",
		{Name: "Messenger", Slug: "messenger-google-inc"}: "messenger-google-inc",
	}
	for app, want := range tests {
		if got := app.URLSlug(); got != want {
			t.Errorf("URLSlug(%q) = %q, want %q", app.Name, got, want)
		}
	}
}
