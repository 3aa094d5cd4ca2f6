package aptoide

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/utils"
)

var listings = map[string]string{
	"r1": `{"status":"OK","listing":[
		{"apkid":"com.google.android.gm","ver":"7.5.10","vercode":58432,"path":"http://pool.example/r1/gm.apk"},
		{"apkid":"com.other","ver":"1.0","vercode":1,"path":"http://pool.example/r1/other.apk"}]}`,
	"r2": `{"status":"OK","listing":[
		{"apkid":"com.google.android.gm","ver":"7.6","vercode":"59000","path":"/r2/gm.apk"}]}`,
	"broken": `{"status":"FAIL"}`,
}

var infos = map[string]string{
	"r1/com.google.android.gm/7.5.10": `{"status":"OK","apk":{"cpu":"armeabi-v7a","minSdk":"15","screenCompat":"normal/240,small/160,large/240"}}`,
	"r2/com.google.android.gm/7.6":    `{"status":"OK","apk":{"minSdk":21}}`,
}

type server struct {
	*httptest.Server
	mu       sync.Mutex
	requests map[string]int
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{requests: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/webservices/"), "/")
		switch {
		case len(parts) > 1 && parts[0] == "listRepository":
			s.mu.Lock()
			s.requests[parts[1]]++
			s.mu.Unlock()
			body, ok := listings[parts[1]]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, body)
		case len(parts) > 5 && parts[1] == "getApkInfo":
			body, ok := infos[strings.Join(parts[2:5], "/")]
			if !ok {
				fmt.Fprint(w, `{"status":"FAIL"}`)
				return
			}
			fmt.Fprint(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func testSite(srv *server, repos ...string) *Site {
	pages := client.NewPageClient(client.PageOptions{Logger: utils.NopLogger()})
	s := New(srv.URL, pages, repos)
	s.logger = utils.NopLogger()
	return s
}

func TestScrape(t *testing.T) {
	srv := newServer(t)
	s := testSite(srv, "r1", "r2", "broken", "missing")

	recs, err := s.Scrape(context.Background(), "com.google.android.gm")
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	var got []string
	for _, r := range recs {
		got = append(got, fmt.Sprintf("%s|%s|%s|%s|%s|%d @ %s", r.PackageID, r.Architecture, r.MinSDK, r.Density, r.RawVersion, r.VersionCode, r.DownloadURL))
	}
	want := []string{
		"com.google.android.gm|all|21|nodpi|7.6|59000 @ " + srv.URL + "/r2/gm.apk",
		"com.google.android.gm|arm|15|160-240|7.5.10|58432 @ http://pool.example/r1/gm.apk",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scrape mismatch (-want +got):\n%s", diff)
	}
	if recs[1].SourceLabel != "aptoide/r1" {
		t.Errorf("SourceLabel = %q", recs[1].SourceLabel)
	}
}

func TestListingsFetchedOnce(t *testing.T) {
	srv := newServer(t)
	s := testSite(srv, "r1", "broken")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Scrape(context.Background(), "com.google.android.gm")
		}()
	}
	wg.Wait()
	_, _ = s.Scrape(context.Background(), "com.other")

	srv.mu.Lock()
	defer srv.mu.Unlock()
	for _, repo := range []string{"r1", "broken"} {
		if srv.requests[repo] != 1 {
			t.Errorf("listing %s requested %d times, want 1", repo, srv.requests[repo])
		}
	}
}

func TestScrapeUnsupported(t *testing.T) {
	srv := newServer(t)
	s := testSite(srv, "r1")

	_, err := s.Scrape(context.Background(), "org.unknown")
	if !errors.Is(err, client.ErrPageNotFound) {
		t.Errorf("Scrape(unknown) error = %v, want ErrPageNotFound", err)
	}
}

func TestArchitecture(t *testing.T) {
	tests := map[string]string{
		"armeabi-v7a": "arm",
		"arm64-v8a":   "arm64",
		"x86":         "x86",
		"mips":        "all",
		"":            "all",
	}
	for cpu, want := range tests {
		if got := Architecture(cpu); got != want {
			t.Errorf("Architecture(%q) = %q, want %q", cpu, got, want)
		}
	}
}

func TestDensity(t *testing.T) {
	tests := map[string]string{
		"nodpi":                          "nodpi",
		"":                               "nodpi",
		"normal/320,large/213,small/320": "213-320",
		"normal/480":                     "480",
	}
	for in, want := range tests {
		if got := Density(in); got != want {
			t.Errorf("Density(%q) = %q, want %q", in, got, want)
		}
	}
}
