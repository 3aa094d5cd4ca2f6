package cmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/history"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const testReport = `org.example.app|arm|21|nodpi|1.0|5|sig
org.example.app.beta|arm|21|nodpi|1.1|6|sig
org.example.other|arm|21|nodpi|3.0 (x86)|7|sig
org.example.other|arm|21|nodpi|3.2|8|sig
`

type stubSite struct{}

func (stubSite) Name() string { return "stub" }

func (stubSite) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	mk := func(version, code string) []models.PackageRecord {
		return []models.PackageRecord{stubRecord(packageID, version, code)}
	}
	switch packageID {
	case "org.example.app":
		return mk("2.0", "10"), nil
	case "org.example.app.beta":
		return mk("2.1", "11"), nil
	}
	return nil, fmt.Errorf("%s: %w", packageID, client.ErrPageNotFound)
}

func stubRecord(pkg, version, code string) models.PackageRecord {
	return models.NewPackageRecord(models.RecordInput{
		PackageID:    pkg,
		Architecture: "arm",
		MinSDK:       "21",
		Density:      "nodpi",
		Version:      version,
		VersionCode:  code,
		SourceLabel:  "stub",
		DownloadURL:  "http://127.0.0.1:1/" + pkg + ".apk",
	})
}

func TestMain(m *testing.M) {
	crawler.Register("stub", "http://stub.invalid", func(string, *client.PageClient) crawler.Site {
		return stubSite{}
	})
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	applyCommandLocalization()
	os.Exit(m.Run())
}

// testEnv writes a config and a report into a temp dir.
type testEnv struct {
	dir     string
	config  string
	report  string
	history string
}

func newTestEnv(t *testing.T, report string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "apkcrawler.yaml"),
		report:  filepath.Join(dir, "report.txt"),
		history: filepath.Join(dir, "history.db"),
	}
	conf := fmt.Sprintf(`download:
  output_dir: %q
  search_dirs: []
  history_file: %q
cache:
  dir: %q
log:
  color: false
`, filepath.Join(dir, "out"), env.history, filepath.Join(dir, "cache"))
	if err := os.WriteFile(env.config, []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.report, []byte(report), 0644); err != nil {
		t.Fatal(err)
	}
	return env
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", e.config, "--quiet", "--no-color"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func errorCode(err error) string {
	var ce *errors.CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func TestCompareCommand(t *testing.T) {
	env := newTestEnv(t, testReport)

	tests := []struct {
		a, b string
		want string
	}{
		{"1.2", "1.2.0", "="},
		{"1.10", "1.9", ">"},
		{"2.0", "10.0", "<"},
	}
	for _, tt := range tests {
		out, err := env.run(t, "compare", tt.a, tt.b)
		if err != nil {
			t.Fatalf("compare %s %s: %v", tt.a, tt.b, err)
		}
		if got := strings.TrimSpace(out); got != tt.want {
			t.Errorf("compare %s %s = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}

	if _, err := env.run(t, "compare", "1.2/3", "1.0"); errorCode(err) != "MALFORMED_VERSION" {
		t.Errorf("compare malformed error = %v, want MALFORMED_VERSION", err)
	}
	if _, err := env.run(t, "compare", "", "1.0"); errorCode(err) != "EMPTY_VERSION" {
		t.Errorf("compare empty error = %v, want EMPTY_VERSION", err)
	}
}

func TestCrawlDryRun(t *testing.T) {
	env := newTestEnv(t, testReport)

	out, err := env.run(t, "crawl", "--site", "stub", "--dry-run", "--beta", env.report)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	stable := stubRecord("org.example.app", "2.0", "10").Filename()
	beta := stubRecord("org.example.app.beta", "2.1", "11").Filename()
	want := stable + " beta " + beta
	if got := strings.TrimSpace(out); got != want {
		t.Errorf("crawl output = %q, want %q", got, want)
	}

	if _, err := os.Stat(filepath.Join(env.dir, "out")); !os.IsNotExist(err) {
		t.Error("dry run created the output directory")
	}
}

func TestCrawlWithoutBetaSkipsBetaLineage(t *testing.T) {
	env := newTestEnv(t, testReport)

	out, err := env.run(t, "crawl", "--site", "stub", "--dry-run", env.report)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if got, want := strings.TrimSpace(out), stubRecord("org.example.app", "2.0", "10").Filename(); got != want {
		t.Errorf("crawl output = %q, want %q", got, want)
	}
}

func TestCrawlDryRunLeavesOutStoredFiles(t *testing.T) {
	env := newTestEnv(t, testReport)

	out := filepath.Join(env.dir, "out")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	stored := stubRecord("org.example.app", "2.0", "10").Filename()
	if err := os.WriteFile(filepath.Join(out, stored), []byte("apk"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := env.run(t, "crawl", "--site", "stub", "--dry-run", env.report)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if got != "" {
		t.Errorf("crawl output = %q, want nothing", got)
	}
}

func TestCrawlInputErrors(t *testing.T) {
	env := newTestEnv(t, "Application Name|Arch|SDK|DPI|Version|Code|Sig\n")

	_, err := env.run(t, "crawl", "--site", "stub", env.report)
	if errorCode(err) != "EMPTY_INVENTORY" {
		t.Fatalf("crawl(empty) error = %v, want EMPTY_INVENTORY", err)
	}
	if ce := errors.As(err); ce.ExitCode != 1 || ce.Type != errors.ErrorTypeInput {
		t.Errorf("empty inventory error = %+v, want input error with exit code 1", ce)
	}

	_, err = env.run(t, "crawl", "--site", "stub", filepath.Join(env.dir, "missing.txt"))
	if errorCode(err) != "REPORT_NOT_FOUND" {
		t.Errorf("crawl(missing) error = %v, want REPORT_NOT_FOUND", err)
	}

	_, err = env.run(t, "crawl", "--site", "nosuchsite", "--dry-run", env.report)
	if errorCode(err) != "EMPTY_INVENTORY" {
		t.Errorf("inventory is checked before sites, got %v", err)
	}
}

func TestCrawlFromStdin(t *testing.T) {
	env := newTestEnv(t, testReport)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		io.WriteString(w, testReport)
		w.Close()
	}()
	old := stdin
	stdin = r
	t.Cleanup(func() {
		stdin = old
		r.Close()
	})

	out, err := env.run(t, "crawl", "--site", "stub", "--dry-run")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if !strings.Contains(out, "org.example.app_2.0-10") {
		t.Errorf("crawl output = %q", out)
	}
}

func TestCrawlUnknownSite(t *testing.T) {
	env := newTestEnv(t, testReport)
	if _, err := env.run(t, "crawl", "--site", "nosuchsite", "--dry-run", env.report); errorCode(err) != "UNKNOWN_SITE" {
		t.Errorf("crawl error = %v, want UNKNOWN_SITE", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := newTestEnv(t, testReport)

	out, err := env.run(t, "check", "--report", env.report, "--arch", "arm", "org.example.app", "2.0", "10", "21")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, "\nneeded\n") {
		t.Errorf("check output = %q, want needed", out)
	}

	out, err = env.run(t, "check", "--report", env.report, "org.example.app", "0.9", "3")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, "not needed (older-than-max)") {
		t.Errorf("check output = %q, want older-than-max", out)
	}
}

func TestMissingCommand(t *testing.T) {
	env := newTestEnv(t, testReport)

	out, err := env.run(t, "missing", env.report)
	if err != nil {
		t.Fatalf("missing failed: %v", err)
	}
	if got, want := strings.TrimSpace(out), "org.example.other|arm|21|nodpi|3.2 (x86)|7"; got != want {
		t.Errorf("missing output = %q, want %q", got, want)
	}
}

func TestSitesCommand(t *testing.T) {
	env := newTestEnv(t, testReport)

	out, err := env.run(t, "sites")
	if err != nil {
		t.Fatalf("sites failed: %v", err)
	}
	for _, want := range []string{"SITE", "stub", "http://stub.invalid", "apkmirror", "aptoide"} {
		if !strings.Contains(out, want) {
			t.Errorf("sites output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t, testReport)

	out, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No downloads recorded.") {
		t.Errorf("history output = %q", out)
	}

	store, err := history.Open(env.history)
	if err != nil {
		t.Fatal(err)
	}
	old := models.NewDownloadEntry(stubRecord("org.example.app", "1.5", "8"), "old.apk", 10)
	old.DownloadedAt = time.Now().AddDate(0, 0, -200)
	fresh := models.NewDownloadEntry(stubRecord("org.example.app", "2.0", "10"), "fresh.apk", 2048)
	for _, e := range []models.DownloadEntry{old, fresh} {
		if err := store.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	out, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if strings.Index(out, "fresh.apk") > strings.Index(out, "old.apk") {
		t.Errorf("history not newest first:\n%s", out)
	}

	out, err = env.run(t, "history", "prune", "--days", "90")
	if err != nil {
		t.Fatalf("history prune failed: %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries.") {
		t.Errorf("prune output = %q", out)
	}
}

func TestInitCommand(t *testing.T) {
	env := newTestEnv(t, testReport)
	path := filepath.Join(env.dir, "new.yaml")

	out, err := env.run(t, "init", "--output", path)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("init output = %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	if _, err := env.run(t, "init", "--output", path); errorCode(err) != "CONFIG_EXISTS" {
		t.Errorf("second init error = %v, want CONFIG_EXISTS", err)
	}
	if _, err := env.run(t, "init", "--output", path, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestVerifyRejectsNonAPK(t *testing.T) {
	env := newTestEnv(t, testReport)
	bogus := filepath.Join(env.dir, "bogus.apk")
	if err := os.WriteFile(bogus, []byte("<html>not an apk</html>"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "verify", bogus)
	if errorCode(err) != "VERIFY_FAILED" {
		t.Errorf("verify error = %v, want VERIFY_FAILED", err)
	}
	if !strings.Contains(out, bogus) {
		t.Errorf("verify output = %q", out)
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t, testReport)

	cm := client.NewCacheManager(filepath.Join(env.dir, "cache"), time.Hour)
	if err := cm.SetPage(&client.CachedPage{URL: "http://a/", Status: 200, Body: "x"}); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if !strings.Contains(out, "Total entries: 1") {
		t.Errorf("cache stats output = %q", out)
	}

	out, err = env.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("cache clear without confirmation = %q", out)
	}

	out, err = env.run(t, "cache", "clear", "--yes")
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries.") {
		t.Errorf("cache clear output = %q", out)
	}
}

func TestDoctorOffline(t *testing.T) {
	env := newTestEnv(t, testReport)

	// a nearly full disk makes doctor report an issue, so only the
	// sections are checked
	out, err := env.run(t, "doctor", "--offline")
	if err != nil && errorCode(err) != "DOCTOR_ISSUES" {
		t.Fatalf("doctor failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Configuration", "configuration is valid", "history"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}
}

func TestLangFromArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"crawl", "--lang", "zh"}, "zh"},
		{[]string{"--lang=en", "sites"}, "en"},
		{[]string{"crawl", "--", "--lang", "zh"}, ""},
		{[]string{"crawl", "--lang"}, ""},
	}
	for _, tt := range tests {
		if got := langFromArgs(tt.args); got != tt.want {
			t.Errorf("langFromArgs(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestHandleError(t *testing.T) {
	reportDir = t.TempDir()
	t.Cleanup(func() { reportDir = "" })

	var buf bytes.Buffer
	code := handleError(&buf, compareCmd, errors.NewInputError("EMPTY_INVENTORY", "empty"), time.Second)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "Error: empty") {
		t.Errorf("output = %q", buf.String())
	}

	files, err := filepath.Glob(filepath.Join(reportDir, "error_report_*_EMPTY_INVENTORY.json"))
	if err != nil || len(files) != 1 {
		t.Errorf("error reports = %v (%v), want one", files, err)
	}
}
