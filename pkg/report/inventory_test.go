package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleReport = `Application Name                              |Arch |SDK|DPI        |Version          |Code      |MiB|Sig
----------------------------------------------------------------------------------------------------------
  com.google.android.gm                       |arm  |21 |nodpi      |7.5.10           |58432     |20 |ab12
  com.google.android.gm                       |x86  |21 |nodpi      |7.5.10           |58433     |20 |ab12
  com.google.android.gms                      |arm64|23 |480        |9.0.83 (440-121) |9083440   |35 |cd34
  com.google.android.webview                  |arm  |21 |nodpi      |51.0.2704.81     |270408100 |40 |ef56
  com.google.android.webview.beta             |arm  |21 |nodpi      |52.0.2743.23     |274302300 |40 |ef56
  com.google.android.youtube.leanback         |arm  |21 |nodpi      |1.3.11           |11311     |12 |aa00
  com.google.android.setupwizard              |all  |23 |nodpi      |6.0              |23        |2  |bb11
  com.google.android.calendar|arm|19|nodpi|5.2-77|201511|9
`

func TestLoadInventory(t *testing.T) {
	inv, err := LoadInventory(strings.NewReader(sampleReport))
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}

	want := []string{
		"com.google.android.calendar",
		"com.google.android.gm",
		"com.google.android.gms",
		"com.google.android.webview",
		"com.google.android.webview.beta",
		"com.google.android.youtube",
	}
	if diff := cmp.Diff(want, inv.Packages()); diff != "" {
		t.Errorf("Packages() mismatch (-want +got):\n%s", diff)
	}

	if got := len(inv.Records("com.google.android.gm")); got != 2 {
		t.Errorf("gm records = %d, want 2", got)
	}
	if inv.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1 (factory image line)", inv.Skipped())
	}

	gms := inv.Records("com.google.android.gms")[0]
	if gms.DisplayVersion != "9.0.83" || gms.RawVersion != "9.0.83 (440-121)" {
		t.Errorf("gms versions = %q / %q", gms.DisplayVersion, gms.RawVersion)
	}
	if gms.MinSDK.Level != 23 || gms.Density != "480" || gms.Architecture != "arm64" {
		t.Errorf("gms fields = %+v", gms)
	}

	yt := inv.Records("com.google.android.youtube")[0]
	if yt.VariantSuffix != "leanback" {
		t.Errorf("youtube VariantSuffix = %q, want leanback", yt.VariantSuffix)
	}

	cal := inv.Records("com.google.android.calendar")[0]
	if cal.DisplayVersion != "5.2" || cal.VersionCode != 201511 {
		t.Errorf("seven-column line parsed as %+v", cal)
	}
}

func TestLoadInventoryCountsMalformed(t *testing.T) {
	const report = `org.example.app|arm|21|nodpi|1.0|abc|sig
org.example.app|arm|21|nodpi|1.1|12|sig
Application Name|Arch|SDK|DPI|Version|Code|Sig
`
	inv, err := LoadInventory(strings.NewReader(report))
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}
	if inv.Len() != 1 || inv.RecordCount() != 1 {
		t.Errorf("Len() = %d, RecordCount() = %d, want 1 and 1", inv.Len(), inv.RecordCount())
	}
	if inv.Malformed() != 1 {
		t.Errorf("Malformed() = %d, want 1", inv.Malformed())
	}
	if inv.Skipped() != 0 {
		t.Errorf("Skipped() = %d, want 0", inv.Skipped())
	}
}

func TestPackageIDs(t *testing.T) {
	inv, err := LoadInventory(strings.NewReader(sampleReport))
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}

	for _, id := range inv.PackageIDs(false) {
		if strings.HasSuffix(id, ".beta") {
			t.Errorf("PackageIDs(false) contains beta id %q", id)
		}
	}

	found := false
	for _, id := range inv.PackageIDs(true) {
		if id == "com.google.android.webview.beta" {
			found = true
		}
	}
	if !found {
		t.Error("PackageIDs(true) missing com.google.android.webview.beta")
	}
}

func TestLoadInventoryEmpty(t *testing.T) {
	inv, err := LoadInventory(strings.NewReader("nothing useful here\n\n"))
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}
	if !errors.Is(inv.Validate(), ErrEmptyInventory) {
		t.Errorf("Validate() = %v, want ErrEmptyInventory", inv.Validate())
	}
}

func TestLoadInventoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte(sampleReport), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	inv, err := LoadInventoryFile(path)
	if err != nil {
		t.Fatalf("LoadInventoryFile failed: %v", err)
	}
	if inv.Len() != 6 {
		t.Errorf("Len() = %d, want 6", inv.Len())
	}
	if inv.RecordCount() != 7 {
		t.Errorf("RecordCount() = %d, want 7", inv.RecordCount())
	}

	if _, err := LoadInventoryFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("LoadInventoryFile(missing) = nil error, want error")
	}
}
