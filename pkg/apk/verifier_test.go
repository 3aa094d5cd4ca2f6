package apk

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huanfeng/apkcrawler/pkg/models"
)

func writeZip(t *testing.T, names ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.apk")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := zip.NewWriter(f)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte("x")); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestABIs(t *testing.T) {
	path := writeZip(t,
		"classes.dex",
		"lib/x86/libfoo.so",
		"lib/armeabi-v7a/libfoo.so",
		"lib/armeabi-v7a/libbar.so",
		"lib/README",
	)
	want := []string{"armeabi-v7a", "x86"}
	if diff := cmp.Diff(want, ABIs(path)); diff != "" {
		t.Errorf("ABIs mismatch (-want +got):\n%s", diff)
	}
	if got := ABIs(filepath.Join(t.TempDir(), "missing.apk")); got != nil {
		t.Errorf("ABIs(missing) = %v, want nil", got)
	}
}

func TestArchitecture(t *testing.T) {
	tests := []struct {
		abis []string
		want string
	}{
		{nil, "all"},
		{[]string{"armeabi-v7a"}, "arm"},
		{[]string{"armeabi-v7a", "arm64-v8a"}, "arm64"},
		{[]string{"x86"}, "x86"},
		{[]string{"x86", "x86_64"}, "x86_64"},
	}
	for _, tt := range tests {
		if got := Architecture(tt.abis); got != tt.want {
			t.Errorf("Architecture(%v) = %q, want %q", tt.abis, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	rec := models.NewPackageRecord(models.RecordInput{PackageID: "com.google.android.webview.beta", Version: "53.0", VersionCode: "530"})

	if err := Compare(&Info{PackageID: "com.google.android.webview", VersionCode: 530}, rec); err != nil {
		t.Errorf("Compare(beta base id) = %v, want nil", err)
	}
	if err := Compare(&Info{PackageID: "com.google.android.webview", VersionCode: 531}, rec); !errors.Is(err, ErrMismatch) {
		t.Errorf("Compare(other code) = %v, want ErrMismatch", err)
	}
	if err := Compare(&Info{PackageID: "com.evil", VersionCode: 530}, rec); !errors.Is(err, ErrMismatch) {
		t.Errorf("Compare(other package) = %v, want ErrMismatch", err)
	}

	noCode := models.NewPackageRecord(models.RecordInput{PackageID: "com.google.android.gm", Version: "7.5"})
	if err := Compare(&Info{PackageID: "com.google.android.gm", VersionCode: 99}, noCode); err != nil {
		t.Errorf("Compare(release without code) = %v, want nil", err)
	}
}

func TestInspectRejectsNonAPK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.apk")
	if err := os.WriteFile(path, []byte("<html>blocked</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(path); err == nil {
		t.Error("Inspect(html) succeeded")
	}
	if _, err := Inspect(writeZip(t, "classes.dex")); err == nil {
		t.Error("Inspect(zip without manifest) succeeded")
	}
}
