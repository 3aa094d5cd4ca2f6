// Package apk checks downloaded files against the release they were
// fetched for.
package apk

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/shogo82148/androidbinary/apk"
)

// ErrMismatch is returned when a file's manifest disagrees with the
// release it was downloaded as.
var ErrMismatch = errors.New("apk does not match release")

// Info is what the manifest and archive say about an APK file.
type Info struct {
	PackageID   string
	Version     string
	VersionCode int64
	MinSDK      int
	TargetSDK   int
	ABIs        []string
	Size        int64
	SHA256      string
}

// Inspect opens path and reads its manifest.
func Inspect(path string) (*Info, error) {
	pkg, err := apk.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer pkg.Close()

	manifest := pkg.Manifest()
	info := &Info{
		PackageID: manifest.Package.MustString(),
		Version:   manifest.VersionName.MustString(),
	}
	if code, err := manifest.VersionCode.Int32(); err == nil {
		info.VersionCode = int64(code)
	}
	if sdk, err := manifest.SDK.Min.Int32(); err == nil {
		info.MinSDK = int(sdk)
	}
	if sdk, err := manifest.SDK.Target.Int32(); err == nil {
		info.TargetSDK = int(sdk)
	}

	info.ABIs = ABIs(path)
	info.Size, info.SHA256, err = digest(path)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Verify inspects path and compares it with rec.
func Verify(path string, rec models.PackageRecord) (*Info, error) {
	info, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	return info, Compare(info, rec)
}

// Compare checks the package identifier, ignoring the beta marker, and
// the version code when the release has one.
func Compare(info *Info, rec models.PackageRecord) error {
	if !strings.EqualFold(info.PackageID, rec.BasePackageID()) && !strings.EqualFold(info.PackageID, rec.PackageID) {
		return fmt.Errorf("%w: package %s, expected %s", ErrMismatch, info.PackageID, rec.PackageID)
	}
	if rec.VersionCode != 0 && info.VersionCode != rec.VersionCode {
		return fmt.Errorf("%w: version code %d, expected %d", ErrMismatch, info.VersionCode, rec.VersionCode)
	}
	return nil
}

// ABIs lists the native library directories in the archive.
func ABIs(path string) []string {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer reader.Close()

	seen := make(map[string]bool)
	var abis []string
	for _, f := range reader.File {
		parts := strings.Split(f.Name, "/")
		if len(parts) < 3 || parts[0] != "lib" || seen[parts[1]] {
			continue
		}
		seen[parts[1]] = true
		abis = append(abis, parts[1])
	}
	sort.Strings(abis)
	return abis
}

// Architecture maps native library directories to the report's
// architecture column. Packages without native code run everywhere.
func Architecture(abis []string) string {
	has := make(map[string]bool, len(abis))
	for _, a := range abis {
		has[a] = true
	}
	switch {
	case has["arm64-v8a"]:
		return "arm64"
	case has["x86_64"]:
		return "x86_64"
	case has["armeabi-v7a"], has["armeabi"]:
		return "arm"
	case has["x86"]:
		return "x86"
	}
	return "all"
}

func digest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
