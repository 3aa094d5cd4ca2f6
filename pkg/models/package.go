package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BetaSuffix marks a package identifier that is tracked as its own beta lineage.
const BetaSuffix = ".beta"

var (
	variantPattern = regexp.MustCompile(`^(.*)\.(leanback|tablet|watch|beta)$`)
	versionPattern = regexp.MustCompile(`^([^\s-]*)([\s-].*|\.(arm|arm\.arm_neon|arm64|x86|large|small))$`)
)

// Packages whose trailing version components encode architecture or density
// rather than the release.
var fourComponentFamilies = map[string]bool{
	"com.google.android.apps.docs":                true,
	"com.google.android.apps.docs.editors.docs":   true,
	"com.google.android.apps.docs.editors.sheets": true,
	"com.google.android.apps.docs.editors.slides": true,
}

// APILevel is an Android API level as published by a source. Sources
// occasionally publish a letter ("Q") for developer previews; such a value
// is kept as Token and Level stays 0.
type APILevel struct {
	Level int    `json:"level"`
	Token string `json:"token,omitempty"`
}

// ParseAPILevel interprets an SDK column: empty means unknown (0), digits
// are a level, anything else is a preview token.
func ParseAPILevel(s string) APILevel {
	s = strings.TrimSpace(s)
	if s == "" {
		return APILevel{}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return APILevel{Level: n}
	}
	return APILevel{Token: s}
}

// Level returns a known numeric API level.
func Level(n int) APILevel {
	return APILevel{Level: n}
}

// IsPreview reports whether the source gave a non-numeric level.
func (a APILevel) IsPreview() bool {
	return a.Token != ""
}

// IsKnown reports whether the level is a usable non-zero number.
func (a APILevel) IsKnown() bool {
	return a.Token == "" && a.Level != 0
}

func (a APILevel) String() string {
	if a.Token != "" {
		return a.Token
	}
	return strconv.Itoa(a.Level)
}

// RecordInput holds the raw scalar fields a record is built from.
type RecordInput struct {
	PackageID    string
	Architecture string
	MinSDK       string
	TargetSDK    string
	Density      string
	Version      string
	VersionCode  string
	SourceLabel  string
	PageURL      string
	DownloadURL  string
}

// PackageRecord is one variant of a package, either held locally or found
// by a site scraper.
type PackageRecord struct {
	PackageID        string   `json:"package_id"`
	VariantSuffix    string   `json:"variant_suffix,omitempty"`
	Architecture     string   `json:"architecture,omitempty"`
	MinSDK           APILevel `json:"min_sdk"`
	TargetSDK        APILevel `json:"target_sdk"`
	Density          string   `json:"density,omitempty"`
	DisplayVersion   string   `json:"display_version"`
	RawVersion       string   `json:"raw_version"`
	VersionCode      int64    `json:"version_code"`
	VersionCodeToken string   `json:"version_code_token,omitempty"`
	SourceLabel      string   `json:"source,omitempty"`
	PageURL          string   `json:"page_url,omitempty"`
	DownloadURL      string   `json:"download_url,omitempty"`
}

// NewPackageRecord normalizes raw scraped or reported fields.
func NewPackageRecord(in RecordInput) PackageRecord {
	rec := PackageRecord{
		PackageID:      strings.TrimSpace(in.PackageID),
		Architecture:   strings.TrimSpace(in.Architecture),
		MinSDK:         ParseAPILevel(in.MinSDK),
		TargetSDK:      ParseAPILevel(in.TargetSDK),
		Density:        strings.TrimSpace(in.Density),
		DisplayVersion: strings.TrimSpace(in.Version),
		RawVersion:     strings.TrimSpace(in.Version),
		SourceLabel:    in.SourceLabel,
		PageURL:        in.PageURL,
		DownloadURL:    in.DownloadURL,
	}

	if m := variantPattern.FindStringSubmatch(rec.PackageID); m != nil {
		rec.VariantSuffix = m[2]
		// .beta stays part of the identifier: betas are their own lineage.
		if m[2] != "beta" {
			rec.PackageID = m[1]
		}
	}

	if m := versionPattern.FindStringSubmatch(rec.DisplayVersion); m != nil {
		rec.DisplayVersion = m[1]
	}

	if fourComponentFamilies[strings.ToLower(rec.PackageID)] {
		parts := strings.Split(rec.DisplayVersion, ".")
		if len(parts) > 4 {
			rec.DisplayVersion = strings.Join(parts[:4], ".")
		}
	}

	if code := strings.TrimSpace(in.VersionCode); code != "" {
		if n, err := strconv.ParseInt(code, 10, 64); err == nil {
			rec.VersionCode = n
		} else {
			rec.VersionCodeToken = code
		}
	}

	return rec
}

// Key is the case-normalized identifier used for inventory lookups.
func (r PackageRecord) Key() string {
	return strings.ToLower(r.PackageID)
}

// IsBeta reports whether the record belongs to a beta lineage.
func (r PackageRecord) IsBeta() bool {
	return strings.HasSuffix(r.Key(), BetaSuffix)
}

// BasePackageID strips the beta marker, if any.
func (r PackageRecord) BasePackageID() string {
	if r.IsBeta() {
		return r.PackageID[:len(r.PackageID)-len(BetaSuffix)]
	}
	return r.PackageID
}

// Filename is the on-disk name for the record's APK:
// name_version-versionCode_minAPIsdk(arch)(dpi).apk, with a "beta." prefix
// for the beta lineage.
func (r PackageRecord) Filename() string {
	var b strings.Builder
	if r.IsBeta() {
		b.WriteString("beta.")
	}
	fmt.Fprintf(&b, "%s_%s-%d_minAPI%s",
		r.PackageID,
		strings.ReplaceAll(r.RawVersion, " ", "_"),
		r.VersionCode,
		r.MinSDK)
	if r.Architecture != "" {
		fmt.Fprintf(&b, "(%s)", r.Architecture)
	}
	if r.Density != "" {
		fmt.Fprintf(&b, "(%s)", r.Density)
	}
	b.WriteString(".apk")
	return b.String()
}

// Line renders the record in the report column order, substituting version
// for the display version while keeping whatever suffix truncation removed.
func (r PackageRecord) Line(version string) string {
	if strings.HasPrefix(r.RawVersion, r.DisplayVersion) {
		version += r.RawVersion[len(r.DisplayVersion):]
	}
	return strings.Join([]string{
		r.PackageID,
		r.Architecture,
		r.MinSDK.String(),
		r.Density,
		version,
		strconv.FormatInt(r.VersionCode, 10),
	}, "|")
}

func (r PackageRecord) String() string {
	return fmt.Sprintf("%s %s (%d) sdk=%s target=%s arch=%s dpi=%s src=%s",
		r.PackageID, r.RawVersion, r.VersionCode, r.MinSDK, r.TargetSDK,
		r.Architecture, r.Density, r.SourceLabel)
}
