package models

import "time"

// DownloadEntry is one file fetched by a crawl, as kept in the download
// history.
type DownloadEntry struct {
	FileName     string    `json:"file_name"`
	PackageID    string    `json:"package_id"`
	Version      string    `json:"version"`
	VersionCode  int64     `json:"version_code"`
	Site         string    `json:"site"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256,omitempty"`
	Verified     bool      `json:"verified"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// NewDownloadEntry fills an entry from the record a file was fetched for.
func NewDownloadEntry(rec PackageRecord, name string, size int64) DownloadEntry {
	return DownloadEntry{
		FileName:     name,
		PackageID:    rec.PackageID,
		Version:      rec.RawVersion,
		VersionCode:  rec.VersionCode,
		Site:         rec.SourceLabel,
		URL:          rec.DownloadURL,
		Size:         size,
		DownloadedAt: time.Now(),
	}
}
