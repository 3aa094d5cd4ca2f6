package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huanfeng/apkcrawler/pkg/apk"
	"github.com/huanfeng/apkcrawler/pkg/fetch"
	"github.com/huanfeng/apkcrawler/pkg/history"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/utils"
)

// DownloadOptions contains download options
type DownloadOptions struct {
	OutputDir    string
	SearchDirs   []string // checked for an existing copy before fetching
	Verify       bool     // compare the manifest with the release
	ShowProgress bool
	Progress     io.Writer // progress bar output, stderr when nil
}

// DownloadManager stores needed releases on disk.
type DownloadManager struct {
	fetcher fetch.Interface
	opts    DownloadOptions
	history *history.Store
	logger  utils.Logger
}

// NewDownloadManager creates a new download manager. hist may be nil.
func NewDownloadManager(f fetch.Interface, opts DownloadOptions, hist *history.Store, logger utils.Logger) *DownloadManager {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Progress == nil {
		opts.Progress = os.Stderr
	}
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}
	return &DownloadManager{fetcher: f, opts: opts, history: hist, logger: logger}
}

// Exists looks for name in the output directory and the search
// directories.
func (d *DownloadManager) Exists(name string) (string, bool) {
	dirs := append([]string{d.opts.OutputDir}, d.opts.SearchDirs...)
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Download fetches rec.DownloadURL into the output directory under
// rec.Filename(). It returns an empty name when the file already exists.
func (d *DownloadManager) Download(ctx context.Context, rec models.PackageRecord) (string, int64, error) {
	name := rec.Filename()
	if path, ok := d.Exists(name); ok {
		d.logger.Info("%s already exists", path)
		return "", 0, nil
	}
	if rec.DownloadURL == "" {
		return "", 0, fmt.Errorf("%s: no download URL", name)
	}

	target := filepath.Join(d.opts.OutputDir, name)
	size, finalURL, err := d.downloadFile(fetch.WithReferer(ctx, rec.PageURL), rec.DownloadURL, target, name)
	if err != nil {
		return "", 0, fmt.Errorf("download failed: %w", err)
	}

	entry := models.NewDownloadEntry(rec, name, size)
	if finalURL != "" && finalURL != rec.DownloadURL {
		d.logger.Debug("%s served from %s", name, finalURL)
		entry.URL = finalURL
	}
	if d.opts.Verify {
		info, err := apk.Verify(target, rec)
		if err != nil {
			os.Remove(target)
			return "", 0, fmt.Errorf("verifying %s: %w", name, err)
		}
		entry.SHA256 = info.SHA256
		entry.Verified = true
	}

	if d.history != nil {
		if err := d.history.Record(entry); err != nil {
			d.logger.Warn("failed to record %s in history: %v", name, err)
		}
	}
	return name, size, nil
}

// downloadFile streams url into a temporary file next to targetPath and
// renames it once complete. It returns the size and the URL the file was
// served from after redirects.
func (d *DownloadManager) downloadFile(ctx context.Context, url, targetPath, name string) (int64, string, error) {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return 0, "", fmt.Errorf("failed to create download directory: %w", err)
	}

	artifact, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, "", err
	}
	defer artifact.Body.Close()

	tempPath := targetPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return 0, "", err
	}

	var w io.Writer = out
	if d.opts.ShowProgress {
		w = io.MultiWriter(out, utils.NewDownloadBar(artifact.Size, name, d.opts.Progress))
	}

	written, err := io.Copy(w, artifact.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && artifact.Size > 0 && written != artifact.Size {
		err = fmt.Errorf("size mismatch: expected %d bytes, got %d bytes", artifact.Size, written)
	}
	if err == nil && written == 0 {
		err = errors.New("empty response")
	}
	if err != nil {
		os.Remove(tempPath)
		return 0, "", err
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		os.Remove(tempPath)
		return 0, "", err
	}
	return written, artifact.FinalURL, nil
}
