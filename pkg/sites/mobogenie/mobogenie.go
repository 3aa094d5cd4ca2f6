// Package mobogenie queries the Mobogenie helper JSON API.
package mobogenie

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
)

const (
	Name        = "mobogenie"
	DefaultURL  = "http://helper.mgccw.com"
	DownloadURL = "http://download.mgccw.com"
)

func init() {
	crawler.Register(Name, DefaultURL, func(baseURL string, pages *client.PageClient) crawler.Site {
		return New(baseURL, DownloadURL, pages)
	})
}

type detailResponse struct {
	Data struct {
		AppInfo *struct {
			APKID       string      `json:"apkId"`
			SDKVersion  json.Number `json:"sdkVersion"`
			Version     string      `json:"version"`
			VersionCode json.Number `json:"versionCode"`
			APKPath     string      `json:"apkPath"`
		} `json:"appInfo"`
	} `json:"data"`
}

type Site struct {
	baseURL     string
	downloadURL string
	pages       *client.PageClient
}

// New creates the scraper. Files are served from downloadURL, a different
// host than the API.
func New(baseURL, downloadURL string, pages *client.PageClient) *Site {
	return &Site{baseURL: baseURL, downloadURL: downloadURL, pages: pages}
}

func (s *Site) Name() string { return Name }

// Scrape asks for the app detail. The API answers unknown packages with
// a redirect, which the page client reports as not found.
func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	detailURL := sites.Join(s.baseURL, "nclient/sjson/detail/detailInfo.htm") + "?apkId=" + url.QueryEscape(packageID)

	var resp detailResponse
	if err := s.pages.JSONNoRedirect(ctx, detailURL, &resp); err != nil {
		return nil, err
	}
	info := resp.Data.AppInfo
	if info == nil || info.APKPath == "" {
		return nil, sites.NotSupported(Name, packageID)
	}

	version, _, _ := strings.Cut(strings.TrimSpace(info.Version), " ")
	id := info.APKID
	if id == "" {
		id = packageID
	}
	return []models.PackageRecord{models.NewPackageRecord(models.RecordInput{
		PackageID:   id,
		MinSDK:      info.SDKVersion.String(),
		Version:     version,
		VersionCode: info.VersionCode.String(),
		SourceLabel: Name,
		PageURL:     detailURL,
		DownloadURL: sites.Join(s.downloadURL, info.APKPath),
	})}, nil
}
