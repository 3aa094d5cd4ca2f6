// Package aptoide searches a fixed set of Aptoide community repositories
// through the webservices JSON API.
package aptoide

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/sites"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	Name       = "aptoide"
	DefaultURL = "http://webservices.aptoide.com"

	pageSize   = 100
	maxListing = 500
	// parallel repository listings per Scrape
	repoLimit = 4
)

// DefaultRepos are the community repositories known to mirror Google
// packages.
var DefaultRepos = []string{
	"albrtkmxxo", "android777", "aplicaciones-ceibal", "apk-s", "apps",
	"austroid", "bazar-canaima", "benny09", "brainyideas", "darkkiller",
	"denis86", "donvito2021", "draconius666", "eltremendo02", "grungo2407",
	"gyjano", "hampoo", "hfk217", "hot105", "iosefirina22", "irishandroid",
	"kcprophet", "leighakat", "letechest", "lonerfox2013", "ludock96",
	"mark8", "matandroid", "metin2ventor", "migatronic", "milaupv", "msi8",
	"mys3", "new-day-apps", "orgia82", "pentacore", "poulpe", "rahullah",
	"rodrivergara", "ryoma3ch1z3n", "sandro797", "shotaro", "slapchop",
	"snah", "speny", "stein-gmg", "tim-we", "tutu75", "vip-apk",
	"westcoastandroid",
}

func init() {
	crawler.Register(Name, DefaultURL, func(baseURL string, pages *client.PageClient) crawler.Site {
		return New(baseURL, pages, DefaultRepos)
	})
}

type listingItem struct {
	APKID   string      `json:"apkid"`
	Ver     string      `json:"ver"`
	Vercode json.Number `json:"vercode"`
	Path    string      `json:"path"`
}

type listingResponse struct {
	Status  string        `json:"status"`
	Listing []listingItem `json:"listing"`
}

type apkInfoResponse struct {
	Status string `json:"status"`
	APK    struct {
		CPU          string      `json:"cpu"`
		MinSDK       json.Number `json:"minSdk"`
		ScreenCompat string      `json:"screenCompat"`
	} `json:"apk"`
}

// Site looks a package up in every configured repository. Repository
// listings are fetched once per Site and shared by all packages.
type Site struct {
	baseURL string
	repos   []string
	pages   *client.PageClient
	logger  utils.Logger

	group    singleflight.Group
	mu       sync.Mutex
	listings map[string][]listingItem
}

func New(baseURL string, pages *client.PageClient, repos []string) *Site {
	return &Site{
		baseURL:  baseURL,
		repos:    repos,
		pages:    pages,
		logger:   utils.GetGlobalLogger().WithField("site", Name),
		listings: make(map[string][]listingItem),
	}
}

func (s *Site) Name() string { return Name }

func (s *Site) Scrape(ctx context.Context, packageID string) ([]models.PackageRecord, error) {
	var (
		mu   sync.Mutex
		recs []models.PackageRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repoLimit)
	for _, repo := range s.repos {
		repo := repo
		g.Go(func() error {
			items, err := s.listing(gctx, repo)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("listing %s: %v", repo, err)
				return nil
			}
			for _, item := range items {
				if !strings.EqualFold(item.APKID, packageID) {
					continue
				}
				rec, err := s.record(gctx, repo, item)
				if err != nil {
					s.logger.Warn("apk info %s/%s %s: %v", repo, item.APKID, item.Ver, err)
					continue
				}
				mu.Lock()
				recs = append(recs, rec)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, sites.NotSupported(Name, packageID)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.VersionCode != b.VersionCode {
			return a.VersionCode > b.VersionCode
		}
		if a.SourceLabel != b.SourceLabel {
			return a.SourceLabel < b.SourceLabel
		}
		return a.Architecture+a.Density < b.Architecture+b.Density
	})
	return recs, nil
}

// listing returns the most recent uploads of repo. Concurrent callers
// share one fetch.
func (s *Site) listing(ctx context.Context, repo string) ([]listingItem, error) {
	s.mu.Lock()
	items, ok := s.listings[repo]
	s.mu.Unlock()
	if ok {
		return items, nil
	}

	v, err, _ := s.group.Do(repo, func() (interface{}, error) {
		s.mu.Lock()
		cached, ok := s.listings[repo]
		s.mu.Unlock()
		if ok {
			return cached, nil
		}

		var all []listingItem
		for offset := 0; offset < maxListing; offset += pageSize {
			var resp listingResponse
			pageURL := sites.Join(s.baseURL, "webservices/listRepository", repo,
				fmt.Sprintf("orderby/recent/%d/%d/json", pageSize, offset))
			err := s.pages.JSON(ctx, pageURL, &resp)
			if err == nil && resp.Status != "OK" {
				err = fmt.Errorf("listing status %q", resp.Status)
			}
			if err != nil {
				if ctx.Err() == nil {
					// a broken repository is not asked again for other packages
					s.mu.Lock()
					s.listings[repo] = nil
					s.mu.Unlock()
				}
				return nil, err
			}
			all = append(all, resp.Listing...)
			if len(resp.Listing) < pageSize {
				break
			}
		}

		s.mu.Lock()
		s.listings[repo] = all
		s.mu.Unlock()
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]listingItem), nil
}

func (s *Site) record(ctx context.Context, repo string, item listingItem) (models.PackageRecord, error) {
	var info apkInfoResponse
	infoURL := sites.Join(s.baseURL, "webservices/2/getApkInfo", repo,
		url.PathEscape(item.APKID), url.PathEscape(item.Ver),
		fmt.Sprintf("options=(vercode=%s)/json", item.Vercode))
	if err := s.pages.JSON(ctx, infoURL, &info); err != nil {
		return models.PackageRecord{}, err
	}
	if info.Status != "OK" {
		return models.PackageRecord{}, fmt.Errorf("apk info status %q", info.Status)
	}

	return models.NewPackageRecord(models.RecordInput{
		PackageID:    item.APKID,
		Architecture: Architecture(info.APK.CPU),
		MinSDK:       info.APK.MinSDK.String(),
		Density:      Density(info.APK.ScreenCompat),
		Version:      item.Ver,
		VersionCode:  item.Vercode.String(),
		SourceLabel:  Name + "/" + repo,
		PageURL:      infoURL,
		DownloadURL:  sites.Absolute(infoURL, item.Path),
	}), nil
}

// Architecture maps an Aptoide cpu field to the report's column value.
func Architecture(cpu string) string {
	switch cpu {
	case "armeabi-v7a":
		return "arm"
	case "arm64-v8a":
		return "arm64"
	case "x86":
		return "x86"
	}
	return "all"
}

// Density turns a screenCompat list such as "normal/160,large/240" into
// the sorted unique densities joined by "-".
func Density(screenCompat string) string {
	if screenCompat == "" || screenCompat == "nodpi" {
		return "nodpi"
	}
	seen := make(map[string]bool)
	var dpis []string
	for _, entry := range strings.Split(screenCompat, ",") {
		_, dpi, ok := strings.Cut(entry, "/")
		dpi = strings.TrimSpace(dpi)
		if !ok || dpi == "" || seen[dpi] {
			continue
		}
		seen[dpi] = true
		dpis = append(dpis, dpi)
	}
	if len(dpis) == 0 {
		return "nodpi"
	}
	sort.Strings(dpis)
	return strings.Join(dpis, "-")
}
