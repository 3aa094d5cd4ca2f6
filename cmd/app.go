package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/huanfeng/apkcrawler/internal/config"
	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/internal/version"
	"github.com/huanfeng/apkcrawler/pkg/client"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/fetch"
	"github.com/huanfeng/apkcrawler/pkg/history"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/report"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"github.com/mattn/go-isatty"

	// register every site scraper
	_ "github.com/huanfeng/apkcrawler/pkg/sites/all"
)

// stdin is swapped in tests.
var stdin = os.Stdin

// loadInventory reads the report named by path, or standard input when
// path is empty. A missing or empty report is an input error, which
// exits with status 1.
func loadInventory(path string) (*report.Inventory, error) {
	var (
		inv *report.Inventory
		err error
	)
	if path == "" || path == "-" {
		if isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd()) {
			return nil, errors.NewInputError("NO_REPORT", i18n.T("errors.noReport"))
		}
		inv, err = report.LoadInventory(stdin)
	} else {
		inv, err = report.LoadInventoryFile(path)
	}

	switch {
	case stderrors.Is(err, os.ErrNotExist):
		return nil, errors.NewInputError("REPORT_NOT_FOUND", fmt.Sprintf(i18n.T("errors.reportNotFound"), path)).
			WithContext("path", path)
	case err != nil:
		return nil, errors.WrapError(err, errors.ErrorTypeInput, "REPORT_READ", i18n.T("errors.reportRead"))
	}

	if err := inv.Validate(); err != nil {
		return nil, errors.NewInputError("EMPTY_INVENTORY", i18n.T("errors.emptyInventory")).
			WithContext("path", path)
	}
	if n := inv.Malformed(); n > 0 {
		utils.Warn("skipped %d malformed report lines", n)
	}
	utils.Debug("loaded %d packages (%d records, %d factory images skipped)", inv.Len(), inv.RecordCount(), inv.Skipped())
	return inv, nil
}

func newEvaluator(inv *report.Inventory, c *models.Config) *report.Evaluator {
	opts := []report.EvaluatorOption{
		report.WithSDKBaseline(c.Evaluator.SDKBaseline),
		report.WithLogger(utils.GetGlobalLogger()),
	}
	if len(c.Evaluator.OneVariantPerRealver) > 0 || len(c.Evaluator.OneVercodePerRealver) > 0 {
		opts = append(opts, report.WithClassifications(c.Evaluator.OneVariantPerRealver, c.Evaluator.OneVercodePerRealver))
	}
	return report.NewEvaluator(inv, opts...)
}

func newCacheManager(c *models.Config) *client.CacheManager {
	return client.NewCacheManager(c.Cache.Dir, time.Duration(c.Cache.TTL)*time.Second)
}

func newPageClient(c *models.Config) *client.PageClient {
	opts := client.DefaultPageOptions()
	opts.UserAgent = c.Crawler.UserAgent
	opts.Timeout = time.Duration(c.Crawler.Timeout) * time.Second
	opts.Retries = c.Crawler.Retries
	opts.Robots = c.Crawler.RespectRobots
	opts.Logger = utils.GetGlobalLogger()
	if c.Cache.Enabled {
		opts.Cache = newCacheManager(c)
	}
	return client.NewPageClient(opts)
}

// newSites creates the named scrapers, or every enabled one when names is
// empty.
func newSites(c *models.Config, names []string, pages *client.PageClient) ([]crawler.Site, error) {
	if len(names) == 0 {
		names = config.EnabledSites(c)
	}
	if len(names) == 0 {
		return nil, errors.NewConfigurationError("NO_SITES", i18n.T("errors.noSites"))
	}

	sites := make([]crawler.Site, 0, len(names))
	for _, name := range names {
		site, err := crawler.New(name, c.SiteURL(name), pages)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeValidation, "UNKNOWN_SITE", i18n.T("errors.unknownSite")).
				WithContext("site", name).
				WithSuggestion(i18n.T("errors.unknownSiteHint"))
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func historyPath(c *models.Config) string {
	if c.Download.HistoryFile != "" {
		return c.Download.HistoryFile
	}
	return history.DefaultPath()
}

func openHistory(c *models.Config) (*history.Store, error) {
	store, err := history.Open(historyPath(c))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeFileSystem, "HISTORY_OPEN", i18n.T("errors.historyOpen")).
			WithContext("path", historyPath(c))
	}
	return store, nil
}

func newFetcher(c *models.Config) *fetch.CircuitBreakerFetcher {
	opts := []fetch.Option{fetch.WithMaxRetries(c.Crawler.Retries)}
	if c.Crawler.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(c.Crawler.UserAgent))
	} else {
		opts = append(opts, fetch.WithUserAgent(version.UserAgent()))
	}
	return fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(opts...), c.Download.BreakerThreshold)
}

var _ crawler.Finder = (*client.DownloadManager)(nil)

func newDownloadManager(c *models.Config, outputDir string, hist *history.Store) *client.DownloadManager {
	if outputDir == "" {
		outputDir = c.Download.OutputDir
	}
	return client.NewDownloadManager(newFetcher(c), client.DownloadOptions{
		OutputDir:    outputDir,
		SearchDirs:   c.Download.SearchDirs,
		Verify:       c.Download.Verify,
		ShowProgress: c.Download.ShowProgress && !quiet,
		Progress:     os.Stderr,
	}, hist, utils.GetGlobalLogger())
}
