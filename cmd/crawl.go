package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/history"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	crawlSites     []string
	crawlWorkers   int
	crawlOutputDir string
	crawlBeta      bool
	crawlDryRun    bool
	crawlStats     bool
	crawlProgress  bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [report-file]",
	Short: i18n.T("cmd.crawl.short"),
	Long:  i18n.T("cmd.crawl.long"),
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := utils.GetGlobalLogger()

		var path string
		if len(args) == 1 {
			path = args[0]
		}
		inv, err := loadInventory(path)
		if err != nil {
			return err
		}

		sites, err := newSites(cfg, crawlSites, newPageClient(cfg))
		if err != nil {
			return err
		}

		workers := cfg.Crawler.Workers
		if crawlWorkers > 0 {
			workers = crawlWorkers
		}
		runner := &crawler.Runner{
			Evaluator: newEvaluator(inv, cfg),
			Workers:   workers,
			DryRun:    crawlDryRun,
			Logger:    logger,
		}

		// dry runs still use the manager to leave out files already stored
		var hist *history.Store
		if !crawlDryRun {
			if store, err := openHistory(cfg); err != nil {
				logger.Warn("download history disabled: %v", err)
			} else {
				hist = store
				defer hist.Close()
			}
		}
		runner.Downloader = newDownloadManager(cfg, crawlOutputDir, hist)

		ids := inv.PackageIDs(crawlBeta || cfg.Crawler.IncludeBeta)
		logger.Info("tracking %d packages on %d sites", len(ids), len(sites))

		if crawlProgress && !quiet {
			bar := utils.NewTaskBar(len(ids)*len(sites), i18n.T("cmd.crawl.progress"), os.Stderr)
			defer bar.Finish()
			runner.OnPackageDone = func(site, packageID string) {
				bar.Describe(fmt.Sprintf("%s %s", site, packageID))
				_ = bar.Add(1)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		res, runErr := runner.RunAll(ctx, sites, ids)
		if res != nil {
			if line := res.Line(); line != "" {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if crawlStats {
				res.Stats.ShowFinalStats(cmd.ErrOrStderr(), i18n.T("cmd.crawl.statsTitle"))
			}
		}

		if runErr != nil {
			if stderrors.Is(runErr, context.Canceled) {
				return errors.WrapError(runErr, errors.ErrorTypeUnknown, "INTERRUPTED", i18n.T("errors.interrupted"))
			}
			return errors.WrapError(runErr, errors.ErrorTypeUnknown, "CRAWL_FAILED", i18n.T("errors.crawlFailed"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringSliceVarP(&crawlSites, "site", "s", nil, i18n.T("cmd.crawl.flag.site"))
	crawlCmd.Flags().IntVarP(&crawlWorkers, "workers", "w", 0, i18n.T("cmd.crawl.flag.workers"))
	crawlCmd.Flags().StringVarP(&crawlOutputDir, "output-dir", "o", "", i18n.T("cmd.crawl.flag.outputDir"))
	crawlCmd.Flags().BoolVar(&crawlBeta, "beta", false, i18n.T("cmd.crawl.flag.beta"))
	crawlCmd.Flags().BoolVarP(&crawlDryRun, "dry-run", "n", false, i18n.T("cmd.crawl.flag.dryRun"))
	crawlCmd.Flags().BoolVar(&crawlStats, "stats", false, i18n.T("cmd.crawl.flag.stats"))
	crawlCmd.Flags().BoolVarP(&crawlProgress, "progress", "p", false, i18n.T("cmd.crawl.flag.progress"))
}
