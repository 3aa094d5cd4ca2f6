package cmd

import (
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/spf13/cobra"
)

// applyCommandLocalization updates command and flag descriptions after i18n is initialized.
func applyCommandLocalization() {
	// Root command metadata and flags.
	rootCmd.Short = i18n.T("cmd.root.short")
	rootCmd.Long = i18n.T("cmd.root.long")
	localizeFlags(rootCmd, map[string]string{
		"config":     "flags.config",
		"verbose":    "flags.verbose",
		"quiet":      "flags.quiet",
		"log-file":   "flags.logFile",
		"no-color":   "flags.noColor",
		"lang":       "flags.lang",
		"report-dir": "flags.reportDir",
	})

	// Command descriptions.
	crawlCmd.Short = i18n.T("cmd.crawl.short")
	crawlCmd.Long = i18n.T("cmd.crawl.long")
	localizeFlags(crawlCmd, map[string]string{
		"site":       "cmd.crawl.flag.site",
		"workers":    "cmd.crawl.flag.workers",
		"output-dir": "cmd.crawl.flag.outputDir",
		"beta":       "cmd.crawl.flag.beta",
		"dry-run":    "cmd.crawl.flag.dryRun",
		"stats":      "cmd.crawl.flag.stats",
		"progress":   "cmd.crawl.flag.progress",
	})

	checkCmd.Short = i18n.T("cmd.check.short")
	checkCmd.Long = i18n.T("cmd.check.long")
	localizeFlags(checkCmd, map[string]string{
		"report":     "cmd.check.flag.report",
		"arch":       "cmd.check.flag.arch",
		"dpi":        "cmd.check.flag.dpi",
		"target-sdk": "cmd.check.flag.targetSdk",
	})

	compareCmd.Short = i18n.T("cmd.compare.short")
	compareCmd.Long = i18n.T("cmd.compare.long")

	missingCmd.Short = i18n.T("cmd.missing.short")
	missingCmd.Long = i18n.T("cmd.missing.long")

	sitesCmd.Short = i18n.T("cmd.sites.short")
	sitesCmd.Long = i18n.T("cmd.sites.long")

	historyCmd.Short = i18n.T("cmd.history.short")
	historyCmd.Long = i18n.T("cmd.history.long")
	historyPruneCmd.Short = i18n.T("cmd.history.prune.short")
	localizeFlags(historyCmd, map[string]string{
		"package": "cmd.history.flag.package",
		"limit":   "cmd.history.flag.limit",
		"json":    "cmd.history.flag.json",
	})
	localizeFlags(historyPruneCmd, map[string]string{"days": "cmd.history.prune.flag.days"})

	verifyCmd.Short = i18n.T("cmd.verify.short")
	verifyCmd.Long = i18n.T("cmd.verify.long")
	localizeFlags(verifyCmd, map[string]string{
		"package":      "cmd.verify.flag.package",
		"version-code": "cmd.verify.flag.versionCode",
	})

	cacheCmd.Short = i18n.T("cmd.cache.short")
	cacheCmd.Long = i18n.T("cmd.cache.long")
	cacheStatsCmd.Short = i18n.T("cmd.cache.stats.short")
	cacheCleanCmd.Short = i18n.T("cmd.cache.clean.short")
	cacheClearCmd.Short = i18n.T("cmd.cache.clear.short")
	localizeFlags(cacheClearCmd, map[string]string{"yes": "cmd.cache.flag.yes"})

	initCmd.Short = i18n.T("cmd.init.short")
	initCmd.Long = i18n.T("cmd.init.long")
	localizeFlags(initCmd, map[string]string{
		"force":  "cmd.init.flag.force",
		"output": "cmd.init.flag.output",
	})

	doctorCmd.Short = i18n.T("cmd.doctor.short")
	doctorCmd.Long = i18n.T("cmd.doctor.long")
	localizeFlags(doctorCmd, map[string]string{
		"offline": "cmd.doctor.flag.offline",
		"timeout": "cmd.doctor.flag.timeout",
	})

	versionCmd.Short = i18n.T("cmd.version.short")
	versionCmd.Long = i18n.T("cmd.version.long")
}

func localizeFlags(cmd *cobra.Command, ids map[string]string) {
	for name, id := range ids {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag != nil {
			flag.Usage = i18n.T(id)
		}
	}
}
