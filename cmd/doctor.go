package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huanfeng/apkcrawler/internal/config"
	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/huanfeng/apkcrawler/pkg/system"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"github.com/spf13/cobra"
)

// minFreeSpace is the free space below which doctor warns about the
// output directory.
const minFreeSpace = 500 << 20

var (
	doctorOffline bool
	doctorTimeout time.Duration
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: i18n.T("cmd.doctor.short"),
	Long:  i18n.T("cmd.doctor.long"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := utils.GetGlobalLogger()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, i18n.T("cmd.doctor.title"))
		fmt.Fprintln(out, strings.Repeat("=", 50))

		var issues, suggestions []string

		fmt.Fprintf(out, "\n%s\n", i18n.T("cmd.doctor.sectionConfig"))
		source := cfgFile
		if source == "" {
			source = i18n.T("cmd.doctor.configSearch")
		}
		fmt.Fprintf(out, "   %s: %s\n", i18n.T("cmd.doctor.configFile"), source)
		if err := config.Validate(cfg); err != nil {
			fmt.Fprintf(out, "   ❌ %v\n", err)
			issues = append(issues, err.Error())
		} else {
			fmt.Fprintf(out, "   ✅ %s\n", i18n.T("cmd.doctor.configOK"))
		}

		fmt.Fprintf(out, "\n%s\n", i18n.T("cmd.doctor.sectionFiles"))
		rc := system.NewResourceChecker(logger)
		dirs := []string{cfg.Download.OutputDir}
		if cfg.Cache.Enabled {
			dirs = append(dirs, newCacheManager(cfg).Dir())
		}
		for _, dir := range dirs {
			check := rc.CheckOutputDir(dir, minFreeSpace)
			printPathCheck(out, check)
			issues = append(issues, check.Problems...)
		}

		if store, err := openHistory(cfg); err != nil {
			fmt.Fprintf(out, "   ❌ %v\n", err)
			issues = append(issues, err.Error())
		} else {
			n, _ := store.Count()
			store.Close()
			fmt.Fprintf(out, "   ✅ "+i18n.T("cmd.doctor.historyOK")+"\n", historyPath(cfg), n)
		}

		if !doctorOffline {
			fmt.Fprintf(out, "\n%s\n", i18n.T("cmd.doctor.sectionSites"))
			pages := newPageClient(cfg)

			var targets []system.SiteTarget
			for _, name := range config.EnabledSites(cfg) {
				url := cfg.SiteURL(name)
				if url == "" {
					url = crawler.DefaultURL(name)
				}
				if strings.Contains(url, "%s") {
					// per-package host; probe the bare domain
					url = strings.Replace(url, "%s.", "", 1)
				}
				targets = append(targets, system.SiteTarget{Name: name, URL: url})
			}

			nc := system.NewNetworkChecker(logger, doctorTimeout)
			for _, st := range nc.CheckSites(cmd.Context(), targets, pages.Reachable) {
				if st.Reachable() {
					fmt.Fprintf(out, "   ✅ %-10s %d  %v\n", st.Name, st.Status, st.Latency.Round(time.Millisecond))
					continue
				}
				detail := st.Category
				if st.Err != nil {
					detail = st.Err.Error()
				} else if st.Status > 0 {
					detail = fmt.Sprintf("HTTP %d", st.Status)
				}
				fmt.Fprintf(out, "   ❌ %-10s %s\n", st.Name, detail)
				issues = append(issues, fmt.Sprintf(i18n.T("cmd.doctor.siteDown"), st.Name, st.URL))
				suggestions = appendUnique(suggestions, system.Suggestions(st.Category)...)
			}
		}

		fmt.Fprintln(out, "\n"+strings.Repeat("=", 50))
		if len(issues) == 0 {
			fmt.Fprintln(out, i18n.T("cmd.doctor.allPassed"))
			return nil
		}

		fmt.Fprintf(out, i18n.T("cmd.doctor.foundIssues")+"\n", len(issues))
		for i, issue := range issues {
			fmt.Fprintf(out, "%d. %s\n", i+1, issue)
		}
		return errors.NewValidationError("DOCTOR_ISSUES", fmt.Sprintf(i18n.T("cmd.doctor.foundIssues"), len(issues))).
			WithSuggestions(suggestions)
	},
}

func printPathCheck(w io.Writer, check system.PathCheck) {
	if !check.OK() {
		for _, p := range check.Problems {
			fmt.Fprintf(w, "   ❌ %s\n", p)
		}
		return
	}
	if check.Disk != nil {
		fmt.Fprintf(w, "   ✅ %s\n", check.Disk)
		return
	}
	fmt.Fprintf(w, "   ✅ %s\n", check.Path)
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, have := range list {
			if have == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, i18n.T("cmd.doctor.flag.offline"))
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 10*time.Second, i18n.T("cmd.doctor.flag.timeout"))
}
