package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/crawler"
	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: i18n.T("cmd.sites.short"),
	Long:  i18n.T("cmd.sites.long"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\n", i18n.T("cmd.sites.colName"), i18n.T("cmd.sites.colEnabled"), i18n.T("cmd.sites.colURL"))
		for _, name := range crawler.Sites() {
			url := cfg.SiteURL(name)
			if url == "" {
				url = crawler.DefaultURL(name)
			}
			enabled := i18n.T("common.no")
			if cfg.SiteEnabled(name) {
				enabled = i18n.T("common.yes")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, enabled, url)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
