package cmd

import (
	"fmt"

	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       i18n.T("cmd.version.short"),
	Long:        i18n.T("cmd.version.long"),
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
