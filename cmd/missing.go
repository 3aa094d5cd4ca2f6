package cmd

import (
	"fmt"

	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/spf13/cobra"
)

var missingCmd = &cobra.Command{
	Use:   "missing [report-file]",
	Short: i18n.T("cmd.missing.short"),
	Long:  i18n.T("cmd.missing.long"),
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		inv, err := loadInventory(path)
		if err != nil {
			return err
		}

		for _, line := range newEvaluator(inv, cfg).Outdated() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(missingCmd)
}
