package cmd

import (
	"fmt"

	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/spf13/cobra"
)

var (
	checkReport    string
	checkArch      string
	checkDensity   string
	checkTargetSDK string
)

var checkCmd = &cobra.Command{
	Use:   "check <package> <version> [versionCode] [minSdk]",
	Short: i18n.T("cmd.check.short"),
	Long:  i18n.T("cmd.check.long"),
	Args:  cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := loadInventory(checkReport)
		if err != nil {
			return err
		}

		in := models.RecordInput{
			PackageID:    args[0],
			Version:      args[1],
			Architecture: checkArch,
			Density:      checkDensity,
			TargetSDK:    checkTargetSDK,
			SourceLabel:  "manual",
		}
		if len(args) > 2 {
			in.VersionCode = args[2]
		}
		if len(args) > 3 {
			in.MinSDK = args[3]
		}
		candidate := models.NewPackageRecord(in)

		eval := newEvaluator(inv, cfg)
		d := eval.Check(candidate)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", candidate)
		fmt.Fprintf(out, "  %-12s %s\n", i18n.T("cmd.check.file"), candidate.Filename())
		if maxVer := eval.MaxVersion(candidate.PackageID); maxVer != "" {
			fmt.Fprintf(out, "  %-12s %s\n", i18n.T("cmd.check.maxVersion"), maxVer)
		}
		if inv.Has(candidate.PackageID) {
			fmt.Fprintf(out, "  %-12s %d\n", i18n.T("cmd.check.minSdk"), eval.MinSDK(candidate.PackageID))
		}

		if d.Needed {
			fmt.Fprintln(out, i18n.T("cmd.check.needed"))
			return nil
		}
		fmt.Fprintf(out, i18n.T("cmd.check.notNeeded")+"\n", d.Rule)
		if d.Detail != "" {
			fmt.Fprintf(out, "  %s\n", d.Detail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkReport, "report", "r", "", i18n.T("cmd.check.flag.report"))
	checkCmd.Flags().StringVar(&checkArch, "arch", "", i18n.T("cmd.check.flag.arch"))
	checkCmd.Flags().StringVar(&checkDensity, "dpi", "nodpi", i18n.T("cmd.check.flag.dpi"))
	checkCmd.Flags().StringVar(&checkTargetSDK, "target-sdk", "", i18n.T("cmd.check.flag.targetSdk"))
}
