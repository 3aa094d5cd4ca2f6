package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/apk"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/spf13/cobra"
)

var (
	verifyPackage     string
	verifyVersionCode string
)

var verifyCmd = &cobra.Command{
	Use:         "verify <apk>...",
	Short:       i18n.T("cmd.verify.short"),
	Long:        i18n.T("cmd.verify.long"),
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		var expect *models.PackageRecord
		if verifyPackage != "" {
			rec := models.NewPackageRecord(models.RecordInput{
				PackageID:   verifyPackage,
				VersionCode: verifyVersionCode,
			})
			expect = &rec
		}

		failed := 0
		for _, path := range args {
			info, err := apk.Inspect(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s: %v\n", path, err)
				continue
			}

			fmt.Fprintf(out, "%s\n", path)
			fmt.Fprintf(out, "  %-13s %s\n", i18n.T("cmd.verify.package"), info.PackageID)
			fmt.Fprintf(out, "  %-13s %s (%d)\n", i18n.T("cmd.verify.version"), info.Version, info.VersionCode)
			fmt.Fprintf(out, "  %-13s %d / %d\n", i18n.T("cmd.verify.sdk"), info.MinSDK, info.TargetSDK)
			abis := strings.Join(info.ABIs, ", ")
			if abis == "" {
				abis = "-"
			}
			fmt.Fprintf(out, "  %-13s %s (%s)\n", i18n.T("cmd.verify.abis"), abis, apk.Architecture(info.ABIs))
			fmt.Fprintf(out, "  %-13s %s\n", i18n.T("cmd.verify.size"), humanize.IBytes(uint64(info.Size)))
			fmt.Fprintf(out, "  %-13s %s\n", "SHA-256", info.SHA256)

			if expect != nil {
				if err := apk.Compare(info, *expect); err != nil {
					failed++
					fmt.Fprintf(out, "  %v\n", err)
				} else {
					fmt.Fprintf(out, "  %s\n", i18n.T("cmd.verify.match"))
				}
			}
		}

		if failed > 0 {
			return errors.NewValidationError("VERIFY_FAILED", fmt.Sprintf(i18n.T("errors.verifyFailed"), failed, len(args)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyPackage, "package", "", i18n.T("cmd.verify.flag.package"))
	verifyCmd.Flags().StringVar(&verifyVersionCode, "version-code", "", i18n.T("cmd.verify.flag.versionCode"))
}
