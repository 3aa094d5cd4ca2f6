package cmd

import (
	stderrors "errors"
	"fmt"

	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/pkg/versionkey"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:         "compare <version-a> <version-b>",
	Short:       i18n.T("cmd.compare.short"),
	Long:        i18n.T("cmd.compare.long"),
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ord, err := versionkey.Compare(args[0], args[1])
		if stderrors.Is(err, versionkey.ErrEmpty) {
			return errors.NewValidationError("EMPTY_VERSION", i18n.T("errors.emptyVersion"))
		}
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeParsing, "MALFORMED_VERSION", i18n.T("errors.malformedVersion"))
		}
		if verbose {
			a, _ := versionkey.Parse(args[0])
			b, _ := versionkey.Parse(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", a, ord, b)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ord)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
