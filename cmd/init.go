package cmd

import (
	"fmt"
	"os"

	"github.com/huanfeng/apkcrawler/internal/config"
	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/spf13/cobra"
)

var (
	initForce bool
	initPath  string
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       i18n.T("cmd.init.short"),
	Long:        i18n.T("cmd.init.long"),
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(initPath); err == nil && !initForce {
			return errors.NewValidationError("CONFIG_EXISTS", fmt.Sprintf(i18n.T("cmd.init.exists"), initPath)).
				WithSuggestion(i18n.T("cmd.init.existsHint"))
		}

		if err := config.SaveTemplate(initPath); err != nil {
			return errors.WrapError(err, errors.ErrorTypeFileSystem, "CONFIG_WRITE", i18n.T("cmd.init.errWrite")).
				WithContext("path", initPath)
		}
		fmt.Fprintf(cmd.OutOrStdout(), i18n.T("cmd.init.created")+"\n", initPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, i18n.T("cmd.init.flag.force"))
	initCmd.Flags().StringVarP(&initPath, "output", "o", "apkcrawler.yaml", i18n.T("cmd.init.flag.output"))
}
