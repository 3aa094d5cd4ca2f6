// Package cmd implements the apkcrawler command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huanfeng/apkcrawler/internal/config"
	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/huanfeng/apkcrawler/internal/version"
	"github.com/huanfeng/apkcrawler/pkg/models"
	"github.com/huanfeng/apkcrawler/pkg/utils"
	"github.com/spf13/cobra"
)

// annotationNoConfig marks commands that run with the built-in defaults
// when the configuration cannot be loaded.
const annotationNoConfig = "apkcrawler/no-config"

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	logFile   string
	noColor   bool
	langFlag  string
	reportDir string

	cfg *models.Config
)

var rootCmd = &cobra.Command{
	Use:           "apkcrawler",
	Short:         i18n.T("cmd.root.short"),
	Long:          i18n.T("cmd.root.long"),
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			if cmd.Annotations[annotationNoConfig] == "" {
				return errors.WrapError(err, errors.ErrorTypeConfiguration, "CONFIG_LOAD", i18n.T("errors.configLoad")).
					WithSuggestion(i18n.T("errors.configLoadHint"))
			}
			c = config.Default()
		}
		cfg = c

		if err := setupLogger(c); err != nil {
			return errors.WrapError(err, errors.ErrorTypeFileSystem, "LOG_SETUP", i18n.T("errors.logSetup"))
		}
		errors.InitGlobalErrorHandler(utils.GetGlobalLogger())
		return nil
	},
}

func setupLogger(c *models.Config) error {
	lc := utils.DefaultLoggerConfig()
	if level, err := utils.ParseLogLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = utils.ParseLogFormat(c.Log.Format)
	lc.EnableColor = c.Log.Color && !noColor
	lc.FilePath = c.Log.File

	switch {
	case verbose:
		lc.Level = utils.LogLevelDebug
	case quiet:
		lc.Level = utils.LogLevelWarn
	}
	if logFile != "" {
		lc.FilePath = logFile
	}
	return utils.InitGlobalLogger(lc)
}

// Execute runs the root command and exits with the error's exit code on
// failure.
func Execute() {
	if err := i18n.Init(langFromArgs(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "i18n: %v\n", err)
	}
	applyCommandLocalization()

	start := time.Now()
	cmd, err := rootCmd.ExecuteC()
	code := 0
	if err != nil {
		code = handleError(os.Stderr, cmd, err, time.Since(start))
	}
	utils.CloseGlobalLogger()
	os.Exit(code)
}

func handleError(w io.Writer, cmd *cobra.Command, err error, elapsed time.Duration) int {
	ce := errors.Handle(err)

	if verbose {
		fmt.Fprint(w, ce.FormatDetailed())
	} else {
		fmt.Fprintf(w, "%s: %s\n", i18n.T("common.error"), ce.Error())
		for _, s := range ce.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}

	if reportDir != "" {
		reporter := errors.NewErrorReporter(reportDir, version.Short(), utils.GetGlobalLogger())
		report := reporter.GenerateReport(ce, cfgFile, &errors.OperationContext{
			Command:   cmd.CommandPath(),
			Arguments: os.Args[1:],
			Duration:  elapsed,
		})
		if path, err := reporter.SaveReport(report); err != nil {
			utils.Warn("failed to save error report: %v", err)
		} else {
			fmt.Fprintf(w, i18n.T("errors.reportSaved")+"\n", path)
		}
	}

	if ce.ExitCode == 0 {
		return 1
	}
	return ce.ExitCode
}

// langFromArgs finds --lang before cobra parses flags, so help text is
// already translated.
func langFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--":
			return ""
		case strings.HasPrefix(arg, "--lang="):
			return strings.TrimPrefix(arg, "--lang=")
		case arg == "--lang" && i+1 < len(args):
			return args[i+1]
		}
	}
	return ""
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", i18n.T("flags.config"))
	pf.BoolVarP(&verbose, "verbose", "v", false, i18n.T("flags.verbose"))
	pf.BoolVarP(&quiet, "quiet", "q", false, i18n.T("flags.quiet"))
	pf.StringVar(&logFile, "log-file", "", i18n.T("flags.logFile"))
	pf.BoolVar(&noColor, "no-color", false, i18n.T("flags.noColor"))
	pf.StringVar(&langFlag, "lang", "", i18n.T("flags.lang"))
	pf.StringVar(&reportDir, "report-dir", "", i18n.T("flags.reportDir"))
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}
