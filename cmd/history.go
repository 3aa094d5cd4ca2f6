package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/spf13/cobra"
)

var (
	historyPackage string
	historyLimit   int
	historyJSON    bool
	historyDays    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: i18n.T("cmd.history.short"),
	Long:  i18n.T("cmd.history.long"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(historyPackage, historyLimit)
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeFileSystem, "HISTORY_READ", i18n.T("errors.historyRead"))
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, i18n.T("cmd.history.empty"))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			i18n.T("cmd.history.colFile"), i18n.T("cmd.history.colSite"),
			i18n.T("cmd.history.colSize"), i18n.T("cmd.history.colWhen"))
		for _, e := range entries {
			name := e.FileName
			if e.Verified {
				name += " ✓"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, e.Site, humanize.IBytes(uint64(e.Size)), humanize.Time(e.DownloadedAt))
		}
		return w.Flush()
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: i18n.T("cmd.history.prune.short"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyDays < 0 {
			return errors.NewValidationError("INVALID_DAYS", i18n.T("errors.invalidDays"))
		}
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		cutoff := time.Now().AddDate(0, 0, -historyDays)
		removed, err := store.Prune(cutoff)
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeFileSystem, "HISTORY_PRUNE", i18n.T("errors.historyPrune"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), i18n.T("cmd.history.prune.removed")+"\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().StringVarP(&historyPackage, "package", "P", "", i18n.T("cmd.history.flag.package"))
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, i18n.T("cmd.history.flag.limit"))
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, i18n.T("cmd.history.flag.json"))
	historyPruneCmd.Flags().IntVar(&historyDays, "days", 90, i18n.T("cmd.history.prune.flag.days"))
}
