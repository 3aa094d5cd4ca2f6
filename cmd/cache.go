package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/huanfeng/apkcrawler/internal/errors"
	"github.com/huanfeng/apkcrawler/internal/i18n"
	"github.com/spf13/cobra"
)

var skipConfirm bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: i18n.T("cmd.cache.short"),
	Long:  i18n.T("cmd.cache.long"),
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: i18n.T("cmd.cache.stats.short"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Cache.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cmd.cache.disabled"))
		}
		return newCacheManager(cfg).PrintStats(cmd.OutOrStdout())
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: i18n.T("cmd.cache.clean.short"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cacheManager := newCacheManager(cfg)

		removed, err := cacheManager.CleanExpired()
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeFileSystem, "CACHE_CLEAN", i18n.T("cmd.cache.errClean"))
		}
		if removed > 0 {
			fmt.Fprintf(out, i18n.T("cmd.cache.clean.removed")+"\n", removed)
		} else {
			fmt.Fprintln(out, i18n.T("cmd.cache.clean.none"))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: i18n.T("cmd.cache.clear.short"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cacheManager := newCacheManager(cfg)

		if !skipConfirm {
			fmt.Fprintf(out, i18n.T("cmd.cache.clear.confirm"), cacheManager.Dir())
			response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			response = strings.TrimSpace(response)
			if !strings.EqualFold(response, "y") && !strings.EqualFold(response, "yes") {
				fmt.Fprintln(out, i18n.T("cmd.cache.clear.cancel"))
				return nil
			}
		}

		removed, err := cacheManager.Clear()
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeFileSystem, "CACHE_CLEAR", i18n.T("cmd.cache.errClear"))
		}
		fmt.Fprintf(out, i18n.T("cmd.cache.clear.success")+"\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, i18n.T("cmd.cache.flag.yes"))
}
