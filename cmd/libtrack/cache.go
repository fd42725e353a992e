package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/common/output"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/RaghavRD/library-tracker/internal/store"
	"github.com/spf13/cobra"
)

var (
	// cacheClearType selects which cache to clear
	cacheClearType string
	// cacheLibrary narrows operations to one library
	cacheLibrary string
	// cacheConfirm skips the interactive confirmation
	cacheConfirm bool
	// cancelReason records why a future update was dismissed
	cancelReason string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the notification caches",
	Long: `Inspect or clear the notification watermarks and tracked future
updates. Clearing a watermark makes the next pass re-notify the
current version.

Examples:
  libtrack cache show
  libtrack cache show --library django
  libtrack cache clear --type released --library django --confirm
  libtrack cache clear --type all --confirm
  libtrack cache cancel-future django 6.0 --reason "roadmap withdrawn"`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cached notification state",
	Run:   runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached notification state",
	Run:   runCacheClear,
}

var cancelFutureCmd = &cobra.Command{
	Use:   "cancel-future <library> <version>",
	Short: "Dismiss a tracked future update",
	Args:  cobra.ExactArgs(2),
	Run:   runCancelFuture,
}

func init() {
	cacheShowCmd.Flags().StringVar(&cacheLibrary, "library", "", "Limit to one library")
	cacheClearCmd.Flags().StringVar(&cacheClearType, "type", "all", "Cache to clear: released, future or all")
	cacheClearCmd.Flags().StringVar(&cacheLibrary, "library", "", "Limit to one library")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "Skip the confirmation prompt")
	cancelFutureCmd.Flags().StringVar(&cancelReason, "reason", "", "Why the update is being dismissed")

	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cancelFutureCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openConfiguredStore loads config and opens the store, exiting on
// failure.
func openConfiguredStore() *store.Store {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("opening store: %v", err)
		os.Exit(1)
	}
	return st
}

func runCacheShow(cmd *cobra.Command, args []string) {
	st := openConfiguredStore()
	defer st.Close()

	key := registry.NormalizeKey(cacheLibrary)
	watermarks, err := st.CountWatermarks(key)
	if err != nil {
		logger.Error("reading watermarks: %v", err)
		os.Exit(1)
	}
	futures, err := st.ListFutures(key)
	if err != nil {
		logger.Error("reading future updates: %v", err)
		os.Exit(1)
	}

	output.PrintInfo("Notification watermarks: %d", watermarks)
	if len(futures) == 0 {
		output.PrintInfo("Tracked future updates: none")
		return
	}

	output.PrintInfo("Tracked future updates: %d", len(futures))
	for _, f := range futures {
		line := fmt.Sprintf("  %s  %d%%  %s", output.FormatLibrary(f.Library, f.Version), f.Confidence, f.Status)
		if f.ExpectedDate != nil {
			line += "  expected " + f.ExpectedDate.Format("2006-01-02")
		}
		if f.NotificationSent {
			line += "  (notified)"
		}
		fmt.Println(line)
	}
}

func runCacheClear(cmd *cobra.Command, args []string) {
	switch cacheClearType {
	case "released", "future", "all":
	default:
		logger.Error("invalid --type %q: must be released, future or all", cacheClearType)
		os.Exit(1)
	}

	if !cacheConfirm {
		scope := "all libraries"
		if cacheLibrary != "" {
			scope = cacheLibrary
		}
		fmt.Printf("Clear %s cache for %s? [y/N] ", cacheClearType, scope)
		var answer string
		fmt.Scanln(&answer)
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			output.PrintInfo("Aborted")
			return
		}
	}

	st := openConfiguredStore()
	defer st.Close()

	key := registry.NormalizeKey(cacheLibrary)
	if cacheClearType == "released" || cacheClearType == "all" {
		n, err := st.DeleteWatermarks(key)
		if err != nil {
			logger.Error("clearing watermarks: %v", err)
			os.Exit(1)
		}
		output.PrintSuccess("Cleared %d notification watermark(s)", n)
	}
	if cacheClearType == "future" || cacheClearType == "all" {
		n, err := st.DeleteFutures(key)
		if err != nil {
			logger.Error("clearing future updates: %v", err)
			os.Exit(1)
		}
		output.PrintSuccess("Cleared %d tracked future update(s)", n)
	}
}

func runCancelFuture(cmd *cobra.Command, args []string) {
	st := openConfiguredStore()
	defer st.Close()

	key := registry.NormalizeKey(args[0])
	version := args[1]
	if err := st.CancelFuture(key, version, cancelReason); err != nil {
		logger.Error("cancelling future update: %v", err)
		os.Exit(1)
	}
	output.PrintSuccess("Cancelled future update %s %s", key, version)
}
