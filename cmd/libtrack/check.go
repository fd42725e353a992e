package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/common/output"
	"github.com/RaghavRD/library-tracker/internal/notify"
	"github.com/RaghavRD/library-tracker/internal/oracle"
	"github.com/RaghavRD/library-tracker/internal/runner"
	"github.com/RaghavRD/library-tracker/internal/store"
	"github.com/spf13/cobra"
)

var (
	// checkAuto runs the pass on the configured daily schedule
	checkAuto bool
	// checkTime overrides the configured daily run time
	checkTime string
	// checkDryRun renders digests without sending them
	checkDryRun bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an update check pass",
	Long: `Check every tracked library for released and upcoming versions and
send per-project email digests for anything notification-worthy.

Examples:
  libtrack check                 Run one pass now
  libtrack check --dry-run       Run one pass without sending email
  libtrack check --auto          Run daily at the configured time
  libtrack check --auto --time 07:30  Run daily at 07:30`,
	Run: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkAuto, "auto", false, "Run daily at the scheduled time")
	checkCmd.Flags().StringVar(&checkTime, "time", "", "Daily run time (HH:MM, implies --auto schedule)")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "Render digests without sending email")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}
	if checkDryRun {
		cfg.Mailer.DryRun = true
	}
	if err := cfg.ValidateForCheck(); err != nil {
		logger.Error("configuration incomplete: %v", err)
		os.Exit(1)
	}

	// Scheduled runs happen unattended, so keep a trail on disk.
	if err := logger.EnableFileLogging(); err != nil {
		logger.Warn("run log unavailable: %v", err)
	}
	defer logger.CloseFile()

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("opening store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	var mailer notify.Mailer
	if cfg.Mailer.DryRun {
		mailer = notify.DryRunMailer{}
	} else {
		mailer = notify.NewMailtrapMailer(cfg.Mailer)
	}

	r := runner.New(cfg, st, oracle.New(cfg), mailer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if checkAuto || checkTime != "" {
		runTime := cfg.Check.RunTime
		if checkTime != "" {
			runTime = checkTime
		}
		scheduler, err := runner.NewScheduler(r, runTime)
		if err != nil {
			logger.Error("invalid run time: %v", err)
			os.Exit(1)
		}
		output.PrintInfo("Running %s, press Ctrl+C to stop", scheduler.Describe())
		if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler stopped: %v", err)
			os.Exit(1)
		}
		return
	}

	report, err := r.RunPass(ctx)
	if err != nil {
		logger.Error("pass failed: %v", err)
		os.Exit(1)
	}

	output.PrintSuccess("Checked %d libraries in %s", report.LibrariesChecked, report.Duration.Round(time.Millisecond))
	if report.ResolveFailures > 0 {
		output.PrintWarning("%d lookups failed and were skipped", report.ResolveFailures)
	}
	if report.Events == 0 {
		output.PrintInfo("No notification-worthy updates")
		return
	}
	output.PrintSuccess("%d update event(s), %d digest(s) sent, %d failed",
		report.Events, report.DigestsSent, report.DigestsFailed)
}
