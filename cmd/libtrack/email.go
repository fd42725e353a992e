package main

import (
	"context"
	"os"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/common/output"
	"github.com/RaghavRD/library-tracker/internal/engine"
	"github.com/RaghavRD/library-tracker/internal/notify"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/spf13/cobra"
)

var (
	// emailTo is the test recipient
	emailTo string
	// emailFuture sends a sample future-update digest
	emailFuture bool
	// emailConfidence sends a sample confidence-update digest
	emailConfidence bool
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Email delivery utilities",
}

var emailTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample digest to verify mailer credentials",
	Long: `Send a sample update digest through the configured mailer.

Examples:
  libtrack email test --to you@example.com
  libtrack email test --to you@example.com --future
  libtrack email test --to you@example.com --confidence`,
	Run: runEmailTest,
}

func init() {
	emailTestCmd.Flags().StringVar(&emailTo, "to", "", "Recipient for the test digest")
	emailTestCmd.Flags().BoolVar(&emailFuture, "future", false, "Send a sample future-update digest")
	emailTestCmd.Flags().BoolVar(&emailConfidence, "confidence", false, "Send a sample confidence-update digest")
	emailCmd.AddCommand(emailTestCmd)
	rootCmd.AddCommand(emailCmd)
}

func runEmailTest(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}
	if emailTo == "" {
		logger.Error("--to is required")
		os.Exit(1)
	}

	var mailer notify.Mailer
	if cfg.Mailer.DryRun {
		mailer = notify.DryRunMailer{}
	} else {
		if err := cfg.ValidateForCheck(); err != nil {
			logger.Error("configuration incomplete: %v", err)
			os.Exit(1)
		}
		mailer = notify.NewMailtrapMailer(cfg.Mailer)
	}

	digest, err := notify.BuildDigest("mailer-test", []string{emailTo}, []engine.Event{sampleEvent()})
	if err != nil {
		logger.Error("building digest: %v", err)
		os.Exit(1)
	}

	status, err := mailer.SendDigest(context.Background(), digest)
	if err != nil {
		output.PrintError("Delivery failed: %v", err)
		os.Exit(1)
	}
	output.PrintSuccess("Test digest sent: %s", status)
}

// sampleEvent builds the fake event for the requested digest flavor.
func sampleEvent() engine.Event {
	switch {
	case emailConfidence:
		return engine.Event{
			Library:         "Example Library",
			Version:         "3.0",
			Category:        registry.CategoryConfidenceUpdate,
			ReleaseDate:     "2026-12-01",
			Summary:         "Planned release with sample features.",
			Source:          "https://example.org",
			Confidence:      92,
			OldConfidence:   74,
			ConfidenceDelta: 18,
			ChangeReason:    "Now confirmed on example.org",
		}
	case emailFuture:
		return engine.Event{
			Library:     "Example Library",
			Version:     "3.0",
			Category:    registry.CategoryFuture,
			ReleaseDate: "2026-12-01",
			Summary:     "Planned release with sample features.",
			Source:      "https://example.org",
			Confidence:  85,
		}
	default:
		return engine.Event{
			Library:     "Example Library",
			Version:     "2.0.0",
			Category:    registry.CategoryMajor,
			ReleaseDate: "2026-01-01",
			Summary:     "This is a test digest. If you can read this, delivery works.",
			Source:      "https://example.org",
		}
	}
}
