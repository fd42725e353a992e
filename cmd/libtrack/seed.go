package main

import (
	"context"
	"os"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/common/output"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/RaghavRD/library-tracker/internal/store"
	"github.com/spf13/cobra"
)

// seedClear wipes caches and state before seeding
var seedClear bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate a sample project manifest",
	Long: `Write a sample projects file and sync it into the store, for
trying the tracker out before registering real projects.

Examples:
  libtrack seed
  libtrack seed --clear   Wipe caches and tracked state first`,
	Run: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "Clear caches and tracked state first")
	rootCmd.AddCommand(seedCmd)
}

// sampleManifest mirrors a small two-team setup with one shared
// library so deduplication is visible immediately.
func sampleManifest() *registry.Manifest {
	return &registry.Manifest{Projects: map[string]registry.Project{
		"web-backend": {
			Developers: "Avery, Sam",
			Emails:     []string{"backend-team@example.com"},
			Notify:     "major, minor, future",
			Components: []registry.ComponentDecl{
				{Name: "Python", Version: "3.12.0", Kind: registry.KindLanguage},
				{Name: "Django", Version: "4.2", Kind: registry.KindLibrary, Scope: "backend"},
				{Name: "celery", Version: "5.3.0", Kind: registry.KindLibrary},
			},
		},
		"data-pipeline": {
			Developers: "Jordan",
			Emails:     []string{"data-team@example.com"},
			Notify:     "major",
			Components: []registry.ComponentDecl{
				{Name: "django", Version: "4.1", Kind: registry.KindLibrary},
				{Name: "pandas", Version: "2.1.0", Kind: registry.KindLibrary},
				{Name: "Docker", Version: "24.0", Kind: registry.KindTool, Scope: "ci"},
			},
		},
	}}
}

func runSeed(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	if _, err := os.Stat(cfg.Storage.ProjectsPath); err == nil && !seedClear {
		logger.Error("projects file already exists at %s (use --clear to replace)", cfg.Storage.ProjectsPath)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("opening store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	if seedClear {
		if _, err := st.DeleteWatermarks(""); err != nil {
			logger.Error("clearing watermarks: %v", err)
			os.Exit(1)
		}
		if _, err := st.DeleteFutures(""); err != nil {
			logger.Error("clearing future updates: %v", err)
			os.Exit(1)
		}
	}

	m := sampleManifest()
	if err := registry.SaveManifest(cfg.Storage.ProjectsPath, m); err != nil {
		logger.Error("writing projects file: %v", err)
		os.Exit(1)
	}
	if err := registry.New(st).Sync(context.Background(), m); err != nil {
		logger.Error("syncing registry: %v", err)
		os.Exit(1)
	}

	output.PrintSuccess("Seeded %d sample project(s) at %s", len(m.Projects), cfg.Storage.ProjectsPath)
	output.PrintInfo("Run 'libtrack check --dry-run' to try a pass")
}
