package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/common/output"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the project manifest",
	Long: `List and validate the registered projects and their dependency
declarations.

Examples:
  libtrack projects list
  libtrack projects validate`,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects and their components",
	Run:   runProjectsList,
}

var projectsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the project manifest",
	Run:   runProjectsValidate,
}

var projectsHistoryCmd = &cobra.Command{
	Use:   "history <library>",
	Short: "Show the recorded release history for a library",
	Args:  cobra.ExactArgs(1),
	Run:   runProjectsHistory,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsValidateCmd)
	projectsCmd.AddCommand(projectsHistoryCmd)
	rootCmd.AddCommand(projectsCmd)
}

// loadConfiguredManifest loads config and the manifest, exiting on
// failure.
func loadConfiguredManifest() *registry.Manifest {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}
	m, err := registry.LoadManifest(cfg.Storage.ProjectsPath)
	if err != nil {
		logger.Error("loading projects: %v", err)
		os.Exit(1)
	}
	return m
}

func runProjectsList(cmd *cobra.Command, args []string) {
	m := loadConfiguredManifest()

	names := make([]string, 0, len(m.Projects))
	for name := range m.Projects {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := m.Projects[name]
		prefs := registry.ParsePrefs(p.Notify)
		output.PrintInfo("%s  (notify: %s, recipients: %d)", name, prefs, len(p.Emails))
		for _, decl := range p.Components {
			fmt.Printf("  %s  [%s]\n", output.FormatLibrary(decl.Name, decl.Version), decl.KindOf())
		}
	}
	output.PrintSuccess("%d project(s)", len(names))
}

func runProjectsValidate(cmd *cobra.Command, args []string) {
	m := loadConfiguredManifest()

	if err := m.ValidateAll(); err != nil {
		output.PrintError("Validation failed: %v", err)
		os.Exit(1)
	}

	components := 0
	for _, p := range m.Projects {
		components += len(p.Components)
	}
	output.PrintSuccess("Manifest valid: %d project(s), %d component declaration(s)", len(m.Projects), components)
}

func runProjectsHistory(cmd *cobra.Command, args []string) {
	st := openConfiguredStore()
	defer st.Close()

	key := registry.NormalizeKey(args[0])
	lib, err := st.GetLibrary(key)
	if err != nil {
		logger.Error("unknown library %q: %v", key, err)
		os.Exit(1)
	}

	releases, err := st.ReleasesByLibrary(lib.ID)
	if err != nil {
		logger.Error("reading release history: %v", err)
		os.Exit(1)
	}

	if lib.LatestVersion != "" {
		output.PrintInfo("%s  latest known %s", lib.Name, lib.LatestVersion)
	} else {
		output.PrintInfo("%s  never resolved", lib.Name)
	}
	if len(releases) == 0 {
		output.PrintInfo("No recorded releases")
		return
	}
	for _, r := range releases {
		date := "unknown date"
		if r.ReleaseDate != nil {
			date = r.ReleaseDate.Format("2006-01-02")
		}
		line := fmt.Sprintf("  %s  %s", output.FormatLibrary(lib.Name, r.Version), date)
		if r.IsSecurity {
			line += "  [security]"
		}
		fmt.Println(line)
	}
}
