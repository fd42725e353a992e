// Package runner orchestrates a full check pass: manifest sync, one
// oracle lookup per canonical library, decision evaluation per project
// component, and notification fan-out.
package runner

import (
	"context"
	"sort"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/engine"
	"github.com/RaghavRD/library-tracker/internal/notify"
	"github.com/RaghavRD/library-tracker/internal/oracle"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/RaghavRD/library-tracker/internal/store"
)

// Report summarizes one completed pass.
type Report struct {
	LibrariesChecked int
	ResolveFailures  int
	Events           int
	DigestsSent      int
	DigestsFailed    int
	Duration         time.Duration
}

// Runner wires the pass pipeline together.
type Runner struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	resolver oracle.Resolver
	engine   *engine.Engine
	fanout   *notify.Fanout
	now      func() time.Time
}

// New builds a runner over already-opened dependencies.
func New(cfg *config.Config, st *store.Store, resolver oracle.Resolver, mailer notify.Mailer) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    st,
		registry: registry.New(st),
		resolver: resolver,
		engine:   engine.New(st, cfg.Policy),
		fanout:   notify.NewFanout(mailer),
		now:      time.Now,
	}
}

// SetClock overrides the runner's clock (useful for testing).
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
	r.engine.SetClock(now)
}

// RunPass executes one full check pass. A failed lookup for one
// library skips that library and keeps the pass going; only manifest
// and storage errors abort.
func (r *Runner) RunPass(ctx context.Context) (*Report, error) {
	start := r.now()

	manifest, err := registry.LoadManifest(r.cfg.Storage.ProjectsPath)
	if err != nil {
		return nil, err
	}
	if err := r.registry.Sync(ctx, manifest); err != nil {
		return nil, err
	}

	libs, err := r.store.ActiveLibraries()
	if err != nil {
		return nil, err
	}
	logger.Info("pass started: %d active libraries across %d projects", len(libs), len(manifest.Projects))

	// Installed versions per library key, for the resolver's baseline
	// and the per-component evaluation.
	installed := installedVersions(manifest)

	report := &Report{}
	batches := make(map[string]*notify.ProjectBatch)

	for i := range libs {
		lib := &libs[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.LibrariesChecked++

		baseline := lib.LatestVersion
		if baseline == "" {
			baseline = installed[lib.Key]
		}

		analysis, err := r.resolver.Resolve(ctx, lib.Name, baseline)
		if err != nil {
			logger.Warn("library %s: lookup failed, skipping: %v", lib.Key, err)
			report.ResolveFailures++
			continue
		}

		if err := r.engine.RecordAnalysis(lib, analysis); err != nil {
			return nil, err
		}
		if !analysis.UpdateAvailable {
			logger.Debug("library %s: up to date", lib.Key)
			continue
		}

		if err := r.evaluateProjects(manifest, lib, analysis, batches, report); err != nil {
			return nil, err
		}
	}

	sent, failed := r.fanout.Deliver(ctx, sortedBatches(batches))
	report.DigestsSent = sent
	report.DigestsFailed = failed
	report.Duration = r.now().Sub(start)

	logger.Info("pass finished: %d checked, %d failed lookups, %d events, %d digests sent",
		report.LibrariesChecked, report.ResolveFailures, report.Events, report.DigestsSent)
	return report, nil
}

// evaluateProjects runs the decision engine once per (project,
// component) pair declaring this library and collects qualifying
// events into the per-project batches.
func (r *Runner) evaluateProjects(m *registry.Manifest, lib *store.Library, a *oracle.Analysis, batches map[string]*notify.ProjectBatch, report *Report) error {
	for name, project := range m.Projects {
		prefs := registry.ParsePrefs(project.Notify)
		for _, decl := range project.Components {
			if registry.NormalizeKey(decl.Name) != lib.Key {
				continue
			}

			outcome, err := r.engine.Evaluate(name, prefs, decl.Version, lib, a)
			if err != nil {
				return err
			}
			if !outcome.Notified() {
				continue
			}

			b, ok := batches[name]
			if !ok {
				b = &notify.ProjectBatch{Project: name, Recipients: project.Emails}
				batches[name] = b
			}
			b.Events = append(b.Events, *outcome.Event)
			report.Events++
		}
	}
	return nil
}

// installedVersions picks one declared version per library key. When
// multiple projects declare the same library the exact pick only seeds
// the resolver baseline; per-project decisions use each declaration's
// own version.
func installedVersions(m *registry.Manifest) map[string]string {
	out := make(map[string]string)
	for _, project := range m.Projects {
		for _, decl := range project.Components {
			key := registry.NormalizeKey(decl.Name)
			if _, ok := out[key]; !ok {
				out[key] = decl.Version
			}
		}
	}
	return out
}

// sortedBatches orders batches by project name so delivery order is
// stable across passes.
func sortedBatches(batches map[string]*notify.ProjectBatch) []notify.ProjectBatch {
	names := make([]string, 0, len(batches))
	for name := range batches {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]notify.ProjectBatch, 0, len(names))
	for _, name := range names {
		out = append(out, *batches[name])
	}
	return out
}
