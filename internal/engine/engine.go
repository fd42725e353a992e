package engine

import (
	"errors"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/oracle"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/RaghavRD/library-tracker/internal/semver"
	"github.com/RaghavRD/library-tracker/internal/store"
)

// Engine applies the decision policy to oracle analyses.
type Engine struct {
	store  *store.Store
	policy config.PolicyConfig
	now    func() time.Time
}

// New creates an engine over the given store with the given policy.
func New(st *store.Store, policy config.PolicyConfig) *Engine {
	return &Engine{store: st, policy: policy, now: time.Now}
}

// SetClock overrides the engine's clock (useful for testing).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// RecordAnalysis folds a successful oracle analysis into the canonical
// library record: advances latest_known_version monotonically, appends
// to the release history, and promotes any matching future record.
// Future-tagged analyses only touch the check timestamp; their state
// lives in the future-update path.
func (e *Engine) RecordAnalysis(lib *store.Library, a *oracle.Analysis) error {
	return e.store.WithTx(func(tx *store.Tx) error {
		now := e.now()
		if err := tx.TouchLibrary(lib.Key, now); err != nil {
			return err
		}

		if !a.Released || a.LatestVersion == "" {
			return nil
		}

		// Monotonicity: never regress the stored latest version.
		if lib.LatestVersion != "" && !semver.Newer(a.LatestVersion, lib.LatestVersion) {
			logger.Debug("library %s: detected %s not newer than stored %s, keeping history only",
				lib.Key, a.LatestVersion, lib.LatestVersion)
			return nil
		}

		if err := tx.SetLibraryLatest(lib.Key, a.LatestVersion, now); err != nil {
			return err
		}

		releaseDate := a.ReleaseDate
		if releaseDate == nil {
			// Unparseable oracle dates degrade to the observation date
			d := now
			releaseDate = &d
		}
		relID, _, err := tx.UpsertRelease(lib.ID, a.LatestVersion, releaseDate, a.Summary, a.SourceURL)
		if err != nil {
			return err
		}

		promoted, err := tx.PromoteFuture(lib.Key, a.LatestVersion, relID)
		if err != nil {
			return err
		}
		if promoted {
			logger.Info("library %s: future update %s promoted to released", lib.Key, a.LatestVersion)
		}

		lib.LatestVersion = a.LatestVersion
		return nil
	})
}

// Evaluate decides whether one (project, library) pair deserves a
// notification for the given analysis. installedVersion is the version
// the project actually declares. The whole read-decide-write sequence
// runs in one transaction.
func (e *Engine) Evaluate(project string, prefs registry.PrefSet, installedVersion string, lib *store.Library, a *oracle.Analysis) (Outcome, error) {
	var out Outcome
	err := e.store.WithTx(func(tx *store.Tx) error {
		var err error
		if a.Category == registry.CategoryFuture || !a.Released {
			out, err = e.evaluateFuture(tx, prefs, lib, a)
		} else {
			out, err = e.evaluateReleased(tx, project, prefs, installedVersion, lib, a)
		}
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	if !out.Notified() {
		logger.Info("[%s/%s] no event: %s", project, lib.Key, out.Reason)
	}
	return out, nil
}

// evaluateReleased is the released-update path: watermark comparison,
// preference filter, monotonicity guard, then upsert and emit.
func (e *Engine) evaluateReleased(tx *store.Tx, project string, prefs registry.PrefSet, installedVersion string, lib *store.Library, a *oracle.Analysis) (Outcome, error) {
	version := a.LatestVersion
	category := a.Category
	if category == "" {
		category = registry.CategoryMajor
	}

	var cachedVersion, cachedCategory string
	mark, err := tx.GetWatermark(project, lib.Key)
	switch {
	case err == nil:
		cachedVersion = mark.Version
		cachedCategory = mark.Category
	case errors.Is(err, store.ErrNotFound):
		// First sight for this project: empty watermark
	default:
		return Outcome{}, err
	}

	shouldNotify := false
	if version != "" && version != cachedVersion {
		shouldNotify = true
	} else if category == registry.CategoryMajor && cachedCategory != registry.CategoryMajor {
		shouldNotify = true
	}
	if !shouldNotify {
		return suppressed("version %q already at watermark", version), nil
	}

	if !prefs.AllowsCategory(category) {
		return suppressed("category %s filtered by preference %q", category, prefs), nil
	}

	// Monotonicity guard: a decisive "not newer" comparison against the
	// installed version suppresses; incomparable operands do not block.
	if version != "" && installedVersion != "" {
		switch semver.Compare(version, installedVersion) {
		case semver.Less, semver.Equal:
			return suppressed("detected %s not newer than installed %s", version, installedVersion), nil
		}
	}

	if err := tx.SaveWatermark(&store.Watermark{
		Project:     project,
		Library:     lib.Key,
		Version:     version,
		Category:    category,
		ReleaseDate: formatDate(a.ReleaseDate),
		Summary:     a.Summary,
		Source:      a.SourceURL,
	}); err != nil {
		return Outcome{}, err
	}

	if version != "" {
		relID, _, err := tx.UpsertRelease(lib.ID, version, a.ReleaseDate, a.Summary, a.SourceURL)
		if err != nil {
			return Outcome{}, err
		}
		if _, err := tx.PromoteFuture(lib.Key, version, relID); err != nil {
			return Outcome{}, err
		}
	}

	eventVersion := version
	if eventVersion == "" {
		eventVersion = installedVersion
	}
	if eventVersion == "" {
		eventVersion = "unknown"
	}

	return Outcome{
		Kind: KindReleased,
		Event: &Event{
			Library:     lib.Name,
			Version:     eventVersion,
			Category:    category,
			ReleaseDate: orDefault(formatDate(a.ReleaseDate), "Unknown"),
			Summary:     orDefault(a.Summary, "No summary."),
			Source:      a.SourceURL,
		},
	}, nil
}

// formatDate renders an optional date as YYYY-MM-DD.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Policy returns the engine's active policy, for display.
func (e *Engine) Policy() config.PolicyConfig {
	return e.policy
}
