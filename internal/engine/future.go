package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RaghavRD/library-tracker/internal/oracle"
	"github.com/RaghavRD/library-tracker/internal/registry"
	"github.com/RaghavRD/library-tracker/internal/store"
)

// Source authority heuristics for confidence change reasons
var (
	officialIndicators  = []string{"official", ".org", "docs.", "blog.", "developer."}
	communityIndicators = []string{"reddit", "medium", "dev.to", "stackoverflow"}
)

// evaluateFuture is the future-update lifecycle: opt-in gate,
// confidence gate, then create-and-notify or delta tracking on the
// existing record. Duplicate suppression is absolute per (library,
// version) once notified.
func (e *Engine) evaluateFuture(tx *store.Tx, prefs registry.PrefSet, lib *store.Library, a *oracle.Analysis) (Outcome, error) {
	if !prefs.Future() {
		return suppressed("future update detected but preference %q opted out", prefs), nil
	}

	version := a.LatestVersion
	if version == "" {
		return suppressed("future update without a version"), nil
	}

	if a.Confidence < e.policy.MinConfidence {
		return suppressed("confidence too low (%d%% < %d%%), version %s, source %s",
			a.Confidence, e.policy.MinConfidence, version, a.SourceURL), nil
	}

	f, err := tx.GetFuture(lib.Key, version)
	if errors.Is(err, store.ErrNotFound) {
		return e.createFuture(tx, lib, a, version)
	}
	if err != nil {
		return Outcome{}, err
	}

	// Already notified once for this exact version: terminal.
	if f.NotificationSent {
		when := "unknown date"
		if f.NotificationSentAt != nil {
			when = f.NotificationSentAt.Format("2006-01-02")
		}
		return suppressed("future update %s already notified on %s", version, when), nil
	}

	return e.updateFuture(tx, lib, f, a)
}

// createFuture records a first-time detection and emits the single
// authoritative create-and-notify event.
func (e *Engine) createFuture(tx *store.Tx, lib *store.Library, a *oracle.Analysis, version string) (Outcome, error) {
	now := e.now()
	f := &store.FutureUpdate{
		Library:            lib.Key,
		Version:            version,
		Confidence:         a.Confidence,
		ExpectedDate:       a.ExpectedDate,
		Features:           a.Features,
		Source:             a.SourceURL,
		Status:             store.StatusDetected,
		NotificationSent:   true,
		NotificationSentAt: &now,
	}
	if err := tx.CreateFuture(f); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Kind: KindFuture,
		Event: &Event{
			Library:     lib.Name,
			Version:     version,
			Category:    registry.CategoryFuture,
			ReleaseDate: orDefault(formatDate(a.ExpectedDate), "TBD"),
			Summary:     orDefault(a.Features, "Upcoming release detected."),
			Source:      a.SourceURL,
			Confidence:  a.Confidence,
		},
	}, nil
}

// updateFuture evaluates field deltas on a not-yet-notified record and
// emits a confidence-escalation event when the increase crosses the
// policy threshold.
func (e *Engine) updateFuture(tx *store.Tx, lib *store.Library, f *store.FutureUpdate, a *oracle.Analysis) (Outcome, error) {
	updated := false
	confidenceIncreased := false
	oldConfidence := f.Confidence
	var reasons []string

	if a.Confidence > f.Confidence {
		prev := f.Confidence
		f.PreviousConfidence = &prev
		f.Confidence = a.Confidence
		updated = true
		confidenceIncreased = true
		reasons = append(reasons, confidenceReason(f.Source, a.SourceURL))
	}

	if a.Features != "" && a.Features != f.Features {
		f.Features = a.Features
		updated = true
		if len(reasons) == 0 {
			reasons = append(reasons, "Updated feature details available")
		}
	}

	if a.SourceURL != "" && a.SourceURL != f.Source {
		f.Source = a.SourceURL
		updated = true
	}

	if a.ExpectedDate != nil && (f.ExpectedDate == nil || !a.ExpectedDate.Equal(*f.ExpectedDate)) {
		old := f.ExpectedDate
		f.ExpectedDate = a.ExpectedDate
		updated = true
		switch {
		case old != nil && a.ExpectedDate.Before(*old):
			reasons = append(reasons, fmt.Sprintf("Release date moved earlier (was %s)", old.Format("2006-01-02")))
		case old != nil:
			reasons = append(reasons, fmt.Sprintf("Release date updated to %s", a.ExpectedDate.Format("2006-01-02")))
		default:
			reasons = append(reasons, fmt.Sprintf("Release date now available: %s", a.ExpectedDate.Format("2006-01-02")))
		}
	}

	if len(reasons) > 0 {
		f.ChangeReason = strings.Join(reasons, "; ")
	}

	if !updated {
		return suppressed("tracked future update %s unchanged", f.Version), nil
	}

	if err := tx.UpdateFuture(f); err != nil {
		return Outcome{}, err
	}

	delta := f.Confidence - oldConfidence
	if confidenceIncreased && delta >= e.policy.MinConfidenceIncrease {
		return Outcome{
			Kind: KindConfidenceUpdate,
			Event: &Event{
				Library:         lib.Name,
				Version:         f.Version,
				Category:        registry.CategoryConfidenceUpdate,
				ReleaseDate:     orDefault(formatDate(f.ExpectedDate), "TBD"),
				Summary:         orDefault(f.Features, "Upcoming release detected."),
				Source:          f.Source,
				Confidence:      f.Confidence,
				OldConfidence:   oldConfidence,
				ConfidenceDelta: delta,
				ChangeReason:    f.ChangeReason,
			},
		}, nil
	}

	return suppressed("future update %s refreshed without significant confidence change", f.Version), nil
}

// confidenceReason explains a confidence increase in terms of source
// authority.
func confidenceReason(oldSource, newSource string) string {
	if newSource == "" || newSource == oldSource {
		return "Increased confidence from same source"
	}

	oldDomain := domainOf(oldSource)
	newDomain := domainOf(newSource)

	isOfficial := containsAny(newDomain, officialIndicators)
	fromCommunity := containsAny(oldDomain, communityIndicators)

	switch {
	case isOfficial && fromCommunity:
		return fmt.Sprintf("Featured on official site (%s)", newDomain)
	case isOfficial:
		return fmt.Sprintf("Now confirmed on %s", newDomain)
	default:
		return fmt.Sprintf("Additional source found (%s)", newDomain)
	}
}

// domainOf extracts the host part of a URL, best effort.
func domainOf(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	if len(parts) > 2 {
		return parts[2]
	}
	return ""
}

func containsAny(s string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(s, ind) {
			return true
		}
	}
	return false
}
