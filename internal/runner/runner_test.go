package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/notify"
	"github.com/RaghavRD/library-tracker/internal/oracle"
	"github.com/RaghavRD/library-tracker/internal/store"
)

type fakeResolver struct {
	analyses map[string]*oracle.Analysis
	failures map[string]error
	calls    []string
}

// Lookup is case-insensitive because the canonical display name keeps
// whichever casing the store saw first.
func (f *fakeResolver) Resolve(_ context.Context, library, _ string) (*oracle.Analysis, error) {
	key := strings.ToLower(library)
	f.calls = append(f.calls, key)
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	if a, ok := f.analyses[key]; ok {
		copied := *a
		return &copied, nil
	}
	return &oracle.Analysis{UpdateAvailable: false}, nil
}

type captureMailer struct {
	digests []*notify.Digest
}

func (c *captureMailer) SendDigest(_ context.Context, d *notify.Digest) (string, error) {
	c.digests = append(c.digests, d)
	return "accepted", nil
}

func releasedAnalysis(version string) *oracle.Analysis {
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	return &oracle.Analysis{
		UpdateAvailable: true,
		LatestVersion:   version,
		Released:        true,
		Category:        "major",
		ReleaseDate:     &date,
		Summary:         "New major release.",
		SourceURL:       "https://example.org/releases",
	}
}

func futureAnalysis(version string, confidence int) *oracle.Analysis {
	return &oracle.Analysis{
		UpdateAvailable: true,
		LatestVersion:   version,
		Released:        false,
		Category:        "future",
		Confidence:      confidence,
		Features:        "Planned async improvements.",
		SourceURL:       "https://example.org/roadmap",
	}
}

func newTestRunner(t *testing.T, manifest string, resolver oracle.Resolver) (*Runner, *captureMailer) {
	t.Helper()
	dir := t.TempDir()

	projectsPath := filepath.Join(dir, "projects.toml")
	if err := os.WriteFile(projectsPath, []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	st, err := store.Open(filepath.Join(dir, "tracker.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Policy:  config.PolicyConfig{MinConfidence: 70, MinConfidenceIncrease: 15},
		Storage: config.StorageConfig{ProjectsPath: projectsPath},
	}
	mailer := &captureMailer{}
	return New(cfg, st, resolver, mailer), mailer
}

const sharedManifest = `
[backend]
emails = ["backend@example.com"]
notify = "major, minor"

  [[backend.components]]
  name = "Django"
  version = "4.2"

[data-pipeline]
emails = ["data@example.com"]
notify = "major, minor"

  [[data-pipeline.components]]
  name = "django"
  version = "4.1"

  [[data-pipeline.components]]
  name = "pandas"
  version = "2.1.0"
`

func TestRunPassSharedLibraryNotifiesBothProjects(t *testing.T) {
	resolver := &fakeResolver{analyses: map[string]*oracle.Analysis{
		"django": releasedAnalysis("5.0"),
	}}
	r, mailer := newTestRunner(t, sharedManifest, resolver)

	report, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	// Two declarations of the same library resolve once.
	if len(resolver.calls) != 2 {
		t.Errorf("expected 2 lookups (django, pandas), got %v", resolver.calls)
	}
	if report.Events != 2 {
		t.Errorf("expected 2 events, got %d", report.Events)
	}
	if report.DigestsSent != 2 {
		t.Errorf("expected one digest per project, got %d", report.DigestsSent)
	}
	if len(mailer.digests) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(mailer.digests))
	}
	// Stable project order.
	if mailer.digests[0].Project != "backend" || mailer.digests[1].Project != "data-pipeline" {
		t.Errorf("unexpected delivery order: %s, %s", mailer.digests[0].Project, mailer.digests[1].Project)
	}
	if mailer.digests[0].Recipients[0] != "backend@example.com" {
		t.Errorf("digest routed to wrong recipients: %v", mailer.digests[0].Recipients)
	}
}

func TestRunPassSecondRunSuppressed(t *testing.T) {
	resolver := &fakeResolver{analyses: map[string]*oracle.Analysis{
		"django": releasedAnalysis("5.0"),
	}}
	r, mailer := newTestRunner(t, sharedManifest, resolver)

	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	report, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}

	if report.Events != 0 {
		t.Errorf("expected watermarks to suppress the repeat, got %d events", report.Events)
	}
	if len(mailer.digests) != 2 {
		t.Errorf("expected no new digests on second pass, got %d total", len(mailer.digests))
	}
}

func TestRunPassResolveFailureSkipsLibrary(t *testing.T) {
	resolver := &fakeResolver{
		analyses: map[string]*oracle.Analysis{"pandas": releasedAnalysis("2.2.0")},
		failures: map[string]error{"django": errors.New("search backend down")},
	}
	r, mailer := newTestRunner(t, sharedManifest, resolver)

	report, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	if report.ResolveFailures != 1 {
		t.Errorf("expected 1 resolve failure, got %d", report.ResolveFailures)
	}
	if report.LibrariesChecked != 2 {
		t.Errorf("expected both libraries attempted, got %d", report.LibrariesChecked)
	}
	// pandas still got through.
	if report.Events != 1 || len(mailer.digests) != 1 {
		t.Errorf("expected the healthy library to notify, got %d events, %d digests", report.Events, len(mailer.digests))
	}
	if mailer.digests[0].Project != "data-pipeline" {
		t.Errorf("unexpected project %s", mailer.digests[0].Project)
	}
}

func TestRunPassNoUpdatesNoDigests(t *testing.T) {
	resolver := &fakeResolver{}
	r, mailer := newTestRunner(t, sharedManifest, resolver)

	report, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if report.Events != 0 || report.DigestsSent != 0 || len(mailer.digests) != 0 {
		t.Errorf("quiet pass should send nothing, got %d events, %d digests", report.Events, len(mailer.digests))
	}
}

func TestRunPassFutureRespectsOptIn(t *testing.T) {
	manifest := `
[early-adopters]
emails = ["early@example.com"]
notify = "major, minor, future"

  [[early-adopters.components]]
  name = "Django"
  version = "4.2"

[conservative]
emails = ["ops@example.com"]
notify = "major, minor"

  [[conservative.components]]
  name = "Django"
  version = "4.2"
`
	resolver := &fakeResolver{analyses: map[string]*oracle.Analysis{
		"django": futureAnalysis("6.0", 85),
	}}
	r, mailer := newTestRunner(t, manifest, resolver)

	report, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	if report.Events != 1 || len(mailer.digests) != 1 {
		t.Fatalf("expected exactly the opted-in project to notify, got %d events, %d digests", report.Events, len(mailer.digests))
	}
	if mailer.digests[0].Project != "early-adopters" {
		t.Errorf("unexpected project %s", mailer.digests[0].Project)
	}
	if mailer.digests[0].Category != notify.CategoryFutureMail {
		t.Errorf("expected future mail category, got %q", mailer.digests[0].Category)
	}
}

func TestRunPassMissingManifest(t *testing.T) {
	r, _ := newTestRunner(t, sharedManifest, &fakeResolver{})
	r.cfg.Storage.ProjectsPath = filepath.Join(t.TempDir(), "absent.toml")

	if _, err := r.RunPass(context.Background()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestSchedulerNextRun(t *testing.T) {
	r, _ := newTestRunner(t, sharedManifest, &fakeResolver{})
	s, err := NewScheduler(r, "09:00")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	base := time.Date(2026, 8, 23, 7, 30, 0, 0, time.UTC)
	next := s.nextRun(base)
	if next.Hour() != 9 || next.Day() != 23 {
		t.Errorf("expected same-day 09:00, got %s", next)
	}

	after := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	next = s.nextRun(after)
	if next.Day() != 24 {
		t.Errorf("expected next-day run, got %s", next)
	}

	exact := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	next = s.nextRun(exact)
	if next.Day() != 24 {
		t.Errorf("run time already reached should schedule tomorrow, got %s", next)
	}
}

func TestSchedulerRejectsBadRunTime(t *testing.T) {
	r, _ := newTestRunner(t, sharedManifest, &fakeResolver{})
	if _, err := NewScheduler(r, "25:99"); err == nil {
		t.Error("expected error for invalid run time")
	}
}
