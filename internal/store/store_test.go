package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestGetOrCreateLibraryDedup(t *testing.T) {
	st := openTestStore(t)

	lib1, created, err := st.GetOrCreateLibrary("django", "Django", "library")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}
	if !created {
		t.Error("first GetOrCreateLibrary() should create")
	}

	lib2, created, err := st.GetOrCreateLibrary("django", "Django", "library")
	if err != nil {
		t.Fatalf("second GetOrCreateLibrary() error = %v", err)
	}
	if created {
		t.Error("second GetOrCreateLibrary() should not create")
	}
	if lib1.ID != lib2.ID {
		t.Errorf("library IDs differ: %d vs %d", lib1.ID, lib2.ID)
	}
}

func TestSetLibraryLatest(t *testing.T) {
	st := openTestStore(t)

	lib, _, err := st.GetOrCreateLibrary("react", "React", "library")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}
	if lib.LatestVersion != "" {
		t.Errorf("new library LatestVersion = %q, want empty", lib.LatestVersion)
	}

	now := time.Now().UTC()
	if err := st.SetLibraryLatest("react", "19.2.0", now); err != nil {
		t.Fatalf("SetLibraryLatest() error = %v", err)
	}

	lib, err = st.GetLibrary("react")
	if err != nil {
		t.Fatalf("GetLibrary() error = %v", err)
	}
	if lib.LatestVersion != "19.2.0" {
		t.Errorf("LatestVersion = %q, want 19.2.0", lib.LatestVersion)
	}
	if lib.LastCheckedAt == nil {
		t.Error("LastCheckedAt should be set")
	}
}

func TestActiveLibrariesExcludesOrphans(t *testing.T) {
	st := openTestStore(t)

	linked, _, err := st.GetOrCreateLibrary("vue", "Vue", "library")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}
	if _, _, err := st.GetOrCreateLibrary("orphan", "Orphan", "library"); err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}

	err = st.UpsertComponent(&Component{
		Project: "shop", Name: "Vue", Version: "3.4.0", Kind: "library", LibraryID: linked.ID,
	})
	if err != nil {
		t.Fatalf("UpsertComponent() error = %v", err)
	}

	libs, err := st.ActiveLibraries()
	if err != nil {
		t.Fatalf("ActiveLibraries() error = %v", err)
	}
	if len(libs) != 1 {
		t.Fatalf("ActiveLibraries() returned %d libraries, want 1", len(libs))
	}
	if libs[0].Key != "vue" {
		t.Errorf("active library = %q, want vue", libs[0].Key)
	}
}

func TestUpsertComponentUpdatesInPlace(t *testing.T) {
	st := openTestStore(t)

	lib, _, err := st.GetOrCreateLibrary("flask", "Flask", "library")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}

	comp := &Component{Project: "api", Name: "Flask", Version: "3.0.0", Kind: "library", LibraryID: lib.ID}
	if err := st.UpsertComponent(comp); err != nil {
		t.Fatalf("UpsertComponent() error = %v", err)
	}
	comp.Version = "3.1.0"
	if err := st.UpsertComponent(comp); err != nil {
		t.Fatalf("second UpsertComponent() error = %v", err)
	}

	comps, err := st.ComponentsByProject("api")
	if err != nil {
		t.Fatalf("ComponentsByProject() error = %v", err)
	}
	if len(comps) != 1 {
		t.Fatalf("got %d components, want 1", len(comps))
	}
	if comps[0].Version != "3.1.0" {
		t.Errorf("Version = %q, want 3.1.0", comps[0].Version)
	}
}

func TestPruneComponents(t *testing.T) {
	st := openTestStore(t)

	lib, _, err := st.GetOrCreateLibrary("redis", "Redis", "tool")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}
	for _, name := range []string{"Redis", "Celery"} {
		err := st.UpsertComponent(&Component{Project: "api", Name: name, Version: "1.0", Kind: "library", LibraryID: lib.ID})
		if err != nil {
			t.Fatalf("UpsertComponent(%s) error = %v", name, err)
		}
	}

	if err := st.PruneComponents("api", []string{"Redis"}); err != nil {
		t.Fatalf("PruneComponents() error = %v", err)
	}

	comps, err := st.ComponentsByProject("api")
	if err != nil {
		t.Fatalf("ComponentsByProject() error = %v", err)
	}
	if len(comps) != 1 || comps[0].Name != "Redis" {
		t.Errorf("surviving components = %v, want just Redis", comps)
	}
}

func TestUpsertReleaseRefreshOnDuplicate(t *testing.T) {
	st := openTestStore(t)

	lib, _, err := st.GetOrCreateLibrary("go", "Go", "language")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}

	id1, created, err := st.UpsertRelease(lib.ID, "1.24.0", nil, "initial summary", "https://go.dev")
	if err != nil {
		t.Fatalf("UpsertRelease() error = %v", err)
	}
	if !created {
		t.Error("first UpsertRelease() should create")
	}

	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	id2, created, err := st.UpsertRelease(lib.ID, "1.24.0", &date, "better summary", "https://go.dev/blog")
	if err != nil {
		t.Fatalf("second UpsertRelease() error = %v", err)
	}
	if created {
		t.Error("second UpsertRelease() should not create")
	}
	if id1 != id2 {
		t.Errorf("release IDs differ: %d vs %d", id1, id2)
	}

	rel, err := st.GetRelease(lib.ID, "1.24.0")
	if err != nil {
		t.Fatalf("GetRelease() error = %v", err)
	}
	if rel.Summary != "better summary" {
		t.Errorf("Summary = %q, want refreshed summary", rel.Summary)
	}
	if rel.ReleaseDate == nil {
		t.Error("ReleaseDate should be refreshed")
	}
}

func TestWatermarkUpsert(t *testing.T) {
	st := openTestStore(t)

	w := &Watermark{Project: "shop", Library: "django", Version: "5.1.0", Category: "minor"}
	if err := st.SaveWatermark(w); err != nil {
		t.Fatalf("SaveWatermark() error = %v", err)
	}
	w.Version = "5.2.0"
	w.Category = "major"
	if err := st.SaveWatermark(w); err != nil {
		t.Fatalf("second SaveWatermark() error = %v", err)
	}

	got, err := st.GetWatermark("shop", "django")
	if err != nil {
		t.Fatalf("GetWatermark() error = %v", err)
	}
	if got.Version != "5.2.0" || got.Category != "major" {
		t.Errorf("watermark = %s/%s, want 5.2.0/major", got.Version, got.Category)
	}

	n, err := st.CountWatermarks("")
	if err != nil {
		t.Fatalf("CountWatermarks() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountWatermarks() = %d, want 1", n)
	}
}

func TestGetWatermarkNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetWatermark("nobody", "nothing")
	if err != ErrNotFound {
		t.Errorf("GetWatermark() error = %v, want ErrNotFound", err)
	}
}

func TestFutureLifecycle(t *testing.T) {
	st := openTestStore(t)

	f := &FutureUpdate{
		Library:    "python",
		Version:    "3.14",
		Confidence: 85,
		Features:   "free-threading by default",
		Source:     "https://python.org",
		Status:     StatusDetected,
	}
	if err := st.CreateFuture(f); err != nil {
		t.Fatalf("CreateFuture() error = %v", err)
	}
	if f.ID == 0 {
		t.Error("CreateFuture() should fill in ID")
	}

	got, err := st.GetFuture("python", "3.14")
	if err != nil {
		t.Fatalf("GetFuture() error = %v", err)
	}
	if got.Confidence != 85 || got.Status != StatusDetected {
		t.Errorf("future = %d/%s, want 85/detected", got.Confidence, got.Status)
	}

	prev := got.Confidence
	got.PreviousConfidence = &prev
	got.Confidence = 95
	got.Status = StatusConfirmed
	if err := st.UpdateFuture(got); err != nil {
		t.Fatalf("UpdateFuture() error = %v", err)
	}

	got, err = st.GetFuture("python", "3.14")
	if err != nil {
		t.Fatalf("GetFuture() after update error = %v", err)
	}
	if got.Confidence != 95 || got.PreviousConfidence == nil || *got.PreviousConfidence != 85 {
		t.Errorf("confidence history not preserved: %+v", got)
	}
}

func TestPromoteFuture(t *testing.T) {
	st := openTestStore(t)

	lib, _, err := st.GetOrCreateLibrary("python", "Python", "language")
	if err != nil {
		t.Fatalf("GetOrCreateLibrary() error = %v", err)
	}
	f := &FutureUpdate{Library: "python", Version: "3.14", Confidence: 90, Status: StatusConfirmed}
	if err := st.CreateFuture(f); err != nil {
		t.Fatalf("CreateFuture() error = %v", err)
	}

	relID, _, err := st.UpsertRelease(lib.ID, "3.14", nil, "released", "https://python.org")
	if err != nil {
		t.Fatalf("UpsertRelease() error = %v", err)
	}

	promoted, err := st.PromoteFuture("python", "3.14", relID)
	if err != nil {
		t.Fatalf("PromoteFuture() error = %v", err)
	}
	if !promoted {
		t.Error("PromoteFuture() should report a promotion")
	}

	got, err := st.GetFuture("python", "3.14")
	if err != nil {
		t.Fatalf("GetFuture() error = %v", err)
	}
	if got.Status != StatusReleased {
		t.Errorf("Status = %s, want released", got.Status)
	}
	if got.PromotedReleaseID == nil || *got.PromotedReleaseID != relID {
		t.Errorf("PromotedReleaseID = %v, want %d", got.PromotedReleaseID, relID)
	}

	// Second promotion is a no-op.
	promoted, err = st.PromoteFuture("python", "3.14", relID)
	if err != nil {
		t.Fatalf("second PromoteFuture() error = %v", err)
	}
	if promoted {
		t.Error("already-released record should not promote again")
	}
}

func TestCancelFuture(t *testing.T) {
	st := openTestStore(t)

	f := &FutureUpdate{Library: "angular", Version: "20.0", Confidence: 75, Status: StatusDetected}
	if err := st.CreateFuture(f); err != nil {
		t.Fatalf("CreateFuture() error = %v", err)
	}

	if err := st.CancelFuture("angular", "20.0", "roadmap withdrawn"); err != nil {
		t.Fatalf("CancelFuture() error = %v", err)
	}
	got, err := st.GetFuture("angular", "20.0")
	if err != nil {
		t.Fatalf("GetFuture() error = %v", err)
	}
	if got.Status != StatusCancelled || got.ChangeReason != "roadmap withdrawn" {
		t.Errorf("cancelled record = %s/%q", got.Status, got.ChangeReason)
	}

	if err := st.CancelFuture("angular", "99.0", "x"); err != ErrNotFound {
		t.Errorf("CancelFuture() on missing record error = %v, want ErrNotFound", err)
	}
}

func TestListFuturesOrderAndFilter(t *testing.T) {
	st := openTestStore(t)

	for _, f := range []FutureUpdate{
		{Library: "python", Version: "3.14", Confidence: 60, Status: StatusDetected},
		{Library: "python", Version: "4.0", Confidence: 30, Status: StatusDetected},
		{Library: "django", Version: "6.0", Confidence: 90, Status: StatusConfirmed},
	} {
		f := f
		if err := st.CreateFuture(&f); err != nil {
			t.Fatalf("CreateFuture() error = %v", err)
		}
	}

	all, err := st.ListFutures("")
	if err != nil {
		t.Fatalf("ListFutures() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListFutures() returned %d records, want 3", len(all))
	}
	if all[0].Confidence != 90 {
		t.Errorf("first record confidence = %d, want highest first", all[0].Confidence)
	}

	pythons, err := st.ListFutures("python")
	if err != nil {
		t.Fatalf("ListFutures(python) error = %v", err)
	}
	if len(pythons) != 2 {
		t.Errorf("ListFutures(python) returned %d records, want 2", len(pythons))
	}
}

func TestWithTxRollback(t *testing.T) {
	st := openTestStore(t)

	wantErr := ErrNotFound
	err := st.WithTx(func(tx *Tx) error {
		if _, _, err := tx.GetOrCreateLibrary("rollback", "Rollback", "library"); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx() error = %v, want %v", err, wantErr)
	}

	if _, err := st.GetLibrary("rollback"); err != ErrNotFound {
		t.Errorf("library should not exist after rollback, got err = %v", err)
	}
}
