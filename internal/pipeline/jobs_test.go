package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/improvedoc/internal/doctree"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("/src/a.adoc")
	if len(job.ID) != 20 {
		t.Errorf("expected 20 char id, got %q", job.ID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.DocFile != "/src/a.adoc" {
		t.Errorf("expected docfile %q, got %q", "/src/a.adoc", job.DocFile)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusProcessing, "loading"},
		{StatusProcessing, "annotating"},
		{StatusProcessing, "writing"},
		{StatusAnnotated, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q, %q)", tr.status, tr.phase)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("read failed")
	job.AddError("write failed")

	snap := job.Snapshot()
	if len(snap.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Errors))
	}
	if snap.Errors[0] != "read failed" {
		t.Errorf("expected first error %q, got %q", "read failed", snap.Errors[0])
	}
}

func TestJob_InputAndResult(t *testing.T) {
	job := &Job{ID: "data-test"}
	job.SetInput([]byte("<p>in</p>"))
	if string(job.Input()) != "<p>in</p>" {
		t.Errorf("expected input %q, got %q", "<p>in</p>", job.Input())
	}

	job.SetResult([]byte("<p>out</p>"), []doctree.Heading{{ID: "_a_b", Depth: 0, Scope: "_a"}})
	if string(job.Output()) != "<p>out</p>" {
		t.Errorf("expected output %q, got %q", "<p>out</p>", job.Output())
	}
	snap := job.Snapshot()
	if len(snap.Headings) != 1 || snap.Headings[0].ID != "_a_b" {
		t.Errorf("expected one heading _a_b, got %+v", snap.Headings)
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Errors == nil || snap.Headings == nil {
		t.Error("expected non-nil slices in snapshot")
	}
	if len(snap.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Errors))
	}
}

func TestJob_SnapshotIsACopy(t *testing.T) {
	job := &Job{ID: "copy-test"}
	job.AddError("first")
	snap := job.Snapshot()
	snap.Errors[0] = "changed"
	if job.Snapshot().Errors[0] != "first" {
		t.Error("expected snapshot mutation not to leak into the job")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}

func TestJobStore_Counts(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Put(&Job{ID: "a", Status: StatusAnnotated})
	store.Put(&Job{ID: "b", Status: StatusAnnotated})
	store.Put(&Job{ID: "c", Status: StatusSkipped})

	counts := store.Counts()
	if counts[StatusAnnotated] != 2 || counts[StatusSkipped] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}
