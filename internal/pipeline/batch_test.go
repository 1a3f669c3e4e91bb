package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/config"
	"github.com/dgallion1/improvedoc/internal/improve"
)

const sample = `<!DOCTYPE html><html><head></head><body><div id="doc-content">` +
	`<div class="sect1"><h2 id="_guide_intro">Intro</h2></div></div></body></html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// layout creates a source tree and a rendered site that mirrors it.
func layout(t *testing.T) (htmlRoot, sourceRoot string) {
	t.Helper()
	dir := t.TempDir()
	sourceRoot = filepath.Join(dir, "acme", "widgets", "adocs", "documentation", "src", "main", "asciidoc")
	htmlRoot = filepath.Join(dir, "site")

	writeTestFile(t, filepath.Join(sourceRoot, "guide.adoc"), "= Guide")
	writeTestFile(t, filepath.Join(sourceRoot, "ref", "api.adoc"), "= API")
	writeTestFile(t, filepath.Join(htmlRoot, "guide.html"), sample)
	writeTestFile(t, filepath.Join(htmlRoot, "ref", "api.html"), `<html><body><p>no root</p></body></html>`)
	writeTestFile(t, filepath.Join(htmlRoot, "orphan.html"), sample)
	writeTestFile(t, filepath.Join(htmlRoot, "style.css"), "body{}")
	return htmlRoot, sourceRoot
}

func TestDiscover(t *testing.T) {
	htmlRoot, sourceRoot := layout(t)
	a := attrs.Attributes{"improvethisdoc.branch": "main"}

	jobs, err := Discover(htmlRoot, sourceRoot, "adoc", a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 paired documents, got %d", len(jobs))
	}
	if !strings.HasSuffix(jobs[0].HTMLPath, "guide.html") || !strings.HasSuffix(jobs[0].DocFile, filepath.Join("asciidoc", "guide.adoc")) {
		t.Errorf("unexpected pairing %q -> %q", jobs[0].HTMLPath, jobs[0].DocFile)
	}
	if !strings.HasSuffix(jobs[1].DocFile, filepath.Join("ref", "api.adoc")) {
		t.Errorf("unexpected pairing %q -> %q", jobs[1].HTMLPath, jobs[1].DocFile)
	}
	if jobs[0].Attributes.Get(attrs.Branch, "") != "main" {
		t.Error("expected attributes to be attached to each job")
	}
}

func TestDiscover_RequiresExtension(t *testing.T) {
	if _, err := Discover(t.TempDir(), t.TempDir(), "", nil); err == nil {
		t.Error("expected error for empty extension")
	}
}

func TestRunner_Run(t *testing.T) {
	htmlRoot, sourceRoot := layout(t)
	jobs, err := Discover(htmlRoot, sourceRoot, ".adoc", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outDir := t.TempDir()
	for _, j := range jobs {
		rel, _ := filepath.Rel(htmlRoot, j.HTMLPath)
		j.OutPath = filepath.Join(outDir, rel)
	}

	r := NewRunner(improve.NewProcessor(nil), 2, discardLogger())
	if err := r.Run(context.Background(), jobs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	guide := jobs[0].Snapshot()
	if guide.Status != StatusAnnotated {
		t.Fatalf("expected guide annotated, got %q (%v)", guide.Status, guide.Errors)
	}
	if len(guide.Headings) != 1 || guide.Headings[0].ID != "_guide_intro" {
		t.Errorf("expected one annotated heading, got %+v", guide.Headings)
	}
	written, err := os.ReadFile(filepath.Join(outDir, "guide.html"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(written), "https://github.com/acme/widgets/edit/master/adocs/documentation/src/main/asciidoc/guide.adoc") {
		t.Errorf("expected edit link in written output, got %s", written)
	}

	api := jobs[1].Snapshot()
	if api.Status != StatusFailed || len(api.Errors) != 1 {
		t.Errorf("expected missing content root to fail, got %q %v", api.Status, api.Errors)
	}

	counts := Summary(jobs)
	if counts[StatusAnnotated] != 1 || counts[StatusFailed] != 1 {
		t.Errorf("unexpected summary %v", counts)
	}
}

func TestWorker_SkipsInapplicable(t *testing.T) {
	job := NewJob("/tmp/elsewhere/x.adoc")
	job.SetInput([]byte(sample))
	NewWorker(improve.NewProcessor(nil), discardLogger()).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusSkipped {
		t.Errorf("expected status %q, got %q", StatusSkipped, snap.Status)
	}
	if string(job.Output()) != sample {
		t.Error("expected output to equal input for a skipped job")
	}
}

func TestWorker_MissingHTMLFile(t *testing.T) {
	job := NewJob("/x/acme/widgets/adocs/documentation/src/main/asciidoc/a.adoc")
	job.HTMLPath = filepath.Join(t.TempDir(), "missing.html")
	NewWorker(improve.NewProcessor(nil), discardLogger()).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "loading" {
		t.Errorf("expected failure while loading, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestWorker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := NewJob("/x/a.adoc")
	NewWorker(improve.NewProcessor(nil), discardLogger()).Process(ctx, job)
	if job.Snapshot().Status != StatusFailed {
		t.Error("expected cancelled job to fail")
	}
}

func TestOrchestrator_SubmitAndComplete(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, improve.NewProcessor(nil), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("/home/dan/apache/isis/adocs/documentation/src/main/asciidoc/guide.adoc")
	job.SetInput([]byte(sample))
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected submitted job to be retrievable")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := job.Snapshot().Status; s == StatusAnnotated || s == StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusAnnotated {
		t.Fatalf("expected status %q, got %q", StatusAnnotated, s)
	}
	if !strings.Contains(string(job.Output()), "improvethisdoc") {
		t.Error("expected annotated output")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, improve.NewProcessor(nil), discardLogger())

	if err := o.Submit(NewJob("/a.adoc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := NewJob("/b.adoc")
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if second.Snapshot().Phase != "queue_full" {
		t.Errorf("expected phase %q, got %q", "queue_full", second.Snapshot().Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
