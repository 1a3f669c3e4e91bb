package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/improvedoc/internal/improve"
)

// Worker processes a single document job.
type Worker struct {
	proc *improve.Processor
	log  *slog.Logger
}

func NewWorker(proc *improve.Processor, log *slog.Logger) *Worker {
	return &Worker{proc: proc, log: log}
}

// Process runs the post-processor for a job. Each job gets its own parsed
// tree and source context; nothing is shared between jobs.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "docfile", job.DocFile)

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "cancelled")
		return
	}

	// Phase 1: Load
	job.SetStatus(StatusProcessing, "loading")
	input := job.Input()
	if input == nil && job.HTMLPath != "" {
		data, err := os.ReadFile(job.HTMLPath)
		if err != nil {
			log.Error("read html failed", "path", job.HTMLPath, "error", err)
			job.AddError(fmt.Sprintf("read: %s", err))
			job.SetStatus(StatusFailed, "loading")
			return
		}
		input = data
	}

	// Phase 2: Annotate
	job.SetStatus(StatusProcessing, "annotating")
	res, err := w.proc.Process(improve.Document{
		DocFile:    job.DocFile,
		Backend:    job.Backend,
		Attributes: job.Attributes,
	}, string(input))
	if err != nil {
		log.Error("post-process failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "annotating")
		return
	}
	job.SetResult([]byte(res.Output), res.Report.Headings)

	// Phase 3: Write
	if job.OutPath != "" {
		job.SetStatus(StatusProcessing, "writing")
		if err := writeFile(job.OutPath, []byte(res.Output)); err != nil {
			log.Error("write failed", "path", job.OutPath, "error", err)
			job.AddError(fmt.Sprintf("write: %s", err))
			job.SetStatus(StatusFailed, "writing")
			return
		}
	}

	if !res.Applied {
		job.SetStatus(StatusSkipped, "done")
		return
	}
	log.Debug("annotated", "headings", len(res.Report.Headings))
	job.SetStatus(StatusAnnotated, "done")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
