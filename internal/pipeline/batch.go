package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/improve"
)

// Runner processes a fixed set of jobs with bounded concurrency.
type Runner struct {
	worker  *Worker
	workers int
}

func NewRunner(proc *improve.Processor, workers int, log *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{worker: NewWorker(proc, log), workers: workers}
}

// Run processes every job and returns once all have finished or ctx is
// cancelled. Per-job failures are recorded on the job, not returned.
func (r *Runner) Run(ctx context.Context, jobs []*Job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, job := range jobs {
		g.Go(func() error {
			r.worker.Process(gctx, job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Summary counts jobs by final status.
func Summary(jobs []*Job) map[JobStatus]int {
	out := map[JobStatus]int{}
	for _, j := range jobs {
		out[j.Snapshot().Status]++
	}
	return out
}

// Discover pairs every .html file under htmlRoot with the source file at the
// same relative path under sourceRoot, using ext as the source extension.
// HTML files without a matching source are skipped.
func Discover(htmlRoot, sourceRoot, ext string, a attrs.Attributes) ([]*Job, error) {
	if ext == "" {
		return nil, errors.New("source extension is required")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var jobs []*Job
	err := filepath.WalkDir(htmlRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, err := filepath.Rel(htmlRoot, path)
		if err != nil {
			return err
		}
		src := filepath.Join(sourceRoot, strings.TrimSuffix(rel, filepath.Ext(rel))+ext)
		abs, err := filepath.Abs(src)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		job := NewJob(abs)
		job.HTMLPath = path
		job.Attributes = a
		jobs = append(jobs, job)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", htmlRoot, err)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].HTMLPath < jobs[k].HTMLPath })
	return jobs, nil
}
