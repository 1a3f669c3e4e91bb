package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/doctree"
)

// JobStatus represents the state of a post-processing job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusAnnotated  JobStatus = "annotated"
	StatusSkipped    JobStatus = "skipped"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the post-processing of a single rendered document.
type Job struct {
	mu sync.Mutex

	ID         string           `json:"job_id"`
	DocFile    string           `json:"docfile"`
	Backend    string           `json:"backend,omitempty"`
	Attributes attrs.Attributes `json:"attributes,omitempty"`

	// HTMLPath and OutPath are set for file-backed jobs. When OutPath is
	// empty the result is only kept in memory.
	HTMLPath string `json:"html_path,omitempty"`
	OutPath  string `json:"out_path,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	input    []byte
	output   []byte
	headings []doctree.Heading
	errors   []string
}

// NewJob returns a queued job with an id derived from its docfile.
func NewJob(docFile string) *Job {
	now := time.Now()
	return &Job{
		ID:        ContentHashHex([]byte(fmt.Sprintf("%s-%d", docFile, now.UnixNano())))[:20],
		DocFile:   docFile,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetInput sets the rendered HTML to post-process.
func (j *Job) SetInput(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.input = data
}

// Input returns the rendered HTML.
func (j *Job) Input() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.input
}

// SetResult records the processed output and the annotated headings.
func (j *Job) SetResult(output []byte, headings []doctree.Heading) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = output
	j.headings = headings
	j.UpdatedAt = time.Now()
}

// Output returns the processed HTML.
func (j *Job) Output() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.output
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string            `json:"job_id"`
	DocFile  string            `json:"docfile"`
	HTMLPath string            `json:"html_path,omitempty"`
	OutPath  string            `json:"out_path,omitempty"`
	Status   JobStatus         `json:"status"`
	Phase    string            `json:"phase"`
	Headings []doctree.Heading `json:"headings"`
	Errors   []string          `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	headings := append([]doctree.Heading{}, j.headings...)
	return JobSnapshot{
		ID:       j.ID,
		DocFile:  j.DocFile,
		HTMLPath: j.HTMLPath,
		OutPath:  j.OutPath,
		Status:   j.Status,
		Phase:    j.Phase,
		Headings: headings,
		Errors:   errs,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// Counts returns the number of stored jobs per status.
func (s *JobStore) Counts() map[JobStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[JobStatus]int{}
	for _, job := range s.jobs {
		job.mu.Lock()
		out[job.Status]++
		job.mu.Unlock()
	}
	return out
}
