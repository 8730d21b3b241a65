package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdfoutline/internal/doctree"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// JobStatus represents the state of an outline job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// FailureKind classifies why a run produced no outline.
type FailureKind string

const (
	FailureInput      FailureKind = "input"
	FailureExtraction FailureKind = "extraction"
	FailureDeadline   FailureKind = "deadline"
	FailureInternal   FailureKind = "internal"
)

// ClassifyError maps a run error onto a FailureKind.
func ClassifyError(err error) FailureKind {
	var ie *outline.InputError
	var ee *outline.ExtractionError
	switch {
	case errors.As(err, &ie):
		return FailureInput
	case errors.As(err, &ee):
		return FailureExtraction
	case errors.Is(err, outline.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return FailureDeadline
	default:
		return FailureInternal
	}
}

// Job tracks the state of a single document run.
type Job struct {
	mu sync.Mutex

	ID       string
	DocID    string
	Filename string
	Status   JobStatus

	ContentHash  string
	DuplicateOf  string
	Failure      FailureKind
	Error        string
	PublishError string

	Pages     int
	ElapsedMs int64
	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	fileData []byte
	outline  *doctree.Outline
}

// NewJob creates a queued job for an uploaded file. An empty docID is
// derived from the content hash.
func NewJob(filename, docID string, data []byte) *Job {
	hash := ContentHashHex(data)
	if docID == "" {
		docID = hash[:16]
	}
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		DocID:       docID,
		Filename:    filename,
		Status:      StatusQueued,
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs that have not changed within the TTL. Queued and
// running jobs are kept.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		done := job.Status == StatusCompleted || job.Status == StatusFailed
		stale := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if done && stale {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// Complete stores the finished outline and drops the upload.
func (j *Job) Complete(o doctree.Outline, pages int, elapsed time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outline = &o
	j.Pages = pages
	j.ElapsedMs = elapsed.Milliseconds()
	j.Status = StatusCompleted
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// CompleteDuplicate finishes the job with an outline published earlier
// under docID.
func (j *Job) CompleteDuplicate(o doctree.Outline, pages int, docID string) {
	j.Complete(o, pages, 0)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DuplicateOf = docID
}

// Fail records err and drops the upload.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Failure = ClassifyError(err)
	j.Error = err.Error()
	j.Status = StatusFailed
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// SetPublishError records a failed pathstore publish. The job stays
// completed.
func (j *Job) SetPublishError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PublishError = err.Error()
	j.UpdatedAt = time.Now()
}

// Outline returns the result once the job has completed.
func (j *Job) Outline() (doctree.Outline, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outline == nil {
		return doctree.Outline{}, false
	}
	return *j.outline, true
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string      `json:"job_id"`
	DocID        string      `json:"doc_id"`
	Filename     string      `json:"filename"`
	Status       JobStatus   `json:"status"`
	ContentHash  string      `json:"content_hash,omitempty"`
	DuplicateOf  string      `json:"duplicate_of,omitempty"`
	Failure      FailureKind `json:"failure,omitempty"`
	Error        string      `json:"error,omitempty"`
	PublishError string      `json:"publish_error,omitempty"`
	Pages        int         `json:"pages"`
	Headings     int         `json:"headings"`
	ElapsedMs    int64       `json:"elapsed_ms"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:           j.ID,
		DocID:        j.DocID,
		Filename:     j.Filename,
		Status:       j.Status,
		ContentHash:  j.ContentHash,
		DuplicateOf:  j.DuplicateOf,
		Failure:      j.Failure,
		Error:        j.Error,
		PublishError: j.PublishError,
		Pages:        j.Pages,
		ElapsedMs:    j.ElapsedMs,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	if j.outline != nil {
		snap.Headings = len(j.outline.Headings)
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
