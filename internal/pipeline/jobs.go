package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/travel"
)

// JobStatus represents the state of a plan generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusGenerating JobStatus = "generating"
	StatusSegmenting JobStatus = "segmenting"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single plan generation.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	PlanID string `json:"plan_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	Title  string    `json:"title"`

	Progress Progress `json:"progress"`

	RequestHash string    `json:"request_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	assignedPlanID string
	request        travel.Request
	force          bool
	errors         []string
}

// Progress tracks processing progress.
type Progress struct {
	Attempts int              `json:"attempts"`
	Strategy segment.Strategy `json:"strategy,omitempty"`
	Sections int              `json:"sections"`
	Errors   []string         `json:"errors"`
}

// NewJob creates a queued job for req. With force set, an existing plan for
// the same request does not short-circuit generation.
func NewJob(req travel.Request, force bool) *Job {
	req = req.Normalize()
	now := time.Now()
	planID := newID()
	return &Job{
		ID:          newID(),
		PlanID:      planID,
		Status:      StatusQueued,
		Phase:       "queued",
		Title:       req.Title(),
		RequestHash: req.Hash(),
		CreatedAt:   now,
		UpdatedAt:   now,
		request:     req,
		force:       force,

		assignedPlanID: planID,
	}
}

// newID returns a time-ordered UUID.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Request returns the travel request the job was created for.
func (j *Job) Request() travel.Request {
	return j.request
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

// FindByPlanID returns the job that produces or produced planID. A job
// re-pointed at a duplicate is still found by the plan ID it was created with.
func (s *JobStore) FindByPlanID(planID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.assignedPlanID == planID || job.planID() == planID {
			return job
		}
	}
	return nil
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
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
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one generation attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Attempts++
	j.UpdatedAt = time.Now()
}

// SetSegmentation records how the generated text was segmented.
func (j *Job) SetSegmentation(strategy segment.Strategy, sections int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Strategy = strategy
	j.Progress.Sections = sections
	j.UpdatedAt = time.Now()
}

// SetPlanID points the job at a different plan, e.g. an existing duplicate.
func (j *Job) SetPlanID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PlanID = id
	j.UpdatedAt = time.Now()
}

func (j *Job) planID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.PlanID
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	PlanID    string    `json:"plan_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Title     string    `json:"title"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the job reached a terminal status.
func (s JobSnapshot) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusDupSkipped:
		return true
	}
	return false
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:     j.ID,
		PlanID: j.PlanID,
		Status: j.Status,
		Phase:  j.Phase,
		Title:  j.Title,
		Progress: Progress{
			Attempts: j.Progress.Attempts,
			Strategy: j.Progress.Strategy,
			Sections: j.Progress.Sections,
			Errors:   errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
