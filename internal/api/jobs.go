package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/internal/batch"
	"github.com/FocuswithJustin/computor/internal/logging"
	"github.com/FocuswithJustin/computor/internal/validation"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job has stopped.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// JobRequest is the request body for POST /jobs.
type JobRequest struct {
	Equations []string `json:"equations"`
	Workers   int      `json:"workers,omitempty"`
}

// Job is an asynchronous batch of equations. Fields are guarded by the
// owning JobStore; handlers only see snapshots.
type Job struct {
	ID          string         `json:"id"`
	Status      JobStatus      `json:"status"`
	Progress    int            `json:"progress"` // 0-100
	Total       int            `json:"total"`
	Done        int            `json:"done"`
	Failed      int            `json:"failed"`
	Results     []batch.Report `json:"results,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	CompletedAt string         `json:"completed_at,omitempty"`

	equations []batch.Equation
	workers   int
	cancel    context.CancelFunc
}

func (j *Job) snapshot() Job {
	c := *j
	c.Results = append([]batch.Report(nil), j.Results...)
	c.equations = nil
	c.cancel = nil
	return c
}

// JobStore manages batch jobs in memory.
type JobStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
	wg   sync.WaitGroup

	// onChange receives a snapshot after each state change.
	onChange func(Job)
}

// NewJobStore creates a new job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

// Create registers a pending job for the given equations.
func (s *JobStore) Create(equations []string, workers int) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	eqs := make([]batch.Equation, len(equations))
	for i, text := range equations {
		eqs[i] = batch.Equation{Line: i + 1, Text: text}
	}

	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		Total:     len(eqs),
		CreatedAt: now,
		UpdatedAt: now,
		equations: eqs,
		workers:   workers,
	}
	s.jobs[job.ID] = job
	return job.snapshot()
}

// Get retrieves a snapshot of a job by ID.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return Job{}, false
	}
	return job.snapshot(), true
}

// List returns snapshots of all jobs without their results, oldest first.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		snap := job.snapshot()
		snap.Results = nil
		jobs = append(jobs, snap)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt != jobs[k].CreatedAt {
			return jobs[i].CreatedAt < jobs[k].CreatedAt
		}
		return jobs[i].ID < jobs[k].ID
	})
	return jobs
}

// Active counts jobs that have not stopped.
func (s *JobStore) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			n++
		}
	}
	return n
}

// Start runs the job in the background.
func (s *JobStore) Start(id string) {
	s.mu.Lock()
	job, exists := s.jobs[id]
	if !exists || job.Status != JobStatusPending {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	eqs, workers := job.equations, job.workers
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, id, eqs, workers)
	}()
}

func (s *JobStore) run(ctx context.Context, id string, eqs []batch.Equation, workers int) {
	start := time.Now()
	s.update(id, func(j *Job) {
		j.Status = JobStatusRunning
	})

	outcomes, err := batch.RunWithProgress(ctx, eqs, workers, func(done, total int) {
		s.update(id, func(j *Job) {
			if j.Status != JobStatusRunning || done <= j.Done {
				return
			}
			j.Done = done
			j.Progress = done * 100 / total
		})
	})

	reports := make([]batch.Report, len(outcomes))
	for i, o := range outcomes {
		reports[i] = o.Report(format.Options{})
	}
	failed := batch.Failed(outcomes)

	s.update(id, func(j *Job) {
		if j.Status.Terminal() {
			return
		}
		j.Results = reports
		j.Failed = failed
		if err != nil {
			j.Status = JobStatusCancelled
			return
		}
		j.Status = JobStatusCompleted
		j.Done = j.Total
		j.Progress = 100
	})
	if err == nil {
		logging.BatchEvent("job:"+id, len(eqs), failed, time.Since(start))
	}
}

// update applies fn to the job under lock and publishes the change.
func (s *JobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	job, exists := s.jobs[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	before := job.Status
	beforeDone := job.Done
	fn(job)
	changed := job.Status != before || job.Done != beforeDone
	if changed {
		job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		if job.Status.Terminal() && job.CompletedAt == "" {
			job.CompletedAt = job.UpdatedAt
		}
	}
	snap := job.snapshot()
	notify := s.onChange
	s.mu.Unlock()

	if !changed {
		return
	}
	if snap.Status != before {
		logging.JobEvent(snap.ID, string(snap.Status), "done", snap.Done, "total", snap.Total)
	}
	if notify != nil {
		notify(snap)
	}
}

// Cancel stops a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	job, exists := s.jobs[id]
	if !exists {
		s.mu.Unlock()
		return cerrors.NewNotFound("job", id)
	}
	if job.Status.Terminal() {
		status := job.Status
		s.mu.Unlock()
		return cerrors.NewValidation("status", "job cannot be cancelled (status: "+string(status)+")")
	}
	if job.cancel != nil {
		job.cancel()
	}
	s.mu.Unlock()

	s.update(id, func(j *Job) {
		j.Status = JobStatusCancelled
	})
	return nil
}

// CancelAll cancels every job and waits for the runners to exit.
func (s *JobStore) CancelAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.jobs))
	for id, job := range s.jobs {
		if !job.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		_ = s.Cancel(id)
	}
	s.wg.Wait()
}

// Wait blocks until all started jobs have finished.
func (s *JobStore) Wait() {
	s.wg.Wait()
}

// handleJobs handles GET /jobs and POST /jobs.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs := s.jobs.List()
		respondList(w, jobs, len(jobs))
	case http.MethodPost:
		s.createJob(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Equations) == 0 {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "equations are required")
		return
	}
	if len(req.Equations) > s.cfg.MaxJobSize {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "too many equations in one job")
		return
	}
	for i, eq := range req.Equations {
		if err := validation.ValidateEquation(eq); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("equation %d: %v", i+1, err))
			return
		}
	}

	workers := req.Workers
	if workers <= 0 || workers > s.cfg.Workers {
		workers = s.cfg.Workers
	}

	job := s.jobs.Create(req.Equations, workers)
	logging.InfoContext(r.Context(), "job_created", "job_id", job.ID, "equations", job.Total, "workers", workers)
	s.jobs.Start(job.ID)
	respond(w, http.StatusCreated, job)
}

// handleJobByID handles GET /jobs/{id} and DELETE /jobs/{id}.
func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Job ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, exists := s.jobs.Get(id)
		if !exists {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		respond(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := s.jobs.Cancel(id); err != nil {
			if cerrors.Is(err, cerrors.ErrNotFound) {
				respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
				return
			}
			respondError(w, http.StatusConflict, "CANCEL_FAILED", err.Error())
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}
