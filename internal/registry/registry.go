// Package registry holds in-flight and completed vacancy jobs in process
// memory. Durability across restarts is out of scope; a restart forgets
// every job.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vacancy-report-service/internal/models"
)

// ErrNotFound is returned when a job id is unknown to the registry.
var ErrNotFound = errors.New("job not found")

// Registry is a concurrency-safe map of job id to job record. The pipeline
// goroutine is the only writer for a given job; pollers read concurrently
// through Snapshot. All mutations go through Update so a reader can never
// observe a half-applied transition (e.g. SUCCESS with empty results).
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{jobs: make(map[string]*models.Job)}
}

// Create inserts a new RUNNING job with zeroed counters and returns a
// snapshot of it.
func (r *Registry) Create() models.Job {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.NewString(),
		Status:    models.StatusRunning,
		Message:   "Job started",
		Results:   []models.EnrichedVacancy{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return copyJob(job)
}

// Snapshot returns a consistent copy of the job. Mutating the returned
// value or its results does not affect the stored record.
func (r *Registry) Snapshot(id string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return copyJob(job), nil
}

// Update applies fn to the job under the write lock, so every field fn
// touches becomes visible to readers at once.
func (r *Registry) Update(id string, fn func(*models.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func copyJob(job *models.Job) models.Job {
	out := *job
	out.Results = make([]models.EnrichedVacancy, len(job.Results))
	copy(out.Results, job.Results)
	return out
}
