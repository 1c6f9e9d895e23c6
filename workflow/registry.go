package workflow

import (
	"sort"
	"sync"
	"time"

	"github.com/aimariscal90-maker/ink-v1/model"
)

// Entry is what the registry remembers about one job handled in this
// client session. The snapshot is always replaced whole, never merged.
type Entry struct {
	JobID        string
	Type         model.JobType
	OutputFormat model.OutputFormat
	State        ClientState
	Snapshot     *model.Snapshot
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registry tracks the jobs driven during this process lifetime so a caller
// can resume any of them by ID. Nothing is persisted across restarts.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*Entry
	maxJobs int // oldest entries are dropped past this, 0 = unlimited
}

func NewRegistry(maxJobs int) *Registry {
	if maxJobs < 0 {
		maxJobs = 0
	}
	return &Registry{
		jobs:    make(map[string]*Entry),
		maxJobs: maxJobs,
	}
}

// Track records a freshly submitted job.
func (r *Registry) Track(receipt *model.SubmitReceipt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.jobs[receipt.JobID] = &Entry{
		JobID:        receipt.JobID,
		Type:         receipt.Type,
		OutputFormat: receipt.OutputFormat,
		State:        StateUploading,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.evictIfNeeded()
}

// Update replaces the stored snapshot for a job. Unknown IDs are adopted:
// a resumed job may predate this process.
func (r *Registry) Update(jobID string, snap *model.Snapshot, state ClientState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		e = &Entry{JobID: jobID, CreatedAt: time.Now()}
		r.jobs[jobID] = e
		r.evictIfNeeded()
	}
	if snap != nil {
		e.Snapshot = snap
		if snap.Type != "" {
			e.Type = snap.Type
		}
		if snap.OutputFormat != "" {
			e.OutputFormat = snap.OutputFormat
		}
	}
	e.State = state
	e.UpdatedAt = time.Now()
}

func (r *Registry) Get(jobID string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[jobID]
}

// List returns all tracked jobs, oldest first.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.jobs))
	for _, e := range r.jobs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// evictIfNeeded drops the oldest entries past maxJobs.
// Must be called with the lock held.
func (r *Registry) evictIfNeeded() {
	if r.maxJobs <= 0 || len(r.jobs) <= r.maxJobs {
		return
	}

	entries := make([]*Entry, 0, len(r.jobs))
	for _, e := range r.jobs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	for i := 0; i < len(entries)-r.maxJobs; i++ {
		delete(r.jobs, entries[i].JobID)
	}
}
