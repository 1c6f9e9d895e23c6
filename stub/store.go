package stub

import (
	"sort"
	"sync"
	"time"

	"github.com/aimariscal90-maker/ink-v1/model"
)

// job is the server-side record behind one snapshot. The simulator
// goroutine mutates it while handlers read it, so every access goes
// through the store's lock and reads get a copy.
type job struct {
	snapshot  model.Snapshot
	filename  string
	input     []byte
	output    []byte
	createdAt time.Time
}

type jobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*job
	maxJobs int // oldest jobs are dropped past this, 0 = unlimited
}

func newJobStore(maxJobs int) *jobStore {
	if maxJobs < 0 {
		maxJobs = 0
	}
	return &jobStore{
		jobs:    make(map[string]*job),
		maxJobs: maxJobs,
	}
}

func (s *jobStore) create(id, filename string, input []byte, jobType model.JobType, format model.OutputFormat) model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := &job{
		snapshot: model.Snapshot{
			JobID:        id,
			Status:       model.StatusUploaded,
			Type:         jobType,
			OutputFormat: format,
		},
		filename:  filename,
		input:     input,
		createdAt: time.Now(),
	}
	s.jobs[id] = j
	s.evictIfNeeded()

	return j.snapshot
}

// get returns a copy of the job's snapshot.
func (s *jobStore) get(id string) (model.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return model.Snapshot{}, false
	}
	return j.snapshot, true
}

func (s *jobStore) filename(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return "", false
	}
	return j.filename, true
}

// mutate applies fn to the job under the write lock.
func (s *jobStore) mutate(id string, fn func(*job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	return true
}

func (s *jobStore) output(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok || j.output == nil {
		return nil, false
	}
	return j.output, true
}

func (s *jobStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// evictIfNeeded removes the oldest jobs past maxJobs.
// Must be called with the write lock held.
func (s *jobStore) evictIfNeeded() {
	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return
	}

	all := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool {
		return all[i].createdAt.Before(all[k].createdAt)
	})

	for i := 0; i < len(all)-s.maxJobs; i++ {
		delete(s.jobs, all[i].snapshot.JobID)
	}
}
