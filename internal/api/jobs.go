package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobDone      = "done"
	JobError     = "error"
	JobCancelled = "cancelled"
)

// Job types.
const (
	JobTypeScan       = "scan"
	JobTypeScanStream = "scan_stream"
	JobTypeScanWS     = "scan_ws"
)

const defaultMaxJobs = 1000

// Job tracks one scan request. Its ID is the scan request ID.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Domains    int        `json:"domains"`
	BatchID    string     `json:"batch_id,omitempty"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func (j *Job) finished() bool {
	return j.Status == JobDone || j.Status == JobError || j.Status == JobCancelled
}

type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int
	now         func() time.Time
}

func NewJobManager() *JobManager {
	m := newJobManager()
	go m.cleanupLoop()
	return m
}

func newJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     defaultMaxJobs,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob registers a pending job. An empty id gets a fresh UUID.
func (m *JobManager) CreateJob(id, jobType string, domains int) *Job {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        id,
		Type:      jobType,
		Status:    JobPending,
		Domains:   domains,
		CreatedAt: m.now(),
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy
	}
	return nil
}

// ListJobs returns jobs newest first.
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 32)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast never blocks; a subscriber with a full buffer misses the update.
func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
		}
	}
}

func (m *JobManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		m.prune()
	}
}

// prune drops the oldest finished jobs once more than maxJobs are held.
func (m *JobManager) prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return 0
	}

	type finishedJob struct {
		id string
		at time.Time
	}
	var done []finishedJob
	for id, job := range m.jobs {
		if !job.finished() {
			continue
		}
		at := job.CreatedAt
		if job.FinishedAt != nil {
			at = *job.FinishedAt
		}
		done = append(done, finishedJob{id: id, at: at})
	}
	sort.Slice(done, func(i, j int) bool {
		return done[i].at.Before(done[j].at)
	})

	toRemove := min(len(m.jobs)-m.maxJobs, len(done))
	for i := 0; i < toRemove; i++ {
		delete(m.jobs, done[i].id)
	}
	return toRemove
}

func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}
