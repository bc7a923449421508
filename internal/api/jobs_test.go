package api

import (
	"sync"
	"testing"
	"time"
)

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager()
	if jm == nil {
		t.Fatal("expected non-nil JobManager")
	}
	if jm.maxJobs != defaultMaxJobs {
		t.Errorf("expected maxJobs %d, got %d", defaultMaxJobs, jm.maxJobs)
	}
	if jm.jobs == nil || jm.subscribers == nil {
		t.Error("expected maps to be initialized")
	}
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := newJobManager()

	job := jm.CreateJob("req-1", JobTypeScan, 3)
	if job.ID != "req-1" || job.Type != JobTypeScan || job.Domains != 3 {
		t.Errorf("unexpected job %+v", job)
	}
	if job.Status != JobPending {
		t.Errorf("expected status pending, got %s", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	generated := jm.CreateJob("", JobTypeScanStream, 1)
	if generated.ID == "" {
		t.Error("expected a generated ID")
	}
	if jm.GetJob(generated.ID) == nil {
		t.Fatal("expected to retrieve created job")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := newJobManager()
	job := jm.CreateJob("req-1", JobTypeScan, 1)

	updated := jm.UpdateJob(job.ID, func(j *Job) {
		j.Status = JobRunning
		now := time.Now()
		j.StartedAt = &now
	})
	if updated == nil || updated.Status != JobRunning || updated.StartedAt == nil {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if jm.UpdateJob("missing", func(j *Job) { j.Status = JobDone }) != nil {
		t.Error("expected nil for non-existent job update")
	}
}

func TestJobManager_GetJobReturnsCopy(t *testing.T) {
	jm := newJobManager()
	if jm.GetJob("missing") != nil {
		t.Error("expected nil for non-existent job")
	}

	created := jm.CreateJob("req-1", JobTypeScan, 1)
	retrieved := jm.GetJob(created.ID)
	retrieved.Status = JobError

	if jm.GetJob(created.ID).Status != JobPending {
		t.Error("GetJob should return a copy")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := newJobManager()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jm.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	if jobs := jm.ListJobs(10); len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}

	jm.CreateJob("first", JobTypeScan, 1)
	jm.CreateJob("second", JobTypeScan, 1)
	jm.CreateJob("third", JobTypeScan, 1)

	jobs := jm.ListJobs(10)
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "third" || jobs[2].ID != "first" {
		t.Errorf("expected newest first, got %s..%s", jobs[0].ID, jobs[2].ID)
	}
	if jobs := jm.ListJobs(2); len(jobs) != 2 {
		t.Errorf("expected limit to return 2 jobs, got %d", len(jobs))
	}
}

func TestJobManager_Subscribe(t *testing.T) {
	jm := newJobManager()
	ch, unsubscribe := jm.Subscribe()

	jm.CreateJob("req-1", JobTypeScan, 1)
	select {
	case job := <-ch:
		if job.ID != "req-1" {
			t.Errorf("unexpected job %s", job.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for job notification")
	}

	unsubscribe()
	jm.CreateJob("req-2", JobTypeScan, 1)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	unsubscribe()
}

func TestJobManager_BroadcastDoesNotBlock(t *testing.T) {
	jm := newJobManager()
	_, unsubscribe := jm.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			jm.CreateJob("", JobTypeScan, 1)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestJobManager_Prune(t *testing.T) {
	jm := newJobManager()
	jm.SetMaxJobs(2)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jm.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	jm.CreateJob("old-done", JobTypeScan, 1)
	jm.CreateJob("running", JobTypeScan, 1)
	jm.CreateJob("new-done", JobTypeScan, 1)
	jm.CreateJob("pending", JobTypeScan, 1)
	jm.UpdateJob("old-done", func(j *Job) { j.Status = JobDone })
	jm.UpdateJob("running", func(j *Job) { j.Status = JobRunning })
	jm.UpdateJob("new-done", func(j *Job) { j.Status = JobCancelled })

	if removed := jm.prune(); removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if jm.GetJob("running") == nil || jm.GetJob("pending") == nil {
		t.Error("unfinished jobs must survive pruning")
	}
	if jm.GetJob("old-done") != nil {
		t.Error("oldest finished job should be pruned")
	}
	if removed := jm.prune(); removed != 0 {
		t.Errorf("nothing left to prune, removed %d", removed)
	}
}

func TestJobManager_SetMaxJobs(t *testing.T) {
	jm := newJobManager()
	jm.SetMaxJobs(500)
	jm.SetMaxJobs(0)
	if jm.maxJobs != 500 {
		t.Errorf("expected maxJobs 500, got %d", jm.maxJobs)
	}
}

func TestJobManager_ConcurrentAccess(t *testing.T) {
	jm := newJobManager()

	var wg sync.WaitGroup
	numRoutines := 10
	jobsPerRoutine := 10

	wg.Add(numRoutines)
	for i := 0; i < numRoutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < jobsPerRoutine; j++ {
				job := jm.CreateJob("", JobTypeScan, 1)
				jm.UpdateJob(job.ID, func(j *Job) { j.Status = JobRunning })
				jm.ListJobs(10)
			}
		}()
	}
	wg.Wait()

	if jobs := jm.ListJobs(0); len(jobs) != numRoutines*jobsPerRoutine {
		t.Errorf("expected %d jobs, got %d", numRoutines*jobsPerRoutine, len(jobs))
	}
}
