package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/tripgenie/internal/config"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4
	return cfg
}

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := job.Snapshot(); snap.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	gen := &fakeGenerator{results: []genResult{{text: planText}}}
	plans := newFakePlans()
	o := NewOrchestrator(testConfig(), gen, plans, nil, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(sampleRequest(), false)
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := waitDone(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}
	if o.GetJob(job.ID) != job || o.JobForPlan(job.PlanID) != job {
		t.Error("expected job tracked by id and plan id")
	}
	if plans.get(job.PlanID) == nil {
		t.Error("expected plan stored")
	}
	if o.Model() != "fake-model" {
		t.Errorf("unexpected model %q", o.Model())
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, &fakeGenerator{results: []genResult{{text: planText}}}, newFakePlans(), nil, discardLogger())

	if err := o.Submit(NewJob(sampleRequest(), false)); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
	second := NewJob(sampleRequest(), false)
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected rejected job marked failed, got %+v", snap)
	}
}
