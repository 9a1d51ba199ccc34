package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/store"
	"github.com/dgallion1/tripgenie/internal/travel"
)

// Generator produces plan text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// PlanStore persists finished plans.
type PlanStore interface {
	Put(ctx context.Context, p *store.Plan) error
	FindByRequestHash(ctx context.Context, hash string) (*store.Plan, error)
}

// Worker processes a single plan job.
type Worker struct {
	gen        Generator
	plans      PlanStore
	metrics    *Metrics
	log        *slog.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewWorker(gen Generator, plans PlanStore, metrics *Metrics, log *slog.Logger, maxRetries int) *Worker {
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	return &Worker{
		gen:        gen,
		plans:      plans,
		metrics:    metrics,
		log:        log,
		maxRetries: maxRetries,
		backoff:    Backoff,
	}
}

// Process runs the generate, segment, store pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	w.metrics.IncActiveJobs()
	defer w.metrics.DecActiveJobs()

	w.process(ctx, job)

	snap := job.Snapshot()
	w.metrics.ObserveJob(snap.Status, time.Since(start))
}

func (w *Worker) process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "plan_id", job.PlanID)

	// Phase 0: Dedup check
	if !job.force {
		existing, err := w.plans.FindByRequestHash(ctx, job.RequestHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != nil {
			log.Info("duplicate request, skipping", "existing_plan_id", existing.ID)
			job.SetPlanID(existing.ID)
			job.SetSegmentation(existing.Strategy, len(existing.Sections))
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 1: Generate
	job.SetStatus(StatusGenerating, "generating")
	req := job.Request()
	text, err := w.generate(ctx, job, travel.BuildPrompt(req), log)
	if err != nil {
		log.Error("generation failed", "error", err)
		job.AddError(fmt.Sprintf("generate: %s", err))
		job.SetStatus(StatusFailed, "generating")
		return
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting")
	result := segment.Parse(text)
	w.metrics.ObserveSegment(result.Strategy)
	job.SetSegmentation(result.Strategy, len(result.Sections))
	log.Info("segmented plan", "strategy", result.Strategy, "sections", len(result.Sections))

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	plan := &store.Plan{
		ID:          job.PlanID,
		RequestHash: job.RequestHash,
		Request:     req,
		Model:       w.gen.Model(),
		RawText:     text,
		Strategy:    result.Strategy,
		Sections:    result.Sections,
		CreatedAt:   time.Now().UTC(),
	}
	if err := w.plans.Put(ctx, plan); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	job.SetStatus(StatusCompleted, "done")
}

// generate calls the model, retrying transient errors with backoff.
func (w *Worker) generate(ctx context.Context, job *Job, prompt string, log *slog.Logger) (string, error) {
	var text string
	var lastErr error
	for attempt := range w.maxRetries {
		job.IncrAttempts()
		text, lastErr = w.gen.Generate(ctx, prompt)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == w.maxRetries-1 {
			break
		}
		log.Warn("retryable generation error", "attempt", attempt, "error", lastErr)
		w.metrics.IncRetry()
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, lastErr
}
