package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediacatalog/internal/ingest"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/metrics"
	"mediacatalog/internal/ratings"
	"mediacatalog/internal/tracing"
	"mediacatalog/internal/validator"
)

// ErrUnknownTask is returned for task types the runner has no body for
var ErrUnknownTask = errors.New("unknown task type")

// Importer is the feed importer as seen by the jobs
type Importer interface {
	ImportShows(ctx context.Context) (ingest.Summary, error)
	ImportMovies(ctx context.Context) (ingest.Summary, error)
}

// Refresher is the rating refresher as seen by the jobs
type Refresher interface {
	Refresh(ctx context.Context) (ratings.Summary, error)
}

// Validator is the source validator as seen by the jobs
type Validator interface {
	Validate(ctx context.Context) (validator.Summary, error)
}

// Runner executes task bodies in-process. The asynq handlers call it, and so
// do callers falling back to synchronous execution when dispatch fails.
type Runner struct {
	importer  Importer
	refresher Refresher
	validator Validator
	queue     string
}

// NewRunner creates a runner over the three background components
func NewRunner(importer Importer, refresher Refresher, validator Validator, queue string) *Runner {
	return &Runner{
		importer:  importer,
		refresher: refresher,
		validator: validator,
		queue:     queue,
	}
}

// Run executes one task body to completion
func (r *Runner) Run(ctx context.Context, taskType string) error {
	if !IsKnownTaskType(taskType) {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskType)
	}

	ctx, span := tracing.StartSpan(ctx, "job "+taskType, tracing.JobAttrs(taskType, r.queue)...)
	start := time.Now()

	var err error
	switch taskType {
	case TypeImportShows:
		_, err = r.importer.ImportShows(ctx)
	case TypeImportMovies:
		_, err = r.importer.ImportMovies(ctx)
	case TypeRefreshRatings:
		_, err = r.refresher.Refresh(ctx)
	case TypeValidateSources:
		_, err = r.validator.Validate(ctx)
	}

	tracing.EndSpan(span, err)
	metrics.ObserveJob(taskType, start, err)
	logging.GetGlobalLogger().LogJobProcessing(r.queue, taskType, time.Since(start), err)

	if err != nil {
		return fmt.Errorf("%s: %w", taskType, err)
	}
	return nil
}

// DispatchOrRun enqueues taskType and, if the broker refuses it, runs the task
// body in the calling goroutine. With sync set the broker is skipped entirely.
func DispatchOrRun(ctx context.Context, d *Dispatcher, r *Runner, taskType, trigger string, sync bool) (DispatchResult, error) {
	if !IsKnownTaskType(taskType) {
		return DispatchResult{Outcome: DispatchFailed, TaskType: taskType, Reason: "unknown task type"},
			fmt.Errorf("%w: %s", ErrUnknownTask, taskType)
	}

	var result DispatchResult
	if sync {
		result = DispatchResult{Outcome: DispatchFailed, TaskType: taskType, Reason: "synchronous run requested"}
	} else {
		result = d.Enqueue(ctx, taskType, trigger)
		if result.OK() {
			return result, nil
		}
	}

	logging.WithJob(r.queue, taskType).Info().Str("reason", result.Reason).Msg("Running task synchronously")
	return result, r.Run(ctx, taskType)
}
