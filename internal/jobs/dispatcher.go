package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"mediacatalog/internal/logging"
	"mediacatalog/internal/metrics"
)

// DispatchOutcome says whether the broker accepted a task
type DispatchOutcome string

const (
	Dispatched     DispatchOutcome = "dispatched"
	DispatchFailed DispatchOutcome = "dispatch_failed"
)

// DispatchResult is the value returned by Dispatcher.Enqueue. TaskID is set
// when the task was dispatched, Reason when it was not.
type DispatchResult struct {
	Outcome  DispatchOutcome `json:"outcome"`
	TaskType string          `json:"task_type"`
	TaskID   string          `json:"task_id,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

// OK reports whether the task reached the broker
func (r DispatchResult) OK() bool {
	return r.Outcome == Dispatched
}

// Dispatcher enqueues catalog tasks on the broker
type Dispatcher struct {
	client *asynq.Client
	queue  string
	logger *zerolog.Logger
}

// NewDispatcher creates a dispatcher. No connection is made until the first Enqueue.
func NewDispatcher(redis asynq.RedisConnOpt, queue string) *Dispatcher {
	return &Dispatcher{
		client: asynq.NewClient(redis),
		queue:  queue,
		logger: logging.WithModule("dispatcher"),
	}
}

// Enqueue hands taskType to the broker. Failure is reported in the result,
// never as an error, so the caller decides whether to run the task inline.
func (d *Dispatcher) Enqueue(ctx context.Context, taskType, trigger string) DispatchResult {
	result := DispatchResult{TaskType: taskType}

	task, err := NewTask(taskType, trigger, d.queue)
	if err != nil {
		result.Outcome = DispatchFailed
		result.Reason = err.Error()
		d.record(result)
		return result
	}

	info, err := d.client.EnqueueContext(ctx, task, asynq.TaskID(uuid.NewString()))
	if err != nil {
		result.Outcome = DispatchFailed
		result.Reason = err.Error()
	} else {
		result.Outcome = Dispatched
		result.TaskID = info.ID
	}

	d.record(result)
	return result
}

func (d *Dispatcher) record(result DispatchResult) {
	metrics.DispatchTotal.WithLabelValues(result.TaskType, string(result.Outcome)).Inc()

	if result.OK() {
		d.logger.Info().Str("task_type", result.TaskType).Str("task_id", result.TaskID).Msg("Task dispatched")
		return
	}
	d.logger.Warn().Str("task_type", result.TaskType).Str("reason", result.Reason).Msg("Task dispatch failed")
}

// Close releases the broker connection
func (d *Dispatcher) Close() error {
	return d.client.Close()
}
