package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"mediacatalog/internal/logging"
)

// TaskHandler adapts the Runner to asynq
type TaskHandler struct {
	runner *Runner
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(runner *Runner) *TaskHandler {
	return &TaskHandler{runner: runner}
}

// ProcessTask implements asynq.Handler
func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := ParsePayload(t)
	if err != nil {
		// A malformed payload will not get better on retry
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	logging.WithJob("", t.Type()).Debug().
		Str("task_id", taskID).
		Str("trigger", payload.Trigger).
		Msg("Processing task")

	return h.runner.Run(ctx, t.Type())
}

// NewServeMux registers the handler for every catalog task type
func (h *TaskHandler) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, taskType := range TaskTypes() {
		mux.Handle(taskType, h)
	}
	return mux
}
