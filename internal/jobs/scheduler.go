package jobs

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"mediacatalog/internal/config"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/metrics"
)

// Entry is one periodic rule
type Entry struct {
	Spec     string
	TaskType string
}

// Entries returns the periodic rules from config. An empty spec disables that job.
func Entries(cfg config.ScheduleConfig) []Entry {
	all := []Entry{
		{Spec: cfg.ImportShows, TaskType: TypeImportShows},
		{Spec: cfg.ImportMovies, TaskType: TypeImportMovies},
		{Spec: cfg.RefreshRatings, TaskType: TypeRefreshRatings},
		{Spec: cfg.ValidateSources, TaskType: TypeValidateSources},
	}

	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Spec != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// Scheduler enqueues the periodic catalog tasks through asynq. When the
// broker is down an occurrence is logged and skipped.
type Scheduler struct {
	scheduler *asynq.Scheduler
	entries   []Entry
	queue     string
	logger    *zerolog.Logger
}

// NewScheduler creates a scheduler and registers every configured entry
func NewScheduler(redis asynq.RedisConnOpt, cfg config.ScheduleConfig, queue string) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone: %w", err)
		}
		loc = l
	}

	s := &Scheduler{
		entries: Entries(cfg),
		queue:   queue,
		logger:  logging.WithModule("scheduler"),
	}

	s.scheduler = asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Location:        loc,
		Logger:          logging.NewAsynqLogger("scheduler"),
		PostEnqueueFunc: s.afterEnqueue,
	})

	for _, e := range s.entries {
		task, err := NewTask(e.TaskType, TriggerSchedule, queue)
		if err != nil {
			return nil, err
		}
		entryID, err := s.scheduler.Register(e.Spec, task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s (%q): %w", e.TaskType, e.Spec, err)
		}
		s.logger.Info().Str("task_type", e.TaskType).Str("spec", e.Spec).Str("entry_id", entryID).Msg("Registered periodic task")
	}

	return s, nil
}

// Entries returns the registered rules
func (s *Scheduler) Entries() []Entry {
	return s.entries
}

func (s *Scheduler) afterEnqueue(info *asynq.TaskInfo, err error) {
	if err != nil {
		// info is nil when the enqueue failed
		metrics.DispatchTotal.WithLabelValues("periodic", string(DispatchFailed)).Inc()
		s.logger.Warn().Err(err).Msg("Periodic task not dispatched")
		return
	}
	metrics.DispatchTotal.WithLabelValues(info.Type, string(Dispatched)).Inc()
	s.logger.Debug().Str("task_type", info.Type).Str("task_id", info.ID).Msg("Periodic task dispatched")
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() error {
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
