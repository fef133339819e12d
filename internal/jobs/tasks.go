package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"mediacatalog/internal/config"
)

// Task types for Asynq
const (
	TypeImportShows     = "catalog:import_shows"
	TypeImportMovies    = "catalog:import_movies"
	TypeRefreshRatings  = "catalog:refresh_ratings"
	TypeValidateSources = "catalog:validate_sources"
)

// Triggers recorded in task payloads
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
)

// TaskTypes lists every task the worker handles
func TaskTypes() []string {
	return []string{TypeImportShows, TypeImportMovies, TypeRefreshRatings, TypeValidateSources}
}

// IsKnownTaskType reports whether taskType is one of the catalog tasks
func IsKnownTaskType(taskType string) bool {
	for _, t := range TaskTypes() {
		if t == taskType {
			return true
		}
	}
	return false
}

// TriggerPayload is the payload of every catalog task. The jobs take no
// arguments; the payload only records who asked for the run.
type TriggerPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewTask builds an asynq task for a catalog job. Tasks never retry.
func NewTask(taskType, trigger, queue string) (*asynq.Task, error) {
	if !IsKnownTaskType(taskType) {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	payload, err := json.Marshal(TriggerPayload{Trigger: trigger, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if queue == "" {
		queue = "default"
	}
	return asynq.NewTask(taskType, payload, asynq.Queue(queue), asynq.MaxRetry(0)), nil
}

// ParsePayload decodes a task payload; an empty payload is a manual trigger
func ParsePayload(t *asynq.Task) (TriggerPayload, error) {
	var p TriggerPayload
	if len(t.Payload()) == 0 {
		return TriggerPayload{Trigger: TriggerManual}, nil
	}
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid payload for %s: %w", t.Type(), err)
	}
	return p, nil
}

// RedisOpt converts the redis section of the config into asynq connection options
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
}
