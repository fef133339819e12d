package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"mediacatalog/internal/app"
	"mediacatalog/internal/config"
	"mediacatalog/internal/database"
	"mediacatalog/internal/handlers"
	"mediacatalog/internal/jobs"
	"mediacatalog/internal/logging"
)

// WorkerServer handles background job processing
type WorkerServer struct {
	srv        *asynq.Server
	mux        *asynq.ServeMux
	scheduler  *jobs.Scheduler
	dispatcher *jobs.Dispatcher
	runner     *jobs.Runner
	metricsApp *fiber.App
	cfg        *config.AppConfig
	dbManager  *database.DatabaseManager
}

// NewWorkerServer creates a new worker server
func NewWorkerServer(cfg *config.AppConfig, dbManager *database.DatabaseManager) (*WorkerServer, error) {
	redisOpt := jobs.RedisOpt(cfg.Redis)
	runner := app.NewRunner(cfg, dbManager.GetGormDB())

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			cfg.Worker.Queue: 1,
		},
		Logger: logging.NewAsynqLogger("worker"),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logging.WithJob(cfg.Worker.Queue, task.Type()).Error().Err(err).Msg("Task failed")
		}),
	})

	scheduler, err := jobs.NewScheduler(redisOpt, cfg.Schedule, cfg.Worker.Queue)
	if err != nil {
		return nil, err
	}

	w := &WorkerServer{
		srv:        srv,
		mux:        jobs.NewTaskHandler(runner).NewServeMux(),
		scheduler:  scheduler,
		dispatcher: jobs.NewDispatcher(redisOpt, cfg.Worker.Queue),
		runner:     runner,
		cfg:        cfg,
		dbManager:  dbManager,
	}

	if cfg.Worker.MetricsPort > 0 {
		w.metricsApp = fiber.New(fiber.Config{DisableStartupMessage: true})
		w.metricsApp.Get("/metrics", handlers.NewMetricsHandler().Metrics())
	}

	return w, nil
}

// importOnStart dispatches both feed imports once, running them in-process
// when the broker does not accept them.
func (w *WorkerServer) importOnStart(ctx context.Context) {
	for _, taskType := range []string{jobs.TypeImportShows, jobs.TypeImportMovies} {
		if _, err := jobs.DispatchOrRun(ctx, w.dispatcher, w.runner, taskType, jobs.TriggerStartup, false); err != nil {
			logging.WithJob(w.cfg.Worker.Queue, taskType).Error().Err(err).Msg("Startup import failed")
		}
	}
}

// Start starts the worker server
func (w *WorkerServer) Start(ctx context.Context) error {
	logging.Info("Starting worker server...")

	if w.metricsApp != nil {
		go func() {
			addr := fmt.Sprintf(":%d", w.cfg.Worker.MetricsPort)
			if err := w.metricsApp.Listen(addr); err != nil {
				logging.Errorf("Metrics listener stopped: %v", err)
			}
		}()
	}

	if w.cfg.Schedule.ImportOnStart {
		w.importOnStart(ctx)
	}

	if err := w.srv.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	if err := w.scheduler.Start(); err != nil {
		w.srv.Shutdown()
		return err
	}

	return nil
}

// Shutdown stops the scheduler first so nothing new is enqueued, then drains the server
func (w *WorkerServer) Shutdown() {
	logging.Info("Shutting down worker server...")
	w.scheduler.Shutdown()
	w.srv.Shutdown()
	w.dispatcher.Close()
	if w.metricsApp != nil {
		w.metricsApp.Shutdown()
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to ./config.yaml)")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		logging.Fatalf("%v", err)
	}

	tracer, err := app.InitTracing(context.Background(), cfg, "mediacatalog-worker")
	if err != nil {
		logging.Fatalf("%v", err)
	}
	defer app.ShutdownTracing(tracer)

	dbManager, err := app.OpenDatabase(cfg)
	if err != nil {
		logging.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbManager.Close()

	worker, err := NewWorkerServer(cfg, dbManager)
	if err != nil {
		logging.Fatalf("Failed to create worker server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		logging.Fatalf("Worker server failed: %v", err)
	}

	<-ctx.Done()
	worker.Shutdown()
}
