package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mediacatalog/internal/config"
	"mediacatalog/internal/database"
	"mediacatalog/internal/ingest"
	"mediacatalog/internal/jobs"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/ratings"
	"mediacatalog/internal/services"
	"mediacatalog/internal/tracing"
	"mediacatalog/internal/validator"
)

// LoadConfig loads configuration (from configPath when set) and initializes
// the global logger from its log section.
func LoadConfig(configPath string) (*config.AppConfig, error) {
	loader := config.NewConfigLoader()
	loader.SetConfigFile(configPath)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logging.InitGlobalLogger(logging.LogLevel(cfg.Log.Level), cfg.Log.Format)
	return cfg, nil
}

// OpenDatabase connects to the configured database and migrates the schema
func OpenDatabase(cfg *config.AppConfig) (*database.DatabaseManager, error) {
	log := logging.WithModule("database")

	dbManager, err := database.NewDatabaseManager(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrationManager(dbManager.GetGormDB(), log).Migrate(); err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return dbManager, nil
}

// InitTracing installs the configured span exporter for serviceName
func InitTracing(ctx context.Context, cfg *config.AppConfig, serviceName string) (*tracing.Tracer, error) {
	tracer, err := tracing.NewTracer(ctx, cfg.Tracing, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.Tracing.Exporter != "" && cfg.Tracing.Exporter != tracing.ExporterNone {
		logging.WithModule("tracing").Info().Str("exporter", cfg.Tracing.Exporter).Msg("Tracing enabled")
	}
	return tracer, nil
}

// ShutdownTracing flushes buffered spans, giving up after five seconds
func ShutdownTracing(tracer *tracing.Tracer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tracer.Shutdown(ctx); err != nil {
		logging.Errorf("Failed to flush traces: %v", err)
	}
}

// NewRedisClient creates the go-redis client used for health checks
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
}

// NewRunner wires the importer, refresher and validator into a job runner
func NewRunner(cfg *config.AppConfig, db *gorm.DB) *jobs.Runner {
	repo := services.NewRepository(db)

	return jobs.NewRunner(
		ingest.NewImporter(repo, cfg.Feeds, cfg.Validator.UserAgent),
		ratings.NewRefresher(repo, ratings.NewRandomProvider()),
		validator.NewValidator(repo, cfg.Validator),
		cfg.Worker.Queue,
	)
}
