package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"mediacatalog/internal/config"
)

// DatabaseManager manages database connections
type DatabaseManager struct {
	config *config.DatabaseConfig
	gormDB *gorm.DB
	sqlDB  *sql.DB
	logger *zerolog.Logger
}

// gormWriter forwards gorm's query log to zerolog
type gormWriter struct {
	logger *zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Debug().Msgf(format, args...)
}

// NewGORMConfig builds the gorm configuration. Query logging is off unless
// explicitly requested, since the import jobs issue one statement per row.
func NewGORMConfig(cfg *config.DatabaseConfig, log *zerolog.Logger) *gorm.Config {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.LogQueries && log != nil {
		gormLogger = logger.New(gormWriter{logger: log}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: true,
		})
	}

	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		TranslateError: true,
	}
}

// SQLiteDSN builds the connection string for a sqlite database file. Writers
// from concurrent jobs wait on the lock instead of failing with "database is
// locked", and transactions take the write lock when they begin.
func SQLiteDSN(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"
}

// openDialector picks the gorm driver for the configured backend
func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.BuildDSN()), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewDatabaseManager creates a new database manager
func NewDatabaseManager(cfg *config.DatabaseConfig, log *zerolog.Logger) (*DatabaseManager, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, NewGORMConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runHealthCheck(db); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	if log != nil {
		log.Info().Str("driver", cfg.Driver).Msg("Database connection established")
	}

	return &DatabaseManager{
		config: cfg,
		gormDB: db,
		sqlDB:  sqlDB,
		logger: log,
	}, nil
}

// runHealthCheck performs a basic query to verify database connectivity
func runHealthCheck(db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result int
	return db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
}

// Ping checks connectivity and returns the round-trip latency
func (d *DatabaseManager) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var result int
	err := d.gormDB.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
	return time.Since(start), err
}

// GetGormDB returns the GORM database instance
func (d *DatabaseManager) GetGormDB() *gorm.DB {
	return d.gormDB
}

// GetSQLDB returns the underlying SQL database instance
func (d *DatabaseManager) GetSQLDB() *sql.DB {
	return d.sqlDB
}

// Close closes the database connection
func (d *DatabaseManager) Close() error {
	return d.sqlDB.Close()
}

// NewDatabaseManagerFromExisting creates a DatabaseManager from existing GORM and SQL instances
func NewDatabaseManagerFromExisting(gormDB *gorm.DB, sqlDB *sql.DB) *DatabaseManager {
	return &DatabaseManager{
		gormDB: gormDB,
		sqlDB:  sqlDB,
	}
}
