package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Default feed locations
const (
	DefaultShowsFeedURL  = "https://channelsapi.s3.amazonaws.com/media/test/shows.json"
	DefaultMoviesFeedURL = "https://channelsapi.s3.amazonaws.com/media/test/movies.json"
)

// AppConfig represents the main application configuration
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// RateLimit is requests per minute per client IP; 0 disables limiting
	RateLimit    int           `mapstructure:"rate_limit"`
}

// DatabaseConfig represents database configuration. Driver is either
// "postgres" or "sqlite"; for sqlite only Path is used.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// RedisConfig represents the task broker connection
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FeedsConfig points the importer at the upstream JSON feeds
type FeedsConfig struct {
	ShowsURL  string        `mapstructure:"shows_url"`
	MoviesURL string        `mapstructure:"movies_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ScheduleConfig holds cron specs for the periodic jobs
type ScheduleConfig struct {
	RefreshRatings  string `mapstructure:"refresh_ratings"`
	ValidateSources string `mapstructure:"validate_sources"`
	ImportShows     string `mapstructure:"import_shows"`
	ImportMovies    string `mapstructure:"import_movies"`
	ImportOnStart   bool   `mapstructure:"import_on_start"`
	Timezone        string `mapstructure:"timezone"`
}

// ValidatorConfig configures source probing
type ValidatorConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	Reactivate bool          `mapstructure:"reactivate"`
	UserAgent  string        `mapstructure:"user_agent"`
	// RateLimit caps probes per second; 0 probes back to back
	RateLimit  float64       `mapstructure:"rate_limit"`
}

// WorkerConfig configures the asynq server
type WorkerConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Queue       string `mapstructure:"queue"`
	// MetricsPort serves /metrics from the worker; 0 disables it
	MetricsPort int    `mapstructure:"metrics_port"`
}

// LogConfig configures the zerolog logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig selects the OpenTelemetry span exporter
type TracingConfig struct {
	// Exporter is one of none, stdout or otlp
	Exporter string `mapstructure:"exporter"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// ConfigLoader wraps a viper instance so tests can point it at their own files
type ConfigLoader struct {
	viper *viper.Viper
}

// NewConfigLoader creates a loader with search paths and defaults applied
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &ConfigLoader{viper: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.rate_limit", 0)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mediacatalog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "mediacatalog.db")
	v.SetDefault("database.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", DefaultConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", DefaultConnMaxIdleTime)
	v.SetDefault("database.log_queries", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)

	v.SetDefault("feeds.shows_url", DefaultShowsFeedURL)
	v.SetDefault("feeds.movies_url", DefaultMoviesFeedURL)
	v.SetDefault("feeds.timeout", 30*time.Second)

	v.SetDefault("schedule.refresh_ratings", "0 0 * * *")
	v.SetDefault("schedule.validate_sources", "0 */6 * * *")
	v.SetDefault("schedule.import_shows", "@every 24h")
	v.SetDefault("schedule.import_movies", "@every 24h")
	v.SetDefault("schedule.import_on_start", true)
	v.SetDefault("schedule.timezone", "UTC")

	v.SetDefault("validator.timeout", 2*time.Second)
	v.SetDefault("validator.reactivate", false)
	v.SetDefault("validator.user_agent", "mediacatalog-validator/1.0")
	v.SetDefault("validator.rate_limit", 0)

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue", "default")
	v.SetDefault("worker.metrics_port", 9101)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
}

// SetConfigFile reads config from an explicit path instead of the search paths
func (l *ConfigLoader) SetConfigFile(path string) {
	if path != "" {
		l.viper.SetConfigFile(path)
	}
}

// Load reads the config file (if any), applies env overrides and validates the result
func (l *ConfigLoader) Load() (*AppConfig, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	var config AppConfig
	if err := l.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Database.applyPoolDefaults()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// LoadConfig loads application configuration from the default locations
func LoadConfig() (*AppConfig, error) {
	return NewConfigLoader().Load()
}

// validateConfig validates the configuration values
func validateConfig(config *AppConfig) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" || config.Database.DBName == "" {
			return fmt.Errorf("database host and dbname are required for postgres")
		}
	case "sqlite":
		if config.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}

	if config.Feeds.ShowsURL == "" || config.Feeds.MoviesURL == "" {
		return fmt.Errorf("both feed URLs must be set")
	}

	if config.Validator.Timeout <= 0 {
		return fmt.Errorf("validator timeout must be positive")
	}

	if config.Validator.RateLimit < 0 || config.Server.RateLimit < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}

	switch config.Tracing.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if config.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("unknown tracing exporter %q", config.Tracing.Exporter)
	}

	if config.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive")
	}

	specs := map[string]string{
		"refresh_ratings":  config.Schedule.RefreshRatings,
		"validate_sources": config.Schedule.ValidateSources,
		"import_shows":     config.Schedule.ImportShows,
		"import_movies":    config.Schedule.ImportMovies,
	}
	for name, spec := range specs {
		// An empty spec disables that periodic job
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid cron spec for schedule.%s: %w", name, err)
		}
	}

	if _, err := time.LoadLocation(config.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule timezone: %w", err)
	}

	return nil
}
