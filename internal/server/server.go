package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mediacatalog/internal/config"
	"mediacatalog/internal/database"
	"mediacatalog/internal/handlers"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/middleware"
	"mediacatalog/internal/services"
	"mediacatalog/internal/tracing"
	"mediacatalog/internal/utils"
)

// APIServer represents the read-only catalog API
type APIServer struct {
	app       *fiber.App
	cfg       *config.AppConfig
	repo      *services.Repository
	dbManager *database.DatabaseManager
	redis     *redis.Client
}

// NewAPIServer creates a new API server. redisClient is only used by the
// health check and may be nil.
func NewAPIServer(cfg *config.AppConfig, dbManager *database.DatabaseManager, redisClient *redis.Client) *APIServer {
	server := &APIServer{
		cfg:       cfg,
		dbManager: dbManager,
		repo:      services.NewRepository(dbManager.GetGormDB()),
		redis:     redisClient,
	}

	server.app = fiber.New(fiber.Config{
		AppName:      "Media Catalog API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: utils.FiberErrorHandler,
	})

	server.app.Use(recover.New())
	server.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	server.app.Use(middleware.RequestContext())
	server.app.Use(tracing.FiberMiddleware())
	server.app.Use(helmet.New())
	server.app.Use(cors.New(cors.Config{
		AllowMethods: "GET,HEAD,OPTIONS",
	}))
	server.app.Use(logging.GetGlobalLogger().FiberLoggerMiddleware())
	server.app.Use(middleware.MetricsMiddleware())
	if cfg.Server.RateLimit > 0 {
		server.app.Use(middleware.NewRateLimiter(cfg.Server.RateLimit))
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures the API routes
func (s *APIServer) setupRoutes() {
	movieHandler := handlers.NewMovieHandler(s.repo)
	showHandler := handlers.NewShowHandler(s.repo)
	healthHandler := handlers.NewHealthHandler(s.dbManager, s.redis)
	metricsHandler := handlers.NewMetricsHandler()

	s.app.Get("/healthz", healthHandler.HealthCheck)
	s.app.Get("/metrics", metricsHandler.Metrics())

	movies := s.app.Group("/movies")
	movies.Get("/", movieHandler.ListMovies)
	movies.Get("/:id/sources", movieHandler.GetMovieSources)
	movies.Get("/:id", movieHandler.GetMovie)

	shows := s.app.Group("/shows")
	shows.Get("/", showHandler.ListShows)
	// Registered before /:id so the literal segment wins
	shows.Get("/episodes/:id/sources", showHandler.GetEpisodeSources)
	shows.Get("/:id/seasons", showHandler.GetShowSeasons)
	shows.Get("/:id/episodes", showHandler.GetShowEpisodes)
	shows.Get("/:id", showHandler.GetShow)
}

// App exposes the fiber app, mainly for tests
func (s *APIServer) App() *fiber.App {
	return s.app
}

// Start starts the API server
func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	logging.Infof("Starting API server on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
