package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"mediacatalog/internal/app"
	"mediacatalog/internal/logging"
	"mediacatalog/internal/server"
)

// Main entry point for the API service
func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to ./config.yaml)")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		logging.Fatalf("%v", err)
	}

	tracer, err := app.InitTracing(context.Background(), cfg, "mediacatalog-api")
	if err != nil {
		logging.Fatalf("%v", err)
	}
	defer app.ShutdownTracing(tracer)

	dbManager, err := app.OpenDatabase(cfg)
	if err != nil {
		logging.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbManager.Close()

	redisClient := app.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	srv := server.NewAPIServer(cfg, dbManager, redisClient)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logging.Info("Shutting down API server...")
		if err := srv.Shutdown(); err != nil {
			logging.Errorf("Server shutdown failed: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		logging.Fatalf("Server failed to start: %v", err)
	}
}
