package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"taxkb/internal/bootstrap"
	"taxkb/internal/config"
	"taxkb/internal/kb_service/api"
	"taxkb/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	// API keys live in the environment; a .env file is optional.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logger.Level)
	appLogger := logger.New("KnowledgeBaseService")
	appLogger.Info("Starting knowledge base service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := bootstrap.Build(ctx, cfg, appLogger)
	cancel()
	if err != nil {
		log.Fatalf("Failed to build knowledge base: %v", err)
	}
	defer app.Close()
	appLogger.Info("Connected to storage backends")

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(app.KB, appLogger)
	router := api.SetupRouter(handler, appLogger)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("Forced shutdown: %v", err))
	}
	appLogger.Info("Server gracefully stopped")
}
