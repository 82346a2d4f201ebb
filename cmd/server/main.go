package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/config"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/database"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/exports"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(newLogger(cfg.Log))

	slog.Info("configuration loaded successfully",
		"db_driver", cfg.Database.Driver,
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"report_timezone", cfg.Report.Timezone,
		"export_storage", cfg.Export.Type,
	)

	slog.Info("CORS configuration",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"allowed_methods", cfg.CORS.AllowedMethods,
		"allowed_headers", cfg.CORS.AllowedHeaders,
		"allow_credentials", cfg.CORS.AllowCredentials,
		"max_age", cfg.CORS.MaxAge,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	ctx := context.Background()
	if err := publishing.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	storage, err := exports.NewStorageFromConfig(ctx, cfg.Export)
	if err != nil {
		log.Fatalf("failed to initialise export storage: %v", err)
	}

	calendar := service.NewCalendar(time.Now, cfg.Report.Location())
	pm := publishing.NewManager(db, calendar, exports.NewExportService(storage))
	if err := pm.SeedCatalog(ctx, cfg.Catalog.SeedFile); err != nil {
		log.Fatalf("failed to seed stage catalog: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)
	engine := pm.NewEngine(cfg, tokens)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
