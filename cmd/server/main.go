package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/api"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/api/admin"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/app"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/backtest"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/andresuchdata/autopo-py/forecast-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// A failed initial load leaves the API answering 503 until /admin/reload succeeds.
	if err := application.Service.Reload(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Initial dataset load failed")
	} else {
		ds := application.Service.Dataset()
		logger.Log.Info().
			Int("records", ds.History.Len()).
			Int("items", len(ds.History.Items())).
			Msg("Dataset loaded")
	}

	router := api.NewRouter(&api.Services{ForecastService: application.Service}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	servers := []*http.Server{srv}
	if cfg.Admin.Enabled {
		adminHandler := admin.NewHandler(application.Service, application.Runner, cfg.Backtest.Days)
		servers = append(servers, &http.Server{
			Addr:         ":" + cfg.Admin.Port,
			Handler:      admin.NewRouter(adminHandler),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: 10 * time.Minute,
		})
	}

	for _, s := range servers {
		go func(s *http.Server) {
			logger.Log.Info().Str("addr", s.Addr).Msg("Starting server")
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.Fatal().Err(err).Str("addr", s.Addr).Msg("Failed to start server")
			}
		}(s)
	}

	if err := backtest.StartScheduler(ctx, cfg.Backtest.Schedule, application.Runner, cfg.Backtest.Days); err != nil {
		logger.Log.Error().Err(err).Msg("Scheduled backtest disabled")
	}

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Str("addr", s.Addr).Msg("Server forced to shutdown")
		}
	}

	logger.Log.Info().Msg("Server exiting")
}
