package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restocklab/replaysim/internal/api"
	"github.com/restocklab/replaysim/internal/cache"
	"github.com/restocklab/replaysim/internal/config"
	"github.com/restocklab/replaysim/internal/forecast"
	"github.com/restocklab/replaysim/internal/policy"
	"github.com/restocklab/replaysim/internal/repository/postgres"
	"github.com/restocklab/replaysim/internal/service"
	"github.com/restocklab/replaysim/internal/storage"
	"github.com/restocklab/replaysim/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	historyRepo := postgres.NewHistoryRepository(db.DB)
	productRepo := postgres.NewProductRepository(db.DB)
	runRepo := postgres.NewRunRepository(db.DB)

	reportCache := cache.NewNoopReportCache()
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewReportCache(cfg.Cache)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("report cache unavailable, continuing without it")
		} else {
			reportCache = redisCache
		}
	}

	var archive storage.ObjectStorage
	if cfg.Archive.Enabled {
		archive, err = storage.NewMinioClient(cfg.Archive)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("report archive unavailable, continuing without it")
			archive = nil
		}
	}

	forecaster := forecast.NewHTTPForecaster(cfg.Forecast.URL,
		time.Duration(cfg.Forecast.TimeoutSeconds)*time.Second)

	simService := service.NewSimulationService(
		historyRepo, productRepo, runRepo,
		reportCache, archive,
		forecaster, policy.DefaultEngine{}, cfg,
	)

	router := api.NewRouter(&api.Services{SimulationService: simService}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exiting")
}
