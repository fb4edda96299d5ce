package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/restocklab/replaysim/internal/config"
	"github.com/restocklab/replaysim/internal/ingest"
	"github.com/restocklab/replaysim/internal/repository/postgres"
	"github.com/restocklab/replaysim/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	driveService, err := ingest.NewDriveService(cfg.Ingest.DriveCredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialize Google Drive service")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	ingestRepo := postgres.NewIngestRepository(db.DB)
	ingestService := ingest.NewService(driveService, ingestRepo)

	r := mux.NewRouter()
	ingestHandler := ingest.NewHandler(driveService, ingestService)
	ingestHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("ingest server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("ingest server stopped")
	}
}
