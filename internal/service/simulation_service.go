package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restocklab/replaysim/internal/cache"
	"github.com/restocklab/replaysim/internal/config"
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/forecast"
	"github.com/restocklab/replaysim/internal/history"
	"github.com/restocklab/replaysim/internal/policy"
	"github.com/restocklab/replaysim/internal/repository"
	"github.com/restocklab/replaysim/internal/simulation"
	"github.com/restocklab/replaysim/internal/storage"
	"github.com/rs/zerolog/log"
)

// historyLookbackDays is how far before the run start sales and snapshots
// are loaded, covering the trailing-average fallback and the opening stock
// search.
const historyLookbackDays = 90

// SimulationService validates run requests, loads the historical window,
// drives the orchestrator and takes care of the report's afterlife
// (persistence, cache, archive).
type SimulationService struct {
	history    repository.HistoryRepository
	products   repository.ProductRepository
	runs       repository.RunRepository
	reports    cache.ReportCache
	archive    storage.ObjectStorage
	forecaster forecast.Forecaster
	engine     policy.Engine
	cfg        *config.Config
}

func NewSimulationService(
	historyRepo repository.HistoryRepository,
	productRepo repository.ProductRepository,
	runRepo repository.RunRepository,
	reportCache cache.ReportCache,
	archive storage.ObjectStorage,
	forecaster forecast.Forecaster,
	engine policy.Engine,
	cfg *config.Config,
) *SimulationService {
	if reportCache == nil {
		reportCache = cache.NewNoopReportCache()
	}
	return &SimulationService{
		history:    historyRepo,
		products:   productRepo,
		runs:       runRepo,
		reports:    reportCache,
		archive:    archive,
		forecaster: forecaster,
		engine:     engine,
		cfg:        cfg,
	}
}

// Run executes one simulation synchronously and returns the full report.
// Only configuration-class errors abort; everything else degrades into
// report warnings.
func (s *SimulationService) Run(ctx context.Context, run domain.SimulationRun) (*domain.SimulationReport, error) {
	run.StartDate = history.Day(run.StartDate)
	run.EndDate = history.Day(run.EndDate)

	if run.EndDate.Before(run.StartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s", domain.ErrInvalidDateRange,
			run.StartDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"))
	}

	if len(run.ItemIDs) == 0 {
		ids, err := s.history.ListItemIDs(ctx, run.TenantID)
		if err != nil {
			return nil, fmt.Errorf("resolve item scope: %w", err)
		}
		run.ItemIDs = ids
	}
	if len(run.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTenant, run.TenantID)
	}

	from := run.StartDate.AddDate(0, 0, -historyLookbackDays)

	sales, err := s.history.LoadSales(ctx, run.TenantID, run.ItemIDs, from, run.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}
	snapshots, err := s.history.LoadSnapshots(ctx, run.TenantID, run.ItemIDs, from, run.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load stock snapshots: %w", err)
	}
	products, err := s.products.GetProducts(ctx, run.TenantID, run.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	window := history.NewWindow(sales, snapshots)
	forecasts := forecast.NewCache(s.forecaster, window,
		time.Duration(s.cfg.Forecast.TimeoutSeconds)*time.Second)

	orch, err := simulation.NewOrchestrator(simulation.Config{
		Run:                 run,
		Products:            products,
		History:             window,
		Forecasts:           forecasts,
		Engine:              s.engine,
		WorkerCount:         s.cfg.Simulation.WorkerCount,
		HorizonDays:         s.cfg.Forecast.HorizonDays,
		DefaultLeadTimeDays: s.cfg.Simulation.DefaultLeadTimeDays,
		TargetCoverDays:     s.cfg.Simulation.TargetCoverDays,
		ServiceLevel:        s.cfg.Forecast.ServiceLevel,
	})
	if err != nil {
		return nil, err
	}

	report, err := orch.Run(ctx)
	if err != nil {
		return nil, err
	}
	report.RunID = uuid.New().String()

	if err := s.runs.SaveReport(ctx, report); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to persist simulation report")
	}
	if err := s.reports.Set(ctx, report); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to cache simulation report")
	}
	s.archiveReport(ctx, report)

	return report, nil
}

// GetReport serves a completed report, cache first, then the run store.
func (s *SimulationService) GetReport(ctx context.Context, runID string) (*domain.SimulationReport, error) {
	if report, ok, err := s.reports.Get(ctx, runID); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("report cache get failed")
	}

	report, err := s.runs.GetReport(ctx, runID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, nil
	}

	if err := s.reports.Set(ctx, report); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("report cache set failed")
	}

	return report, nil
}

// ArchiveReport exports a stored report to object storage.
func (s *SimulationService) ArchiveReport(ctx context.Context, runID string) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("report archive is not configured")
	}

	report, err := s.GetReport(ctx, runID)
	if err != nil {
		return "", err
	}
	if report == nil {
		return "", fmt.Errorf("run %s not found", runID)
	}

	key := archiveKey(report)
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report for archive: %w", err)
	}
	if err := s.archive.UploadObject(ctx, key, payload); err != nil {
		return "", err
	}

	return key, nil
}

func (s *SimulationService) archiveReport(ctx context.Context, report *domain.SimulationReport) {
	if s.archive == nil || !s.cfg.Archive.Enabled {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to encode report for archive")
		return
	}
	if err := s.archive.UploadObject(ctx, archiveKey(report), payload); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to archive simulation report")
	}
}

func archiveKey(report *domain.SimulationReport) string {
	return fmt.Sprintf("reports/%s/%s.json", report.Run.TenantID, report.RunID)
}
