package repository

import (
	"context"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/history"
)

// HistoryRepository reads the historical demand store. An empty itemIDs
// slice means every item for the tenant.
type HistoryRepository interface {
	LoadSales(ctx context.Context, tenantID string, itemIDs []string, from, to time.Time) ([]history.SalesRecord, error)
	LoadSnapshots(ctx context.Context, tenantID string, itemIDs []string, from, to time.Time) ([]history.StockSnapshot, error)
	ListItemIDs(ctx context.Context, tenantID string) ([]string, error)
}

// ProductRepository reads supplier/reference data per item.
type ProductRepository interface {
	GetProducts(ctx context.Context, tenantID string, itemIDs []string) (map[string]domain.Product, error)
}

// RunRepository persists completed simulation reports.
type RunRepository interface {
	SaveReport(ctx context.Context, report *domain.SimulationReport) error
	GetReport(ctx context.Context, runID string) (*domain.SimulationReport, error)
}

// IngestRepository writes historical facts arriving from ingestion.
type IngestRepository interface {
	UpsertDailySales(ctx context.Context, tenantID string, rec history.SalesRecord) error
	UpsertStockSnapshot(ctx context.Context, tenantID string, snap history.StockSnapshot) error
	UpsertProduct(ctx context.Context, product domain.Product) error
}
