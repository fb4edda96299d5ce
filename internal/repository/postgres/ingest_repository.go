package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/history"
	"github.com/restocklab/replaysim/internal/repository"
)

type ingestRepository struct {
	db *sqlx.DB
}

func NewIngestRepository(db *sqlx.DB) repository.IngestRepository {
	return &ingestRepository{db: db}
}

func (r *ingestRepository) UpsertDailySales(ctx context.Context, tenantID string, rec history.SalesRecord) error {
	query := `
        INSERT INTO daily_sales (tenant_id, item_id, date, units)
        VALUES ($1, $2, $3::date, $4)
        ON CONFLICT (tenant_id, item_id, date) DO UPDATE SET units = EXCLUDED.units
    `
	if _, err := r.db.ExecContext(ctx, query, tenantID, rec.ItemID, rec.Date, rec.Units); err != nil {
		return fmt.Errorf("upsert daily sales: %w", err)
	}
	return nil
}

func (r *ingestRepository) UpsertStockSnapshot(ctx context.Context, tenantID string, snap history.StockSnapshot) error {
	query := `
        INSERT INTO stock_snapshots (tenant_id, item_id, date, units)
        VALUES ($1, $2, $3::date, $4)
        ON CONFLICT (tenant_id, item_id, date) DO UPDATE SET units = EXCLUDED.units
    `
	if _, err := r.db.ExecContext(ctx, query, tenantID, snap.ItemID, snap.Date, snap.Units); err != nil {
		return fmt.Errorf("upsert stock snapshot: %w", err)
	}
	return nil
}

func (r *ingestRepository) UpsertProduct(ctx context.Context, product domain.Product) error {
	query := `
        INSERT INTO products (tenant_id, item_id, name, unit_cost, lead_time_days, safety_buffer_days, min_order_qty)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (tenant_id, item_id) DO UPDATE
        SET name = EXCLUDED.name, unit_cost = EXCLUDED.unit_cost,
            lead_time_days = EXCLUDED.lead_time_days,
            safety_buffer_days = EXCLUDED.safety_buffer_days,
            min_order_qty = EXCLUDED.min_order_qty
    `
	if _, err := r.db.ExecContext(ctx, query,
		product.TenantID, product.ItemID, product.Name,
		product.UnitCost, product.LeadTimeDays, product.SafetyBufferDays, product.MinOrderQty,
	); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
