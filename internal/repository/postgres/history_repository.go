package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/restocklab/replaysim/internal/history"
	"github.com/restocklab/replaysim/internal/repository"
)

type historyRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) LoadSales(ctx context.Context, tenantID string, itemIDs []string, from, to time.Time) ([]history.SalesRecord, error) {
	query := `
        SELECT item_id, date, units
        FROM daily_sales
        WHERE tenant_id = $1 AND date >= $2::date AND date <= $3::date
    `
	args := []interface{}{tenantID, from, to}

	if len(itemIDs) > 0 {
		query += " AND item_id = ANY($4::text[])"
		args = append(args, pq.Array(itemIDs))
	}
	query += " ORDER BY item_id, date"

	var records []history.SalesRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("error loading daily sales: %w", err)
	}

	return records, nil
}

func (r *historyRepository) LoadSnapshots(ctx context.Context, tenantID string, itemIDs []string, from, to time.Time) ([]history.StockSnapshot, error) {
	query := `
        SELECT item_id, date, units
        FROM stock_snapshots
        WHERE tenant_id = $1 AND date >= $2::date AND date <= $3::date
    `
	args := []interface{}{tenantID, from, to}

	if len(itemIDs) > 0 {
		query += " AND item_id = ANY($4::text[])"
		args = append(args, pq.Array(itemIDs))
	}
	query += " ORDER BY item_id, date"

	var snapshots []history.StockSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, fmt.Errorf("error loading stock snapshots: %w", err)
	}

	return snapshots, nil
}

func (r *historyRepository) ListItemIDs(ctx context.Context, tenantID string) ([]string, error) {
	query := `
        SELECT DISTINCT item_id
        FROM daily_sales
        WHERE tenant_id = $1
        ORDER BY item_id
    `

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, tenantID); err != nil {
		return nil, fmt.Errorf("error listing item ids: %w", err)
	}

	return ids, nil
}
