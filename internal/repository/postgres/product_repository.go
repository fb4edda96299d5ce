package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/repository"
)

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProducts(ctx context.Context, tenantID string, itemIDs []string) (map[string]domain.Product, error) {
	query := `
        SELECT tenant_id, item_id, name, unit_cost, lead_time_days, safety_buffer_days, min_order_qty
        FROM products
        WHERE tenant_id = $1
    `
	args := []interface{}{tenantID}

	if len(itemIDs) > 0 {
		query += " AND item_id = ANY($2::text[])"
		args = append(args, pq.Array(itemIDs))
	}

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("error loading products: %w", err)
	}

	out := make(map[string]domain.Product, len(products))
	for _, p := range products {
		out[p.ItemID] = p
	}

	return out, nil
}
