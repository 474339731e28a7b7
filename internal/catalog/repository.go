package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Repository is the catalog data access port.
type Repository interface {
	Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*Item, error)
	List(ctx context.Context, tenant shared.TenantContext, activeOnly bool) ([]Item, error)
	Create(ctx context.Context, tenant shared.TenantContext, item Item) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const itemColumns = `id, tenant_id, sku, name, unit, sell_price, cost_price, active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*Item, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM catalog_items WHERE tenant_id = $1 AND id = $2`,
		tenant.TenantID, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get item: %w", err)
	}
	return item, nil
}

func (r *repository) List(ctx context.Context, tenant shared.TenantContext, activeOnly bool) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_items WHERE tenant_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY sku`

	rows, err := r.pool.Query(ctx, query, tenant.TenantID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *repository) Create(ctx context.Context, tenant shared.TenantContext, item Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO catalog_items (id, tenant_id, sku, name, unit, sell_price, cost_price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, item.ID, tenant.TenantID, item.SKU, item.Name, item.Unit, item.SellPrice, item.CostPrice, item.Active)
	if err != nil {
		return fmt.Errorf("catalog: create item: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.TenantID, &item.SKU, &item.Name, &item.Unit,
		&item.SellPrice, &item.CostPrice, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
