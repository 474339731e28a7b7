package parties

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Repository is the party directory data access port.
type Repository interface {
	Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*Party, error)
	List(ctx context.Context, tenant shared.TenantContext, kind PartyKind) ([]Party, error)
	Create(ctx context.Context, tenant shared.TenantContext, party Party) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed party repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const partyColumns = `id, tenant_id, kind, name, email, phone, payment_terms_days, created_at, updated_at`

func (r *repository) Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*Party, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE tenant_id = $1 AND id = $2`,
		tenant.TenantID, id)
	party, err := scanParty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("parties: get party: %w", err)
	}
	return party, nil
}

func (r *repository) List(ctx context.Context, tenant shared.TenantContext, kind PartyKind) ([]Party, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE tenant_id = $1 AND kind = $2 ORDER BY name`,
		tenant.TenantID, kind)
	if err != nil {
		return nil, fmt.Errorf("parties: list: %w", err)
	}
	defer rows.Close()

	var result []Party
	for rows.Next() {
		party, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("parties: scan: %w", err)
		}
		result = append(result, *party)
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, tenant shared.TenantContext, party Party) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO parties (id, tenant_id, kind, name, email, phone, payment_terms_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, party.ID, tenant.TenantID, party.Kind, party.Name, party.Email, party.Phone, party.PaymentTermsDays)
	if err != nil {
		return fmt.Errorf("parties: create: %w", err)
	}
	return nil
}

func scanParty(row pgx.Row) (*Party, error) {
	var party Party
	err := row.Scan(&party.ID, &party.TenantID, &party.Kind, &party.Name,
		&party.Email, &party.Phone, &party.PaymentTermsDays, &party.CreatedAt, &party.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &party, nil
}
