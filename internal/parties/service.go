package parties

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Service exposes the customer/supplier directory.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetParty resolves a party; documents use PaymentTermsDays to default
// due dates.
func (s *Service) GetParty(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*Party, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.Get(ctx, tenant, id)
}

// ListParties returns customers or suppliers for a tenant.
func (s *Service) ListParties(ctx context.Context, tenant shared.TenantContext, kind PartyKind) ([]Party, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.List(ctx, tenant, kind)
}

// CreateParty registers a customer or supplier.
func (s *Service) CreateParty(ctx context.Context, tenant shared.TenantContext, party Party) (*Party, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	if party.Name == "" {
		return nil, errors.New("parties: name required")
	}
	if party.Kind != KindCustomer && party.Kind != KindSupplier {
		return nil, errors.New("parties: kind must be CUSTOMER or SUPPLIER")
	}
	if party.PaymentTermsDays < 0 {
		return nil, errors.New("parties: payment terms must not be negative")
	}
	party.ID = uuid.New()
	party.TenantID = tenant.TenantID
	now := time.Now()
	party.CreatedAt = now
	party.UpdatedAt = now
	if err := s.repo.Create(ctx, tenant, party); err != nil {
		return nil, err
	}
	return &party, nil
}
