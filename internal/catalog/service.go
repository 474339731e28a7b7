package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Service exposes catalog lookups and item registration.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetItem resolves a catalog item; documents use it to default line
// prices and descriptions.
func (s *Service) GetItem(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*Item, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.Get(ctx, tenant, id)
}

// ListItems returns the tenant's catalog.
func (s *Service) ListItems(ctx context.Context, tenant shared.TenantContext, activeOnly bool) ([]Item, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.List(ctx, tenant, activeOnly)
}

// CreateItem registers a new catalog item.
func (s *Service) CreateItem(ctx context.Context, tenant shared.TenantContext, item Item) (*Item, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	if item.SKU == "" || item.Name == "" {
		return nil, errors.New("catalog: sku and name required")
	}
	if item.SellPrice.IsNegative() || item.CostPrice.IsNegative() {
		return nil, errors.New("catalog: prices must not be negative")
	}
	item.ID = uuid.New()
	item.TenantID = tenant.TenantID
	item.Active = true
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.repo.Create(ctx, tenant, item); err != nil {
		return nil, err
	}
	return &item, nil
}
