package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a sellable catalog entry. Sale-side document lines carry only
// SellPrice; CostPrice stays with the costing subsystem.
type Item struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  string          `json:"tenantId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	SellPrice decimal.Decimal `json:"sellPrice"`
	CostPrice decimal.Decimal `json:"costPrice"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
