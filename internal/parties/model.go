package parties

import (
	"time"

	"github.com/google/uuid"
)

// PartyKind separates customers from suppliers in the shared directory.
type PartyKind string

const (
	KindCustomer PartyKind = "CUSTOMER"
	KindSupplier PartyKind = "SUPPLIER"
)

// Party is a customer or supplier. PaymentTermsDays defaults a
// document's dueDate from its documentDate.
type Party struct {
	ID               uuid.UUID `json:"id"`
	TenantID         string    `json:"tenantId"`
	Kind             PartyKind `json:"kind"`
	Name             string    `json:"name"`
	Email            *string   `json:"email,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	PaymentTermsDays int       `json:"paymentTermsDays"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
