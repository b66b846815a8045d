package domain

import (
	"time"

	"github.com/google/uuid"
)

// Policy constants for cart mutations. Quantities are per line item,
// money is integer cents.
const (
	MinQty          = 1
	MaxQtyPerItem   = 99
	MaxItemsPerCart = 50

	FreeShippingThresholdCents int64 = 7500
	FlatShippingCents          int64 = 599
	TaxRate                          = 0.08

	GuestRetention = 7 * 24 * time.Hour
)

// OwnerKey identifies who a cart belongs to: a signed-in account or an
// anonymous session, never both.
type OwnerKey struct {
	AccountID string
	SessionID string
}

func AccountOwner(accountID string) OwnerKey {
	return OwnerKey{AccountID: accountID}
}

func GuestOwner(sessionID string) OwnerKey {
	return OwnerKey{SessionID: sessionID}
}

func (k OwnerKey) IsAccount() bool { return k.AccountID != "" }

func (k OwnerKey) IsGuest() bool { return k.AccountID == "" && k.SessionID != "" }

func (k OwnerKey) Valid() bool {
	return (k.AccountID != "") != (k.SessionID != "")
}

// String returns a stable key suitable for cache keys and logs.
func (k OwnerKey) String() string {
	if k.AccountID != "" {
		return "acct:" + k.AccountID
	}
	return "sess:" + k.SessionID
}

type Cart struct {
	ID        uuid.UUID
	AccountID string
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Cart) Owner() OwnerKey {
	return OwnerKey{AccountID: c.AccountID, SessionID: c.SessionID}
}

// CartItem is one (product, variant-or-size) line in a cart. UnitPriceCents
// is the price captured at the last successful validation; it is display
// data only and must be re-derived before checkout.
type CartItem struct {
	ID             uuid.UUID
	CartID         uuid.UUID
	ProductID      uuid.UUID
	VariantID      *uuid.UUID
	Quantity       int
	UnitPriceCents int64
	Size           string
	Colour         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SelectorKey is the duplicate-detection key within one cart: the variant id
// when one is set, else the selected size.
func (i CartItem) SelectorKey() string {
	if i.VariantID != nil {
		return "v:" + i.VariantID.String()
	}
	return "s:" + i.Size
}

// NewItem carries the validated inputs for an add. The unit price always
// comes from validation, never from the client.
type NewItem struct {
	ProductID      uuid.UUID
	VariantID      *uuid.UUID
	Quantity       int
	UnitPriceCents int64
	Size           string
	Colour         string
}

// Totals is the derived money summary for a cart.
type Totals struct {
	SubtotalCents             int64 `json:"subtotal_cents"`
	ShippingCents             int64 `json:"shipping_cents"`
	TaxCents                  int64 `json:"tax_cents"`
	TotalCents                int64 `json:"total_cents"`
	AmountToFreeShippingCents int64 `json:"amount_to_free_shipping_cents"`
}

// ViewItem is a line item joined with current product display data.
type ViewItem struct {
	CartItem
	ProductName    string `json:"product_name"`
	ImageURL       string `json:"image_url"`
	AvailableStock int    `json:"available_stock"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// CartView is the fully materialized cart returned by every operation.
type CartView struct {
	ID        uuid.UUID  `json:"id"`
	AccountID string     `json:"account_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Items     []ViewItem `json:"items"`
	Totals    Totals     `json:"totals"`
	UpdatedAt time.Time  `json:"updated_at"`
}
