package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/oracle"
)

// PriceStockOracle is the slice of the oracle the validator consumes.
// Consumers define this interface, not the oracle implementation.
type PriceStockOracle interface {
	Lookup(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (oracle.Quote, error)
}

// Acceptance carries the oracle-derived facts forward into persistence. The
// unit price here is the only price the store is ever handed; a
// caller-supplied price never reaches a cart row.
type Acceptance struct {
	UnitPriceCents int64
	Available      int
	ProductName    string
}

// Validator wraps the oracle with cart business rules. It is the decision
// boundary: all monetary and availability truth flows through here before
// the store writes anything.
type Validator struct {
	oracle PriceStockOracle
}

func NewValidator(o PriceStockOracle) *Validator {
	return &Validator{oracle: o}
}

// ValidateAddition decides whether requested more units of a product/variant
// may enter a cart that already holds alreadyInCart of it. Stock and the
// per-item bound are checked against the summed quantity, so adding 2 on top
// of 3 with 4 available is rejected, not clamped.
func (v *Validator) ValidateAddition(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, requested, alreadyInCart int) (Acceptance, error) {
	if requested < domain.MinQty {
		return Acceptance{}, domain.ErrInvalidQuantity
	}
	total := requested + alreadyInCart
	if total > domain.MaxQtyPerItem {
		return Acceptance{}, domain.ErrMaxQuantity
	}

	quote, err := v.oracle.Lookup(ctx, productID, variantID)
	if err != nil {
		return Acceptance{}, err
	}

	if quote.Available <= 0 {
		return Acceptance{}, domain.ErrOutOfStock
	}
	if total > quote.Available {
		return Acceptance{}, domain.ErrInsufficientStock(quote.Available)
	}

	return Acceptance{
		UnitPriceCents: quote.UnitPriceCents,
		Available:      quote.Available,
		ProductName:    quote.ProductName,
	}, nil
}

// ValidateQuantityUpdate applies the same bounds as an addition but only
// re-checks stock when the quantity is increasing; a decrease can never
// newly exceed availability.
func (v *Validator) ValidateQuantityUpdate(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, newQuantity, currentQuantity int) error {
	if newQuantity < domain.MinQty {
		return domain.ErrInvalidQuantity
	}
	if newQuantity > domain.MaxQtyPerItem {
		return domain.ErrMaxQuantity
	}
	if newQuantity <= currentQuantity {
		return nil
	}

	quote, err := v.oracle.Lookup(ctx, productID, variantID)
	if err != nil {
		return err
	}
	if quote.Available <= 0 {
		return domain.ErrOutOfStock
	}
	if newQuantity > quote.Available {
		return domain.ErrInsufficientStock(quote.Available)
	}
	return nil
}

// CodePriceChanged marks a snapshot line whose captured price no longer
// matches the oracle. It is advisory, not a rejection.
const CodePriceChanged = domain.Code("PRICE_CHANGED")

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ItemIssue is one finding from a snapshot validation.
type ItemIssue struct {
	ItemID            uuid.UUID   `json:"item_id"`
	ProductID         uuid.UUID   `json:"product_id"`
	Code              domain.Code `json:"code"`
	Severity          Severity    `json:"severity"`
	Message           string      `json:"message"`
	Hint              string      `json:"hint"`
	Available         int         `json:"available,omitempty"`
	CurrentPriceCents int64       `json:"current_price_cents,omitempty"`
}

// ValidateCart re-checks every line of a cart snapshot against the oracle
// without mutating anything. Checkout runs this before charging so stale
// cached prices and exhausted stock surface as structured findings instead
// of failed orders.
func (v *Validator) ValidateCart(ctx context.Context, items []domain.CartItem) ([]ItemIssue, error) {
	var issues []ItemIssue

	for _, item := range items {
		quote, err := v.oracle.Lookup(ctx, item.ProductID, item.VariantID)
		if err != nil {
			var ce *domain.CartError
			if !errors.As(err, &ce) || !ce.Validation() {
				return nil, err
			}
			issues = append(issues, ItemIssue{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Code:      ce.Code,
				Severity:  SeverityError,
				Message:   ce.Message,
				Hint:      ce.Hint,
			})
			continue
		}

		if quote.Available <= 0 {
			issues = append(issues, ItemIssue{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Code:      domain.CodeOutOfStock,
				Severity:  SeverityError,
				Message:   domain.ErrOutOfStock.Message,
				Hint:      domain.ErrOutOfStock.Hint,
			})
		} else if item.Quantity > quote.Available {
			reject := domain.ErrInsufficientStock(quote.Available)
			issues = append(issues, ItemIssue{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Code:      reject.Code,
				Severity:  SeverityError,
				Message:   reject.Message,
				Hint:      reject.Hint,
				Available: quote.Available,
			})
		}

		if quote.UnitPriceCents != item.UnitPriceCents {
			issues = append(issues, ItemIssue{
				ItemID:            item.ID,
				ProductID:         item.ProductID,
				Code:              CodePriceChanged,
				Severity:          SeverityWarning,
				Message:           "the price of this item has changed",
				Hint:              "review the updated price",
				CurrentPriceCents: quote.UnitPriceCents,
			})
		}
	}

	return issues, nil
}
