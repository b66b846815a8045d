package domain

import "fmt"

// Code is the machine-readable error kind surfaced to callers.
type Code string

const (
	CodeProductNotFound   Code = "PRODUCT_NOT_FOUND"
	CodeVariantNotFound   Code = "VARIANT_NOT_FOUND"
	CodeProductInactive   Code = "PRODUCT_INACTIVE"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity   Code = "INVALID_QUANTITY"
	CodeMaxQuantity       Code = "MAX_QUANTITY_EXCEEDED"
	CodeMaxItems          Code = "MAX_ITEMS_EXCEEDED"
	CodeCartNotFound      Code = "CART_NOT_FOUND"
	CodeCartItemNotFound  Code = "CART_ITEM_NOT_FOUND"
	CodeSessionRequired   Code = "SESSION_REQUIRED"
	CodeInvalidCursor     Code = "INVALID_CURSOR"
	CodeOperationFailed   Code = "OPERATION_FAILED"
)

// CartError is the typed rejection returned for every expected business
// outcome. Hint is remediation copy for presentation layers, distinct from
// the message itself. Available is only set for INSUFFICIENT_STOCK.
type CartError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint"`
	Available int    `json:"available,omitempty"`
}

func (e *CartError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match any two CartErrors with the same code, so
// sentinels below work as comparison targets.
func (e *CartError) Is(target error) bool {
	t, ok := target.(*CartError)
	return ok && t.Code == e.Code
}

// Validation reports whether the error is an expected business rejection
// rather than an infrastructure failure.
func (e *CartError) Validation() bool {
	return e.Code != CodeOperationFailed
}

var (
	ErrProductNotFound = &CartError{
		Code:    CodeProductNotFound,
		Message: "this product could not be found",
		Hint:    "remove this item",
	}
	ErrVariantNotFound = &CartError{
		Code:    CodeVariantNotFound,
		Message: "the selected option is no longer offered",
		Hint:    "choose a different size or colour",
	}
	ErrProductInactive = &CartError{
		Code:    CodeProductInactive,
		Message: "this product is no longer available",
		Hint:    "remove this item",
	}
	ErrOutOfStock = &CartError{
		Code:    CodeOutOfStock,
		Message: "this item is out of stock",
		Hint:    "remove this item or save it for later",
	}
	ErrInvalidQuantity = &CartError{
		Code:    CodeInvalidQuantity,
		Message: fmt.Sprintf("quantity must be between %d and %d", MinQty, MaxQtyPerItem),
		Hint:    "adjust the quantity",
	}
	ErrMaxQuantity = &CartError{
		Code:    CodeMaxQuantity,
		Message: fmt.Sprintf("no more than %d of one item per order", MaxQtyPerItem),
		Hint:    "reduce quantity",
	}
	ErrMaxItems = &CartError{
		Code:    CodeMaxItems,
		Message: fmt.Sprintf("a cart can hold at most %d different items", MaxItemsPerCart),
		Hint:    "remove an item before adding another",
	}
	ErrCartNotFound = &CartError{
		Code:    CodeCartNotFound,
		Message: "cart not found",
		Hint:    "reload the page",
	}
	ErrCartItemNotFound = &CartError{
		Code:    CodeCartItemNotFound,
		Message: "that item is no longer in your cart",
		Hint:    "reload the cart",
	}
	ErrSessionRequired = &CartError{
		Code:    CodeSessionRequired,
		Message: "a session is required for cart operations",
		Hint:    "enable cookies or sign in",
	}
	ErrInvalidCursor = &CartError{
		Code:    CodeInvalidCursor,
		Message: "the page token is not valid",
		Hint:    "start from the first page",
	}
	ErrOperationFailed = &CartError{
		Code:    CodeOperationFailed,
		Message: "something went wrong, please try again",
		Hint:    "retry in a moment",
	}
)

// ErrInsufficientStock builds the rejection for a request that exceeds the
// units currently available.
func ErrInsufficientStock(available int) *CartError {
	return &CartError{
		Code:      CodeInsufficientStock,
		Message:   fmt.Sprintf("only %d left in stock", available),
		Hint:      "reduce quantity",
		Available: available,
	}
}
