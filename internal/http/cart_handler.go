package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/service"
)

// CartAPI is the slice of the cart service the handlers consume.
type CartAPI interface {
	GetCart(ctx context.Context, owner domain.OwnerKey) (domain.CartView, error)
	AddItem(ctx context.Context, owner domain.OwnerKey, in service.AddItemInput) (domain.CartView, string, error)
	UpdateItemQuantity(ctx context.Context, owner domain.OwnerKey, itemID uuid.UUID, quantity int) (domain.CartView, string, error)
	RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID uuid.UUID) (domain.CartView, string, error)
	MergeGuestCart(ctx context.Context, accountID, sessionID string) (domain.CartView, string, error)
	ValidateCart(ctx context.Context, owner domain.OwnerKey) ([]service.ItemIssue, error)
}

type CartHandler struct {
	cart CartAPI
}

func NewCartHandler(cart CartAPI) *CartHandler {
	return &CartHandler{cart: cart}
}

// AddItemRequest is the one canonical input shape; field names are exact,
// no aliasing.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Colour    string `json:"colour,omitempty"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Cart    domain.CartView `json:"cart"`
	Message string          `json:"message,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.GetCart(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Cart: view})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", "check the request payload")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "product_id must be a valid id", "check the request payload")
		return
	}

	var variantID *uuid.UUID
	if req.VariantID != "" {
		id, err := uuid.Parse(req.VariantID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "variant_id must be a valid id", "check the request payload")
			return
		}
		variantID = &id
	}

	view, msg, err := h.cart.AddItem(r.Context(), ownerFromContext(r.Context()), service.AddItemInput{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Colour:    req.Colour,
	})
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse{Cart: view, Message: msg})
}

func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "item id must be a valid id", "check the URL")
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", "check the request payload")
		return
	}

	view, msg, err := h.cart.UpdateItemQuantity(r.Context(), ownerFromContext(r.Context()), itemID, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: view, Message: msg})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "item id must be a valid id", "check the URL")
		return
	}

	view, msg, err := h.cart.RemoveItem(r.Context(), ownerFromContext(r.Context()), itemID)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: view, Message: msg})
}

// MergeCart folds the guest cart from the session cookie into the signed-in
// account's cart. The front end calls this right after login completes.
func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	if !owner.IsAccount() {
		respondCartError(w, domain.ErrSessionRequired)
		return
	}

	view, msg, err := h.cart.MergeGuestCart(r.Context(), owner.AccountID, guestSessionID(r))
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{Cart: view, Message: msg})
}

type validateResponse struct {
	Valid  bool                `json:"valid"`
	Issues []service.ItemIssue `json:"issues"`
}

// ValidateCart re-checks the current cart without mutating it; checkout
// calls this before charging.
func (h *CartHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	issues, err := h.cart.ValidateCart(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		respondCartError(w, err)
		return
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity == service.SeverityError {
			valid = false
			break
		}
	}
	if issues == nil {
		issues = []service.ItemIssue{}
	}

	respondJSON(w, http.StatusOK, validateResponse{Valid: valid, Issues: issues})
}
