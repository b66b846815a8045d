package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/cache"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/repository"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/totals"
)

const cacheInvalidateTimeout = time.Second

// AddItemInput is the one canonical input shape for an add. There is
// deliberately no price field; the price is derived during validation.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	Size      string
	Colour    string
}

// CartService orchestrates validate -> persist -> recompute -> invalidate
// for every cart mutation. It owns no cart state between calls; everything
// lives in the store.
type CartService struct {
	store     repository.CartStore
	validator *Validator
	cache     cache.ViewCache
	sfg       singleflight.Group // prevents view cache stampede
	logger    *slog.Logger
}

func NewCartService(store repository.CartStore, validator *Validator, viewCache cache.ViewCache, logger *slog.Logger) *CartService {
	return &CartService{
		store:     store,
		validator: validator,
		cache:     viewCache,
		logger:    logger,
	}
}

// GetCart returns the owner's materialized cart. A shopper who never mutated
// gets an empty view; carts are only created on first mutation.
func (s *CartService) GetCart(ctx context.Context, owner domain.OwnerKey) (domain.CartView, error) {
	if !owner.Valid() {
		return domain.CartView{}, domain.ErrSessionRequired
	}

	v, err, _ := s.sfg.Do(owner.String(), func() (interface{}, error) {
		view, err := s.cache.Get(ctx, owner)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cart cache get failed", "owner", owner.String(), "error", err)
		}

		cart, err := s.store.GetByOwner(ctx, owner)
		if errors.Is(err, domain.ErrCartNotFound) {
			// same totals shape as a cart that exists but holds nothing
			return &domain.CartView{
				AccountID: owner.AccountID,
				SessionID: owner.SessionID,
				Totals:    totals.Compute(nil),
			}, nil
		}
		if err != nil {
			return nil, err
		}

		computed, err := s.store.ComputeCart(ctx, cart.ID)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Set(context.Background(), owner, &computed); err != nil {
				s.logger.Warn("cart cache set failed", "owner", owner.String(), "error", err)
			}
		}()

		return &computed, nil
	})
	if err != nil {
		return domain.CartView{}, s.failure(ctx, "get cart", err)
	}

	return *(v.(*domain.CartView)), nil
}

// AddItem validates the addition, lazily creates the owner's cart, persists
// the line and returns the recomputed view with a status message.
func (s *CartService) AddItem(ctx context.Context, owner domain.OwnerKey, in AddItemInput) (domain.CartView, string, error) {
	if !owner.Valid() {
		return domain.CartView{}, "", domain.ErrSessionRequired
	}

	// The stock gate applies to the summed quantity, so re-read the current
	// line instead of trusting any client snapshot. A cart that does not
	// exist yet holds zero of everything and is only created once validation
	// accepted.
	alreadyInCart := 0
	cart, err := s.store.GetByOwner(ctx, owner)
	switch {
	case err == nil:
		line, err := s.store.FindLine(ctx, cart.ID, in.ProductID, in.VariantID, in.Size)
		if err == nil {
			alreadyInCart = line.Quantity
		} else if !errors.Is(err, domain.ErrCartItemNotFound) {
			return domain.CartView{}, "", s.failure(ctx, "find cart line", err)
		}
	case errors.Is(err, domain.ErrCartNotFound):
		// first mutation for this owner
	default:
		return domain.CartView{}, "", s.failure(ctx, "get cart", err)
	}

	accepted, err := s.validator.ValidateAddition(ctx, in.ProductID, in.VariantID, in.Quantity, alreadyInCart)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "validate addition", err)
	}

	cart, err = s.store.GetOrCreate(ctx, owner)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "get or create cart", err)
	}

	view, err := s.store.AddItem(ctx, cart.ID, domain.NewItem{
		ProductID:      in.ProductID,
		VariantID:      in.VariantID,
		Quantity:       in.Quantity,
		UnitPriceCents: accepted.UnitPriceCents,
		Size:           in.Size,
		Colour:         in.Colour,
	})
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "add item", err)
	}

	s.invalidate(owner)
	return view, fmt.Sprintf("Added %s to your cart", accepted.ProductName), nil
}

// UpdateItemQuantity replaces a line's quantity after re-validating against
// the line's current state, not a client snapshot.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner domain.OwnerKey, itemID uuid.UUID, quantity int) (domain.CartView, string, error) {
	if !owner.Valid() {
		return domain.CartView{}, "", domain.ErrSessionRequired
	}

	cart, err := s.store.GetByOwner(ctx, owner)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "get cart", err)
	}

	item, err := s.store.GetItem(ctx, cart.ID, itemID)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "get cart item", err)
	}

	if err := s.validator.ValidateQuantityUpdate(ctx, item.ProductID, item.VariantID, quantity, item.Quantity); err != nil {
		return domain.CartView{}, "", s.failure(ctx, "validate quantity update", err)
	}

	view, err := s.store.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "update item quantity", err)
	}

	s.invalidate(owner)
	return view, "Quantity updated", nil
}

// RemoveItem deletes a line. Removing a line that is already gone is not an
// error; the recomputed view is returned either way.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID uuid.UUID) (domain.CartView, string, error) {
	if !owner.Valid() {
		return domain.CartView{}, "", domain.ErrSessionRequired
	}

	cart, err := s.store.GetByOwner(ctx, owner)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "get cart", err)
	}

	view, err := s.store.RemoveItem(ctx, cart.ID, itemID)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "remove item", err)
	}

	s.invalidate(owner)
	return view, "Item removed from your cart", nil
}

// MergeGuestCart folds a guest session's cart into the account cart at
// login. On failure both carts are left as they were.
func (s *CartService) MergeGuestCart(ctx context.Context, accountID, sessionID string) (domain.CartView, string, error) {
	if accountID == "" {
		return domain.CartView{}, "", domain.ErrSessionRequired
	}

	// No anonymous session means nothing to fold in; the account cart is
	// returned as-is.
	if sessionID == "" {
		view, err := s.GetCart(ctx, domain.AccountOwner(accountID))
		if err != nil {
			return domain.CartView{}, "", err
		}
		return view, "Your cart is ready", nil
	}

	view, err := s.store.MergeGuestCart(ctx, accountID, sessionID)
	if err != nil {
		return domain.CartView{}, "", s.failure(ctx, "merge guest cart", err)
	}

	s.invalidate(domain.AccountOwner(accountID))
	s.invalidate(domain.GuestOwner(sessionID))
	return view, "Your cart has been carried over", nil
}

// ValidateCart re-checks the owner's current cart against the oracle without
// mutating it; checkout consumes the findings before charging.
func (s *CartService) ValidateCart(ctx context.Context, owner domain.OwnerKey) ([]ItemIssue, error) {
	if !owner.Valid() {
		return nil, domain.ErrSessionRequired
	}

	cart, err := s.store.GetByOwner(ctx, owner)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.failure(ctx, "get cart", err)
	}

	items, err := s.store.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, s.failure(ctx, "list cart items", err)
	}

	issues, err := s.validator.ValidateCart(ctx, items)
	if err != nil {
		return nil, s.failure(ctx, "validate cart", err)
	}
	return issues, nil
}

// ClearPurchased empties the account cart after checkout completed; invoked
// by the checkout event consumer.
func (s *CartService) ClearPurchased(ctx context.Context, accountID string) error {
	owner := domain.AccountOwner(accountID)
	if err := s.store.ClearItems(ctx, owner); err != nil {
		return s.failure(ctx, "clear purchased cart", err)
	}
	s.invalidate(owner)
	return nil
}

func (s *CartService) invalidate(owner domain.OwnerKey) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheInvalidateTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.Warn("cart cache invalidate failed", "owner", owner.String(), "error", err)
	}
}

// failure passes business rejections through untouched and collapses
// everything else to OperationFailed, logged here with full context and
// never surfaced to the caller.
func (s *CartService) failure(ctx context.Context, op string, err error) error {
	var ce *domain.CartError
	if errors.As(err, &ce) && ce.Validation() {
		return ce
	}
	s.logger.ErrorContext(ctx, "cart operation failed", "op", op, "error", err)
	return domain.ErrOperationFailed
}
