// Package oracle is the read-only price and stock authority consulted before
// any cart mutation is persisted. It never mutates; callers decide how to
// act on a quote.
package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

// CatalogReader defines the catalog operations the oracle consumes.
// Consumers define this interface, not the storage implementation.
type CatalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)
	GetVariant(ctx context.Context, id uuid.UUID) (domain.Variant, error)
	// GetStock is variant-scoped when variantID is set, else product-scoped.
	GetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error)
}

// Quote is the authoritative answer for one (product, variant) pair.
type Quote struct {
	UnitPriceCents int64
	Available      int
	ProductName    string
}

// FailOpenStockUnits is the stock assumed when a stock lookup fails and the
// oracle is configured to fail open. Failing open keeps the store selling
// through a backing-store outage at the risk of overselling; it is off by
// default.
const FailOpenStockUnits = 9999

type Config struct {
	// FailOpenStock substitutes FailOpenStockUnits when the stock query
	// itself errors, instead of surfacing the failure.
	FailOpenStock bool
}

type Oracle struct {
	catalog       CatalogReader
	failOpenStock bool
	logger        *slog.Logger
	now           func() time.Time

	products *gobreaker.CircuitBreaker[domain.Product]
	variants *gobreaker.CircuitBreaker[domain.Variant]
	stock    *gobreaker.CircuitBreaker[int]
}

func New(catalog CatalogReader, cfg Config, logger *slog.Logger) *Oracle {
	return &Oracle{
		catalog:       catalog,
		failOpenStock: cfg.FailOpenStock,
		logger:        logger,
		now:           time.Now,
		products:      gobreaker.NewCircuitBreaker[domain.Product](breakerSettings("catalog-products")),
		variants:      gobreaker.NewCircuitBreaker[domain.Variant](breakerSettings("catalog-variants")),
		stock:         gobreaker.NewCircuitBreaker[int](breakerSettings("catalog-stock")),
	}
}

func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		// Business rejections are healthy responses; only infrastructure
		// failures count toward tripping.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ce *domain.CartError
			return errors.As(err, &ce) && ce.Validation()
		},
	}
}

// Lookup resolves the current unit price and available units for a product
// and optional variant. Not-found and inactive outcomes come back as typed
// CartErrors; infrastructure failures collapse to ErrOperationFailed after
// being logged here.
func (o *Oracle) Lookup(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Quote, error) {
	product, err := o.products.Execute(func() (domain.Product, error) {
		return o.catalog.GetProduct(ctx, productID)
	})
	if err != nil {
		return Quote{}, o.classify(ctx, "product lookup", err)
	}
	if !product.Sellable() {
		return Quote{}, domain.ErrProductInactive
	}

	price := product.EffectivePriceCents(o.now())

	if variantID != nil {
		variant, err := o.variants.Execute(func() (domain.Variant, error) {
			return o.catalog.GetVariant(ctx, *variantID)
		})
		if err != nil {
			return Quote{}, o.classify(ctx, "variant lookup", err)
		}
		// A variant that resolves but belongs to another product or is no
		// longer offered is indistinguishable from a missing one to the
		// shopper.
		if variant.ProductID != productID || !variant.Sellable() {
			return Quote{}, domain.ErrVariantNotFound
		}
		price += variant.PriceDeltaCents
	}

	available, err := o.stock.Execute(func() (int, error) {
		return o.catalog.GetStock(ctx, productID, variantID)
	})
	if err != nil {
		if o.failOpenStock {
			o.logger.WarnContext(ctx, "stock lookup failed, failing open",
				"product_id", productID, "error", err)
			available = FailOpenStockUnits
		} else {
			return Quote{}, o.classify(ctx, "stock lookup", err)
		}
	}

	return Quote{
		UnitPriceCents: price,
		Available:      available,
		ProductName:    product.Name,
	}, nil
}

// classify passes typed business outcomes through verbatim and collapses
// everything else to ErrOperationFailed.
func (o *Oracle) classify(ctx context.Context, op string, err error) error {
	var ce *domain.CartError
	if errors.As(err, &ce) && ce.Validation() {
		return ce
	}
	o.logger.ErrorContext(ctx, "oracle "+op+" failed", "error", err)
	return domain.ErrOperationFailed
}
