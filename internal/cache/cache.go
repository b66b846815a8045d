package cache

import (
	"context"
	"errors"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

// ViewCache holds materialized cart views keyed by owner. Mutation paths
// invalidate; only the read path populates.
type ViewCache interface {
	Get(ctx context.Context, owner domain.OwnerKey) (*domain.CartView, error)
	Set(ctx context.Context, owner domain.OwnerKey, view *domain.CartView) error
	Delete(ctx context.Context, owner domain.OwnerKey) error
}

var ErrCacheMiss = errors.New("cache miss")
