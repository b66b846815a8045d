// Package sweeper removes abandoned guest carts. Scheduling lives outside
// the process; a run captures its candidate set once, so carts touched after
// capture survive until the next run.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

// Store is the slice of the cart store the sweeper needs.
type Store interface {
	ExpiredGuestCartIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	DeleteCarts(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type Sweeper struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
}

func NewSweeper(store Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, retention: domain.GuestRetention, logger: logger}
}

// Sweep deletes guest carts idle since before now minus the retention
// window. Account carts are never touched. Returns the number of carts
// removed.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.retention)

	ids, err := s.store.ExpiredGuestCartIDs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("capturing expired guest carts: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Info("no expired guest carts", "cutoff", cutoff)
		return 0, nil
	}

	deleted, err := s.store.DeleteCarts(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting expired guest carts: %w", err)
	}

	s.logger.Info("swept expired guest carts",
		"candidates", len(ids), "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
