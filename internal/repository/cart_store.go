package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/totals"
)

// uniqueViolation is the postgres error code raised when the unique owner
// index rejects a concurrent duplicate insert.
const uniqueViolation = "23505"

func ownerColumn(owner domain.OwnerKey) (col, key string) {
	if owner.IsAccount() {
		return "account_id", owner.AccountID
	}
	return "session_id", owner.SessionID
}

// GetOrCreate returns the owner's cart, creating it on first access. Two
// near-simultaneous first requests race on the unique owner index; the loser
// of the insert re-selects the winner's row instead of failing.
func (r *Repository) GetOrCreate(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error) {
	cart, err := r.GetByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, err
	}

	cart, err = r.insertCart(ctx, r.db, owner)
	if err == nil {
		return cart, nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return r.GetByOwner(ctx, owner)
	}
	return domain.Cart{}, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repository) insertCart(ctx context.Context, q execer, owner domain.OwnerKey) (domain.Cart, error) {
	cart := domain.Cart{
		ID:        uuid.New(),
		AccountID: owner.AccountID,
		SessionID: owner.SessionID,
	}

	query := `INSERT INTO carts (id, account_id, session_id, created_at, updated_at)
	          VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NOW(), NOW())
	          RETURNING created_at, updated_at`
	err := q.QueryRowContext(ctx, query, cart.ID, cart.AccountID, cart.SessionID).
		Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("insert cart: %w", err)
	}
	return cart, nil
}

func (r *Repository) GetByOwner(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error) {
	return getCartByOwner(ctx, r.db, owner)
}

func getCartByOwner(ctx context.Context, q execer, owner domain.OwnerKey) (domain.Cart, error) {
	col, key := ownerColumn(owner)
	query := fmt.Sprintf(`SELECT id, COALESCE(account_id, ''), COALESCE(session_id, ''), created_at, updated_at
	          FROM carts WHERE %s = $1`, col)

	var cart domain.Cart
	err := q.QueryRowContext(ctx, query, key).
		Scan(&cart.ID, &cart.AccountID, &cart.SessionID, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart by owner: %w", err)
	}
	return cart, nil
}

func (r *Repository) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (domain.CartItem, error) {
	query := `SELECT id, cart_id, product_id, variant_id, quantity, unit_price_cents,
	                 COALESCE(size, ''), COALESCE(colour, ''), created_at, updated_at
	          FROM cart_items WHERE id = $1 AND cart_id = $2`

	var it domain.CartItem
	err := r.db.QueryRowContext(ctx, query, itemID, cartID).Scan(
		&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Quantity,
		&it.UnitPriceCents, &it.Size, &it.Colour, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartItem{}, domain.ErrCartItemNotFound
	}
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("get cart item: %w", err)
	}
	return it, nil
}

// FindLine locates the line matching the (product, variant-or-size)
// duplicate-detection key, if any.
func (r *Repository) FindLine(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, size string) (domain.CartItem, error) {
	base := `SELECT id, cart_id, product_id, variant_id, quantity, unit_price_cents,
	                COALESCE(size, ''), COALESCE(colour, ''), created_at, updated_at
	         FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	var (
		it  domain.CartItem
		err error
	)
	if variantID != nil {
		err = r.db.QueryRowContext(ctx, base+` AND variant_id = $3`, cartID, productID, *variantID).Scan(
			&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Quantity,
			&it.UnitPriceCents, &it.Size, &it.Colour, &it.CreatedAt, &it.UpdatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, base+` AND variant_id IS NULL AND COALESCE(size, '') = $3`, cartID, productID, size).Scan(
			&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Quantity,
			&it.UnitPriceCents, &it.Size, &it.Colour, &it.CreatedAt, &it.UpdatedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartItem{}, domain.ErrCartItemNotFound
	}
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("find cart line: %w", err)
	}
	return it, nil
}

func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	return listItems(ctx, r.db, cartID, false)
}

func listItems(ctx context.Context, q execer, cartID uuid.UUID, lock bool) ([]domain.CartItem, error) {
	query := `SELECT id, cart_id, product_id, variant_id, quantity, unit_price_cents,
	                 COALESCE(size, ''), COALESCE(colour, ''), created_at, updated_at
	          FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Quantity,
			&it.UnitPriceCents, &it.Size, &it.Colour, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddItem merges into an existing (product, variant-or-size) line or inserts
// a new one, re-checking the quantity bound against the summed quantity and
// the distinct-line ceiling before any write sticks.
func (r *Repository) AddItem(ctx context.Context, cartID uuid.UUID, item domain.NewItem) (domain.CartView, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("begin add item: %w", err)
	}
	defer tx.Rollback()

	if err := addItemTx(ctx, tx, cartID, item); err != nil {
		return domain.CartView{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CartView{}, fmt.Errorf("commit add item: %w", err)
	}

	return r.ComputeCart(ctx, cartID)
}

// addItemTx holds the duplicate-merging logic shared by AddItem and merge
// replay. The existing line is locked so two concurrent adds of the same
// line serialize on the summed-quantity check.
func addItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, item domain.NewItem) error {
	var (
		existingID  uuid.UUID
		existingQty int
		err         error
	)
	if item.VariantID != nil {
		err = tx.QueryRowContext(ctx,
			`SELECT id, quantity FROM cart_items
			 WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3 FOR UPDATE`,
			cartID, item.ProductID, *item.VariantID).Scan(&existingID, &existingQty)
	} else {
		err = tx.QueryRowContext(ctx,
			`SELECT id, quantity FROM cart_items
			 WHERE cart_id = $1 AND product_id = $2 AND variant_id IS NULL AND COALESCE(size, '') = $3 FOR UPDATE`,
			cartID, item.ProductID, item.Size).Scan(&existingID, &existingQty)
	}

	switch {
	case err == nil:
		sum := existingQty + item.Quantity
		if sum > domain.MaxQtyPerItem {
			return domain.ErrMaxQuantity
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = $1, unit_price_cents = $2, updated_at = NOW() WHERE id = $3`,
			sum, item.UnitPriceCents, existingID)
		if err != nil {
			return fmt.Errorf("update merged line: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&count); err != nil {
			return fmt.Errorf("count cart items: %w", err)
		}
		if count >= domain.MaxItemsPerCart {
			return domain.ErrMaxItems
		}
		if item.Quantity > domain.MaxQtyPerItem {
			return domain.ErrMaxQuantity
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity, unit_price_cents, size, colour, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NOW(), NOW())`,
			uuid.New(), cartID, item.ProductID, item.VariantID, item.Quantity,
			item.UnitPriceCents, item.Size, item.Colour)
		if err != nil {
			return fmt.Errorf("insert line: %w", err)
		}

	default:
		return fmt.Errorf("find existing line: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (domain.CartView, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2 AND cart_id = $3`,
		quantity, itemID, cartID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("update item quantity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.CartView{}, fmt.Errorf("update item quantity: %w", err)
	}
	if n == 0 {
		// line vanished, likely removed concurrently
		return domain.CartView{}, domain.ErrCartItemNotFound
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return domain.CartView{}, fmt.Errorf("touch cart: %w", err)
	}
	return r.ComputeCart(ctx, cartID)
}

// RemoveItem deletes the line if it still exists and returns the recomputed
// view either way.
func (r *Repository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (domain.CartView, error) {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("remove item: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return domain.CartView{}, fmt.Errorf("touch cart: %w", err)
	}
	return r.ComputeCart(ctx, cartID)
}

// MergeGuestCart folds the guest cart into the account cart inside one
// transaction. The guest lines are captured under a row lock inside that
// transaction and only the captured rows are deleted, each one after it
// replayed cleanly; any failure rolls the whole merge back with the guest
// cart intact.
func (r *Repository) MergeGuestCart(ctx context.Context, accountID, sessionID string) (domain.CartView, error) {
	accountOwner := domain.AccountOwner(accountID)

	guest, err := r.GetByOwner(ctx, domain.GuestOwner(sessionID))
	if errors.Is(err, domain.ErrCartNotFound) {
		cart, err := r.GetOrCreate(ctx, accountOwner)
		if err != nil {
			return domain.CartView{}, err
		}
		return r.ComputeCart(ctx, cart.ID)
	}
	if err != nil {
		return domain.CartView{}, err
	}

	// The account cart must exist before the transaction so a concurrent
	// first-access race resolves through the usual insert-or-select.
	account, err := r.GetOrCreate(ctx, accountOwner)
	if err != nil {
		return domain.CartView{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	guestItems, err := listItems(ctx, tx, guest.ID, true)
	if err != nil {
		return domain.CartView{}, err
	}

	if r.mergeCaptureHook != nil {
		r.mergeCaptureHook()
	}

	replayed := make([]uuid.UUID, 0, len(guestItems))
	for _, gi := range guestItems {
		replay := domain.NewItem{
			ProductID:      gi.ProductID,
			VariantID:      gi.VariantID,
			Quantity:       gi.Quantity,
			UnitPriceCents: gi.UnitPriceCents,
			Size:           gi.Size,
			Colour:         gi.Colour,
		}
		if err := addItemTx(ctx, tx, account.ID, replay); err != nil {
			return domain.CartView{}, fmt.Errorf("merge replay: %w", err)
		}
		replayed = append(replayed, gi.ID)
	}

	if len(replayed) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE id = ANY($1)`, pq.Array(replayed)); err != nil {
			return domain.CartView{}, fmt.Errorf("delete replayed guest items: %w", err)
		}
	}

	// A line that landed in the guest cart after capture was never
	// replayed, so the cart row is only discarded once no lines remain;
	// a straggler keeps the cart and merges on the next login.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM carts WHERE id = $1
		   AND NOT EXISTS (SELECT 1 FROM cart_items WHERE cart_id = $1)`, guest.ID); err != nil {
		return domain.CartView{}, fmt.Errorf("delete guest cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.CartView{}, fmt.Errorf("commit merge: %w", err)
	}

	return r.ComputeCart(ctx, account.ID)
}

// ComputeCart is the single place cart rows are joined to catalog display
// data, so the view never drifts across call sites.
func (r *Repository) ComputeCart(ctx context.Context, cartID uuid.UUID) (domain.CartView, error) {
	var view domain.CartView
	var accountID, sessionID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, session_id, updated_at FROM carts WHERE id = $1`, cartID).
		Scan(&view.ID, &accountID, &sessionID, &view.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartView{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.CartView{}, fmt.Errorf("get cart: %w", err)
	}
	view.AccountID = accountID.String
	view.SessionID = sessionID.String

	query := `SELECT i.id, i.cart_id, i.product_id, i.variant_id, i.quantity, i.unit_price_cents,
	                 COALESCE(i.size, ''), COALESCE(i.colour, ''), i.created_at, i.updated_at,
	                 p.name, p.stock_quantity, COALESCE(p.main_image_url, ''), COALESCE(p.image_url, ''),
	                 p.colour_images, v.stock_quantity
	          FROM cart_items i
	          JOIN products p ON p.id = i.product_id
	          LEFT JOIN product_variants v ON v.id = i.variant_id
	          WHERE i.cart_id = $1
	          ORDER BY i.created_at, i.id`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("compute cart: %w", err)
	}
	defer rows.Close()

	var lines []totals.Line
	for rows.Next() {
		var (
			vi           domain.ViewItem
			product      domain.Product
			colourImages []byte
			variantStock sql.NullInt64
		)
		if err := rows.Scan(&vi.ID, &vi.CartID, &vi.ProductID, &vi.VariantID, &vi.Quantity,
			&vi.UnitPriceCents, &vi.Size, &vi.Colour, &vi.CreatedAt, &vi.UpdatedAt,
			&product.Name, &product.StockQuantity, &product.MainImageURL, &product.LegacyImageURL,
			&colourImages, &variantStock); err != nil {
			return domain.CartView{}, fmt.Errorf("scan cart view row: %w", err)
		}

		if len(colourImages) > 0 {
			// drifted or legacy JSON shapes fall through to the later
			// image fallbacks rather than failing the whole view
			_ = json.Unmarshal(colourImages, &product.ColourImages)
		}

		vi.ProductName = product.Name
		vi.ImageURL = product.ImageForColour(vi.Colour)
		vi.AvailableStock = product.StockQuantity
		if vi.VariantID != nil && variantStock.Valid {
			vi.AvailableStock = int(variantStock.Int64)
		}
		vi.LineTotalCents = int64(vi.Quantity) * vi.UnitPriceCents

		view.Items = append(view.Items, vi)
		lines = append(lines, totals.Line{Quantity: vi.Quantity, UnitPriceCents: vi.UnitPriceCents})
	}
	if err := rows.Err(); err != nil {
		return domain.CartView{}, fmt.Errorf("compute cart rows: %w", err)
	}

	view.Totals = totals.Compute(lines)
	return view, nil
}

// ClearItems empties the owner's cart, used after a completed checkout.
// A missing cart is not an error.
func (r *Repository) ClearItems(ctx context.Context, owner domain.OwnerKey) error {
	cart, err := r.GetByOwner(ctx, owner)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET updated_at = NOW() WHERE id = $1`, cart.ID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// ExpiredGuestCartIDs captures the sweep candidates: anonymous carts with no
// activity since the cutoff.
func (r *Repository) ExpiredGuestCartIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM carts WHERE session_id IS NOT NULL AND updated_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find expired guest carts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired cart id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCarts removes the captured id set, items first. A cart reactivated
// between capture and delete simply gets recreated on its next access.
func (r *Repository) DeleteCarts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("delete swept items: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM carts WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete swept carts: %w", err)
	}
	return res.RowsAffected()
}
