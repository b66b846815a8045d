package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/pagination"
)

// GetProduct satisfies the oracle's catalog reader.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	query := `SELECT id, name, price_cents, sale_price_cents, sale_starts_at, sale_ends_at,
	                 status, stock_quantity, COALESCE(main_image_url, ''), COALESCE(image_url, ''), colour_images
	          FROM products WHERE id = $1`

	var (
		p            domain.Product
		colourImages []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.PriceCents, &p.SalePriceCents, &p.SaleStartsAt, &p.SaleEndsAt,
		&p.Status, &p.StockQuantity, &p.MainImageURL, &p.LegacyImageURL, &colourImages)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}

	if len(colourImages) > 0 {
		_ = json.Unmarshal(colourImages, &p.ColourImages)
	}
	return p, nil
}

func (r *Repository) GetVariant(ctx context.Context, id uuid.UUID) (domain.Variant, error) {
	query := `SELECT id, product_id, COALESCE(size, ''), COALESCE(colour, ''),
	                 price_delta_cents, stock_quantity, status
	          FROM product_variants WHERE id = $1`

	var v domain.Variant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.ProductID, &v.Size, &v.Colour, &v.PriceDeltaCents, &v.StockQuantity, &v.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Variant{}, domain.ErrVariantNotFound
	}
	if err != nil {
		return domain.Variant{}, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// GetStock reads raw available units, variant-scoped when a variant is
// given. Stock is read, not reserved.
func (r *Repository) GetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	var (
		available int
		err       error
	)
	if variantID != nil {
		err = r.db.QueryRowContext(ctx,
			`SELECT stock_quantity FROM product_variants WHERE id = $1`, *variantID).Scan(&available)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&available)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return available, nil
}

// ListProducts returns one page of active products ordered by the given
// sort, fetching limit+1 rows strictly past the cursor value so the caller
// can tell whether a further page exists.
func (r *Repository) ListProducts(ctx context.Context, sort pagination.Sort, after string, limit int) ([]domain.ProductSummary, string, error) {
	var (
		order  string
		filter string
	)
	switch sort {
	case pagination.SortPrice:
		order, filter = "price_cents ASC, id", "price_cents > $2"
	case pagination.SortName:
		order, filter = "name ASC, id", "name > $2"
	default:
		// newest first
		order, filter = "created_at DESC, id", "created_at < $2"
	}

	query := `SELECT id, name, price_cents, COALESCE(main_image_url, image_url, ''), created_at
	          FROM products WHERE status = 'active'`
	args := []any{limit + 1}
	if after != "" {
		query += " AND " + filter
		args = append(args, afterArg(sort, after))
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT $1", order)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.ProductSummary
	for rows.Next() {
		var p domain.ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, "", fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list products rows: %w", err)
	}

	page, next := pagination.Page(products, limit, sort, func(p domain.ProductSummary) string {
		return sortValue(sort, p)
	})
	return page, next, nil
}

func sortValue(sort pagination.Sort, p domain.ProductSummary) string {
	switch sort {
	case pagination.SortPrice:
		return strconv.FormatInt(p.PriceCents, 10)
	case pagination.SortName:
		return p.Name
	default:
		return p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
}

func afterArg(sort pagination.Sort, after string) any {
	switch sort {
	case pagination.SortPrice:
		cents, err := strconv.ParseInt(after, 10, 64)
		if err != nil {
			return int64(0)
		}
		return cents
	case pagination.SortName:
		return after
	default:
		ts, err := time.Parse(time.RFC3339Nano, after)
		if err != nil {
			return time.Now()
		}
		return ts
	}
}
