package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogAPI is the catalog listing slice the handler consumes.
type CatalogAPI interface {
	ListProducts(ctx context.Context, sort pagination.Sort, after string, limit int) ([]domain.ProductSummary, string, error)
}

type ProductHandler struct {
	catalog CatalogAPI
}

func NewProductHandler(catalog CatalogAPI) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type listProductsResponse struct {
	Products   []domain.ProductSummary `json:"products"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sort := pagination.Sort(r.URL.Query().Get("sort"))
	if !sort.Valid() {
		sort = pagination.SortCreated
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	// A stale or garbled cursor degrades to the first page instead of
	// failing the request.
	after := ""
	if token := r.URL.Query().Get("cursor"); token != "" {
		value, err := pagination.Decode(token, sort)
		if err == nil {
			after = value
		} else if !errors.Is(err, pagination.ErrInvalidCursor) {
			respondCartError(w, err)
			return
		}
	}

	products, next, err := h.catalog.ListProducts(r.Context(), sort, after, limit)
	if err != nil {
		respondCartError(w, err)
		return
	}
	if products == nil {
		products = []domain.ProductSummary{}
	}

	respondJSON(w, http.StatusOK, listProductsResponse{Products: products, NextCursor: next})
}
