package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/pagination"
)

type catalogMock struct {
	products []domain.ProductSummary
	next     string
	err      error

	gotSort  pagination.Sort
	gotAfter string
	gotLimit int
}

func (m *catalogMock) ListProducts(_ context.Context, sort pagination.Sort, after string, limit int) ([]domain.ProductSummary, string, error) {
	m.gotSort = sort
	m.gotAfter = after
	m.gotLimit = limit
	return m.products, m.next, m.err
}

func listRequest(t *testing.T, mock *catalogMock, target string) (*httptest.ResponseRecorder, listProductsResponse) {
	t.Helper()

	h := NewProductHandler(mock)
	rec := httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var resp listProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestListProducts_Defaults(t *testing.T) {
	mock := &catalogMock{products: []domain.ProductSummary{{Name: "Linen Shirt"}}, next: "tok"}

	rec, resp := listRequest(t, mock, "/products")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.SortCreated, mock.gotSort)
	assert.Equal(t, "", mock.gotAfter)
	assert.Equal(t, defaultPageSize, mock.gotLimit)
	assert.Equal(t, "tok", resp.NextCursor)
	require.Len(t, resp.Products, 1)
}

func TestListProducts_SortAndLimit(t *testing.T) {
	mock := &catalogMock{}

	listRequest(t, mock, "/products?sort=price&limit=5")

	assert.Equal(t, pagination.SortPrice, mock.gotSort)
	assert.Equal(t, 5, mock.gotLimit)
}

func TestListProducts_ClampsOversizedLimit(t *testing.T) {
	mock := &catalogMock{}

	listRequest(t, mock, "/products?limit=5000")

	assert.Equal(t, maxPageSize, mock.gotLimit)
}

func TestListProducts_UnknownSortFallsBackToCreated(t *testing.T) {
	mock := &catalogMock{}

	listRequest(t, mock, "/products?sort=popularity")

	assert.Equal(t, pagination.SortCreated, mock.gotSort)
}

func TestListProducts_ValidCursorPassedThrough(t *testing.T) {
	mock := &catalogMock{}
	token := pagination.Encode(pagination.SortPrice, "4200")

	listRequest(t, mock, "/products?sort=price&cursor="+token)

	assert.Equal(t, "4200", mock.gotAfter)
}

func TestListProducts_GarbledCursorDegradesToFirstPage(t *testing.T) {
	mock := &catalogMock{}

	rec, _ := listRequest(t, mock, "/products?cursor=%21%21garbage")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", mock.gotAfter)
}

func TestListProducts_CursorFromOtherSortDegrades(t *testing.T) {
	mock := &catalogMock{}
	token := pagination.Encode(pagination.SortName, "Linen Shirt")

	rec, _ := listRequest(t, mock, "/products?sort=price&cursor="+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", mock.gotAfter)
}

func TestListProducts_EmptyCatalogReturnsEmptySlice(t *testing.T) {
	_, resp := listRequest(t, &catalogMock{}, "/products")

	assert.NotNil(t, resp.Products)
	assert.Empty(t, resp.Products)
	assert.Empty(t, resp.NextCursor)
}
