package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/oracle"
)

type mockOracle struct {
	quote oracle.Quote
	err   error
	calls int
}

func (m *mockOracle) Lookup(context.Context, uuid.UUID, *uuid.UUID) (oracle.Quote, error) {
	m.calls++
	if m.err != nil {
		return oracle.Quote{}, m.err
	}
	return m.quote, nil
}

func TestValidateAddition_Accept(t *testing.T) {
	o := &mockOracle{quote: oracle.Quote{UnitPriceCents: 2500, Available: 10, ProductName: "Wool Scarf"}}
	v := NewValidator(o)

	got, err := v.ValidateAddition(context.Background(), uuid.New(), nil, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.UnitPriceCents)
	assert.Equal(t, 10, got.Available)
	assert.Equal(t, "Wool Scarf", got.ProductName)
}

func TestValidateAddition_QuantityBounds(t *testing.T) {
	o := &mockOracle{quote: oracle.Quote{UnitPriceCents: 100, Available: 1000}}
	v := NewValidator(o)
	ctx := context.Background()

	_, err := v.ValidateAddition(ctx, uuid.New(), nil, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = v.ValidateAddition(ctx, uuid.New(), nil, -5, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = v.ValidateAddition(ctx, uuid.New(), nil, domain.MaxQtyPerItem+1, 0)
	assert.ErrorIs(t, err, domain.ErrMaxQuantity)

	// bound rejections never consult the oracle
	assert.Zero(t, o.calls)
}

func TestValidateAddition_StockGate(t *testing.T) {
	ctx := context.Background()

	outOfStock := NewValidator(&mockOracle{quote: oracle.Quote{Available: 0}})
	_, err := outOfStock.ValidateAddition(ctx, uuid.New(), nil, 1, 0)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	short := NewValidator(&mockOracle{quote: oracle.Quote{Available: 4}})
	_, err = short.ValidateAddition(ctx, uuid.New(), nil, 5, 0)
	var ce *domain.CartError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CodeInsufficientStock, ce.Code)
	assert.Equal(t, 4, ce.Available)

	// accepts at exactly available == quantity
	exact := NewValidator(&mockOracle{quote: oracle.Quote{UnitPriceCents: 50, Available: 5}})
	_, err = exact.ValidateAddition(ctx, uuid.New(), nil, 5, 0)
	assert.NoError(t, err)
}

func TestValidateAddition_SummedQuantityAgainstStock(t *testing.T) {
	// 3 already in the cart, 4 available: adding 2 means 5 total and must be
	// rejected with the true availability, not clamped.
	v := NewValidator(&mockOracle{quote: oracle.Quote{Available: 4}})

	_, err := v.ValidateAddition(context.Background(), uuid.New(), nil, 2, 3)
	var ce *domain.CartError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CodeInsufficientStock, ce.Code)
	assert.Equal(t, 4, ce.Available)
}

func TestValidateAddition_SummedQuantityAgainstMax(t *testing.T) {
	o := &mockOracle{quote: oracle.Quote{Available: 1000}}
	v := NewValidator(o)

	// 97 present, adding 5 exceeds the per-item bound
	_, err := v.ValidateAddition(context.Background(), uuid.New(), nil, 5, 97)
	assert.ErrorIs(t, err, domain.ErrMaxQuantity)
	assert.Zero(t, o.calls)
}

func TestValidateAddition_OracleErrorsPropagateVerbatim(t *testing.T) {
	ctx := context.Background()

	for _, sentinel := range []*domain.CartError{
		domain.ErrProductNotFound,
		domain.ErrVariantNotFound,
		domain.ErrProductInactive,
		domain.ErrOperationFailed,
	} {
		v := NewValidator(&mockOracle{err: sentinel})
		_, err := v.ValidateAddition(ctx, uuid.New(), nil, 2, 0)
		assert.ErrorIs(t, err, sentinel)
	}
}

func TestValidateQuantityUpdate_DecreaseSkipsStockCheck(t *testing.T) {
	o := &mockOracle{quote: oracle.Quote{Available: 0}}
	v := NewValidator(o)

	err := v.ValidateQuantityUpdate(context.Background(), uuid.New(), nil, 2, 5)
	assert.NoError(t, err)
	assert.Zero(t, o.calls)
}

func TestValidateQuantityUpdate_IncreaseChecksStock(t *testing.T) {
	o := &mockOracle{quote: oracle.Quote{Available: 3}}
	v := NewValidator(o)

	err := v.ValidateQuantityUpdate(context.Background(), uuid.New(), nil, 5, 2)
	var ce *domain.CartError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CodeInsufficientStock, ce.Code)
	assert.Equal(t, 1, o.calls)
}

func TestValidateQuantityUpdate_Bounds(t *testing.T) {
	v := NewValidator(&mockOracle{quote: oracle.Quote{Available: 100}})
	ctx := context.Background()

	assert.ErrorIs(t, v.ValidateQuantityUpdate(ctx, uuid.New(), nil, 0, 5), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, v.ValidateQuantityUpdate(ctx, uuid.New(), nil, domain.MaxQtyPerItem+1, 5), domain.ErrMaxQuantity)
}

type scriptedOracle struct {
	byProduct map[uuid.UUID]oracle.Quote
	errs      map[uuid.UUID]error
}

func (s *scriptedOracle) Lookup(_ context.Context, productID uuid.UUID, _ *uuid.UUID) (oracle.Quote, error) {
	if err, ok := s.errs[productID]; ok {
		return oracle.Quote{}, err
	}
	return s.byProduct[productID], nil
}

func TestValidateCart_Findings(t *testing.T) {
	okID := uuid.New()
	goneID := uuid.New()
	emptyID := uuid.New()
	repricedID := uuid.New()
	shortID := uuid.New()

	v := NewValidator(&scriptedOracle{
		byProduct: map[uuid.UUID]oracle.Quote{
			okID:       {UnitPriceCents: 1000, Available: 10},
			emptyID:    {UnitPriceCents: 1000, Available: 0},
			repricedID: {UnitPriceCents: 1200, Available: 10},
			shortID:    {UnitPriceCents: 1000, Available: 2},
		},
		errs: map[uuid.UUID]error{goneID: domain.ErrProductNotFound},
	})

	items := []domain.CartItem{
		{ID: uuid.New(), ProductID: okID, Quantity: 2, UnitPriceCents: 1000},
		{ID: uuid.New(), ProductID: goneID, Quantity: 1, UnitPriceCents: 500},
		{ID: uuid.New(), ProductID: emptyID, Quantity: 1, UnitPriceCents: 1000},
		{ID: uuid.New(), ProductID: repricedID, Quantity: 1, UnitPriceCents: 1000},
		{ID: uuid.New(), ProductID: shortID, Quantity: 5, UnitPriceCents: 1000},
	}

	issues, err := v.ValidateCart(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, issues, 4)

	byCode := map[domain.Code]ItemIssue{}
	for _, issue := range issues {
		byCode[issue.Code] = issue
	}

	assert.Equal(t, SeverityError, byCode[domain.CodeProductNotFound].Severity)
	assert.Equal(t, SeverityError, byCode[domain.CodeOutOfStock].Severity)
	assert.Equal(t, 2, byCode[domain.CodeInsufficientStock].Available)

	priceChange := byCode[CodePriceChanged]
	assert.Equal(t, SeverityWarning, priceChange.Severity)
	assert.Equal(t, int64(1200), priceChange.CurrentPriceCents)
}

func TestValidateCart_InfrastructureFailureAborts(t *testing.T) {
	badID := uuid.New()
	v := NewValidator(&scriptedOracle{
		errs: map[uuid.UUID]error{badID: domain.ErrOperationFailed},
	})

	_, err := v.ValidateCart(context.Background(), []domain.CartItem{
		{ID: uuid.New(), ProductID: badID, Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrOperationFailed)
}
