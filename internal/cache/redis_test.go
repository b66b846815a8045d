package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func sampleView(owner domain.OwnerKey) *domain.CartView {
	return &domain.CartView{
		ID:        uuid.New(),
		AccountID: owner.AccountID,
		SessionID: owner.SessionID,
		Items: []domain.ViewItem{
			{
				CartItem:       domain.CartItem{ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1999},
				ProductName:    "Linen Shirt",
				LineTotalCents: 3998,
			},
		},
		Totals:    domain.Totals{SubtotalCents: 3998},
		UpdatedAt: time.Now().UTC(),
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.AccountOwner("acct-123")

	view := sampleView(owner)
	data, _ := json.Marshal(view)
	mr.Set(cacheKey(owner), string(data))

	got, err := cache.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "Linen Shirt", got.Items[0].ProductName)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), domain.GuestOwner("nope"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	owner := domain.AccountOwner("acct-123")
	mr.Set(cacheKey(owner), "{not json")

	_, err := cache.Get(context.Background(), owner)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSetThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.GuestOwner("sess-77")

	view := sampleView(owner)
	require.NoError(t, cache.Set(ctx, owner, view))

	got, err := cache.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, view.Totals, got.Totals)

	// entry carries a TTL
	assert.Greater(t, mr.TTL(cacheKey(owner)), time.Duration(0))
}

func TestDelete(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.AccountOwner("acct-9")

	require.NoError(t, cache.Set(ctx, owner, sampleView(owner)))
	require.NoError(t, cache.Delete(ctx, owner))

	_, err := cache.Get(ctx, owner)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete_MissingKeyIsNoError(t *testing.T) {
	cache, _ := setupTestRedis(t)

	assert.NoError(t, cache.Delete(context.Background(), domain.GuestOwner("never-set")))
}
