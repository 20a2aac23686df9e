package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 15*time.Minute), mr
}

func sampleCart() *model.Cart {
	return &model.Cart{
		UserID:     "user-1",
		NextLineID: 2,
		Items: []model.CartLine{
			{LineID: 1, ProductID: 7, Quantity: 2, UnitPrice: model.ToDecimal128(decimal.RequireFromString("12.50"))},
			{LineID: 2, ProductID: 9, Quantity: 1, UnitPrice: model.ToDecimal128(decimal.NewFromInt(30))},
		},
	}
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	cart, err := c.Get(context.Background(), "user-1")

	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, cart)
}

func TestSetGet_RoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user-1", sampleCart()))
	assert.True(t, mr.Exists("cart:user-1"))

	cart, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(2), cart.NextLineID)
	assert.True(t, decimal.RequireFromString("12.50").Equal(cart.Items[0].Price()))
}

func TestSet_TTLWithJitter(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "user-1", sampleCart()))

	ttl := mr.TTL("cart:user-1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "user-1", sampleCart()))

	require.NoError(t, c.Delete(ctx, "user-1"))

	assert.False(t, mr.Exists("cart:user-1"))
	_, err := c.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:user-1", "{not json"))

	_, err := c.Get(context.Background(), "user-1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGet_Unavailable(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), "user-1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_EmptyCartShortTTL(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "user-1", &model.Cart{UserID: "user-1"}))

	assert.Equal(t, time.Minute, mr.TTL("cart:user-1"))
	cart, err := c.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestSet_ReplacesPreviousLines(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "user-1", sampleCart()))

	smaller := sampleCart()
	smaller.Items = smaller.Items[1:]
	require.NoError(t, c.Set(ctx, "user-1", smaller))

	cart, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].LineID)
}

func TestGet_LinesInIDOrder(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	cart := sampleCart()
	cart.Items[0].LineID = 12
	require.NoError(t, c.Set(ctx, "user-1", cart))

	got, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(2), got.Items[0].LineID)
	assert.Equal(t, int64(12), got.Items[1].LineID)
}

func TestUpdateLine_WritesThrough(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "user-1", sampleCart()))
	before := mr.TTL("cart:user-1")

	require.NoError(t, c.UpdateLine(ctx, "user-1", 1, 5))

	cart, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 1, cart.Items[1].Quantity)
	assert.True(t, decimal.RequireFromString("12.50").Equal(cart.Items[0].Price()))
	assert.Equal(t, before, mr.TTL("cart:user-1"))
}

func TestUpdateLine_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.UpdateLine(ctx, "user-1", 1, 5), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "user-1", sampleCart()))
	assert.ErrorIs(t, c.UpdateLine(ctx, "user-1", 99, 5), ErrCacheMiss)
}

func TestRemoveLine_WritesThrough(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "user-1", sampleCart()))

	require.NoError(t, c.RemoveLine(ctx, "user-1", 1))

	cart, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(9), cart.Items[0].ProductID)
	assert.Equal(t, int64(2), cart.NextLineID)

	assert.ErrorIs(t, c.RemoveLine(ctx, "user-1", 1), ErrCacheMiss)
}
