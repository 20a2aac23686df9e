package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleSession() *domain.Session {
	lineID := int64(31)
	s := domain.NewSession()
	s.CurrentUser = &domain.User{ID: "u1", Name: "Ayesha", Email: "ayesha@example.com"}
	s.AuthTokens = &domain.AuthTokens{Access: "access-1", Refresh: "refresh-1"}
	s.Cart.Add(domain.CartLine{
		ProductID:    "7",
		Name:         "Silk scarf",
		UnitPrice:    decimal.RequireFromString("19.99"),
		Quantity:     2,
		Brand:        "Sathi",
		RemoteLineID: &lineID,
	})
	s.Cart.Add(domain.CartLine{ProductID: "sku-abc", Name: "Demo item", Quantity: 1})
	return s
}

func TestRedisStore_SaveLoadRoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, "s1", time.Hour, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentUser)
	assert.Equal(t, "Ayesha", got.CurrentUser.Name)
	require.NotNil(t, got.AuthTokens)
	assert.Equal(t, "access-1", got.AuthTokens.Access)
	require.Len(t, got.Cart.Lines, 2)
	assert.Equal(t, domain.ProductID("7"), got.Cart.Lines[0].ProductID)
	assert.True(t, decimal.RequireFromString("19.99").Equal(got.Cart.Lines[0].UnitPrice))
	require.NotNil(t, got.Cart.Lines[0].RemoteLineID)
	assert.Equal(t, int64(31), *got.Cart.Lines[0].RemoteLineID)
	assert.Nil(t, got.Cart.Lines[1].RemoteLineID)
}

func TestRedisStore_LoadEmptyReturnsDefaults(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, "nobody", time.Hour, testLogger())

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got.CurrentUser)
	assert.Nil(t, got.AuthTokens)
	assert.NotNil(t, got.Cart.Lines)
	assert.True(t, got.Cart.IsEmpty())
}

func TestRedisStore_CorruptFieldFallsBackToDefault(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, "s1", time.Hour, testLogger())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSession()))

	require.NoError(t, mr.Set("session:s1:cartItems", "{not json"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Cart.IsEmpty())
	require.NotNil(t, got.CurrentUser, "other fields survive a corrupt cart")
	assert.Equal(t, "u1", got.CurrentUser.ID)
}

func TestRedisStore_ClearedUserAndTokensAreDeleted(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, "s1", time.Hour, testLogger())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSession()))

	require.NoError(t, store.Save(ctx, domain.NewSession()))

	assert.False(t, mr.Exists("session:s1:currentUser"))
	assert.False(t, mr.Exists("session:s1:authTokens"))
	v, err := mr.Get("session:s1:cartItems")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestRedisStore_TTLSlidesOnSave(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, "s1", time.Minute, testLogger())
	require.NoError(t, store.Save(context.Background(), sampleSession()))

	assert.Equal(t, time.Minute, mr.TTL("session:s1:cartItems"))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("session:s1:cartItems"))
}

func TestRedisStore_UnavailableBackend(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, "s1", time.Hour, testLogger())
	mr.Close()

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)

	err = store.Save(context.Background(), sampleSession())
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
