package orderstore

import (
	"context"
	"testing"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	repo, err := NewRepository(&Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func newTestOrder(userID, key string) *model.Order {
	return &model.Order{
		UserID:         userID,
		IdempotencyKey: key,
		Items: []model.OrderItem{
			{ProductID: 1, ProductName: "Lawn Kurta", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
		ShippingAddress: domain.ShippingAddress{FullName: "Ayesha Khan", Email: "ayesha@example.com", Street: "12 Mall Road", City: "Lahore"},
		PaymentMethod:   "card",
		Total:           decimal.NewFromInt(25),
		Status:          domain.BackendStatusConfirmed,
	}
}

func TestCreateOrder_AssignsIDAndTimestamps(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("user-1", "key-1")
	require.NoError(t, repo.CreateOrder(ctx, order))

	assert.Positive(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, domain.BackendStatusConfirmed, got.Status)
	assert.True(t, decimal.NewFromInt(25).Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Lawn Kurta", got.Items[0].ProductName)
	assert.Equal(t, "Lahore", got.ShippingAddress.City)
}

func TestCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder("user-1", "key-1")
	require.NoError(t, repo.CreateOrder(ctx, first))

	err := repo.CreateOrder(ctx, newTestOrder("user-1", "key-1"))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// the key is scoped per user
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-2", "key-1")))

	got, err := repo.GetOrderByIdempotencyKey(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetOrderByID(context.Background(), 12345)

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("user-1", "key-1")
	require.NoError(t, repo.CreateOrder(ctx, order))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.BackendStatusInTransit))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BackendStatusInTransit, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 999999, domain.BackendStatusDelivered), ErrOrderNotFound)
}

func TestListOrdersByUserID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", "a")))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", "b")))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-2", "c")))

	orders, err := repo.ListOrdersByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].IdempotencyKey)
}
