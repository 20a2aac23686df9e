package orderstore

import (
	"context"
	"errors"

	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this idempotency key already exists")
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type OrderRepository interface {
	// CreateOrder stores order and sets its ID and timestamps. It returns
	// ErrDuplicateOrder when the user already placed an order with the same
	// idempotency key.
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BackendStatus) error
}
