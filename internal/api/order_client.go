package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CreateOrderRequest struct {
	Items           []domain.OrderItem     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Total           decimal.Decimal        `json:"total"`
	IdempotencyKey  string                 `json:"idempotency_key"`
}

type UpdateStatusRequest struct {
	Status domain.BackendStatus `json:"status"`
}

// OrderDTO is an order as the order API spells it; Status is a backend status.
type OrderDTO struct {
	ID              string                 `json:"id"`
	Items           []domain.OrderItem     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Total           decimal.Decimal        `json:"total"`
	Status          domain.BackendStatus   `json:"status"`
	CreatedAt       time.Time              `json:"created_at"`
}

func (o OrderDTO) toDomain() *domain.Order {
	items := o.Items
	if items == nil {
		items = make([]domain.OrderItem, 0)
	}
	return &domain.Order{
		ID:              o.ID,
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Total:           o.Total,
		Status:          domain.FromBackendStatus(o.Status),
		CreatedAt:       o.CreatedAt,
	}
}

type OrderClient struct {
	c *client
}

func NewOrderClient(cfg Config, log logrus.FieldLogger) *OrderClient {
	return &OrderClient{c: newClient("orders", cfg, log)}
}

// POST /api/orders
func (oc *OrderClient) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*domain.Order, error) {
	var dto OrderDTO
	if err := oc.c.do(ctx, http.MethodPost, "/api/orders", token, req, &dto); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return dto.toDomain(), nil
}

// PATCH /api/orders/{order_id}/status
func (oc *OrderClient) UpdateOrderStatus(ctx context.Context, token, orderID string, status domain.BackendStatus) error {
	path := fmt.Sprintf("/api/orders/%s/status", url.PathEscape(orderID))
	if err := oc.c.do(ctx, http.MethodPatch, path, token, UpdateStatusRequest{Status: status}, nil); err != nil {
		return fmt.Errorf("update order %s status: %w", orderID, err)
	}
	return nil
}

// GET /api/orders/{order_id}
func (oc *OrderClient) GetOrder(ctx context.Context, token, orderID string) (*domain.Order, error) {
	var dto OrderDTO
	path := fmt.Sprintf("/api/orders/%s", url.PathEscape(orderID))
	if err := oc.c.do(ctx, http.MethodGet, path, token, nil, &dto); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return dto.toDomain(), nil
}
