package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ikramzafar0343/style-sathi/internal/backend/catalog"
	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/ikramzafar0343/style-sathi/internal/backend/orderstore"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type NewOrder struct {
	Items           []domain.OrderItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	// Total is what the client showed the shopper. The stored total is always
	// recomputed from catalog prices.
	Total          decimal.Decimal
	IdempotencyKey string
}

// CartClearer empties a user's server cart once an order is placed.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type OrderService struct {
	orders  orderstore.OrderRepository
	carts   CartClearer
	catalog Catalog
	log     logrus.FieldLogger
	newKey  func() string
}

func NewOrderService(orders orderstore.OrderRepository, carts CartClearer, catalog Catalog, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		orders:  orders,
		carts:   carts,
		catalog: catalog,
		log:     log,
		newKey:  uuid.NewString,
	}
}

// CreateOrder stores a confirmed order and empties the user's cart. Repeating
// a request with the same idempotency key returns the order placed first and
// reports created as false.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, in NewOrder) (order *model.Order, created bool, err error) {
	if len(in.Items) == 0 {
		return nil, false, domain.NewValidationError("items", "order has no items")
	}

	order = &model.Order{
		UserID:          userID,
		IdempotencyKey:  in.IdempotencyKey,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Status:          domain.BackendStatusConfirmed,
		Total:           decimal.Zero,
	}
	if order.IdempotencyKey == "" {
		order.IdempotencyKey = s.newKey()
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = domain.DefaultPaymentMethod
	}

	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, false, domain.NewValidationError("items", "quantity of product %d must be at least 1", it.ProductID)
		}
		p, err := s.catalog.GetProduct(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, false, domain.NewValidationError("items", "unknown product %d", it.ProductID)
		}
		if err != nil {
			return nil, false, err
		}
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   it.ProductID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
		order.Total = order.Total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	log := s.log.WithField("user_id", userID).WithField("idempotency_key", order.IdempotencyKey)
	if !in.Total.IsZero() && !in.Total.Equal(order.Total) {
		log.WithField("client_total", in.Total.String()).
			WithField("total", order.Total.String()).
			Warn("client total differs from catalog total")
	}

	err = s.orders.CreateOrder(ctx, order)
	if errors.Is(err, orderstore.ErrDuplicateOrder) {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, userID, order.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		log.WithField("order_id", existing.ID).Info("order already placed")
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	log.WithField("order_id", order.ID).Info("order created")

	if err := s.carts.ClearCart(ctx, userID); err != nil {
		log.WithError(err).Warn("could not clear cart after order")
	}
	return order, true, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.orders.GetOrderByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.BackendStatus) error {
	if !model.ValidOrderStatus(status) {
		return domain.NewValidationError("status", "unknown order status %q", status)
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.log.WithField("order_id", id).WithField("status", status).Info("order status updated")
	return nil
}
