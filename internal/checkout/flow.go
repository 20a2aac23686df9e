package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/ikramzafar0343/style-sathi/internal/notify"
	"github.com/sirupsen/logrus"
)

// Session is the part of the cart engine an order submission needs.
type Session interface {
	SessionID() string
	Snapshot() *domain.Session
	ClearCart()
	Resync(ctx context.Context) error
	Flush(ctx context.Context) error
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, req api.CreateOrderRequest) (*domain.Order, error)
}

type Publisher interface {
	Publish(e notify.Event)
}

// Flow submits the cart of one session as an order.
type Flow struct {
	session Session
	orders  OrderAPI
	bus     Publisher
	log     logrus.FieldLogger
	newKey  func() string

	mu    sync.Mutex
	state domain.CheckoutState
}

func NewFlow(session Session, orders OrderAPI, bus Publisher, log logrus.FieldLogger) *Flow {
	return &Flow{
		session: session,
		orders:  orders,
		bus:     bus,
		log:     log.WithField("session_id", session.SessionID()),
		newKey:  uuid.NewString,
		state:   domain.CheckoutStateIdle,
	}
}

func (f *Flow) State() domain.CheckoutState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SubmitOrder places an order for the current cart. On success the cart is
// emptied and the order announced; on failure the cart is left as it was and
// an error event carries the failure message.
func (f *Flow) SubmitOrder(ctx context.Context, shipping domain.ShippingAddress, paymentMethod string) (*domain.Order, error) {
	if err := f.transition(domain.CheckoutStateSubmitting); err != nil {
		return nil, err
	}

	order, err := f.submit(ctx, shipping, paymentMethod)
	if err != nil {
		f.mustTransition(domain.CheckoutStateFailed)
		f.log.WithError(err).Warn("order submission failed")
		f.publish(notify.Event{Type: notify.EventError, Title: "Order failed", Message: err.Error()})
		return nil, err
	}

	f.session.ClearCart()
	f.mustTransition(domain.CheckoutStatePlaced)
	f.log.WithField("order_id", order.ID).Info("order placed")

	// One transition, two announcements: consumers subscribe to either.
	f.publish(notify.Event{Type: notify.EventOrderPlaced, Title: "Order placed", OrderID: order.ID})
	f.publish(notify.Event{
		Type:    notify.EventOrderConfirmed,
		Title:   "Order confirmed",
		Message: fmt.Sprintf("Order %s is %s", order.ID, order.Status),
		OrderID: order.ID,
	})

	if f.session.Snapshot().Authenticated() {
		if err := f.session.Resync(ctx); err != nil {
			f.log.WithError(err).Warn("could not resync cart after order")
		}
	}
	return order, nil
}

func (f *Flow) submit(ctx context.Context, shipping domain.ShippingAddress, paymentMethod string) (*domain.Order, error) {
	// Cart calls still queued would land on the server cart after the order
	// consumed it.
	if err := f.session.Flush(ctx); err != nil {
		return nil, fmt.Errorf("wait for cart sync: %w", err)
	}
	snap := f.session.Snapshot()

	p := projectCart(snap.Cart)
	if len(p.Items) == 0 {
		return nil, domain.NewValidationError("items", "cart has no orderable items")
	}

	address := shippingFor(shipping, snap.CurrentUser)
	if err := validateShipping(address); err != nil {
		return nil, err
	}
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}

	req := api.CreateOrderRequest{
		Items:           p.Items,
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		Total:           p.Total,
		IdempotencyKey:  f.newKey(),
	}
	order, err := f.orders.CreateOrder(ctx, snap.AccessToken(), req)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (f *Flow) transition(to domain.CheckoutState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == domain.CheckoutStateSubmitting {
		return ErrCheckoutInProgress
	}
	if !domain.CanTransitionTo(f.state, to) {
		return ErrIllegalTransition
	}
	f.state = to
	return nil
}

func (f *Flow) mustTransition(to domain.CheckoutState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !domain.CanTransitionTo(f.state, to) {
		f.log.WithField("from", f.state).WithField("to", to).Error("illegal checkout transition")
		return
	}
	f.state = to
}

func (f *Flow) publish(e notify.Event) {
	e.SessionID = f.session.SessionID()
	f.bus.Publish(e)
}
