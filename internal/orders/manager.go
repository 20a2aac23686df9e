package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/ikramzafar0343/style-sathi/internal/notify"
	"github.com/sirupsen/logrus"
)

type OrderAPI interface {
	UpdateOrderStatus(ctx context.Context, token, orderID string, status domain.BackendStatus) error
	GetOrder(ctx context.Context, token, orderID string) (*domain.Order, error)
}

// Session supplies the seller's identity for order API calls.
type Session interface {
	SessionID() string
	Snapshot() *domain.Session
}

type Publisher interface {
	Publish(e notify.Event)
}

// Manager holds the orders a seller is looking at and applies status changes
// to them. Statuses are always kept in the client vocabulary; translation to
// the backend vocabulary happens only at the API boundary.
type Manager struct {
	session Session
	api     OrderAPI
	bus     Publisher
	log     logrus.FieldLogger

	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewManager(session Session, api OrderAPI, bus Publisher, log logrus.FieldLogger) *Manager {
	return &Manager{
		session: session,
		api:     api,
		bus:     bus,
		log:     log.WithField("session_id", session.SessionID()),
		orders:  make(map[string]*domain.Order),
	}
}

// Load fetches the given orders. Orders that cannot be fetched are skipped and
// logged; the first error is returned alongside whatever did load.
func (m *Manager) Load(ctx context.Context, ids []string) ([]domain.Order, error) {
	token := m.session.Snapshot().AccessToken()

	var firstErr error
	loaded := make([]domain.Order, 0, len(ids))
	for _, raw := range ids {
		id, err := domain.NormalizeOrderID(raw)
		if err == nil {
			var order *domain.Order
			order, err = m.api.GetOrder(ctx, token, id)
			if err == nil {
				m.put(id, order)
				loaded = append(loaded, *order)
				continue
			}
		}
		m.log.WithError(err).WithField("order_id", raw).Warn("could not load order")
		if firstErr == nil {
			firstErr = err
		}
	}
	return loaded, firstErr
}

func (m *Manager) Orders() []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) Get(orderID string) (domain.Order, bool) {
	id, err := domain.NormalizeOrderID(orderID)
	if err != nil {
		return domain.Order{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// UpdateOrderStatus sends status to the order API and, once accepted, records
// it on the local order without re-reading it. The returned order is nil when
// the order was never loaded.
func (m *Manager) UpdateOrderStatus(ctx context.Context, orderID string, status domain.ClientStatus) (*domain.Order, error) {
	order, err := m.updateOrderStatus(ctx, orderID, status)
	if err != nil {
		m.log.WithError(err).WithField("order_id", orderID).Warn("order status update failed")
		m.publish(notify.Event{
			Type:    notify.EventError,
			Title:   "Could not update order",
			Message: err.Error(),
			OrderID: orderID,
		})
		return nil, err
	}
	return order, nil
}

func (m *Manager) updateOrderStatus(ctx context.Context, orderID string, status domain.ClientStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown order status %q", status)
	}
	id, err := domain.NormalizeOrderID(orderID)
	if err != nil {
		return nil, err
	}

	backend := domain.ToBackendStatus(status)
	token := m.session.Snapshot().AccessToken()
	if err := m.api.UpdateOrderStatus(ctx, token, id, backend); err != nil {
		return nil, err
	}

	var out *domain.Order
	m.mu.Lock()
	if o, ok := m.orders[id]; ok {
		o.Status = status
		cp := *o
		out = &cp
	}
	m.mu.Unlock()

	m.log.WithField("order_id", id).WithField("status", status).Info("order status updated")
	m.publish(notify.Event{
		Type:    notify.OrderStatusEvent(status),
		Title:   statusTitle(status),
		Message: fmt.Sprintf("Order %s is now %s", id, status),
		OrderID: id,
	})
	return out, nil
}

func (m *Manager) put(id string, o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[id] = &cp
}

func (m *Manager) publish(e notify.Event) {
	e.SessionID = m.session.SessionID()
	m.bus.Publish(e)
}

var statusTitles = map[domain.ClientStatus]string{
	domain.ClientStatusPending:    "Order pending",
	domain.ClientStatusProcessing: "Order processing",
	domain.ClientStatusShipped:    "Order shipped",
	domain.ClientStatusDelivered:  "Order delivered",
	domain.ClientStatusCancelled:  "Order cancelled",
}

func statusTitle(s domain.ClientStatus) string {
	if t, ok := statusTitles[s]; ok {
		return t
	}
	return "Order updated"
}
