package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverCart is a remote cart that keeps its lines, so tests can compare it
// with the local cart. AddLine waits for gate when it is set.
type serverCart struct {
	mu     sync.Mutex
	lines  map[int64]*api.RemoteLine
	nextID int64
	gate   chan struct{}
}

func newServerCart() *serverCart {
	return &serverCart{lines: make(map[int64]*api.RemoteLine), nextID: 500}
}

func (s *serverCart) FetchCart(context.Context, string) ([]api.RemoteLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.RemoteLine, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, *l)
	}
	return out, nil
}

func (s *serverCart) AddLine(ctx context.Context, _ string, productID int64, quantity int) (int64, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.ProductID == productID {
			l.Quantity += quantity
			return l.LineID, nil
		}
	}
	s.nextID++
	s.lines[s.nextID] = &api.RemoteLine{LineID: s.nextID, ProductID: productID, UnitPrice: decimal.NewFromInt(1), Quantity: quantity}
	return s.nextID, nil
}

func (s *serverCart) UpdateLine(_ context.Context, _ string, lineID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[lineID]
	if !ok {
		return &api.APIError{StatusCode: 404, Message: "line not found"}
	}
	l.Quantity = quantity
	return nil
}

func (s *serverCart) RemoveLine(_ context.Context, _ string, lineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[lineID]; !ok {
		return &api.APIError{StatusCode: 404, Message: "line not found"}
	}
	delete(s.lines, lineID)
	return nil
}

func (s *serverCart) quantity(productID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.ProductID == productID {
			return l.Quantity, true
		}
	}
	return 0, false
}

func newServerFixture(t *testing.T) (*Engine, *serverCart) {
	t.Helper()
	server := newServerCart()
	e := New(DefaultConfig("sess-1"), &mockStore{}, server, nil, &recordingBus{}, testLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = e.Close(ctx)
	})
	e.Login(context.Background(), domain.User{ID: "u1"}, &domain.AuthTokens{Access: "tok-1"})
	server.gate = make(chan struct{})
	return e, server
}

func flushEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Flush(ctx))
}

func TestEngine_EditDuringAddReachesServer(t *testing.T) {
	e, server := newServerFixture(t)

	e.AddToCart(product("7", "1"), 2)
	e.Increment("7")
	close(server.gate)
	flushEngine(t, e)

	cart := e.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	require.NotNil(t, cart.Lines[0].RemoteLineID)
	q, ok := server.quantity(7)
	require.True(t, ok)
	assert.Equal(t, 3, q)
}

func TestEngine_RemoveDuringAddReachesServer(t *testing.T) {
	e, server := newServerFixture(t)

	e.AddToCart(product("7", "1"), 2)
	e.RemoveFromCart("7")
	close(server.gate)
	flushEngine(t, e)

	assert.True(t, e.Cart().IsEmpty())
	_, ok := server.quantity(7)
	assert.False(t, ok)
}

func TestEngine_RepeatedAddsWhileInFlightMatchServer(t *testing.T) {
	e, server := newServerFixture(t)

	e.AddToCart(product("7", "1"), 1)
	e.AddToCart(product("7", "1"), 1)
	e.Decrement("7")
	close(server.gate)
	flushEngine(t, e)

	cart := e.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
	q, _ := server.quantity(7)
	assert.Equal(t, 1, q)
}

func TestEngine_UntouchedAddMakesNoExtraCalls(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.engine.AddToCart(product("7", "1"), 2)
	f.engine.AddToCart(product("7", "1"), 1)
	f.flush(t)

	assert.Equal(t, []string{"add:7:2", "add:7:1"}, f.remote.mutations())
}
