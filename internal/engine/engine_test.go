package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/ikramzafar0343/style-sathi/internal/notify"
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

type mockStore struct {
	mu      sync.Mutex
	saved   *domain.Session
	saves   int
	loaded  *domain.Session
	saveErr error
}

func (m *mockStore) Load(_ context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == nil {
		return domain.NewSession(), nil
	}
	return m.loaded.Clone(), nil
}

func (m *mockStore) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = s.Clone()
	return nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *mockStore) last() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

type mockRemote struct {
	mu         sync.Mutex
	lines      []api.RemoteLine
	fetchErr   error
	addErr     error
	nextLineID int64
	calls      []string

	fetchStarted chan struct{}
	fetchGate    chan struct{}
}

func (m *mockRemote) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockRemote) FetchCart(_ context.Context, token string) ([]api.RemoteLine, error) {
	m.record("fetch:" + token)
	if m.fetchStarted != nil {
		close(m.fetchStarted)
	}
	if m.fetchGate != nil {
		<-m.fetchGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]api.RemoteLine(nil), m.lines...), nil
}

func (m *mockRemote) AddLine(_ context.Context, _ string, productID int64, quantity int) (int64, error) {
	m.record(fmt.Sprintf("add:%d:%d", productID, quantity))
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.nextLineID++
	return m.nextLineID, nil
}

func (m *mockRemote) UpdateLine(_ context.Context, _ string, lineID int64, quantity int) error {
	m.record(fmt.Sprintf("update:%d:%d", lineID, quantity))
	return nil
}

func (m *mockRemote) RemoveLine(_ context.Context, _ string, lineID int64) error {
	m.record(fmt.Sprintf("remove:%d", lineID))
	return nil
}

func (m *mockRemote) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mutations drops fetches so tests can assert on the cart calls alone.
func (m *mockRemote) mutations() []string {
	var out []string
	for _, c := range m.recorded() {
		if len(c) >= 6 && c[:6] == "fetch:" {
			continue
		}
		out = append(out, c)
	}
	return out
}

type mockCatalog struct {
	products map[int64]*api.Product
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*api.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNetwork
	}
	return p, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []notify.Event
}

func (b *recordingBus) Publish(e notify.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) types() []notify.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]notify.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	engine *Engine
	store  *mockStore
	remote *mockRemote
	bus    *recordingBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  &mockStore{},
		remote: &mockRemote{nextLineID: 100},
		bus:    &recordingBus{},
	}
	f.engine = New(DefaultConfig("sess-1"), f.store, f.remote, nil, f.bus, testLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.engine.Close(ctx)
	})
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.engine.Flush(ctx))
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	f.engine.Login(context.Background(), domain.User{ID: "u1", Name: "Ayesha", Email: "ayesha@example.com"},
		&domain.AuthTokens{Access: "tok-1"})
}

func product(id string, price string) domain.Product {
	return domain.Product{ID: domain.ProductID(id), Name: "Item " + id, Price: decimal.RequireFromString(price)}
}

func remoteLine(lineID, productID int64, qty int) api.RemoteLine {
	return api.RemoteLine{
		LineID:    lineID,
		ProductID: productID,
		UnitPrice: decimal.NewFromInt(10),
		Quantity:  qty,
		Product:   api.ProductMetadata{Name: fmt.Sprintf("Remote %d", productID)},
	}
}

func TestEngine_AddToCart_SumsQuantityForSameProduct(t *testing.T) {
	f := newFixture(t)

	f.engine.AddToCart(product("7", "12.50"), 2)
	cart := f.engine.AddToCart(product("7", "12.50"), 3)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("62.5").Equal(cart.Total()))
}

func TestEngine_AddToCart_KeepsOneLinePerProduct(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"1", "2", "1", "3", "2", "1"} {
		f.engine.AddToCart(product(id, "1"), 1)
	}

	cart := f.engine.Cart()
	seen := map[domain.ProductID]bool{}
	for _, l := range cart.Lines {
		assert.False(t, seen[l.ProductID], "duplicate line for %s", l.ProductID)
		seen[l.ProductID] = true
	}
	assert.Len(t, cart.Lines, 3)
	assert.Equal(t, 6, cart.ItemCount())
}

func TestEngine_AddToCart_GuestMakesNoRemoteCalls(t *testing.T) {
	f := newFixture(t)

	f.engine.AddToCart(product("7", "1"), 1)
	f.flush(t)

	assert.Empty(t, f.remote.recorded())
	assert.Equal(t, 1, f.store.saveCount())
}

func TestEngine_AddToCart_SyncsAndBackfillsRemoteLineID(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	cart := f.engine.AddToCart(product("7", "1"), 2)
	require.Len(t, cart.Lines, 1)
	assert.Nil(t, cart.Lines[0].RemoteLineID, "local change commits before the remote call")

	f.flush(t)

	assert.Equal(t, []string{"add:7:2"}, f.remote.mutations())
	cart = f.engine.Cart()
	require.NotNil(t, cart.Lines[0].RemoteLineID)
	assert.Equal(t, int64(101), *cart.Lines[0].RemoteLineID)
	require.NotNil(t, f.store.last().Cart.Lines[0].RemoteLineID)
}

func TestEngine_AddToCart_RemoteFailureKeepsLocalLine(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.remote.addErr = domain.ErrNetwork

	f.engine.AddToCart(product("7", "1"), 1)
	f.flush(t)

	cart := f.engine.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Nil(t, cart.Lines[0].RemoteLineID)
}

// Lines without a numeric product id never reach the server cart and can
// diverge from it silently.
func TestEngine_NonNumericProductIsNeverSentRemotely(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.engine.AddToCart(product("sku-abc", "5"), 1)
	f.engine.Increment("sku-abc")
	f.engine.UpdateCart([]domain.CartLine{{ProductID: "sku-abc", Quantity: 4}})
	f.engine.RemoveFromCart("sku-abc")
	f.flush(t)

	assert.Empty(t, f.remote.mutations())
}

func TestEngine_LoginReplacesGuestCart(t *testing.T) {
	f := newFixture(t)
	f.remote.lines = []api.RemoteLine{remoteLine(5, 9, 2)}

	f.engine.AddToCart(product("1", "3"), 1)
	f.login(t)

	cart := f.engine.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, domain.ProductID("9"), cart.Lines[0].ProductID)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	require.NotNil(t, cart.Lines[0].RemoteLineID)
	assert.Equal(t, int64(5), *cart.Lines[0].RemoteLineID)
	assert.Contains(t, f.bus.types(), notify.EventCartSynced)

	snap := f.engine.Snapshot()
	require.NotNil(t, snap.CurrentUser)
	assert.Equal(t, "u1", snap.CurrentUser.ID)
	assert.Equal(t, "tok-1", snap.AccessToken())
}

func TestEngine_LoginFetchFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.remote.fetchErr = domain.ErrNetwork

	f.engine.AddToCart(product("1", "3"), 2)
	f.login(t)

	cart := f.engine.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, domain.ProductID("1"), cart.Lines[0].ProductID)
	assert.True(t, f.engine.Snapshot().Authenticated())
	assert.NotContains(t, f.bus.types(), notify.EventCartSynced)
}

func TestEngine_LoginWithoutTokensSkipsFetch(t *testing.T) {
	f := newFixture(t)

	f.engine.Login(context.Background(), domain.User{ID: "u1"}, nil)

	assert.Empty(t, f.remote.recorded())
	assert.False(t, f.engine.Snapshot().Authenticated())
}

func TestEngine_LoginEnrichesFromCatalog(t *testing.T) {
	f := newFixture(t)
	f.engine.catalog = &mockCatalog{products: map[int64]*api.Product{
		9: {ID: 9, Name: "Linen Shirt", Brand: "Sathi", ImageRef: "shirt.png"},
	}}
	line := remoteLine(5, 9, 1)
	line.Product = api.ProductMetadata{}
	f.remote.lines = []api.RemoteLine{line, remoteLine(6, 10, 1)}

	f.login(t)

	cart := f.engine.Cart()
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "Linen Shirt", cart.Lines[0].Name)
	assert.Equal(t, "Sathi", cart.Lines[0].Brand)
	assert.Equal(t, "Remote 10", cart.Lines[1].Name)
}

func TestEngine_UpdateCart_RemovesThenUpdates(t *testing.T) {
	f := newFixture(t)
	f.remote.lines = []api.RemoteLine{remoteLine(1, 11, 1), remoteLine(2, 12, 2), remoteLine(3, 13, 3)}
	f.login(t)

	cart := f.engine.UpdateCart([]domain.CartLine{
		{ProductID: "11", Quantity: 4},
		{ProductID: "12", Quantity: 0},
		{ProductID: "sku-local", Quantity: 1},
	})
	f.flush(t)

	require.Len(t, cart.Lines, 2)
	require.NotNil(t, cart.Lines[0].RemoteLineID, "remote id carried over")
	assert.Equal(t, int64(1), *cart.Lines[0].RemoteLineID)
	assert.Equal(t, []string{"remove:2", "remove:3", "update:1:4"}, f.remote.mutations())
}

func TestEngine_IncrementDecrementFloor(t *testing.T) {
	f := newFixture(t)
	f.remote.lines = []api.RemoteLine{remoteLine(1, 11, 1)}
	f.login(t)

	cart := f.engine.Decrement("11")
	assert.Equal(t, 1, cart.Lines[0].Quantity)

	cart = f.engine.Increment("11")
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	f.engine.Decrement("11")
	cart = f.engine.Decrement("11")
	assert.Equal(t, 1, cart.Lines[0].Quantity)

	f.flush(t)
	assert.Equal(t, []string{"update:1:2", "update:1:1"}, f.remote.mutations())
}

func TestEngine_IncrementUnknownProductIsNoop(t *testing.T) {
	f := newFixture(t)
	saves := f.store.saveCount()

	cart := f.engine.Increment("404")

	assert.True(t, cart.IsEmpty())
	assert.Equal(t, saves, f.store.saveCount())
}

func TestEngine_RemoveFromCart(t *testing.T) {
	f := newFixture(t)
	f.remote.lines = []api.RemoteLine{remoteLine(1, 11, 1), remoteLine(2, 12, 1)}
	f.login(t)

	cart := f.engine.RemoveFromCart("11")
	f.flush(t)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, []string{"remove:1", "update:2:1"}, f.remote.mutations())
}

func TestEngine_LogoutClearsEverythingInOneSave(t *testing.T) {
	f := newFixture(t)
	f.remote.lines = []api.RemoteLine{remoteLine(1, 11, 1)}
	f.login(t)
	before := f.store.saveCount()

	f.engine.Logout(context.Background())

	assert.Equal(t, before+1, f.store.saveCount())
	saved := f.store.last()
	assert.Nil(t, saved.CurrentUser)
	assert.Nil(t, saved.AuthTokens)
	assert.True(t, saved.Cart.IsEmpty())
	assert.False(t, f.engine.Snapshot().Authenticated())
}

func TestEngine_RemoteCartDiscardedAfterLogoutDuringFetch(t *testing.T) {
	f := newFixture(t)
	f.remote.lines = []api.RemoteLine{remoteLine(1, 11, 1)}
	f.remote.fetchStarted = make(chan struct{})
	f.remote.fetchGate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		f.login(t)
		close(done)
	}()

	<-f.remote.fetchStarted
	f.engine.Logout(context.Background())
	close(f.remote.fetchGate)
	<-done

	assert.True(t, f.engine.Cart().IsEmpty())
	assert.False(t, f.engine.Snapshot().Authenticated())
}

func TestEngine_PersistFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = fmt.Errorf("disk full: %w", domain.ErrPersistence)

	cart := f.engine.AddToCart(product("1", "2"), 1)

	require.Len(t, cart.Lines, 1)
	assert.Len(t, f.engine.Cart().Lines, 1)
}

func TestEngine_Restore(t *testing.T) {
	f := newFixture(t)
	stored := domain.NewSession()
	stored.CurrentUser = &domain.User{ID: "u9"}
	stored.Cart.Add(domain.CartLine{ProductID: "3", Quantity: 2})
	f.store.loaded = stored

	f.engine.Restore(context.Background())

	snap := f.engine.Snapshot()
	require.NotNil(t, snap.CurrentUser)
	assert.Equal(t, "u9", snap.CurrentUser.ID)
	assert.Equal(t, 2, snap.Cart.ItemCount())
}

func TestEngine_ProfileEvents(t *testing.T) {
	f := newFixture(t)

	err := f.engine.UpdateProfile(domain.User{ID: "u1"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.ErrorIs(t, f.engine.MarkPhoneVerified(), domain.ErrUnauthorized)

	f.login(t)
	require.NoError(t, f.engine.UpdateProfile(domain.User{ID: "u1", Name: "Ayesha K", Phone: "+92300"}))
	require.NoError(t, f.engine.MarkPhoneVerified())

	snap := f.engine.Snapshot()
	assert.Equal(t, "Ayesha K", snap.CurrentUser.Name)
	assert.True(t, snap.CurrentUser.PhoneVerified)
	assert.Equal(t, []notify.EventType{notify.EventCartSynced, notify.EventProfileUpdated, notify.EventPhoneVerified},
		f.bus.types())
}
