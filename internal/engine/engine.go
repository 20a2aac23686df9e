package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/ikramzafar0343/style-sathi/internal/notify"
	"github.com/ikramzafar0343/style-sathi/internal/session"
	"github.com/ikramzafar0343/style-sathi/internal/syncq"
	"github.com/sirupsen/logrus"
)

// RemoteCart is the server-held cart. Every call is best effort from the
// engine's point of view.
type RemoteCart interface {
	FetchCart(ctx context.Context, token string) ([]api.RemoteLine, error)
	AddLine(ctx context.Context, token string, productID int64, quantity int) (int64, error)
	UpdateLine(ctx context.Context, token string, lineID int64, quantity int) error
	RemoveLine(ctx context.Context, token string, lineID int64) error
}

// Catalog enriches remote lines that come back without display metadata.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (*api.Product, error)
}

type Publisher interface {
	Publish(e notify.Event)
}

type Config struct {
	SessionID      string
	Sync           syncq.Config
	PersistTimeout time.Duration
}

func DefaultConfig(sessionID string) Config {
	return Config{
		SessionID:      sessionID,
		Sync:           syncq.DefaultConfig(),
		PersistTimeout: 2 * time.Second,
	}
}

// Engine owns the session of one browsing context: the current user, the
// auth tokens and the authoritative in-memory cart. Every committed change is
// persisted synchronously; remote cart calls go through a single-writer queue
// and never block the caller.
type Engine struct {
	cfg     Config
	store   session.Store
	remote  RemoteCart
	catalog Catalog
	bus     Publisher
	queue   *syncq.Queue
	log     logrus.FieldLogger

	mu      sync.Mutex
	session *domain.Session
	adds    map[domain.ProductID]*pendingAdd
}

// pendingAdd tracks the add-line calls of one product that have not finished.
// Edits to a line made before its first add returns cannot be sent with a
// line id; the last add to finish brings the server line up to date instead.
type pendingAdd struct {
	inFlight int
	// unsynced is set when the line had no remote id when the first add was
	// queued, so no diff call covers edits made in the meantime.
	unsynced bool
	sent     int
	lineID   int64
}

// New builds an engine with an empty guest session; call Restore to load the
// persisted one. catalog may be nil.
func New(cfg Config, store session.Store, remote RemoteCart, catalog Catalog, bus Publisher, log logrus.FieldLogger) *Engine {
	log = log.WithField("session_id", cfg.SessionID)
	return &Engine{
		cfg:     cfg,
		store:   store,
		remote:  remote,
		catalog: catalog,
		bus:     bus,
		queue:   syncq.New(cfg.Sync, log),
		log:     log,
		session: domain.NewSession(),
		adds:    make(map[domain.ProductID]*pendingAdd),
	}
}

func (e *Engine) SessionID() string {
	return e.cfg.SessionID
}

// Restore replaces the in-memory session with the persisted one. A store that
// cannot be read leaves the current session untouched.
func (e *Engine) Restore(ctx context.Context) {
	s, err := e.store.Load(ctx)
	if err != nil {
		e.log.WithError(err).Warn("could not restore session, starting empty")
		return
	}

	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
}

// Snapshot returns a copy of the whole session.
func (e *Engine) Snapshot() *domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

func (e *Engine) Cart() domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Cart.Clone()
}

// Login commits the user and tokens, then replaces the cart with the remote
// one. The remote cart wins over any guest cart; if it cannot be fetched the
// current cart is kept.
func (e *Engine) Login(ctx context.Context, user domain.User, tokens *domain.AuthTokens) domain.Cart {
	e.mu.Lock()
	e.session.CurrentUser = &user
	e.session.AuthTokens = nil
	if tokens != nil {
		t := *tokens
		e.session.AuthTokens = &t
	}
	e.persistLocked()
	e.mu.Unlock()

	if err := e.Resync(ctx); err != nil {
		e.log.WithError(err).Warn("could not fetch remote cart after login, keeping local cart")
	}
	return e.Cart()
}

// Logout clears the cart, the user and the tokens in a single transition.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session = domain.NewSession()
	e.adds = make(map[domain.ProductID]*pendingAdd)
	e.persistLocked()
}

// UpdateProfile replaces the current user's profile.
func (e *Engine) UpdateProfile(user domain.User) error {
	e.mu.Lock()
	if e.session.CurrentUser == nil {
		e.mu.Unlock()
		return domain.ErrUnauthorized
	}
	e.session.CurrentUser = &user
	e.persistLocked()
	e.mu.Unlock()

	e.publish(notify.Event{Type: notify.EventProfileUpdated, Title: "Profile updated"})
	return nil
}

func (e *Engine) MarkPhoneVerified() error {
	e.mu.Lock()
	if e.session.CurrentUser == nil {
		e.mu.Unlock()
		return domain.ErrUnauthorized
	}
	e.session.CurrentUser.PhoneVerified = true
	e.persistLocked()
	e.mu.Unlock()

	e.publish(notify.Event{Type: notify.EventPhoneVerified, Title: "Phone verified"})
	return nil
}

// AddToCart sums quantity into the product's line or appends a new one. The
// local change commits before any remote call is made.
func (e *Engine) AddToCart(product domain.Product, quantity int) domain.Cart {
	if quantity < 1 {
		quantity = 1
	}

	id, numeric := product.ID.Numeric()

	e.mu.Lock()
	synced := false
	if i, ok := e.session.Cart.Find(product.ID); ok {
		synced = e.session.Cart.Lines[i].Synced()
	}
	e.session.Cart.Add(product.Line(quantity))
	e.persistLocked()
	token := e.session.AccessToken()
	out := e.session.Cart.Clone()
	if token != "" && numeric {
		p, ok := e.adds[product.ID]
		if !ok {
			p = &pendingAdd{unsynced: !synced}
			e.adds[product.ID] = p
		}
		p.inFlight++
	}
	e.mu.Unlock()

	if token == "" {
		return out
	}
	if !numeric {
		e.log.WithField("product_id", product.ID).Debug("non-numeric product kept local")
		return out
	}

	// The add may be retried; settling runs once, as the next job.
	var (
		lineID  int64
		addErr  error
		settled bool
		fixup   remoteOp
		pending bool
	)
	e.enqueue("add-line", func(ctx context.Context) error {
		lineID, addErr = e.remote.AddLine(ctx, token, id, quantity)
		return addErr
	})
	e.enqueue("settle-add-line", func(ctx context.Context) error {
		if !settled {
			fixup, pending = e.settleAdd(product.ID, token, quantity, lineID, addErr)
			settled = true
		}
		if !pending {
			return nil
		}
		return e.runOp(ctx, token, fixup)
	})
	return out
}

// UpdateCart replaces the cart with lines. Lines with a quantity below one are
// dropped, duplicates are merged, and remote line ids missing from lines are
// carried over from the current cart.
func (e *Engine) UpdateCart(lines []domain.CartLine) domain.Cart {
	e.mu.Lock()
	prev := e.session.Cart.Clone()
	next := domain.EmptyCart()
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if l.RemoteLineID == nil {
			if i, ok := prev.Find(l.ProductID); ok && prev.Lines[i].RemoteLineID != nil {
				id := *prev.Lines[i].RemoteLineID
				l.RemoteLineID = &id
			}
		}
		next.Add(l)
	}
	return e.commitLocked(prev, next)
}

// Increment raises a line's quantity by one.
func (e *Engine) Increment(productID domain.ProductID) domain.Cart {
	return e.mutate(func(c *domain.Cart) bool {
		i, ok := c.Find(productID)
		if !ok {
			return false
		}
		c.Lines[i].Quantity++
		return true
	})
}

// Decrement lowers a line's quantity by one, never below one.
func (e *Engine) Decrement(productID domain.ProductID) domain.Cart {
	return e.mutate(func(c *domain.Cart) bool {
		i, ok := c.Find(productID)
		if !ok {
			return false
		}
		q := domain.ClampQuantity(c.Lines[i].Quantity - 1)
		if q == c.Lines[i].Quantity {
			return false
		}
		c.Lines[i].Quantity = q
		return true
	})
}

func (e *Engine) RemoveFromCart(productID domain.ProductID) domain.Cart {
	return e.mutate(func(c *domain.Cart) bool {
		_, ok := c.Remove(productID)
		return ok
	})
}

// ClearCart empties the cart locally. The server cart is left to the order API,
// which consumes it when an order is placed.
func (e *Engine) ClearCart() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.Cart = domain.EmptyCart()
	e.persistLocked()
}

// Resync replaces the cart with the remote cart. It waits for every remote
// call queued before it, so the fetched cart reflects them.
func (e *Engine) Resync(ctx context.Context) error {
	e.mu.Lock()
	token := e.session.AccessToken()
	e.mu.Unlock()
	if token == "" {
		return nil
	}

	var (
		fetched  []domain.CartLine
		fetchErr error
	)
	done := make(chan struct{})

	fetch := func(ctx context.Context) error {
		remote, err := e.remote.FetchCart(ctx, token)
		if err != nil {
			fetchErr = err
			return err
		}
		fetched, fetchErr = e.mapRemote(ctx, remote), nil
		return nil
	}
	if !e.queue.Enqueue("fetch-cart", fetch) {
		return syncq.ErrClosed
	}
	if !e.queue.Enqueue("fetch-cart-done", func(context.Context) error {
		close(done)
		return nil
	}) {
		return syncq.ErrClosed
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if fetchErr != nil {
		return fetchErr
	}

	e.mu.Lock()
	if e.session.AccessToken() != token {
		e.mu.Unlock()
		e.log.Debug("session changed during cart fetch, discarding remote cart")
		return nil
	}
	cart := domain.EmptyCart()
	for _, l := range fetched {
		cart.Add(l)
	}
	e.session.Cart = cart
	e.persistLocked()
	count := cart.ItemCount()
	e.mu.Unlock()

	e.log.WithField("items", count).Info("cart synced from server")
	e.publish(notify.Event{Type: notify.EventCartSynced, Title: "Cart synced"})
	return nil
}

// Flush waits until every remote call scheduled so far has finished.
func (e *Engine) Flush(ctx context.Context) error {
	return e.queue.Flush(ctx)
}

// Close drains pending remote calls.
func (e *Engine) Close(ctx context.Context) error {
	return e.queue.Close(ctx)
}

func (e *Engine) mutate(fn func(c *domain.Cart) bool) domain.Cart {
	e.mu.Lock()
	prev := e.session.Cart.Clone()
	next := e.session.Cart.Clone()
	if !fn(&next) {
		e.mu.Unlock()
		return prev
	}
	return e.commitLocked(prev, next)
}

// commitLocked installs next, persists it and schedules the remote calls that
// bring the server cart in line. It releases e.mu.
func (e *Engine) commitLocked(prev, next domain.Cart) domain.Cart {
	e.session.Cart = next
	e.persistLocked()
	token := e.session.AccessToken()
	out := next.Clone()
	e.mu.Unlock()

	if token == "" {
		return out
	}

	for _, op := range diffCart(prev, next) {
		op := op
		e.enqueue(op.kind.String(), func(ctx context.Context) error {
			return e.runOp(ctx, token, op)
		})
	}
	return out
}

func (e *Engine) runOp(ctx context.Context, token string, op remoteOp) error {
	if op.kind == opRemove {
		return e.remote.RemoveLine(ctx, token, op.lineID)
	}
	return e.remote.UpdateLine(ctx, token, op.lineID, op.quantity)
}

// settleAdd backfills the line id returned by an add-line call. When it is the
// last add of a line that was unsynced, it returns the call that applies the
// edits made while the adds were in flight: an update to the current local
// quantity, or a remove if the line is gone.
func (e *Engine) settleAdd(productID domain.ProductID, token string, quantity int, lineID int64, addErr error) (remoteOp, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.AccessToken() != token {
		return remoteOp{}, false
	}
	p, ok := e.adds[productID]
	if !ok {
		return remoteOp{}, false
	}

	p.inFlight--
	i, found := e.session.Cart.Find(productID)
	if addErr == nil {
		p.sent += quantity
		p.lineID = lineID
		if found {
			e.session.Cart.Lines[i].RemoteLineID = &lineID
			e.persistLocked()
		}
	}
	if p.inFlight > 0 {
		return remoteOp{}, false
	}
	delete(e.adds, productID)

	if !p.unsynced || p.sent == 0 {
		return remoteOp{}, false
	}
	if !found {
		return remoteOp{kind: opRemove, productID: productID, lineID: p.lineID}, true
	}
	if q := e.session.Cart.Lines[i].Quantity; q != p.sent {
		return remoteOp{kind: opUpdate, productID: productID, lineID: p.lineID, quantity: q}, true
	}
	return remoteOp{}, false
}

func (e *Engine) mapRemote(ctx context.Context, remote []api.RemoteLine) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(remote))
	for _, r := range remote {
		if r.Quantity < 1 {
			continue
		}
		lineID := r.LineID
		line := domain.CartLine{
			ProductID:    domain.ProductIDFromInt(r.ProductID),
			Name:         r.Product.Name,
			UnitPrice:    r.UnitPrice,
			Quantity:     r.Quantity,
			ImageRef:     r.Product.ImageRef,
			Brand:        r.Product.Brand,
			RemoteLineID: &lineID,
		}
		if line.Name == "" && e.catalog != nil {
			e.enrich(ctx, r.ProductID, &line)
		}
		lines = append(lines, line)
	}
	return lines
}

func (e *Engine) enrich(ctx context.Context, productID int64, line *domain.CartLine) {
	p, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		e.log.WithError(err).WithField("product_id", productID).Debug("catalog lookup failed")
		return
	}
	line.Name = p.Name
	if line.ImageRef == "" {
		line.ImageRef = p.ImageRef
	}
	if line.Brand == "" {
		line.Brand = p.Brand
	}
	if line.UnitPrice.IsZero() {
		line.UnitPrice = p.Price
	}
}

func (e *Engine) enqueue(name string, fn func(ctx context.Context) error) {
	if !e.queue.Enqueue(name, fn) {
		e.log.WithField("job", name).Warn("sync queue closed, remote call skipped")
	}
}

// persistLocked writes the session through to the store. Failures are logged
// and swallowed: the in-memory session stays authoritative.
func (e *Engine) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	defer cancel()

	if err := e.store.Save(ctx, e.session.Clone()); err != nil {
		e.log.WithError(err).Warn("failed to persist session")
	}
}

func (e *Engine) publish(ev notify.Event) {
	ev.SessionID = e.cfg.SessionID
	e.bus.Publish(ev)
}
