package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/checkout"
	"github.com/ikramzafar0343/style-sathi/internal/engine"
	"github.com/ikramzafar0343/style-sathi/internal/orders"
	"github.com/ikramzafar0343/style-sathi/internal/session"
	"github.com/ikramzafar0343/style-sathi/internal/syncq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrRegistryClosed = errors.New("session registry closed")

// StoreFactory opens the persisted store of one session.
type StoreFactory func(sessionID string) session.Store

type OrderAPI interface {
	checkout.OrderAPI
	orders.OrderAPI
}

type Dependencies struct {
	Stores  StoreFactory
	Cart    engine.RemoteCart
	Catalog engine.Catalog
	Orders  OrderAPI
	Bus     engine.Publisher
}

type Config struct {
	Sync           syncq.Config
	PersistTimeout time.Duration
	RestoreTimeout time.Duration
	// IdleTimeout is how long a controller may go unused before it is closed
	// and dropped. Zero keeps controllers until Close.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	CloseTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Sync:           syncq.DefaultConfig(),
		PersistTimeout: 2 * time.Second,
		RestoreTimeout: 5 * time.Second,
		IdleTimeout:    30 * time.Minute,
		SweepInterval:  time.Minute,
		CloseTimeout:   10 * time.Second,
	}
}

// Controller is everything one browsing session owns: its cart engine, its
// checkout flow and the orders it manages as a seller.
type Controller struct {
	Engine   *engine.Engine
	Checkout *checkout.Flow
	Orders   *orders.Manager

	store    session.Store
	lastUsed atomic.Int64
}

func (c *Controller) touch(now time.Time) {
	c.lastUsed.Store(now.UnixNano())
}

func (c *Controller) close(ctx context.Context) error {
	err := c.Engine.Close(ctx)
	return errors.Join(err, c.store.Close())
}

// Registry creates one Controller per session id on first use and hands the
// same one back afterwards.
type Registry struct {
	cfg  Config
	deps Dependencies
	log  logrus.FieldLogger

	sfg         singleflight.Group // one restore per session id
	mu          sync.RWMutex
	controllers map[string]*Controller
	closed      bool
	now         func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRegistry builds a registry. When cfg sets both IdleTimeout and
// SweepInterval, a background sweeper evicts idle controllers until Close.
func NewRegistry(cfg Config, deps Dependencies, log logrus.FieldLogger) *Registry {
	r := &Registry{
		cfg:         cfg,
		deps:        deps,
		log:         log,
		controllers: make(map[string]*Controller),
		now:         time.Now,
		done:        make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 && cfg.SweepInterval > 0 {
		r.wg.Add(1)
		go r.sweepLoop()
	}
	return r
}

// Get returns the controller of sessionID, restoring its persisted session
// when it is first seen.
func (r *Registry) Get(sessionID string) (*Controller, error) {
	r.mu.RLock()
	c, ok := r.controllers[sessionID]
	if ok {
		c.touch(r.now())
	}
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	if ok {
		return c, nil
	}

	v, err, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.controllers[sessionID]
		if ok {
			existing.touch(r.now())
		}
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		c := r.newController(sessionID)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			r.closeController(sessionID, c)
			return nil, ErrRegistryClosed
		}
		c.touch(r.now())
		r.controllers[sessionID] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Controller), nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controllers)
}

// Sweep closes and drops every controller unused for longer than the idle
// timeout. It returns the number evicted. A later Get for an evicted session
// restores it from its store.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.IdleTimeout).UnixNano()

	r.mu.Lock()
	idle := make(map[string]*Controller)
	for id, c := range r.controllers {
		if c.lastUsed.Load() < cutoff {
			idle[id] = c
			delete(r.controllers, id)
		}
	}
	r.mu.Unlock()

	for id, c := range idle {
		if err := c.close(ctx); err != nil {
			r.log.WithError(err).WithField("session_id", id).Warn("closing idle session controller failed")
		}
	}
	if len(idle) > 0 {
		r.log.WithField("evicted", len(idle)).Debug("idle session controllers evicted")
	}
	return len(idle)
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.closeTimeout())
			r.Sweep(ctx)
			cancel()
		}
	}
}

func (r *Registry) closeController(sessionID string, c *Controller) {
	ctx, cancel := context.WithTimeout(context.Background(), r.closeTimeout())
	defer cancel()
	if err := c.close(ctx); err != nil {
		r.log.WithError(err).WithField("session_id", sessionID).Warn("closing session controller failed")
	}
}

func (r *Registry) closeTimeout() time.Duration {
	if r.cfg.CloseTimeout > 0 {
		return r.cfg.CloseTimeout
	}
	return 10 * time.Second
}

// Close stops the sweeper, drains every session's pending remote calls and
// closes its store.
func (r *Registry) Close(ctx context.Context) error {
	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()

	r.mu.Lock()
	r.closed = true
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range controllers {
		if err := c.close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) newController(sessionID string) *Controller {
	store := r.deps.Stores(sessionID)

	cfg := engine.Config{
		SessionID:      sessionID,
		Sync:           r.cfg.Sync,
		PersistTimeout: r.cfg.PersistTimeout,
	}
	eng := engine.New(cfg, store, r.deps.Cart, r.deps.Catalog, r.deps.Bus, r.log)

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RestoreTimeout)
	defer cancel()
	eng.Restore(ctx)

	r.log.WithField("session_id", sessionID).Debug("session controller created")
	return &Controller{
		Engine:   eng,
		Checkout: checkout.NewFlow(eng, r.deps.Orders, r.deps.Bus, r.log),
		Orders:   orders.NewManager(eng, r.deps.Orders, r.deps.Bus, r.log),
		store:    store,
	}
}
